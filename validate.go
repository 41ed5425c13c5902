package logroute

import (
	"maps"
	"slices"
)

// Validate checks the document for self-consistency: a supported version,
// compilable templates, recognized handler kinds with only their own
// fields set, and closed references (every formatter a handler names and
// every handler a logger names must be declared). The first problem found
// is returned as a [ConfigError]; nothing about the process is touched.
//
// Validate runs as part of [Load], [ReadJSON], and [ReadYAML]. It is
// exported for documents assembled in code.
func (cfg *Config) Validate() error {
	if cfg.Version != SupportedVersion {
		return configErrorf("version", "unsupported version %d, want %d", cfg.Version, SupportedVersion)
	}

	for _, name := range sortedKeys(cfg.Formatters) {
		f := cfg.Formatters[name]
		if _, err := NewFormatter(f.Format, f.DateFormat); err != nil {
			return &ConfigError{Path: "formatters." + name, Err: err}
		}
	}

	for _, name := range sortedKeys(cfg.Handlers) {
		if name == "" {
			return configErrorf("handlers", "handler name must not be empty")
		}
		if err := cfg.Handlers[name].validate(cfg, "handlers."+name); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(cfg.Loggers) {
		if name == "" {
			return configErrorf("loggers", "logger name must not be empty")
		}
		if name == "root" {
			return configErrorf("loggers.root", "configure the root logger with the top-level root section")
		}
		if err := cfg.Loggers[name].validate(cfg, "loggers."+name); err != nil {
			return err
		}
	}

	if cfg.Root.Level == 0 && len(cfg.Root.Handlers) == 0 {
		return configErrorf("root", "missing root logger")
	}
	return cfg.Root.validate(cfg, "root")
}

func (h HandlerConfig) validate(cfg *Config, path string) error {
	switch h.Kind {
	case KindConsole, KindFile, KindBridge:
	case "":
		return configErrorf(path+".kind", "missing handler kind")
	default:
		return configErrorf(path+".kind", "unknown handler kind %q", string(h.Kind))
	}
	if h.Level == 0 {
		return configErrorf(path+".level", "missing level")
	}
	if !h.Level.valid() {
		return configErrorf(path+".level", "unknown severity %q", h.Level.String())
	}
	if h.Formatter == "" {
		return configErrorf(path+".formatter", "missing formatter")
	}
	if _, ok := cfg.Formatters[h.Formatter]; !ok {
		return configErrorf(path+".formatter", "undeclared formatter %q", h.Formatter)
	}

	switch h.Kind {
	case KindConsole:
		if _, err := parseStream(h.Stream); err != nil {
			return &ConfigError{Path: path + ".stream", Err: err}
		}
		if h.Path != "" || h.MaxBytes != 0 || h.BackupCount != 0 || h.Encoding != "" {
			return configErrorf(path, "file fields do not apply to console handlers")
		}
	case KindFile:
		if h.Stream != "" {
			return configErrorf(path+".stream", "stream does not apply to file handlers")
		}
		if h.Path == "" {
			return configErrorf(path+".path", "missing path")
		}
		if h.MaxBytes < 0 {
			return configErrorf(path+".maxBytes", "negative maxBytes %d", h.MaxBytes)
		}
		if h.BackupCount < 0 {
			return configErrorf(path+".backupCount", "negative backupCount %d", h.BackupCount)
		}
		if _, err := lookupEncoding(h.Encoding); err != nil {
			return &ConfigError{Path: path + ".encoding", Err: err}
		}
	case KindBridge:
		if h.Stream != "" || h.Path != "" || h.MaxBytes != 0 || h.BackupCount != 0 || h.Encoding != "" {
			return configErrorf(path, "bridge handlers carry no destination fields")
		}
	}
	return nil
}

func (l LoggerConfig) validate(cfg *Config, path string) error {
	if l.Level == 0 {
		return configErrorf(path+".level", "missing level")
	}
	if !l.Level.valid() {
		return configErrorf(path+".level", "unknown severity %q", l.Level.String())
	}
	for _, name := range l.Handlers {
		if _, ok := cfg.Handlers[name]; !ok {
			return configErrorf(path+".handlers", "undeclared handler %q", name)
		}
	}
	return nil
}

// sortedKeys keeps validation order, and so the first error reported,
// stable across runs.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
