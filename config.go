package logroute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only document schema version the loader accepts.
const SupportedVersion = 1

// Config is a parsed logging configuration document. It declares named
// formatters and handlers and routes dotted logger names to handler sets,
// with Root as the fallback route.
//
// Config should be created with a call to [Load], [ReadJSON], or
// [ReadYAML], which decode strictly and validate the document. A Config is
// inert data until it is applied with [Registry.Configure].
type Config struct {
	// Version pins the document schema and must equal [SupportedVersion].
	Version int `json:"version" yaml:"version"`
	// DisableExistingLoggers deactivates logger handles that exist before
	// the configuration is applied and are not named in Loggers.
	DisableExistingLoggers bool `json:"disable_existing_loggers" yaml:"disable_existing_loggers"`
	// Formatters declares the named message templates handlers render
	// records with.
	Formatters map[string]FormatterConfig `json:"formatters" yaml:"formatters"`
	// Handlers declares the named destinations loggers route records to.
	Handlers map[string]HandlerConfig `json:"handlers" yaml:"handlers"`
	// Loggers routes dotted logger names. A name not present here follows
	// its nearest dotted ancestor, and failing that, Root.
	Loggers map[string]LoggerConfig `json:"loggers,omitempty" yaml:"loggers,omitempty"`
	// Root is the route applied to any logger not covered by Loggers.
	Root LoggerConfig `json:"root" yaml:"root"`

	// baseDir is the directory relative handler paths resolve against,
	// remembered by Load.
	baseDir string
}

// A FormatterConfig is one named message template. Documents may spell a
// formatter either as a bare template string or as an object with format
// and datefmt keys; the loaded shape is remembered so that serialization
// reproduces the input.
type FormatterConfig struct {
	// Format is the message template. Empty renders the bare message.
	// See [NewFormatter] for the recognized tokens.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// DateFormat is the Go time layout applied to %(asctime)s tokens.
	// Empty falls back to [DefaultDateFormat].
	DateFormat string `json:"datefmt,omitempty" yaml:"datefmt,omitempty"`

	scalar bool
}

// HandlerKind selects a handler's destination variant.
type HandlerKind string

const (
	// KindConsole writes rendered records to a process stream.
	KindConsole HandlerKind = "console"
	// KindFile writes rendered records to a file, rotating by size when
	// maxBytes is set.
	KindFile HandlerKind = "file"
	// KindBridge forwards structured records to an externally bound
	// [BridgeSink].
	KindBridge HandlerKind = "bridge"
)

// A HandlerConfig declares one handler: a severity-filtered destination
// rendering records through a named formatter. Fields below the common
// three belong to a single kind and must be left unset for the others.
type HandlerConfig struct {
	// Kind selects the destination variant.
	Kind HandlerKind `json:"kind" yaml:"kind"`
	// Level is the minimum severity the handler accepts.
	Level Severity `json:"level" yaml:"level"`
	// Formatter names the [Config.Formatters] entry that renders records
	// for this handler.
	Formatter string `json:"formatter" yaml:"formatter"`

	// Stream selects the console destination, "stdout" or "stderr".
	// "ext://sys.stdout" and "ext://sys.stderr" are accepted aliases.
	// The default is stderr.
	Stream string `json:"stream,omitempty" yaml:"stream,omitempty"`

	// Path is the log file location. A relative path resolves against the
	// directory of the loaded document, and ${var} expands from the
	// environment when the configuration is applied, not when it is
	// loaded.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// MaxBytes rotates the file before a write would grow it to this size
	// or beyond. Zero disables rotation.
	MaxBytes int64 `json:"maxBytes,omitempty" yaml:"maxBytes,omitempty"`
	// BackupCount bounds how many rotated files are kept. Rotation
	// requires both MaxBytes and BackupCount to be positive.
	BackupCount int `json:"backupCount,omitempty" yaml:"backupCount,omitempty"`
	// Encoding is the IANA name of the character encoding written to the
	// file. Empty, or any UTF-8 alias, writes bytes as rendered.
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// A LoggerConfig routes one named logger, or the root, to its handlers.
type LoggerConfig struct {
	// Level is the minimum severity the logger lets through to its
	// handlers.
	Level Severity `json:"level" yaml:"level"`
	// Handlers names the handler entries records are delivered to.
	Handlers []string `json:"handlers" yaml:"handlers"`
}

// Load reads, parses, and validates the configuration document at path.
// The format is chosen by extension: ".json" for JSON, ".yaml" or ".yml"
// for YAML. Relative handler paths in the document resolve against the
// directory containing path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg *Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = ReadYAML(f)
	case ".json":
		cfg, err = ReadJSON(f)
	default:
		return nil, fmt.Errorf("logroute: unsupported config extension %q", ext)
	}
	if err != nil {
		return nil, err
	}
	cfg.baseDir = filepath.Dir(path)
	return cfg, nil
}

// ReadJSON returns the Config parsed from the JSON encoded document from
// r. Unknown fields are rejected and the document is validated.
func ReadJSON(r io.Reader) (*Config, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadYAML returns the Config parsed from the YAML encoded document from
// r. Unknown fields are rejected and the document is validated.
func ReadYAML(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteJSON writes the JSON encoding of cfg to w. A loaded document
// serializes back equal to its input.
func (cfg *Config) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// WriteYAML writes the YAML encoding of cfg to w.
func (cfg *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	enc.SetIndent(2)
	return enc.Encode(cfg)
}

// resolvePath expands ${var} references in a handler path from the
// environment and resolves it against baseDir, or against the loaded
// document's directory when baseDir is empty.
func (cfg *Config) resolvePath(path, baseDir string) string {
	path = os.ExpandEnv(path)
	if filepath.IsAbs(path) {
		return path
	}
	if baseDir == "" {
		baseDir = cfg.baseDir
	}
	return filepath.Join(baseDir, path)
}

// UnmarshalJSON implements [encoding/json.Unmarshaler], accepting either a
// bare template string or a {format, datefmt} object.
func (f *FormatterConfig) UnmarshalJSON(data []byte) error {
	if s := bytes.TrimSpace(data); len(s) > 0 && s[0] == '"' {
		f.scalar = true
		return json.Unmarshal(s, &f.Format)
	}
	type plain FormatterConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p plain
	if err := dec.Decode(&p); err != nil {
		return err
	}
	f.Format, f.DateFormat = p.Format, p.DateFormat
	return nil
}

// MarshalJSON implements [encoding/json.Marshaler], reproducing the shape
// the formatter was loaded in.
func (f FormatterConfig) MarshalJSON() ([]byte, error) {
	if f.scalar {
		return json.Marshal(f.Format)
	}
	type plain FormatterConfig
	return json.Marshal(plain(f))
}

// UnmarshalYAML implements [yaml.Unmarshaler], accepting either a bare
// template string or a {format, datefmt} mapping.
func (f *FormatterConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.scalar = true
		return value.Decode(&f.Format)
	}
	// Node.Decode does not inherit the outer decoder's KnownFields, so
	// unknown keys are rejected by hand.
	for i := 0; i+1 < len(value.Content); i += 2 {
		switch key := value.Content[i]; key.Value {
		case "format", "datefmt":
		default:
			return fmt.Errorf("line %d: field %s not found in formatter", key.Line, key.Value)
		}
	}
	type plain FormatterConfig
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	f.Format, f.DateFormat = p.Format, p.DateFormat
	return nil
}

// MarshalYAML implements [yaml.Marshaler], reproducing the shape the
// formatter was loaded in.
func (f FormatterConfig) MarshalYAML() (any, error) {
	if f.scalar {
		return f.Format, nil
	}
	type plain FormatterConfig
	return plain(f), nil
}
