package logroute

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/robokit/logroute/rotate"
)

// stream identifies a console destination.
type stream uint8

const (
	streamStderr stream = iota
	streamStdout
)

func parseStream(s string) (stream, error) {
	switch s {
	case "", "stderr", "ext://sys.stderr":
		return streamStderr, nil
	case "stdout", "ext://sys.stdout":
		return streamStdout, nil
	}
	return 0, fmt.Errorf("unknown stream %q", s)
}

// lookupEncoding resolves the IANA charset name of a file handler. The
// empty name and UTF-8 aliases return nil, meaning rendered bytes are
// written untranslated.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf8", "utf-8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// renderCore is the zapcore.Core behind console and file handlers. It
// renders each entry through the handler's formatter and hands it to a
// serialized WriteSyncer as a single write.
type renderCore struct {
	zapcore.LevelEnabler
	tpl     *Formatter
	out     zapcore.WriteSyncer
	paint   painter           // console severity color, nil when plain
	enc     encoding.Encoding // file charset, nil when native
	console bool
}

// With implements zapcore.Core. Structured fields do not participate in
// templates.
func (c *renderCore) With([]zapcore.Field) zapcore.Core { return c }

func (c *renderCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *renderCore) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	buf := bufferPool.Get()
	defer buf.Free()

	c.tpl.appendRecord(buf, recordOf(ent), c.paint)
	buf.AppendByte('\n')

	b := buf.Bytes()
	if c.enc != nil {
		// Encode the whole record up front so that rotation, which counts
		// encoded bytes, never splits one across files.
		eb, _, err := transform.Bytes(c.enc.NewEncoder(), b)
		if err != nil {
			return err
		}
		b = eb
	}
	_, err := c.out.Write(b)
	return err
}

func (c *renderCore) Sync() error {
	err := c.out.Sync()
	if c.console {
		// Process streams refuse fsync on most platforms.
		return nil
	}
	return err
}

// bridgeCore hands structured records to an externally bound sink.
type bridgeCore struct {
	zapcore.LevelEnabler
	tpl  *Formatter
	sink BridgeSink
}

// With implements zapcore.Core. Structured fields do not participate in
// templates.
func (c *bridgeCore) With([]zapcore.Field) zapcore.Core { return c }

func (c *bridgeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *bridgeCore) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	rec := recordOf(ent)
	rec.Formatted = c.tpl.Format(rec)
	c.sink.Accept(rec)
	return nil
}

func (c *bridgeCore) Sync() error { return nil }

// handlerSet is the outcome of building every handler a document declares:
// one core per handler name, whether that handler wants call sites
// captured, and whatever must be closed when the set is superseded.
type handlerSet struct {
	cores   map[string]zapcore.Core
	callers map[string]bool
	closers []io.Closer
}

func (s *handlerSet) close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (s *handlerSet) sync() error {
	var err error
	for _, core := range s.cores {
		err = multierr.Append(err, core.Sync())
	}
	return err
}

// buildHandlers opens every destination in the document. On any failure
// the destinations opened so far are closed again and nothing is applied.
func (r *Registry) buildHandlers(cfg *Config) (*handlerSet, error) {
	set := &handlerSet{
		cores:   make(map[string]zapcore.Core, len(cfg.Handlers)),
		callers: make(map[string]bool, len(cfg.Handlers)),
	}
	for _, name := range sortedKeys(cfg.Handlers) {
		h := cfg.Handlers[name]
		f := cfg.Formatters[h.Formatter]
		tpl, err := NewFormatter(f.Format, f.DateFormat)
		if err != nil {
			set.close()
			return nil, &ConfigError{Path: "formatters." + h.Formatter, Err: err}
		}
		core, err := r.buildHandler(cfg, name, h, tpl, set)
		if err != nil {
			set.close()
			return nil, err
		}
		set.cores[name] = core
		set.callers[name] = tpl.needsCaller || h.Kind == KindBridge
	}
	return set, nil
}

func (r *Registry) buildHandler(cfg *Config, name string, h HandlerConfig, tpl *Formatter, set *handlerSet) (zapcore.Core, error) {
	switch h.Kind {
	case KindConsole:
		st, err := parseStream(h.Stream)
		if err != nil {
			return nil, &ConfigError{Path: "handlers." + name + ".stream", Err: err}
		}
		w := r.stderr
		if st == streamStdout {
			w = r.stdout
		}
		var paint painter
		if r.colorize(w) {
			paint = paintSeverity
		}
		return &renderCore{
			LevelEnabler: h.Level,
			tpl:          tpl,
			out:          zapcore.Lock(zapcore.AddSync(w)),
			paint:        paint,
			console:      true,
		}, nil

	case KindFile:
		enc, err := lookupEncoding(h.Encoding)
		if err != nil {
			return nil, &ConfigError{Path: "handlers." + name + ".encoding", Err: err}
		}
		w, err := rotate.New(cfg.resolvePath(h.Path, r.baseDir), h.MaxBytes, h.BackupCount)
		if err != nil {
			return nil, &DestinationError{Handler: name, Err: err}
		}
		set.closers = append(set.closers, w)
		return &renderCore{
			LevelEnabler: h.Level,
			tpl:          tpl,
			out:          zapcore.Lock(w),
			enc:          enc,
		}, nil

	case KindBridge:
		sink, ok := r.bridges[name]
		if !ok {
			return nil, &DestinationError{Handler: name, Err: errors.New("no bridge sink bound")}
		}
		return &bridgeCore{
			LevelEnabler: h.Level,
			tpl:          tpl,
			sink:         sink,
		}, nil
	}
	return nil, configErrorf("handlers."+name+".kind", "unknown handler kind %q", string(h.Kind))
}

// colorize decides console color: forced by WithColor when given,
// otherwise on when the destination is a terminal.
func (r *Registry) colorize(w io.Writer) bool {
	if r.color != nil {
		return *r.color
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

const (
	ansiReset        = "\x1b[0m"
	ansiRed          = "\x1b[31m"
	ansiBrightRed    = "\x1b[91m"
	ansiBrightYellow = "\x1b[93m"
	ansiBrightWhite  = "\x1b[97m"
	ansiGray         = "\x1b[90m"
)

func paintSeverity(s Severity, name string) string {
	var color string
	switch s {
	case SeverityDebug:
		color = ansiGray
	case SeverityInfo:
		color = ansiBrightWhite
	case SeverityWarning:
		color = ansiBrightYellow
	case SeverityError:
		color = ansiBrightRed
	default:
		color = ansiRed
	}
	return color + name + ansiReset
}
