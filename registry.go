package logroute

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/robokit/logroute/internal/syncutil"
)

// A Registry owns the logger handles of one logging domain, usually the
// whole process. Handles may be obtained at any time: before a
// configuration is applied they behave like the classic fallback, bare
// messages at WARNING and above to standard error, and afterwards they
// follow the document's routing.
type Registry struct {
	mu      sync.Mutex // serializes Configure and handle creation
	root    *Logger
	loggers syncutil.Map[string, *Logger]
	applied *appliedConfig

	stdout  io.Writer
	stderr  io.Writer
	color   *bool
	clock   zapcore.Clock
	bridges map[string]BridgeSink
	baseDir string
}

// appliedConfig is a successfully applied document: the built handler
// cores plus the routing table handles resolve against.
type appliedConfig struct {
	set     *handlerSet
	loggers map[string]LoggerConfig
	root    LoggerConfig
}

// NewRegistry returns a registry with nothing applied. Options given here
// hold for the life of the registry; [Registry.Configure] may add more.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		clock:   zapcore.DefaultClock,
		bridges: make(map[string]BridgeSink),
	}
	r.loggers.Make()
	for _, o := range opts {
		o(r)
	}
	r.root = &Logger{name: "root"}
	r.root.state.Store(r.lastResort("root"))
	return r
}

// Configure validates cfg, opens every handler destination, and re-points
// every handle, existing and future, at the document's routing. It is
// all-or-nothing: on error the registry keeps its previous behavior and
// any destinations opened during the failed attempt are closed again.
//
// Handles that exist before Configure and are not routed by name are
// disabled when the document sets disable_existing_loggers; otherwise
// they fall back like any other name. A later Configure replaces the
// applied document and closes the file destinations of the previous one.
func (r *Registry) Configure(cfg *Config, opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range opts {
		o(r)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	set, err := r.buildHandlers(cfg)
	if err != nil {
		return err
	}

	prev := r.applied
	r.applied = &appliedConfig{
		set:     set,
		loggers: cfg.Loggers,
		root:    cfg.Root,
	}

	r.root.state.Store(r.newState("root", cfg.Root))
	for name, l := range r.loggers.Iter() {
		route, ok := routeFor(cfg.Loggers, name)
		if !ok {
			if cfg.DisableExistingLoggers {
				l.state.Store(disabledState)
				continue
			}
			route = cfg.Root
		}
		l.state.Store(r.newState(name, route))
	}

	if prev != nil {
		// Old destinations close only after every handle points at the
		// new ones.
		return prev.set.close()
	}
	return nil
}

// Get returns the handle for a dotted logger name, creating it on first
// use. The empty name and "root" return the root handle. Concurrent calls
// with the same name return the same handle.
func (r *Registry) Get(name string) *Logger {
	if name == "" || name == "root" {
		return r.root
	}
	if l, ok := r.loggers.Load(name); ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loggers.Load(name); ok {
		return l
	}
	l := &Logger{name: name}
	if ap := r.applied; ap != nil {
		route, ok := routeFor(ap.loggers, name)
		if !ok {
			route = ap.root
		}
		l.state.Store(r.newState(name, route))
	} else {
		l.state.Store(r.lastResort(name))
	}
	r.loggers.Store(name, l)
	return l
}

// Root returns the handle every unrouted name falls back to.
func (r *Registry) Root() *Logger { return r.root }

// Sync flushes every handler of the applied configuration.
func (r *Registry) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.applied == nil {
		return nil
	}
	return r.applied.set.sync()
}

// Close flushes and closes the destinations the registry opened and
// disables every handle. Bridge sinks are bound, not owned, and stay
// open for their owner to close.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.applied == nil {
		return nil
	}
	err := r.applied.set.close()
	r.applied = nil
	r.root.state.Store(disabledState)
	for _, l := range r.loggers.Iter() {
		l.state.Store(disabledState)
	}
	return err
}

// routeFor resolves a dotted name against the routing table: the exact
// entry, else the nearest dotted ancestor.
func routeFor(loggers map[string]LoggerConfig, name string) (LoggerConfig, bool) {
	for n := name; n != ""; {
		if route, ok := loggers[n]; ok {
			return route, true
		}
		i := strings.LastIndexByte(n, '.')
		if i < 0 {
			break
		}
		n = n[:i]
	}
	return LoggerConfig{}, false
}

// newState assembles the zap logger behind a handle: a tee of the routed
// handler cores, stamped by the registry clock, capturing call sites only
// when some routed handler needs them. Callers hold r.mu.
func (r *Registry) newState(name string, route LoggerConfig) *loggerState {
	var (
		cores  = make([]zapcore.Core, 0, len(route.Handlers))
		seen   = make(map[string]bool, len(route.Handlers))
		caller bool
	)
	for _, hn := range route.Handlers {
		// A handler listed twice still delivers once.
		if seen[hn] {
			continue
		}
		seen[hn] = true
		cores = append(cores, r.applied.set.cores[hn])
		caller = caller || r.applied.set.callers[hn]
	}
	opts := []zap.Option{
		zap.WithClock(r.clock),
		zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(r.stderr))),
	}
	if caller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(2))
	}
	zl := zap.New(zapcore.NewTee(cores...), opts...).Named(name)
	return &loggerState{zl: zl, min: route.Level}
}

// lastResort is the pre-configuration behavior of a handle: bare messages
// at WARNING and above to standard error.
func (r *Registry) lastResort(name string) *loggerState {
	tpl, _ := NewFormatter("", "")
	core := &renderCore{
		LevelEnabler: SeverityWarning,
		tpl:          tpl,
		out:          zapcore.Lock(zapcore.AddSync(r.stderr)),
		console:      true,
	}
	zl := zap.New(core, zap.WithClock(r.clock)).Named(name)
	return &loggerState{zl: zl, min: SeverityWarning}
}
