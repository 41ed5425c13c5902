package logroute

// defaultRegistry backs the package-level functions. Most processes need
// exactly one registry; embedders that want several can build their own
// with [NewRegistry].
var defaultRegistry = NewRegistry()

// Default returns the registry behind the package-level functions.
func Default() *Registry { return defaultRegistry }

// Configure applies cfg to the default registry.
func Configure(cfg *Config, opts ...Option) error {
	return defaultRegistry.Configure(cfg, opts...)
}

// Get returns the handle for a dotted logger name from the default
// registry.
func Get(name string) *Logger { return defaultRegistry.Get(name) }

// Root returns the default registry's root handle.
func Root() *Logger { return defaultRegistry.Root() }

// Sync flushes every handler applied to the default registry.
func Sync() error { return defaultRegistry.Sync() }

// Close flushes and closes the default registry's destinations and
// disables its handles.
func Close() error { return defaultRegistry.Close() }

// Debug logs to the default registry's root logger at SeverityDebug in
// the manner of fmt.Sprint.
func Debug(args ...any) { defaultRegistry.root.log(SeverityDebug, "", args) }

// Debugf logs to the root logger at SeverityDebug in the manner of
// fmt.Sprintf.
func Debugf(format string, args ...any) { defaultRegistry.root.log(SeverityDebug, format, args) }

// Info logs to the root logger at SeverityInfo in the manner of
// fmt.Sprint.
func Info(args ...any) { defaultRegistry.root.log(SeverityInfo, "", args) }

// Infof logs to the root logger at SeverityInfo in the manner of
// fmt.Sprintf.
func Infof(format string, args ...any) { defaultRegistry.root.log(SeverityInfo, format, args) }

// Warn logs to the root logger at SeverityWarning in the manner of
// fmt.Sprint.
func Warn(args ...any) { defaultRegistry.root.log(SeverityWarning, "", args) }

// Warnf logs to the root logger at SeverityWarning in the manner of
// fmt.Sprintf.
func Warnf(format string, args ...any) { defaultRegistry.root.log(SeverityWarning, format, args) }

// Error logs to the root logger at SeverityError in the manner of
// fmt.Sprint.
func Error(args ...any) { defaultRegistry.root.log(SeverityError, "", args) }

// Errorf logs to the root logger at SeverityError in the manner of
// fmt.Sprintf.
func Errorf(format string, args ...any) { defaultRegistry.root.log(SeverityError, format, args) }

// Critical logs to the root logger at SeverityCritical in the manner of
// fmt.Sprint. It does not terminate the process.
func Critical(args ...any) { defaultRegistry.root.log(SeverityCritical, "", args) }

// Criticalf logs to the root logger at SeverityCritical in the manner of
// fmt.Sprintf.
func Criticalf(format string, args ...any) { defaultRegistry.root.log(SeverityCritical, format, args) }
