package logroute

import (
	"io"

	"go.uber.org/zap/zapcore"
)

// An Option adjusts how a [Registry] applies configurations. Options may
// be given to [NewRegistry] or to [Registry.Configure].
type Option func(*Registry)

// WithBridge binds sink to the bridge handler declared under name.
// Applying a document that declares a bridge handler with no bound sink
// fails with a [DestinationError].
func WithBridge(name string, sink BridgeSink) Option {
	return func(r *Registry) { r.bridges[name] = sink }
}

// WithBaseDir overrides the directory relative handler paths resolve
// against. The default is the directory the document was loaded from.
func WithBaseDir(dir string) Option {
	return func(r *Registry) { r.baseDir = dir }
}

// WithConsoleOutput redirects the stdout and stderr streams console
// handlers write to, primarily a seam for tests and embedding. Either
// writer may be nil to keep the process stream.
func WithConsoleOutput(stdout, stderr io.Writer) Option {
	return func(r *Registry) {
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// WithColor forces console severity coloring on or off. Without it,
// console handlers color exactly when their stream is a terminal.
func WithColor(enabled bool) Option {
	return func(r *Registry) { r.color = &enabled }
}

// WithClock substitutes the time source records are stamped with.
func WithClock(clock zapcore.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}
