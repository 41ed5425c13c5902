package logroute

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// A Logger is a handle on one dotted name in a [Registry]. Handles are
// cheap, long-lived, and safe for concurrent use from any goroutine;
// applying a configuration re-points every existing handle in place, so
// package-level handles obtained before startup route correctly after.
type Logger struct {
	name  string
	state atomic.Pointer[loggerState]
}

// loggerState is what the applied configuration resolved a handle to.
// It is replaced wholesale when a configuration is applied.
type loggerState struct {
	zl  *zap.Logger
	min Severity
}

var disabledState = &loggerState{zl: zap.NewNop(), min: severityDisabled}

// Name returns the dotted name the handle was obtained with. The root
// handle is named "root".
func (l *Logger) Name() string { return l.name }

// Enabled reports whether a record of severity s would reach at least one
// of the logger's handlers.
func (l *Logger) Enabled(s Severity) bool {
	st := l.state.Load()
	return s >= st.min && st.zl.Core().Enabled(s.zapLevel())
}

// Sync flushes the handlers this handle currently routes to.
func (l *Logger) Sync() error {
	return l.state.Load().zl.Sync()
}

// Log logs at an arbitrary severity, handling arguments in the manner of
// fmt.Sprint.
func (l *Logger) Log(s Severity, args ...any) { l.log(s, "", args) }

// Logf logs at an arbitrary severity, handling arguments in the manner of
// fmt.Sprintf.
func (l *Logger) Logf(s Severity, format string, args ...any) { l.log(s, format, args) }

// Debug logs at SeverityDebug in the manner of fmt.Sprint.
func (l *Logger) Debug(args ...any) { l.log(SeverityDebug, "", args) }

// Debugf logs at SeverityDebug in the manner of fmt.Sprintf.
func (l *Logger) Debugf(format string, args ...any) { l.log(SeverityDebug, format, args) }

// Info logs at SeverityInfo in the manner of fmt.Sprint.
func (l *Logger) Info(args ...any) { l.log(SeverityInfo, "", args) }

// Infof logs at SeverityInfo in the manner of fmt.Sprintf.
func (l *Logger) Infof(format string, args ...any) { l.log(SeverityInfo, format, args) }

// Warn logs at SeverityWarning in the manner of fmt.Sprint.
func (l *Logger) Warn(args ...any) { l.log(SeverityWarning, "", args) }

// Warnf logs at SeverityWarning in the manner of fmt.Sprintf.
func (l *Logger) Warnf(format string, args ...any) { l.log(SeverityWarning, format, args) }

// Error logs at SeverityError in the manner of fmt.Sprint.
func (l *Logger) Error(args ...any) { l.log(SeverityError, "", args) }

// Errorf logs at SeverityError in the manner of fmt.Sprintf.
func (l *Logger) Errorf(format string, args ...any) { l.log(SeverityError, format, args) }

// Critical logs at SeverityCritical in the manner of fmt.Sprint. It does
// not terminate the process.
func (l *Logger) Critical(args ...any) { l.log(SeverityCritical, "", args) }

// Criticalf logs at SeverityCritical in the manner of fmt.Sprintf.
func (l *Logger) Criticalf(format string, args ...any) { l.log(SeverityCritical, format, args) }

// log applies the logger threshold, then the handler cores apply their
// own. Message formatting is skipped entirely for filtered records.
//
// Call sites sit exactly two frames above the zap logger on every public
// path, this method plus its exported caller, which the registry accounts
// for with AddCallerSkip.
func (l *Logger) log(s Severity, format string, args []any) {
	st := l.state.Load()
	if s < st.min {
		return
	}
	lvl := s.zapLevel()
	if !st.zl.Core().Enabled(lvl) {
		return
	}
	st.zl.Log(lvl, message(format, args))
}

// message renders a print-style call: Sprintf when a format is given, a
// lone string as itself, and Sprint otherwise.
func message(format string, args []any) string {
	switch {
	case len(args) == 0:
		return format
	case format != "":
		return fmt.Sprintf(format, args...)
	case len(args) == 1:
		if s, ok := args[0].(string); ok {
			return s
		}
	}
	return fmt.Sprint(args...)
}
