package logroute

import (
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// A Record is one log event as delivered to a [BridgeSink]. Byte-oriented
// handlers render records through their formatter instead; bridge handlers
// hand the structured record to external middleware.
type Record struct {
	// Time the event was logged.
	Time time.Time
	// Severity of the event.
	Severity Severity
	// Logger is the dotted name of the logger the event was issued on.
	// The root logger is named "root".
	Logger string
	// Message is the raw message body.
	Message string
	// File is the base name of the source file of the call site, and Line
	// its line number. Both are zero unless the routing logger captures
	// call sites.
	File string
	Line int
	// Function is the bare name of the calling function.
	Function string
	// Formatted is the record rendered through the handler's formatter.
	Formatted string
}

// A BridgeSink receives records routed to a bridge handler. It is the
// pluggable seam for forwarding log traffic into external middleware
// without the facility knowing the transport.
//
// Accept is called from whichever goroutine logged the record and must be
// safe for concurrent use. Implementations with slow transports should
// queue internally and shed load rather than block their callers.
type BridgeSink interface {
	Accept(Record)
}

func recordOf(ent zapcore.Entry) Record {
	r := Record{
		Time:     ent.Time,
		Severity: severityOf(ent.Level),
		Logger:   ent.LoggerName,
		Message:  ent.Message,
	}
	if ent.Caller.Defined {
		r.File = filepath.Base(ent.Caller.File)
		r.Line = ent.Caller.Line
		r.Function = shortFuncName(ent.Caller.Function)
	}
	return r
}

// shortFuncName trims a qualified name like "github.com/x/y.(*T).Method"
// down to "Method", the bare name templates and bridge messages carry.
func shortFuncName(fn string) string {
	if i := strings.LastIndexByte(fn, '/'); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.LastIndexByte(fn, '.'); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}
