package logroute

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// A Severity is the importance of a log record. Severities form a strict
// total order:
//
//	SeverityDebug < SeverityInfo < SeverityWarning < SeverityError < SeverityCritical
//
// A record is delivered to a handler only when its severity is at least the
// routing logger's threshold and at least the handler's threshold.
type Severity int8

// The severities recognized in configuration documents, in increasing order
// of importance. The zero value is reserved so that a level missing from a
// document can be told apart from DEBUG.
const (
	SeverityDebug Severity = iota + 1
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// severityDisabled silences a logger handle entirely. It has no name and is
// never read from a document.
const severityDisabled Severity = 1<<7 - 1

var severityNames = [...]string{
	SeverityDebug:    "DEBUG",
	SeverityInfo:     "INFO",
	SeverityWarning:  "WARNING",
	SeverityError:    "ERROR",
	SeverityCritical: "CRITICAL",
}

// ParseSeverity converts a severity name to a Severity, ignoring case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return SeverityDebug, nil
	case "INFO":
		return SeverityInfo, nil
	case "WARNING":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	case "CRITICAL":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// valid reports whether s is one of the five named severities.
func (s Severity) valid() bool {
	return s >= SeverityDebug && s <= SeverityCritical
}

// String returns the canonical uppercase name of the severity,
// e.g. SeverityWarning.String() => "WARNING".
func (s Severity) String() string {
	if s.valid() {
		return severityNames[s]
	}
	return "SEVERITY(" + strconv.Itoa(int(s)) + ")"
}

// Enabled reports whether a record at the given zapcore level passes a
// threshold of s. It implements [zapcore.LevelEnabler] so that a Severity
// can gate a handler core directly.
func (s Severity) Enabled(l zapcore.Level) bool {
	return l >= s.zapLevel()
}

// zapLevel maps the severity onto the underlying zapcore scale. CRITICAL
// maps to DPanicLevel, which logs without panicking outside development
// mode, so the facility never terminates the process on its own.
func (s Severity) zapLevel() zapcore.Level {
	switch s {
	case SeverityDebug:
		return zapcore.DebugLevel
	case SeverityInfo:
		return zapcore.InfoLevel
	case SeverityWarning:
		return zapcore.WarnLevel
	case SeverityError:
		return zapcore.ErrorLevel
	case SeverityCritical:
		return zapcore.DPanicLevel
	}
	return zapcore.InvalidLevel
}

// severityOf is the inverse of [Severity.zapLevel].
func severityOf(l zapcore.Level) Severity {
	switch {
	case l <= zapcore.DebugLevel:
		return SeverityDebug
	case l == zapcore.InfoLevel:
		return SeverityInfo
	case l == zapcore.WarnLevel:
		return SeverityWarning
	case l == zapcore.ErrorLevel:
		return SeverityError
	}
	return SeverityCritical
}

// AppendText implements [encoding.TextAppender]
// by calling [Severity.String].
func (s Severity) AppendText(b []byte) ([]byte, error) {
	return append(b, s.String()...), nil
}

// MarshalText implements [encoding.TextMarshaler]
// by calling [Severity.AppendText].
func (s Severity) MarshalText() ([]byte, error) {
	return s.AppendText(nil)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
// It accepts any string produced by [Severity.MarshalText], ignoring case.
func (s *Severity) UnmarshalText(data []byte) error {
	v, err := ParseSeverity(string(bytes.TrimSpace(data)))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalJSON implements [encoding/json.Marshaler]
// by quoting the output of [Severity.String].
func (s Severity) MarshalJSON() ([]byte, error) {
	// AppendQuote is sufficient for JSON-encoding all Severity strings.
	// They don't contain any runes that would produce invalid JSON
	// when escaped.
	return strconv.AppendQuote(nil, s.String()), nil
}

// UnmarshalJSON implements [encoding/json.Unmarshaler].
// It accepts any string produced by [Severity.MarshalJSON], ignoring case.
func (s *Severity) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("severity must be a string: %s", data)
	}
	return s.UnmarshalText([]byte(str))
}

// MarshalYAML implements [yaml.Marshaler].
func (s Severity) MarshalYAML() (any, error) {
	return s.String(), nil
}

// UnmarshalYAML implements [yaml.Unmarshaler]. yaml.v3 does not consult
// encoding.TextUnmarshaler, so the yaml hook is spelled out.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(str))
}
