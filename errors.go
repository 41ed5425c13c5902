package logroute

import (
	"fmt"
	"strconv"
)

// A ConfigError reports a malformed or self-inconsistent configuration
// document: an unsupported version, a reference to an undeclared formatter
// or handler, an unrecognized template token, a field that does not belong
// to the handler kind, and so on. Loading fails with a ConfigError rather
// than applying a partial configuration.
type ConfigError struct {
	// Path locates the offending entry in the document using dotted keys,
	// e.g. "handlers.console.stream". It may be empty when the document as
	// a whole could not be decoded.
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "logroute: invalid configuration: " + e.Err.Error()
	}
	return "logroute: invalid configuration at " + e.Path + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// configErrorf builds a ConfigError for the document location given by
// joining parts with dots.
func configErrorf(path, format string, args ...any) error {
	return &ConfigError{Path: path, Err: fmt.Errorf(format, args...)}
}

// A DestinationError reports a handler whose destination could not be
// prepared at configuration time: an unwritable file path, or a bridge
// handler with no sink bound to it. Configure fails with a
// DestinationError before any logger handle is re-pointed.
type DestinationError struct {
	// Handler is the name of the handler whose destination failed.
	Handler string
	Err     error
}

func (e *DestinationError) Error() string {
	return "logroute: handler " + strconv.Quote(e.Handler) + ": " + e.Err.Error()
}

func (e *DestinationError) Unwrap() error { return e.Err }
