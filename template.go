package logroute

import (
	"fmt"
	"strings"

	"go.uber.org/zap/buffer"
)

// DefaultDateFormat is the layout applied to %(asctime)s placeholders when
// a formatter does not set its own date format. The comma before the
// millisecond field matches the classic asctime layout that log scrapers
// expect.
const DefaultDateFormat = "2006-01-02 15:04:05,000"

// defaultFormat renders the bare message, the behavior of a formatter
// entry with no template.
const defaultFormat = "%(message)s"

var bufferPool = buffer.NewPool()

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenAsctime
	tokenLevelname
	tokenName
	tokenMessage
	tokenFilename
	tokenFuncName
	tokenLineno
)

var tokenKinds = map[string]tokenKind{
	"asctime":   tokenAsctime,
	"levelname": tokenLevelname,
	"name":      tokenName,
	"message":   tokenMessage,
	"filename":  tokenFilename,
	"funcName":  tokenFuncName,
	"lineno":    tokenLineno,
}

// A segment is either literal text or a token. For tokens, lit holds the
// printf spec ("%-8s") when the template carries flags or a width, and is
// empty on the plain fast path.
type segment struct {
	kind tokenKind
	lit  string
}

// painter decorates a rendered severity name, used for console color.
type painter func(Severity, string) string

// A Formatter renders records according to a message template. Templates
// use named placeholder tokens:
//
//	%(asctime)s    record time, laid out per the date format
//	%(levelname)s  severity name, e.g. "WARNING"
//	%(name)s       logger name
//	%(message)s    message body
//	%(filename)s   base name of the call site source file
//	%(funcName)s   bare name of the calling function
//	%(lineno)d     call site line number
//
// Literal percent signs are written %%. Tokens accept printf-style flags
// and widths between the closing parenthesis and the verb, such as
// %(levelname)-8s. Any other token is a configuration error.
type Formatter struct {
	segs        []segment
	dateFormat  string
	needsCaller bool
}

// NewFormatter compiles a message template. An empty format renders the
// bare message; an empty dateFormat falls back to [DefaultDateFormat].
func NewFormatter(format, dateFormat string) (*Formatter, error) {
	if format == "" {
		format = defaultFormat
	}
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	f := &Formatter{dateFormat: dateFormat}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			f.segs = append(f.segs, segment{kind: tokenLiteral, lit: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); {
		c := format[i]
		if c != '%' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(format) {
			return nil, fmt.Errorf("template ends with a bare %%")
		}
		if format[i+1] == '%' {
			lit.WriteByte('%')
			i += 2
			continue
		}
		if format[i+1] != '(' {
			return nil, fmt.Errorf("conversion at index %d must name a token, like %%(message)s", i)
		}
		end := strings.IndexByte(format[i+2:], ')')
		if end < 0 {
			return nil, fmt.Errorf("unterminated token at index %d", i)
		}
		name := format[i+2 : i+2+end]
		kind, ok := tokenKinds[name]
		if !ok {
			return nil, fmt.Errorf("unrecognized token %%(%s)", name)
		}

		// Optional flags and width between ")" and the verb.
		j := i + 2 + end + 1
		k := j
		for k < len(format) && isSpecChar(format[k]) {
			k++
		}
		if k >= len(format) {
			return nil, fmt.Errorf("token %%(%s) is missing its conversion verb", name)
		}
		switch verb := format[k]; verb {
		case 's':
		case 'd':
			if kind != tokenLineno {
				return nil, fmt.Errorf("token %%(%s) cannot convert with %%d", name)
			}
		default:
			return nil, fmt.Errorf("token %%(%s) has unsupported verb %q", name, string(verb))
		}

		var spec string
		if k > j {
			// lineno formats as an integer regardless of the written verb.
			verb := byte('s')
			if kind == tokenLineno {
				verb = 'd'
			}
			spec = "%" + format[j:k] + string(verb)
		}

		switch kind {
		case tokenFilename, tokenFuncName, tokenLineno:
			f.needsCaller = true
		}

		flush()
		f.segs = append(f.segs, segment{kind: kind, lit: spec})
		i = k + 1
	}
	flush()
	return f, nil
}

func isSpecChar(c byte) bool {
	switch c {
	case '-', '+', ' ', '#', '.':
		return true
	}
	return c >= '0' && c <= '9'
}

// Format renders a record to a string. It is the entry point for sinks
// that want to reuse a configured template outside the facility.
func (f *Formatter) Format(r Record) string {
	buf := bufferPool.Get()
	defer buf.Free()
	f.appendRecord(buf, r, nil)
	return buf.String()
}

func (f *Formatter) appendRecord(buf *buffer.Buffer, r Record, paint painter) {
	for _, seg := range f.segs {
		switch seg.kind {
		case tokenLiteral:
			buf.AppendString(seg.lit)
		case tokenAsctime:
			if seg.lit == "" {
				buf.AppendTime(r.Time, f.dateFormat)
			} else {
				fmt.Fprintf(buf, seg.lit, r.Time.Format(f.dateFormat))
			}
		case tokenLevelname:
			s := r.Severity.String()
			if seg.lit != "" {
				s = fmt.Sprintf(seg.lit, s)
			}
			if paint != nil {
				s = paint(r.Severity, s)
			}
			buf.AppendString(s)
		case tokenName:
			f.appendString(buf, seg, r.Logger)
		case tokenMessage:
			f.appendString(buf, seg, r.Message)
		case tokenFilename:
			f.appendString(buf, seg, r.File)
		case tokenFuncName:
			f.appendString(buf, seg, r.Function)
		case tokenLineno:
			if seg.lit == "" {
				buf.AppendInt(int64(r.Line))
			} else {
				fmt.Fprintf(buf, seg.lit, r.Line)
			}
		}
	}
}

func (f *Formatter) appendString(buf *buffer.Buffer, seg segment, s string) {
	if seg.lit == "" {
		buf.AppendString(s)
		return
	}
	fmt.Fprintf(buf, seg.lit, s)
}
