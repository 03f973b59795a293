package manifest

import (
	"errors"
	"strings"
)

var (
	// ErrIncludeCycle reports a document that (transitively) includes itself.
	ErrIncludeCycle = errors.New("include cycle")
	// ErrUnknownField reports an attribute or block the format does not define.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue reports a field whose value cannot be used.
	ErrInvalidValue = errors.New("invalid value")
)

// ParseError describes a malformed, cyclic or invalid manifest. Project and
// Field are empty when the problem is not tied to one of them.
type ParseError struct {
	Source  string
	Project string
	Field   string
	Err     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("manifest")
	if e.Source != "" {
		b.WriteString(" " + e.Source)
	}
	if e.Project != "" {
		b.WriteString(": project \"" + e.Project + "\"")
	}
	if e.Field != "" {
		b.WriteString(": field \"" + e.Field + "\"")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }
