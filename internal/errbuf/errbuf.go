// Package errbuf implements the core's error-propagation boundary: a
// small set of typed failures internal/* functions return instead of
// printing directly, and the single current status message (spec's
// "error buffer" plus its msg_is_error flag) the command layer surfaces
// to the user, grounded on original_source/error.c.
package errbuf

import "fmt"

// Kind tags the category of a typed failure, so a caller can react
// without string-matching a message.
type Kind int

const (
	InvalidInput Kind = iota
	IoError
	BugAssertion
	NotFound
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case IoError:
		return "I/O error"
	case BugAssertion:
		return "internal invariant violated"
	case NotFound:
		return "not found"
	default:
		return "error"
	}
}

// Error is a typed failure returned by a low-level function.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New formats a typed failure.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Buffer holds the single current status message plus whether it was
// an error or merely informational (msg_is_error), and a running error
// count mirroring error.c's nr_errors.
type Buffer struct {
	Msg     string
	IsError bool
	Count   int
}

// SetError records an error message, the error_msg equivalent.
func (b *Buffer) SetError(format string, args ...any) {
	b.Msg = fmt.Sprintf(format, args...)
	b.IsError = true
	b.Count++
}

// SetInfo records a non-error status message, the info_msg equivalent.
func (b *Buffer) SetInfo(format string, args ...any) {
	b.Msg = fmt.Sprintf(format, args...)
	b.IsError = false
}

// Clear empties the buffer, the clear_error equivalent.
func (b *Buffer) Clear() {
	b.Msg = ""
	b.IsError = false
}

func (b *Buffer) String() string { return b.Msg }

// Bug panics with a BugAssertion error when built with the kigodebug
// tag; it compiles away to nothing in a release build, the way BUG_ON
// does when DEBUG<=0.
func Bug(format string, args ...any) {
	if debugEnabled {
		panic(New(BugAssertion, format, args...))
	}
}

// BugOn calls Bug if cond holds.
func BugOn(cond bool, format string, args ...any) {
	if cond {
		Bug(format, args...)
	}
}

// Recover should be deferred at the top of the event loop: it turns a
// BugAssertion panic into a status-line message instead of taking down
// the terminal, then stops the current iteration of the loop. Any other
// panic value is re-raised; this only catches the invariant failures
// this package itself raises.
func Recover(b *Buffer) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok && e.Kind == BugAssertion {
		b.SetError("%s", e.Msg)
		return
	}
	panic(r)
}
