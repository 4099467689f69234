package flux

import (
	"errors"
	"fmt"
)

// TaskMetaError exposes correlation metadata for a failure surfaced by Join
// or CollectTasks: which child in the subscription order produced it.
type TaskMetaError interface {
	error
	Unwrap() error
	ChildIndex() (int, bool)
}

type childTaggedError struct {
	err   error
	index int
}

func newChildTaggedError(err error, index int) error {
	if err == nil {
		return nil
	}
	return &childTaggedError{err: err, index: index}
}

func (e *childTaggedError) Error() string { return e.err.Error() }
func (e *childTaggedError) Unwrap() error { return e.err }

func (e *childTaggedError) ChildIndex() (int, bool) { return e.index, true }

func (e *childTaggedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "child(index=%d): %+v", e.index, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractChildIndex returns the subscription-order index of the child task
// that produced err, if err (or one it wraps) carries that metadata.
func ExtractChildIndex(err error) (int, bool) {
	var tme TaskMetaError
	if errors.As(err, &tme) {
		return tme.ChildIndex()
	}
	return 0, false
}
