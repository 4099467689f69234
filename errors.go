package flux

import (
	"errors"
	"fmt"
	"time"
)

// Namespace prefixes every sentinel error message.
const Namespace = "flux"

var (
	// ErrCancelled is delivered to a pending deref/fetch/take/give/acquire/sleep
	// or to never when the corresponding subscription is cancelled.
	ErrCancelled = errors.New(Namespace + ": cancelled")

	// ErrProtocolViolation's concrete instances are ProtocolViolationError; this
	// sentinel is kept for errors.Is checks against the category as a whole.
	ErrProtocolViolation = errors.New(Namespace + ": protocol violation")

	// ErrOverflow is the category sentinel for OverflowError.
	ErrOverflow = errors.New(Namespace + ": overflow")

	// ErrTaskPanicked wraps a recovered panic from a task or fiber body.
	ErrTaskPanicked = errors.New(Namespace + ": task panicked")

	// errFlowDone is returned by a buffering Flow's Take from the extra,
	// valueless call that follows its last real transfer once upstream has
	// ended. It exists so the terminator can be fired from that call,
	// strictly after the real final value was already handed to the
	// caller, rather than nested inside the call that delivered it.
	// Callers never need to recognize it by identity: every combinator
	// that forwards a Take error onward only does so after its own
	// onTerminate-driven bookkeeping, guarded against double-firing, has
	// already run with the real (possibly nil) error.
	errFlowDone = errors.New(Namespace + ": flow done")
)

// TimeoutError is produced by Timeout when the wrapped task does not
// complete within the configured duration.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", Namespace, e.Duration)
}

func (e *TimeoutError) Is(target error) bool {
	_, ok := target.(*TimeoutError)
	return ok
}

// RaceError aggregates every child error when all Race candidates fail.
type RaceError struct {
	Errors []error
}

func (e *RaceError) Error() string {
	return fmt.Sprintf("%s: race failed with %d error(s): %v", Namespace, len(e.Errors), errors.Join(e.Errors...))
}

func (e *RaceError) Unwrap() []error { return e.Errors }

// OverflowError is raised by Observe when event is called while a previous
// value is still pending transfer, and by Buffer when capacity is exceeded.
type OverflowError struct {
	Reason string
}

func (e *OverflowError) Error() string { return Namespace + ": overflow: " + e.Reason }

func (e *OverflowError) Is(target error) bool { return target == ErrOverflow }

// ProtocolViolationError is raised when a consumer violates the
// one-outstanding rule, a fork combinator is used outside an AP, or
// Stream/Signal is called outside a reactor boot.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string { return Namespace + ": protocol violation: " + e.Reason }

func (e *ProtocolViolationError) Is(target error) bool { return target == ErrProtocolViolation }

func newTaskPanicError(r any) error {
	return fmt.Errorf("%w: %v", ErrTaskPanicked, r)
}
