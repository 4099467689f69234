package flux

import (
	"errors"
	"sync"
)

// AP runs body as a forking fiber and presents it as a Discrete flow. The
// body emits downstream values through out and forks on source flows via
// ConcatEach (?? in the block notation), SwitchEach (?!) and GatherEach
// (?=); each leaf completion of the fork tree contributes one downstream
// value. The body returning nil terminates the flow cleanly once every
// emitted value has been transferred; returning an error (or panicking)
// fails the flow. Cancelling the flow closes the fiber's Scope, the same
// cooperative contract SP has.
func AP[T any](body func(scope *Scope, out *Emitter[T]) error) Flow[T] {
	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		scope := newScope()
		out := newEmitter[T](onNotify)

		var (
			mu            sync.Mutex
			bodyDone      bool
			termErr       error
			cancelled     bool
			finalNotified bool
			terminate     sync.Once
		)
		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		// The terminator always fires from an extra, valueless Take driven
		// by one final notify, never nested inside the call that handed the
		// caller its last real value (the same shape Enumerate uses). The
		// body goroutine issues that notify when it returns with nothing
		// pending; otherwise the Take that drains the last value does.
		go func() {
			var err error
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = newTaskPanicError(r)
					}
				}()
				err = body(scope, out)
			}()
			mu.Lock()
			bodyDone = true
			termErr = err
			doNotify := !out.hasPending() && !finalNotified && !cancelled
			if doNotify {
				finalNotified = true
			}
			mu.Unlock()
			if doNotify {
				onNotify()
			}
		}()

		take := func() (T, error) {
			if v, ok := out.take(); ok {
				mu.Lock()
				doNotify := bodyDone && !finalNotified && !cancelled
				if doNotify {
					finalNotified = true
				}
				mu.Unlock()
				if doNotify {
					onNotify()
				}
				return v, nil
			}
			mu.Lock()
			c, done, err := cancelled, bodyDone, termErr
			mu.Unlock()
			var zero T
			if c {
				return zero, ErrCancelled
			}
			if done {
				finish(err)
			}
			return zero, errFlowDone
		}

		cancel := func() {
			mu.Lock()
			cancelled = true
			mu.Unlock()
			scope.cancel()
			finish(ErrCancelled)
		}

		return newTransfer(take, cancel)
	}
}

// Emitter delivers a forking fiber's output downstream, one value at a
// time. Emit blocks while a previous value is still pending transfer, so
// downstream backpressure reaches every fork: branches that want to emit
// while a value is pending wait their turn on the single slot.
type Emitter[T any] struct {
	slot   chan struct{}
	notify func()

	mu      sync.Mutex
	value   T
	pending bool
}

func newEmitter[T any](notify func()) *Emitter[T] {
	e := &Emitter[T]{slot: make(chan struct{}, 1), notify: notify}
	e.slot <- struct{}{}
	return e
}

// Emit hands v downstream, blocking until the slot is free. It fails with
// ErrCancelled once scope is cancelled, so a preempted or abandoned branch
// blocked here unwinds instead of emitting a stale value.
func (e *Emitter[T]) Emit(scope *Scope, v T) error {
	select {
	case <-e.slot:
	case <-scope.done:
		return ErrCancelled
	}
	e.mu.Lock()
	e.value = v
	e.pending = true
	e.mu.Unlock()
	e.notify()
	return nil
}

func (e *Emitter[T]) hasPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

func (e *Emitter[T]) take() (T, bool) {
	e.mu.Lock()
	if !e.pending {
		e.mu.Unlock()
		var zero T
		return zero, false
	}
	v := e.value
	var zero T
	e.value = zero
	e.pending = false
	e.mu.Unlock()
	e.slot <- struct{}{}
	return v, true
}

// flowIterator drives a Flow from fiber code: Next blocks until the next
// value, end-of-stream, or scope cancellation. Both channels are buffered
// to one entry, which the one-outstanding rule guarantees is enough even
// for sources that notify synchronously from inside their own Take.
type flowIterator[T any] struct {
	notes chan struct{}
	term  chan error
	xfer  Transfer[T]
}

func iterateFlow[T any](f Flow[T]) *flowIterator[T] {
	it := &flowIterator[T]{notes: make(chan struct{}, 1), term: make(chan error, 1)}
	it.xfer = f(
		func() { it.notes <- struct{}{} },
		func(err error) { it.term <- err },
	)
	return it
}

// Next returns the next upstream value, or ok=false with the terminal
// error (nil for a clean end). A queued notification is always drained
// before a queued terminator so no value is lost; a Take that reports an
// error is skipped, since the real terminal error arrives via term.
func (it *flowIterator[T]) Next(scope *Scope) (v T, ok bool, err error) {
	var zero T
	for {
		select {
		case <-it.notes:
			if v, err := it.xfer.Take(); err == nil {
				return v, true, nil
			}
			continue
		default:
		}
		select {
		case <-it.notes:
			if v, err := it.xfer.Take(); err == nil {
				return v, true, nil
			}
			continue
		case err := <-it.term:
			return zero, false, err
		case <-scope.done:
			it.xfer.Cancel()
			return zero, false, ErrCancelled
		}
	}
}

func (it *flowIterator[T]) Cancel() { it.xfer.Cancel() }

// ConcatEach is the ?? concat fork: it iterates src one value at a time,
// running branch to completion for each value before the next is
// requested, so the fork is backpressured end-to-end. A branch error
// cancels src and propagates.
func ConcatEach[U any](scope *Scope, src Flow[U], branch func(U) error) error {
	it := iterateFlow(src)
	for {
		v, ok, err := it.Next(scope)
		if !ok {
			return err
		}
		if err := branch(v); err != nil {
			it.Cancel()
			return err
		}
	}
}

// SwitchEach is the ?! switch fork: each new upstream value cancels the
// currently-running branch and starts a fresh one from that value, so only
// the latest branch contributes output. branch receives its own Scope and
// must emit and park through it; a preempted branch's ErrCancelled return
// is not treated as a failure.
func SwitchEach[U any](scope *Scope, src Flow[U], branch func(bs *Scope, v U) error) error {
	it := iterateFlow(src)
	var (
		cur       *Scope
		curDone   chan struct{}
		branchErr = make(chan error, 1)
	)
	launch := func(v U) {
		bs := newScope()
		done := make(chan struct{})
		cur, curDone = bs, done
		go func() {
			defer close(done)
			if err := branch(bs, v); err != nil && !errors.Is(err, ErrCancelled) {
				select {
				case branchErr <- err:
				default:
				}
			}
		}()
	}
	fail := func(err error) error {
		it.Cancel()
		if cur != nil {
			cur.cancel()
			<-curDone
		}
		return err
	}

	for {
		select {
		case err := <-branchErr:
			return fail(err)
		default:
		}
		select {
		case <-it.notes:
			v, err := it.xfer.Take()
			if err != nil {
				continue
			}
			if cur != nil {
				cur.cancel()
			}
			launch(v)
		case err := <-it.term:
			if err != nil {
				return fail(err)
			}
			if cur == nil {
				return nil
			}
			select {
			case <-curDone:
				select {
				case berr := <-branchErr:
					return berr
				default:
				}
				return nil
			case berr := <-branchErr:
				return fail(berr)
			case <-scope.done:
				return fail(ErrCancelled)
			}
		case err := <-branchErr:
			return fail(err)
		case <-scope.done:
			return fail(ErrCancelled)
		}
	}
}

// GatherEach is the ?= gather fork: every upstream value starts a new
// concurrent branch, and outputs interleave as branches complete. The
// first branch error cancels src and the sibling branches, then
// propagates once every branch has unwound.
func GatherEach[U any](scope *Scope, src Flow[U], branch func(bs *Scope, v U) error) error {
	it := iterateFlow(src)
	bs := newScope()
	unlink := propagateCancel(scope, bs)
	defer unlink()

	var (
		wg        sync.WaitGroup
		branchErr = make(chan error, 1)
	)
	var srcErr error
	for {
		v, ok, err := it.Next(scope)
		if !ok {
			srcErr = err
			break
		}
		wg.Add(1)
		go func(v U) {
			defer wg.Done()
			if err := branch(bs, v); err != nil && !errors.Is(err, ErrCancelled) {
				select {
				case branchErr <- err:
					it.Cancel()
					bs.cancel()
				default:
				}
			}
		}(v)
	}
	if srcErr != nil {
		bs.cancel()
	}
	wg.Wait()
	select {
	case err := <-branchErr:
		return err
	default:
	}
	return srcErr
}

// propagateCancel forwards parent's cancellation into child until unlink
// is called.
func propagateCancel(parent, child *Scope) (unlink func()) {
	stop := make(chan struct{})
	go func() {
		select {
		case <-parent.done:
			child.cancel()
		case <-stop:
		}
	}()
	return func() { close(stop) }
}
