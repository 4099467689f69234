package flux

import "sync"

// Buffer returns a Discrete flow that accumulates up to capacity upstream
// values while downstream lags; a value arriving when the buffer is full
// fails the flow with an *OverflowError and cancels upstream. capacity must
// be > 0.
func Buffer[T any](capacity int, upstream Flow[T]) Flow[T] {
	if capacity <= 0 {
		panic("flux: Buffer requires capacity > 0")
	}

	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		var (
			mu          sync.Mutex
			buf         []T
			termPending bool
			termErr     error
			terminated  bool
			terminate   sync.Once
			upXfer      Transfer[T]
			gate        pendingGate
		)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		maybeFinish := func() {
			mu.Lock()
			ready := termPending && len(buf) == 0 && !terminated
			if ready {
				terminated = true
			}
			err := termErr
			mu.Unlock()
			if ready {
				finish(err)
			}
		}

		processUpstream := func() {
			v, err := upXfer.Take()
			if err != nil {
				mu.Lock()
				// First-wins: the terminator that fired from inside this
				// Take already recorded the authoritative error.
				if !termPending {
					termPending = true
					termErr = err
				}
				mu.Unlock()
				maybeFinish()
				return
			}

			mu.Lock()
			if len(buf) >= capacity {
				mu.Unlock()
				overflow := &OverflowError{Reason: "buffer: capacity exceeded"}
				upXfer.Cancel()
				mu.Lock()
				already := terminated
				terminated = true
				mu.Unlock()
				if !already {
					finish(overflow)
				}
				return
			}
			wasEmpty := len(buf) == 0
			buf = append(buf, v)
			mu.Unlock()
			if wasEmpty {
				onNotify()
			}
		}
		onUpstreamNotify := func() { gate.notify(processUpstream) }

		upXfer = upstream(onUpstreamNotify, func(err error) {
			mu.Lock()
			if !termPending {
				termPending = true
				termErr = err
			}
			mu.Unlock()
			maybeFinish()
		})
		gate.arm(processUpstream)

		take := func() (T, error) {
			mu.Lock()
			if len(buf) == 0 {
				ended := termPending
				mu.Unlock()
				var zero T
				if ended {
					// The extra, valueless Take: fire the terminator here.
					maybeFinish()
					return zero, errFlowDone
				}
				return zero, &ProtocolViolationError{Reason: "buffer: Take called without a pending notification"}
			}
			v := buf[0]
			buf = buf[1:]
			renotify := len(buf) > 0 || termPending
			mu.Unlock()
			if renotify {
				onNotify()
			}
			return v, nil
		}

		cancel := func() {
			upXfer.Cancel()
			mu.Lock()
			already := terminated
			terminated = true
			mu.Unlock()
			if !already {
				finish(ErrCancelled)
			}
		}

		return newTransfer(take, cancel)
	}
}
