package flux

import "sync"

// Relieve returns a Continuous-from-discrete flow: while upstream emits
// faster than downstream transfers, overflowed values are combined with rf
// into the pending value, so downstream always transfers the latest
// reduction rather than blocking the producer.
func Relieve[T any](rf func(acc, v T) T, upstream Flow[T]) Flow[T] {
	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		var (
			mu          sync.Mutex
			pending     T
			hasPending  bool
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
			ready := termPending && !hasPending && !terminated
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
			raw, err := upXfer.Take()
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
			wasPending := hasPending
			if wasPending {
				pending = rf(pending, raw)
			} else {
				pending = raw
				hasPending = true
			}
			mu.Unlock()

			if !wasPending {
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
			if !hasPending {
				ended := termPending
				mu.Unlock()
				var zero T
				if ended {
					// The extra, valueless Take: fire the terminator here.
					maybeFinish()
					return zero, errFlowDone
				}
				return zero, &ProtocolViolationError{Reason: "relieve: Take called without a pending notification"}
			}
			v := pending
			hasPending = false
			renotify := termPending
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
