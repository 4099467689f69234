package flux

import "sync"

// Sample returns a Discrete flow that, each time sampler emits, emits
// f(sampledCurrent, samplerValue) using the most recent value observed
// from the continuous sampled upstream. A sampler value arriving before
// sampled has ever produced a value fails the flow: a continuous upstream
// notifies immediately on subscription, so an empty current value means
// the wiring is wrong, not that the consumer should wait. Either upstream
// terminating terminates the sample and cancels the other.
func Sample[S, U, R any](f func(S, U) R, sampled Flow[S], sampler Flow[U]) Flow[R] {
	return func(onNotify func(), onTerminate func(error)) Transfer[R] {
		var (
			mu          sync.Mutex
			latest      S
			hasLatest   bool
			buf         []R
			sampledX    Transfer[S]
			samplerX    Transfer[U]
			sampledG    pendingGate
			samplerG    pendingGate
			terminated  bool
			termPending bool
			termErr     error
			terminate   sync.Once
		)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		terminateAll := func(err error) {
			mu.Lock()
			if terminated {
				mu.Unlock()
				return
			}
			terminated = true
			deferTerm := len(buf) > 0
			if deferTerm {
				// Buffered emissions are still owed downstream; the
				// terminator fires from the extra Take that follows the
				// last one.
				termPending = true
				termErr = err
			}
			mu.Unlock()
			if sampledX != nil {
				sampledX.Cancel()
			}
			if samplerX != nil {
				samplerX.Cancel()
			}
			if !deferTerm {
				finish(err)
			}
		}

		processSampled := func() {
			v, err := sampledX.Take()
			if err != nil {
				terminateAll(err)
				return
			}
			mu.Lock()
			latest = v
			hasLatest = true
			mu.Unlock()
		}
		sampledX = sampled(func() { sampledG.notify(processSampled) }, func(err error) { terminateAll(err) })
		sampledG.arm(processSampled)

		processSampler := func() {
			u, err := samplerX.Take()
			if err != nil {
				terminateAll(err)
				return
			}
			mu.Lock()
			if !hasLatest {
				mu.Unlock()
				terminateAll(&ProtocolViolationError{Reason: "sample: sampler emitted before the continuous upstream produced its first value"})
				return
			}
			out := f(latest, u)
			wasEmpty := len(buf) == 0
			buf = append(buf, out)
			mu.Unlock()
			if wasEmpty {
				onNotify()
			}
		}
		samplerX = sampler(func() { samplerG.notify(processSampler) }, func(err error) { terminateAll(err) })
		samplerG.arm(processSampler)

		take := func() (R, error) {
			mu.Lock()
			if len(buf) == 0 {
				fire, err := termPending, termErr
				mu.Unlock()
				var zero R
				if fire {
					finish(err)
					return zero, errFlowDone
				}
				return zero, &ProtocolViolationError{Reason: "sample: Take called without a pending notification"}
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

		cancel := func() { terminateAll(ErrCancelled) }

		return newTransfer(take, cancel)
	}
}
