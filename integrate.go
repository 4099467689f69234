package flux

import "sync"

// Integrate returns a Discrete flow that emits init immediately, then after
// each upstream value emits rf(prev, v). rf returns the new accumulator and
// whether to stop (the "reduced" signal); stopping, or a panic inside rf,
// cancels upstream.
//
// An upstream notification arriving while an emission is still pending
// transfer is held rather than transferred: every intermediate accumulator
// value is owed downstream, so the next upstream value may only be folded
// in once the previous result has been taken.
func Integrate[A, B any](rf func(acc A, v B) (A, bool), init A, upstream Flow[B]) Flow[A] {
	return func(onNotify func(), onTerminate func(error)) Transfer[A] {
		var (
			mu          sync.Mutex
			acc         = init
			emittedInit bool
			hasReduced  bool
			held        bool
			stopped     bool
			termPending bool
			termErr     error
			terminated  bool
			terminate   sync.Once
			upXfer      Transfer[B]
			gate        pendingGate
		)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		maybeFinish := func() {
			mu.Lock()
			ready := termPending && !hasReduced && !terminated
			if ready {
				terminated = true
			}
			err := termErr
			mu.Unlock()
			if ready {
				finish(err)
			}
		}

		// First-wins: the upstream terminator's error must not be displaced
		// by the errFlowDone-style Take error that follows it, nor a clean
		// reduced stop by the cancellation it triggers.
		// With no emission owed downstream, one more notify drives the extra,
		// valueless Take that fires the terminator; otherwise the Take that
		// drains the owed emission issues that notify.
		recordTerm := func(err error) {
			mu.Lock()
			first := !termPending
			if first {
				termPending = true
				termErr = err
			}
			idle := first && emittedInit && !hasReduced
			mu.Unlock()
			if idle {
				onNotify()
			}
		}

		var processUpstream func()
		processUpstream = func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			if !emittedInit || hasReduced {
				// An emission is still owed downstream; hold the
				// notification and fold the value in after the take.
				held = true
				mu.Unlock()
				return
			}
			mu.Unlock()

			raw, err := upXfer.Take()
			if err != nil {
				recordTerm(err)
				return
			}

			var (
				stop    bool
				paniced error
			)
			func() {
				defer func() {
					if r := recover(); r != nil {
						if e, ok := r.(error); ok {
							paniced = e
						} else {
							paniced = newTaskPanicError(r)
						}
					}
				}()
				mu.Lock()
				newAcc, s := rf(acc, raw)
				acc = newAcc
				stop = s
				mu.Unlock()
			}()

			if paniced != nil {
				mu.Lock()
				stopped = true
				mu.Unlock()
				recordTerm(paniced)
				upXfer.Cancel()
				return
			}

			mu.Lock()
			hasReduced = true
			if stop {
				stopped = true
			}
			mu.Unlock()
			onNotify()

			if stop {
				recordTerm(nil)
				upXfer.Cancel()
			}
		}
		onUpstreamNotify := func() { gate.notify(processUpstream) }

		upXfer = upstream(onUpstreamNotify, func(err error) {
			recordTerm(err)
		})
		gate.arm(processUpstream)

		take := func() (A, error) {
			mu.Lock()
			if !emittedInit {
				emittedInit = true
				v := acc
				redispatch := held
				held = false
				renotify := termPending
				mu.Unlock()
				if redispatch {
					gate.notify(processUpstream)
				}
				if renotify {
					onNotify()
				}
				return v, nil
			}
			if !hasReduced {
				ended := termPending
				mu.Unlock()
				var zero A
				if ended {
					maybeFinish()
					return zero, errFlowDone
				}
				return zero, &ProtocolViolationError{Reason: "integrate: Take called without a pending notification"}
			}
			v := acc
			hasReduced = false
			redispatch := held
			held = false
			renotify := termPending
			mu.Unlock()
			if redispatch {
				gate.notify(processUpstream)
			}
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

		onNotify()

		return newTransfer(take, cancel)
	}
}
