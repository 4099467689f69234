package flux

import "sync"

// Transform applies transducer xf to upstream. Each upstream transfer
// drives xf, which may produce zero, one, or many downstream values;
// these are buffered and emitted one per downstream Take. Early
// termination (the transducer's Step.Call returning false) flushes the
// transducer and cancels upstream, ending the flow cleanly. No value is
// discarded after emission: the terminator is only delivered once every
// buffered value has been transferred.
func Transform[In, Out any](xf Xform[In, Out], upstream Flow[In]) Flow[Out] {
	return func(onNotify func(), onTerminate func(error)) Transfer[Out] {
		var (
			mu          sync.Mutex
			buf         []Out
			termPending bool
			termErr     error
			terminated  bool
			terminate   sync.Once
			upXfer      Transfer[In]
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

		// recordTerm is first-wins: the upstream terminator carries the
		// authoritative error, and the errFlowDone-style Take error that
		// follows it must not displace it.
		recordTerm := func(err error) {
			mu.Lock()
			if !termPending {
				termPending = true
				termErr = err
			}
			mu.Unlock()
			maybeFinish()
		}

		step := Step[Out]{
			Call: func(v Out) bool {
				mu.Lock()
				wasEmpty := len(buf) == 0
				buf = append(buf, v)
				mu.Unlock()
				// One notify per empty-to-nonempty transition; take
				// re-notifies while more remain buffered.
				if wasEmpty {
					onNotify()
				}
				return true
			},
			Complete: func() {},
		}
		inStep := xf(step)

		processUpstream := func() {
			v, err := upXfer.Take()
			if err != nil {
				recordTerm(err)
				return
			}
			if !inStep.Call(v) {
				// Transducer stop: flush, then end cleanly before the
				// upstream cancellation's own terminator can claim the slot.
				inStep.Complete()
				recordTerm(nil)
				upXfer.Cancel()
			}
		}
		onUpstreamNotify := func() { gate.notify(processUpstream) }

		upXfer = upstream(onUpstreamNotify, func(err error) {
			inStep.Complete()
			recordTerm(err)
		})
		gate.arm(processUpstream)

		take := func() (Out, error) {
			mu.Lock()
			if len(buf) == 0 {
				ended := termPending
				mu.Unlock()
				var zero Out
				if ended {
					// The extra, valueless Take: fire the terminator here.
					maybeFinish()
					return zero, errFlowDone
				}
				return zero, &ProtocolViolationError{Reason: "transform: Take called without a pending notification"}
			}
			v := buf[0]
			buf = buf[1:]
			// Re-notify while more remain buffered, and once more after the
			// last value once upstream has ended.
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
