package flux

import "sync"

// Zip combines n Discrete flows in lockstep: it waits for exactly one value
// from every flow, combines them with f, then waits for the next round. Any
// upstream terminating (error or completion) terminates the zip and cancels
// the remaining upstreams; a partially filled final round is discarded, so
// the output length is the shortest upstream's.
//
// An upstream notification arriving while that flow's slot is still
// occupied is held rather than transferred: the deferred Take runs when the
// round completes and the slot frees up. Taking eagerly would discard the
// value, since one slot per upstream is all a lockstep round can hold.
func Zip[T, R any](f func(...T) R, flows ...Flow[T]) Flow[R] {
	n := len(flows)

	return func(onNotify func(), onTerminate func(error)) Transfer[R] {
		var (
			mu          sync.Mutex
			slots       = make([]T, n)
			got         = make([]bool, n)
			held        = make([]bool, n)
			gotCount    int
			buf         []R
			xfers       = make([]Transfer[T], n)
			gates       = make([]pendingGate, n)
			terminated  bool
			termPending bool
			termErr     error
			terminate   sync.Once
		)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		cancelAll := func() {
			for _, x := range xfers {
				if x != nil {
					x.Cancel()
				}
			}
		}

		terminateAll := func(err error) {
			mu.Lock()
			if terminated {
				mu.Unlock()
				return
			}
			terminated = true
			if len(buf) > 0 {
				// Buffered rounds are still owed downstream; the terminator
				// fires from the extra Take that follows the last one.
				termPending = true
				termErr = err
				mu.Unlock()
				cancelAll()
				return
			}
			mu.Unlock()
			cancelAll()
			finish(err)
		}

		processes := make([]func(), n)
		for i := 0; i < n; i++ {
			i := i
			processes[i] = func() {
				mu.Lock()
				if terminated {
					mu.Unlock()
					return
				}
				if got[i] {
					// Slot occupied: hold the notification, defer the Take.
					held[i] = true
					mu.Unlock()
					return
				}
				mu.Unlock()

				v, err := xfers[i].Take()
				if err != nil {
					terminateAll(err)
					return
				}

				mu.Lock()
				slots[i] = v
				got[i] = true
				gotCount++
				complete := gotCount == n
				var round []T
				var deferred []int
				if complete {
					round = append([]T(nil), slots...)
					for j := range got {
						got[j] = false
						if held[j] {
							held[j] = false
							deferred = append(deferred, j)
						}
					}
					gotCount = 0
				}
				mu.Unlock()

				if !complete {
					return
				}
				out := f(round...)
				mu.Lock()
				wasEmpty := len(buf) == 0
				buf = append(buf, out)
				mu.Unlock()
				if wasEmpty {
					onNotify()
				}
				for _, j := range deferred {
					gates[j].notify(processes[j])
				}
			}
		}

		for i := 0; i < n; i++ {
			i := i
			xfers[i] = flows[i](func() { gates[i].notify(processes[i]) }, func(err error) { terminateAll(err) })
			gates[i].arm(processes[i])
		}
		mu.Lock()
		endedEarly := terminated
		mu.Unlock()
		if endedEarly {
			// An upstream ended during subscription, before the later ones
			// had a Transfer to cancel through terminateAll.
			cancelAll()
		}

		take := func() (R, error) {
			mu.Lock()
			if len(buf) == 0 {
				fire, err := termPending, termErr
				mu.Unlock()
				var zero R
				if fire {
					// The extra, valueless Take after the last round.
					finish(err)
					return zero, errFlowDone
				}
				return zero, &ProtocolViolationError{Reason: "zip: Take called without a pending notification"}
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
