package flux

import "sync"

// Gather merges n Discrete flows as their values arrive, in no particular
// order. It terminates successfully once every upstream has completed; a
// failure on any single upstream cancels the rest and terminates gather
// with that failure.
func Gather[T any](flows ...Flow[T]) Flow[T] {
	n := len(flows)

	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		var (
			mu          sync.Mutex
			buf         []T
			doneCount   int
			xfers       = make([]Transfer[T], n)
			gates       = make([]pendingGate, n)
			termPending bool
			termErr     error
			terminated  bool
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

		fail := func(err error) {
			mu.Lock()
			already := terminated
			terminated = true
			mu.Unlock()
			if already {
				return
			}
			cancelAll()
			finish(err)
		}

		for i := 0; i < n; i++ {
			i := i
			process := func() {
				mu.Lock()
				if terminated {
					mu.Unlock()
					return
				}
				mu.Unlock()

				v, err := xfers[i].Take()
				if err != nil {
					// The terminator that fired from inside this Take has
					// already routed the authoritative outcome through fail
					// or the completion count; nothing more to do here.
					return
				}
				mu.Lock()
				wasEmpty := len(buf) == 0
				buf = append(buf, v)
				mu.Unlock()
				// One notify per empty-to-nonempty transition; take
				// re-notifies while more remain buffered.
				if wasEmpty {
					onNotify()
				}
			}
			xfers[i] = flows[i](func() { gates[i].notify(process) }, func(err error) {
				if err != nil {
					fail(err)
					return
				}
				mu.Lock()
				doneCount++
				allDone := doneCount == n
				if allDone {
					termPending = true
					termErr = nil
				}
				mu.Unlock()
				if allDone {
					maybeFinish()
				}
			})
			gates[i].arm(process)
		}

		take := func() (T, error) {
			mu.Lock()
			if len(buf) == 0 {
				ended := termPending
				mu.Unlock()
				var zero T
				if ended {
					maybeFinish()
					return zero, errFlowDone
				}
				return zero, &ProtocolViolationError{Reason: "gather: Take called without a pending notification"}
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

		cancel := func() { fail(ErrCancelled) }

		return newTransfer(take, cancel)
	}
}
