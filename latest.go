package flux

import "sync"

// Latest combines n Continuous flows: once every flow has produced at
// least one value (the warm-up), it emits combine(...) again each time any
// single upstream produces a new value. Latest retains only the most
// recent value from each upstream, so it is itself Continuous: a slow
// consumer observes the newest combination, never a backlog of stale ones.
func Latest[T, R any](combine func(...T) R, flows ...Flow[T]) Flow[R] {
	n := len(flows)

	return func(onNotify func(), onTerminate func(error)) Transfer[R] {
		var (
			mu         sync.Mutex
			slots      = make([]T, n)
			warm       = make([]bool, n)
			warmCount  int
			hasPending bool
			pending    R
			xfers      = make([]Transfer[T], n)
			gates      = make([]pendingGate, n)
			terminated bool
			terminate  sync.Once
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
					terminateAll(err)
					return
				}

				mu.Lock()
				slots[i] = v
				if !warm[i] {
					warm[i] = true
					warmCount++
				}
				ready := warmCount == n
				var round []T
				if ready {
					round = append([]T(nil), slots...)
				}
				mu.Unlock()

				if !ready {
					return
				}
				out := combine(round...)
				mu.Lock()
				pending = out
				wasPending := hasPending
				hasPending = true
				mu.Unlock()
				if !wasPending {
					onNotify()
				}
			}
			xfers[i] = flows[i](func() { gates[i].notify(process) }, func(err error) { terminateAll(err) })
			gates[i].arm(process)
		}

		take := func() (R, error) {
			mu.Lock()
			if !hasPending {
				mu.Unlock()
				var zero R
				return zero, &ProtocolViolationError{Reason: "latest: Take called without a pending notification"}
			}
			v := pending
			hasPending = false
			mu.Unlock()
			return v, nil
		}

		cancel := func() { terminateAll(ErrCancelled) }

		return newTransfer(take, cancel)
	}
}
