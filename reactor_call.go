package flux

import "sync"

// ReactorCall boots a reactor as a task: it constructs the context, runs
// boot, then resolves once every source node spawned during the boot (or
// transitively, from a running source) has terminated. It succeeds with
// boot's return value iff every source completed cleanly; otherwise it
// fails with the first source failure, cancelling the rest. Cancelling the
// task cancels every source.
func ReactorCall[T any](boot func(r *Reactor) (T, error), opts ...ReactorOption) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		r := NewReactor(opts...)
		r.scope = newScope()
		r.start = make(chan struct{})

		go func() {
			var (
				v   T
				err error
			)
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						err = newTaskPanicError(rec)
					}
				}()
				v, err = boot(r)
			}()
			if err != nil {
				r.scope.cancel()
			}
			close(r.start)
			r.sources.Wait()

			r.mu.Lock()
			r.closed = true
			srcErr := r.srcErr
			r.mu.Unlock()

			switch {
			case err != nil:
				onFailure(err)
			case srcErr != nil:
				onFailure(srcErr)
			default:
				onSuccess(v)
			}
		}()

		return onceCancel(func() { r.scope.cancel() })
	}
}

// SignalFlow spawns a source node wrapping flow as continuous (signal!):
// the node exposes the flow's latest value to its dependents, and each
// change propagates one round. Intermediate values arriving faster than
// rounds run are coalesced, which is exactly a signal's contract. Returns
// the node's ID for use in dependency lists.
func SignalFlow[T any](r *Reactor, flow Flow[T]) int {
	return flowNode(r, flow, nil)
}

// StreamFlow spawns a source node wrapping flow as discrete (stream!):
// every upstream value runs one propagation round and is then handed to
// sink exactly once, in round order. Dependents of the returned node ID
// observe the value being propagated that round.
func StreamFlow[T any](r *Reactor, flow Flow[T], sink func(T)) int {
	return flowNode(r, flow, sink)
}

func flowNode[T any](r *Reactor, flow Flow[T], sink func(T)) int {
	var (
		mu  sync.Mutex
		cur T
	)
	id := r.Signal(func([]any) any {
		mu.Lock()
		defer mu.Unlock()
		return cur
	}, nil)

	r.spawnSource(func(scope *Scope) error {
		it := iterateFlow(flow)
		for {
			v, ok, err := it.Next(scope)
			if !ok {
				return err
			}
			mu.Lock()
			cur = v
			mu.Unlock()
			r.Tick()
			if sink != nil {
				sink(v)
			}
		}
	})
	return id
}
