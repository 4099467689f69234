package flux

import "sync"

// Ref is the watchable-reference capability: a mutable cell that notifies
// registered watchers after every mutation with the new value.
type Ref[T any] struct {
	mu      sync.Mutex
	value   T
	watches map[any]func(T)
}

// NewRef returns a Ref holding initial.
func NewRef[T any](initial T) *Ref[T] {
	return &Ref[T]{value: initial, watches: make(map[any]func(T))}
}

// Deref returns the current value.
func (r *Ref[T]) Deref() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Set mutates the reference and notifies every registered watcher with the
// new value. Watchers are invoked synchronously, on the caller's goroutine.
func (r *Ref[T]) Set(v T) {
	r.mu.Lock()
	r.value = v
	fns := make([]func(T), 0, len(r.watches))
	for _, fn := range r.watches {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// AddWatch registers fn under key, replacing any watcher already
// registered under that key.
func (r *Ref[T]) AddWatch(key any, fn func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watches[key] = fn
}

// RemoveWatch deregisters the watcher registered under key, if any.
func (r *Ref[T]) RemoveWatch(key any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watches, key)
}

// Watch returns a Continuous flow over ref. The first notification carries
// ref's current value; each subsequent change notifies again. Only the
// most recent value is retained between notifications — older changes
// that arrive before the consumer transfers are dropped, per the overflow
// policy. Cancel removes the watcher.
func Watch[T any](ref *Ref[T]) Flow[T] {
	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		var (
			mu      sync.Mutex
			current = ref.Deref()
			pending = true // first notification is always due immediately
			done    bool
			terminate sync.Once
		)

		key := new(int)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		ref.AddWatch(key, func(v T) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			current = v
			already := pending
			pending = true
			mu.Unlock()
			if !already {
				onNotify()
			}
		})

		take := func() (T, error) {
			mu.Lock()
			defer mu.Unlock()
			if done {
				var zero T
				return zero, ErrCancelled
			}
			v := current
			pending = false
			return v, nil
		}

		cancel := func() {
			mu.Lock()
			already := done
			done = true
			mu.Unlock()
			if !already {
				ref.RemoveWatch(key)
				finish(nil)
			}
		}

		onNotify()

		return newTransfer(take, cancel)
	}
}
