package flux

import "sync"

// Rendezvous is a synchronous, unbuffered coordination primitive. Give(v)
// completes when a Take accepts it; Take completes with a value handed to
// it by a Give. Givers and takers pair off in FIFO order on both sides.
type Rendezvous[T any] struct {
	mu       sync.Mutex
	givers   []*rendezvousParty[T]
	takers   []*rendezvousParty[T]
}

type rendezvousParty[T any] struct {
	value    T
	deliver  chan T    // takers receive the value here
	accepted chan bool // givers learn whether they were accepted (true) or cancelled out (false)
	done     chan struct{}
}

// NewRendezvous returns an empty rendezvous point.
func NewRendezvous[T any]() *Rendezvous[T] {
	return &Rendezvous[T]{}
}

// Give is a task completing once a taker accepts v.
func (r *Rendezvous[T]) Give(v T) Task[struct{}] {
	return func(onSuccess func(struct{}), onFailure func(error)) CancelFunc {
		p := &rendezvousParty[T]{value: v, accepted: make(chan bool, 1), done: make(chan struct{})}

		r.mu.Lock()
		if len(r.takers) > 0 {
			taker := r.takers[0]
			r.takers = r.takers[1:]
			r.mu.Unlock()
			taker.deliver <- v
			onSuccess(struct{}{})
			return noopCancel()
		}
		r.givers = append(r.givers, p)
		r.mu.Unlock()

		var matched bool
		cancel := onceCancel(func() {
			// Written before close(p.done), so the done branch below reads
			// it consistently.
			matched = !r.removeGiver(p)
			close(p.done)
		})

		go func() {
			select {
			case <-p.accepted:
				onSuccess(struct{}{})
			case <-p.done:
				if matched {
					// A Take popped this giver just before cancellation
					// landed and has already consumed the value; report the
					// delivery rather than a failure the taker never saw.
					<-p.accepted
					onSuccess(struct{}{})
					return
				}
				onFailure(ErrCancelled)
			}
		}()

		return cancel
	}
}

// Take is a task completing with the value handed to it by a Give.
func (r *Rendezvous[T]) Take() Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		p := &rendezvousParty[T]{deliver: make(chan T, 1), done: make(chan struct{})}

		r.mu.Lock()
		if len(r.givers) > 0 {
			giver := r.givers[0]
			r.givers = r.givers[1:]
			r.mu.Unlock()
			select {
			case giver.accepted <- true:
			default:
			}
			onSuccess(giver.value)
			return noopCancel()
		}
		r.takers = append(r.takers, p)
		r.mu.Unlock()

		var matched bool
		cancel := onceCancel(func() {
			matched = !r.removeTaker(p)
			close(p.done)
		})

		go func() {
			select {
			case v := <-p.deliver:
				onSuccess(v)
			case <-p.done:
				if matched {
					// A Give popped this taker just before cancellation
					// landed and has already completed; deliver its value
					// rather than losing it.
					onSuccess(<-p.deliver)
					return
				}
				onFailure(ErrCancelled)
			}
		}()

		return cancel
	}
}

func (r *Rendezvous[T]) removeGiver(p *rendezvousParty[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range r.givers {
		if g == p {
			r.givers = append(r.givers[:i], r.givers[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Rendezvous[T]) removeTaker(p *rendezvousParty[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.takers {
		if t == p {
			r.takers = append(r.takers[:i], r.takers[i+1:]...)
			return true
		}
	}
	return false
}
