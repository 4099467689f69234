package flux

import "sync"

// Subscriber, Subscription, and Publisher form the external
// reactive-streams-shaped interface: a request-n-backpressured triad that
// Subscribe/ToPublisher bridge to and from.
type Subscriber[T any] interface {
	OnSubscribe(sub Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

type Subscription interface {
	Request(n int64)
	Cancel()
}

type Publisher[T any] interface {
	Subscribe(Subscriber[T])
}

// Subscribe bridges an external Publisher into a Discrete Flow. Upstream
// delivery is throttled to request(1) per outstanding Take, so the
// publisher's own backpressure contract does the rest of the work of
// honoring the one-outstanding rule.
func Subscribe[T any](pub Publisher[T]) Flow[T] {
	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		var (
			mu        sync.Mutex
			pending   T
			hasValue  bool
			failure   error
			completed bool
			terminate sync.Once
			sub       Subscription
		)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		s := &bridgeSubscriber[T]{
			onSubscribe: func(s Subscription) {
				mu.Lock()
				sub = s
				mu.Unlock()
				s.Request(1)
			},
			onNext: func(v T) {
				mu.Lock()
				pending = v
				hasValue = true
				mu.Unlock()
				onNotify()
			},
			onError: func(err error) {
				mu.Lock()
				failure = err
				mu.Unlock()
				onNotify()
			},
			onComplete: func() {
				mu.Lock()
				completed = true
				mu.Unlock()
				onNotify()
			},
		}
		pub.Subscribe(s)

		take := func() (T, error) {
			mu.Lock()

			if failure != nil {
				err := failure
				failure = nil
				mu.Unlock()
				finish(err)
				var zero T
				return zero, err
			}
			if hasValue {
				v := pending
				hasValue = false
				var zero T
				pending = zero
				s := sub
				mu.Unlock()
				// Request(1) must run with the lock released: a
				// synchronous publisher may call back into OnNext
				// re-entrantly from within Request, and mu is not
				// reentrant.
				if s != nil {
					s.Request(1)
				}
				return v, nil
			}
			if completed {
				mu.Unlock()
				finish(nil)
				var zero T
				return zero, ErrCancelled
			}
			mu.Unlock()
			var zero T
			return zero, &ProtocolViolationError{Reason: "subscribe: Take called without a pending notification"}
		}

		cancel := func() {
			mu.Lock()
			s := sub
			mu.Unlock()
			if s != nil {
				s.Cancel()
			}
			finish(ErrCancelled)
		}

		return newTransfer(take, cancel)
	}
}

type bridgeSubscriber[T any] struct {
	onSubscribe func(Subscription)
	onNext      func(T)
	onError     func(error)
	onComplete  func()
}

func (s *bridgeSubscriber[T]) OnSubscribe(sub Subscription) { s.onSubscribe(sub) }
func (s *bridgeSubscriber[T]) OnNext(v T)                   { s.onNext(v) }
func (s *bridgeSubscriber[T]) OnError(err error)            { s.onError(err) }
func (s *bridgeSubscriber[T]) OnComplete()                  { s.onComplete() }

// ToPublisher bridges a Flow into the external Publisher interface,
// driving it with Take calls gated by the subscriber's requested count.
func ToPublisher[T any](flow Flow[T]) Publisher[T] {
	return publisherFunc[T](func(sub Subscriber[T]) {
		var (
			mu        sync.Mutex
			requested int64
			credits   int64
			draining  bool
			terminal  bool
			xfer      Transfer[T]
		)

		// markTerminal claims the single terminal signal; the flow's
		// terminator usually fires from inside a Take, so the Take error
		// that follows it must not produce a second OnError.
		markTerminal := func() bool {
			mu.Lock()
			already := terminal
			terminal = true
			mu.Unlock()
			return !already
		}

		// Each Take spends one credit (an actual upstream notification) and
		// one unit of the subscriber's requested quota. Gating on both keeps
		// the one-outstanding rule intact when the subscriber requests ahead
		// of what has been notified: excess requests wait for the next
		// notification rather than forcing an unmatched Take.
		drain := func() {
			mu.Lock()
			if draining {
				mu.Unlock()
				return
			}
			draining = true
			mu.Unlock()

			for {
				mu.Lock()
				if requested <= 0 || credits <= 0 || terminal {
					draining = false
					mu.Unlock()
					return
				}
				requested--
				credits--
				t := xfer
				mu.Unlock()

				v, err := t.Take()
				if err != nil {
					if markTerminal() {
						sub.OnError(err)
					}
					return
				}
				sub.OnNext(v)
			}
		}

		subscription := &bridgeSubscription{
			request: func(n int64) {
				mu.Lock()
				requested += n
				mu.Unlock()
				drain()
			},
			cancel: func() {
				mu.Lock()
				t := xfer
				mu.Unlock()
				if t != nil {
					t.Cancel()
				}
			},
		}

		xfer = flow(
			func() {
				mu.Lock()
				credits++
				mu.Unlock()
				drain()
			},
			func(err error) {
				if !markTerminal() {
					return
				}
				if err != nil {
					sub.OnError(err)
					return
				}
				sub.OnComplete()
			},
		)

		sub.OnSubscribe(subscription)
	})
}

type publisherFunc[T any] func(Subscriber[T])

func (f publisherFunc[T]) Subscribe(s Subscriber[T]) { f(s) }

type bridgeSubscription struct {
	request func(int64)
	cancel  func()
}

func (s *bridgeSubscription) Request(n int64) { s.request(n) }
func (s *bridgeSubscription) Cancel()         { s.cancel() }
