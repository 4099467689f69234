package flux

import "sync"

// pendingGate closes two related races present in every combinator that
// subscribes to an upstream Flow and stores the returned Transfer in a
// local variable:
//
//  1. A synchronous source (Enumerate, Watch) may call onNotify before the
//     subscribing call returns, i.e. before that local variable has been
//     assigned. pendingGate defers any notification that arrives before
//     the combinator is "armed" and replays it exactly once, immediately
//     after arming.
//  2. A synchronous source may call onNotify again from inside its own
//     Take() — e.g. Enumerate notifying index i+1 before returning index
//     i's value — which would otherwise re-enter process reentrantly,
//     before the in-flight call has finished handling the value it just
//     received. pendingGate serializes these into a trampoline: a notify
//     that arrives while process is already running is queued, and the
//     running call picks it up in a loop once it returns, so process
//     never runs twice in the same call stack and every value is fully
//     handled in arrival order.
type pendingGate struct {
	mu      sync.Mutex
	ready   bool
	pending bool
	running bool
	queued  int
}

// notify runs process if the gate is armed and idle, queues it if process
// is already running (on this or another goroutine), or defers it to the
// next arm call if the gate isn't armed yet.
func (g *pendingGate) notify(process func()) {
	g.mu.Lock()
	if !g.ready {
		g.pending = true
		g.mu.Unlock()
		return
	}
	if g.running {
		g.queued++
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()
	g.run(process)
}

// arm marks the gate ready and, if a notification arrived before this
// call, runs process to replay it.
func (g *pendingGate) arm(process func()) {
	g.mu.Lock()
	g.ready = true
	wasPending := g.pending
	g.pending = false
	if wasPending {
		g.running = true
	}
	g.mu.Unlock()
	if wasPending {
		g.run(process)
	}
}

// run drives process to completion and then, in a loop rather than by
// recursing, drains any notifications queued while it ran.
func (g *pendingGate) run(process func()) {
	for {
		process()
		g.mu.Lock()
		if g.queued > 0 {
			g.queued--
			g.mu.Unlock()
			continue
		}
		g.running = false
		g.mu.Unlock()
		return
	}
}
