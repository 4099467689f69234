package flux

import (
	"sync"

	"github.com/ygrebnov/flux/metrics"
)

// Reactor is a round-based dataflow graph: signal! nodes hold a value
// derived from their dependencies, and stream! nodes publish every value
// a node takes across rounds. Reactor.Tick runs one propagation round.
type Reactor struct {
	mu         sync.Mutex
	nodes      []*node
	round      int
	publishers map[int][]func(any)
	provider   metrics.Provider
	rounds     metrics.Counter
	nodesGauge metrics.UpDownCounter

	// Set by ReactorCall; nil for a free-standing, manually ticked graph.
	// start gates every source driver until boot has finished wiring the
	// graph, so no round runs against a partially built dependency set.
	scope   *Scope
	start   chan struct{}
	sources sync.WaitGroup
	srcErr  error
	closed  bool
}

// ReactorOption configures a Reactor at construction time.
type ReactorOption func(*Reactor)

// WithReactorMetrics attaches a metrics.Provider so Reactor records a
// monotonic round counter and a live node-count gauge; flux defaults to a
// no-op provider so this is opt-in.
func WithReactorMetrics(p metrics.Provider) ReactorOption {
	return func(r *Reactor) { r.provider = p }
}

// NewReactor constructs an empty Reactor.
func NewReactor(opts ...ReactorOption) *Reactor {
	r := &Reactor{
		publishers: make(map[int][]func(any)),
		provider:   metrics.NewNoopProvider(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.rounds = r.provider.Counter("flux_reactor_rounds_total", metrics.WithDescription("reactor propagation rounds executed"))
	r.nodesGauge = r.provider.UpDownCounter("flux_reactor_nodes", metrics.WithDescription("nodes registered in the reactor"))
	return r
}

// Signal registers a signal! node: its value is recomputed from deps each
// round compute runs. cyclic marks any dep IDs that close a cycle back to
// this node, so the reactor reads their prior-round value instead of
// deadlocking the round on itself. Signal returns the new node's ID.
func (r *Reactor) Signal(compute func(inputs []any) any, deps []int, cyclic ...int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.define(len(r.nodes), compute, deps, cyclic)
}

// Reserve allocates a node ID without defining its compute function yet,
// so two nodes that depend on each other cyclically can each reference the
// other's ID regardless of construction order; pair it with Define.
func (r *Reactor) Reserve() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := len(r.nodes)
	r.nodes = append(r.nodes, &node{id: id})
	r.nodesGauge.Add(1)
	return id
}

// Define fills in a node reserved by Reserve.
func (r *Reactor) Define(id int, compute func(inputs []any) any, deps []int, cyclic ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.define(id, compute, deps, cyclic)
}

func (r *Reactor) define(id int, compute func(inputs []any) any, deps []int, cyclic []int) int {
	cyclicSet := make(map[int]bool, len(cyclic))
	for _, depID := range cyclic {
		cyclicSet[depID] = true
	}
	if id == len(r.nodes) {
		r.nodes = append(r.nodes, &node{id: id})
		r.nodesGauge.Add(1)
	}
	n := r.nodes[id]
	n.id = id
	n.deps = deps
	n.cyclic = cyclicSet
	n.compute = compute
	return id
}

// Stream registers a stream! node: a signal node whose every computed
// value, across every round, is delivered to sink in round order — unlike
// a plain signal, which only exposes its current value.
func (r *Reactor) Stream(compute func(inputs []any) any, deps []int, sink func(any), cyclic ...int) int {
	id := r.Signal(compute, deps, cyclic...)
	r.mu.Lock()
	r.publishers[id] = append(r.publishers[id], sink)
	r.mu.Unlock()
	return id
}

// spawnSource registers a driver goroutine feeding the graph from outside
// (a wrapped Flow). Only legal while the owning ReactorCall is still
// active: spawning from a completed or free-standing reactor is a protocol
// violation.
func (r *Reactor) spawnSource(drive func(scope *Scope) error) {
	r.mu.Lock()
	if r.scope == nil || r.closed {
		r.mu.Unlock()
		panic(&ProtocolViolationError{Reason: "reactor: source node spawned outside an active reactor boot"})
	}
	scope := r.scope
	start := r.start
	r.sources.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.sources.Done()
		<-start
		if err := drive(scope); err != nil {
			r.mu.Lock()
			if r.srcErr == nil {
				r.srcErr = err
			}
			r.mu.Unlock()
			// First failure cancels the remaining sources.
			scope.cancel()
		}
	}()
}

// Value returns node id's current value and whether it has ever computed.
func (r *Reactor) Value(id int) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.nodes[id]
	return n.value, n.hasValue
}

// Tick runs one propagation round: every node computes at most once, in
// dependency order, with cyclic edges reading the previous round's value.
// Stream sinks registered on recomputed nodes are invoked after the round
// settles, in node-registration order, so a sink never observes a partial
// round.
func (r *Reactor) Tick() {
	r.mu.Lock()
	r.round++
	round := r.round
	runRound(r, round)

	type delivery struct {
		sink func(any)
		v    any
	}
	var deliveries []delivery
	// Walk nodes, not the publishers map: map iteration order is random,
	// and sinks are promised their values in node-registration order.
	for _, n := range r.nodes {
		if n.round != round {
			continue
		}
		for _, sink := range r.publishers[n.id] {
			deliveries = append(deliveries, delivery{sink: sink, v: n.value})
		}
	}
	r.mu.Unlock()

	r.rounds.Add(1)
	for _, d := range deliveries {
		d.sink(d.v)
	}
}
