package flux

// round executes a single propagation round over a Reactor graph: a node
// computes only once every one of its acyclic dependencies has a value for
// the current round, and defers (instead of waiting) when a dependency is
// part of a cycle.
//
// A node is computed at most once per round (glitch-free): once computed,
// further attempts to compute it this round are no-ops. A cyclic dependency
// reads its neighbor's prior (previous round) value, so a cycle can never
// block a round waiting on itself.
func runRound(r *Reactor, round int) {
	computed := make(map[int]bool, len(r.nodes))

	var compute func(n *node) bool
	compute = func(n *node) bool {
		if computed[n.id] {
			return true
		}
		inputs := make([]any, len(n.deps))
		for i, depID := range n.deps {
			dep := r.nodes[depID]
			if n.cyclic[depID] {
				// Previous round's value: prior once the neighbor has been
				// recomputed this round, value while it has not.
				if computed[depID] {
					inputs[i] = dep.prior
				} else {
					inputs[i] = dep.value
				}
				continue
			}
			if !computed[depID] && !compute(dep) {
				return false
			}
			inputs[i] = dep.value
		}

		n.prior = n.value
		n.value = n.compute(inputs)
		n.hasValue = true
		n.round = round
		computed[n.id] = true
		return true
	}

	for _, n := range r.nodes {
		compute(n)
	}
}
