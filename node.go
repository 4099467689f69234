package flux

// node is one signal in a Reactor graph. compute derives the node's value
// for the current round from its dependencies' current values; cyclic marks
// which dependency edges close a cycle and so must read the *previous*
// round's settled value instead of waiting on this round's, which is what
// makes the reactor cycle-tolerant: a cyclic edge never blocks a round on
// itself.
type node struct {
	id      int
	deps    []int
	cyclic  map[int]bool
	compute func(inputs []any) any

	value    any
	prior    any
	hasValue bool
	round    int // round this value was last (re)computed in
}
