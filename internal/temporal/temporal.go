// Package temporal resolves time-varying entity state. Given an ordered list
// of time-stamped states and a query time, it returns the state whose
// timestamp is the greatest value not after the query time.
//
// All functions are pure: they hold no mutable state and are safe to call
// concurrently from multiple subscribers.
package temporal

import "sort"

// Stamped mirrors core.Stamped without importing the model package, keeping
// the resolver usable with any timestamped record type.
type Stamped interface {
	When() int64
}

// Resolve returns the index of the applicable state for query time t, or -1
// when t precedes the first recorded state ("unresolved" — the caller decides
// whether to fall back to base values or suppress the entity).
//
// The list must be sorted ascending by timestamp with stable insertion order;
// when several states share exactly t the last-inserted one wins.
func Resolve[S Stamped](states []S, t int64) int {
	// First index with timestamp > t; the applicable state sits just before.
	i := sort.Search(len(states), func(i int) bool {
		return states[i].When() > t
	})
	return i - 1
}

// ResolveState is Resolve returning the state value itself. The second result
// is false when unresolved.
func ResolveState[S Stamped](states []S, t int64) (S, bool) {
	i := Resolve(states, t)
	if i < 0 {
		var zero S
		return zero, false
	}
	return states[i], true
}

// InsertIndex returns the position at which a state with timestamp t must be
// inserted to keep the list sorted ascending while preserving insertion order
// among equal timestamps (the new entry goes after existing equals).
func InsertIndex[S Stamped](states []S, t int64) int {
	return sort.Search(len(states), func(i int) bool {
		return states[i].When() > t
	})
}

// Insert adds a state into a sorted list, keeping ascending order and stable
// insertion semantics, and returns the new list.
func Insert[S Stamped](states []S, state S) []S {
	i := InsertIndex(states, state.When())
	states = append(states, state)
	copy(states[i+1:], states[i:])
	states[i] = state
	return states
}
