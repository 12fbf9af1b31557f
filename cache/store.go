// Package cache persists solved (horizon, state) results across runs so a
// later invocation can seed its memo table instead of recomputing deep
// subtrees from scratch.
package cache

import "ladder/game"

// Record is one persisted solution: the optimal expected final rating for a
// state at some horizon, and the first action that achieves it.
type Record struct {
	State  game.State
	Value  float64
	Action game.Action
}

// Store is an append-only result archive partitioned by horizon and account
// count. A (horizon, state) pair is written at most once and never
// rewritten. Implementations are not safe for concurrent writers; the host
// must serialize access per store.
type Store interface {
	// Load returns every record persisted for (n, tracks), keyed by
	// State.Key(). A store with nothing persisted returns an empty map.
	Load(n, tracks int) (map[string]Record, error)

	// LoadAll discovers every persisted horizon for an account count.
	LoadAll(tracks int) (map[int]map[string]Record, error)

	// Append persists one record unless the state is already present for
	// (n, tracks), in which case it is a no-op.
	Append(n int, state game.State, value float64, action game.Action) error

	Close() error
}
