// Package solver computes, by backward induction, the expected value of the
// best final rating achievable from a rating profile with a fixed number of
// matches remaining, and the first action of an optimal play sequence.
//
// At every turn the actor either stops (banking the current best rating) or
// plays one account, which then wins or loses a match. The value of a state
// at horizon n is therefore
//
//	V(0, s) = best(s)
//	V(n, s) = max(best(s), max_i p_i*V(n-1, win_i) + (1-p_i)*V(n-1, lose_i))
//
// Ties resolve deterministically: stop beats any equal-valued play, and the
// smallest canonical index beats other equal-valued plays.
package solver

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"ladder/cache"
	"ladder/game"
)

// DefaultCheckpointInterval is the horizon spacing at which results are
// persisted. Intermediate horizons are cheap to rebuild from the checkpoint
// below them, so persisting every depth would cost far more disk writes than
// the recomputation it saves.
const DefaultCheckpointInterval = 50

// tieEpsilon keeps the tie-break contract stable under floating point: a
// play whose exact value ties the incumbent can come out a few ulps high,
// and must not be allowed to displace stop or a smaller index.
const tieEpsilon = 1e-9

type memoKey struct {
	n   int
	key string
}

type entry struct {
	value  float64
	action game.Action
}

// Solver owns the in-memory memo table and an optional persistent store
// handle for one parameter set. It is not safe for concurrent use; run one
// solver per goroutine or serialize externally.
type Solver struct {
	params   game.Parameters
	interval int
	store    cache.Store
	memo     map[memoKey]entry
	seeded   map[int]bool
}

type Option func(*Solver)

// WithStore attaches a persistent result store. Previously persisted
// horizons seed the memo before the first solve, and checkpoint-depth
// results are written back.
func WithStore(store cache.Store) Option {
	return func(s *Solver) {
		s.store = store
	}
}

// WithCheckpointInterval overrides the persistence spacing. Zero disables
// checkpointing even when a store is attached.
func WithCheckpointInterval(interval int) Option {
	return func(s *Solver) {
		if interval >= 0 {
			s.interval = interval
		}
	}
}

// New returns a solver bound to one parameter set. Binding parameters at
// construction keeps the memo table sound: entries computed under one
// probability model are never visible to another.
func New(params game.Parameters, options ...Option) *Solver {
	s := &Solver{
		params:   params,
		interval: DefaultCheckpointInterval,
		memo:     make(map[memoKey]entry),
		seeded:   make(map[int]bool),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Params returns the parameter set this solver was built with.
func (s *Solver) Params() game.Parameters {
	return s.params
}

// Expectation returns the expected value of the best final rating from
// state with n matches remaining, under optimal play.
func (s *Solver) Expectation(n int, state game.State) (float64, error) {
	if err := s.prepare(n, state); err != nil {
		return 0, err
	}
	value, _ := s.solve(n, state)
	return value, nil
}

// BestAction returns the optimal first action from state with n matches
// remaining: game.Stop to bank now, or the canonical index of the account
// to play. It shares the memo with Expectation, so the two always agree.
func (s *Solver) BestAction(n int, state game.State) (game.Action, error) {
	if err := s.prepare(n, state); err != nil {
		return game.Stop, err
	}
	_, action := s.solve(n, state)
	return action, nil
}

// ActionValues returns the expected value of playing each canonical account
// index once and then continuing optimally. The stop option is not included;
// compare against float64(state.Best()).
func (s *Solver) ActionValues(n int, state game.State) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("horizon must be at least 1, got %d", n)
	}
	if err := s.prepare(n, state); err != nil {
		return nil, err
	}
	values := make([]float64, state.Len())
	for i := range values {
		values[i] = s.playValue(n, state, i)
	}
	return values, nil
}

func (s *Solver) prepare(n int, state game.State) error {
	if n < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", n)
	}
	if state.Len() == 0 {
		return fmt.Errorf("state has no accounts")
	}
	return s.seed(state.Len())
}

// seed loads every persisted horizon for an account count into the memo,
// once per solver.
func (s *Solver) seed(tracks int) error {
	if s.store == nil || s.seeded[tracks] {
		return nil
	}
	all, err := s.store.LoadAll(tracks)
	if err != nil {
		return fmt.Errorf("seed memo from store: %w", err)
	}
	total := 0
	for n, records := range all {
		for _, rec := range records {
			s.memo[memoKey{n: n, key: rec.State.Key()}] = entry{value: rec.Value, action: rec.Action}
		}
		total += len(records)
	}
	if total > 0 {
		log.Debug().Int("tracks", tracks).Int("records", total).Msg("seeded memo from persisted results")
	}
	s.seeded[tracks] = true
	return nil
}

// solve is the recursive core. It returns both the value and the action so
// that one memo entry serves Expectation and BestAction alike. A memo entry
// is computed at most once and never mutated afterward.
func (s *Solver) solve(n int, state game.State) (float64, game.Action) {
	if n == 0 {
		return float64(state.Best()), game.Stop
	}

	key := memoKey{n: n, key: state.Key()}
	if e, ok := s.memo[key]; ok {
		return e.value, e.action
	}

	// Stop is the incumbent; a play must be strictly better to displace it,
	// and among plays a later index must be strictly better than an earlier
	// one. The actor never risks a tie.
	best := float64(state.Best())
	action := game.Stop
	for i := 0; i < state.Len(); i++ {
		if v := s.playValue(n, state, i); v > best+tieEpsilon {
			best = v
			action = game.Action(i)
		}
	}

	if s.store != nil && s.interval > 0 && n%s.interval == 0 {
		if err := s.store.Append(n, state, best, action); err != nil {
			log.Warn().Err(err).Int("n", n).Str("state", state.Key()).
				Msg("failed to checkpoint result")
		}
	}

	s.memo[key] = entry{value: best, action: action}
	return best, action
}

// playValue is the expected value of playing canonical index i once at
// horizon n and continuing optimally.
func (s *Solver) playValue(n int, state game.State, i int) float64 {
	p := s.params.WinProb(state.Rating(i))
	winValue, _ := s.solve(n-1, state.AfterMatch(i, true, s.params.Step))
	loseValue, _ := s.solve(n-1, state.AfterMatch(i, false, s.params.Step))
	return p*winValue + (1-p)*loseValue
}
