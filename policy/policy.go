// Package policy defines the account-selection strategies exercised by the
// simulator. The set is closed: strategies are chosen by name, never
// supplied as code.
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"ladder/game"
	"ladder/solver"
)

// Policy picks the next action for one simulated turn: an account's
// canonical index to play, or game.Stop to bank the current best rating.
type Policy interface {
	SelectTrack(state game.State, remaining int) (game.Action, error)
	Name() string
}

// Optimal follows the backward-induction solution exactly.
type Optimal struct {
	Solver *solver.Solver
}

func NewOptimal(s *solver.Solver) *Optimal {
	return &Optimal{Solver: s}
}

func (p *Optimal) SelectTrack(state game.State, remaining int) (game.Action, error) {
	if remaining <= 0 {
		return game.Stop, nil
	}
	return p.Solver.BestAction(remaining, state)
}

func (p *Optimal) Name() string { return "optimal" }

// Random plays a uniformly random account, optionally stopping early with a
// fixed per-turn probability. A baseline for policy comparisons.
type Random struct {
	StopProb float64
	rng      *rand.Rand
}

func NewRandom(stopProb float64, rng *rand.Rand) *Random {
	return &Random{StopProb: stopProb, rng: rng}
}

func (p *Random) SelectTrack(state game.State, remaining int) (game.Action, error) {
	if remaining <= 0 {
		return game.Stop, nil
	}
	if p.StopProb > 0 && p.rng.Float64() < p.StopProb {
		return game.Stop, nil
	}
	return game.Action(p.rng.Intn(state.Len())), nil
}

func (p *Random) Name() string { return "random" }

// Fixed always plays the same canonical index until the budget runs out.
type Fixed struct {
	Index int
}

func NewFixed(index int) *Fixed {
	return &Fixed{Index: index}
}

func (p *Fixed) SelectTrack(state game.State, remaining int) (game.Action, error) {
	if remaining <= 0 {
		return game.Stop, nil
	}
	if p.Index < 0 || p.Index >= state.Len() {
		return game.Stop, fmt.Errorf("fixed index %d out of range for %d accounts", p.Index, state.Len())
	}
	return game.Action(p.Index), nil
}

func (p *Fixed) Name() string { return "fixed" }

// Greedy plays the account with the highest win probability, i.e. the
// lowest-rated one. Never stops before the budget runs out.
type Greedy struct{}

func NewGreedy() *Greedy {
	return &Greedy{}
}

func (p *Greedy) SelectTrack(state game.State, remaining int) (game.Action, error) {
	if remaining <= 0 {
		return game.Stop, nil
	}
	// Ratings are sorted descending, so the last index wins most often.
	return game.Action(state.Len() - 1), nil
}

func (p *Greedy) Name() string { return "greedy" }

// Threshold plays the lowest-rated account whose rating is still at or above
// a floor, and stops once every account above the floor would risk dropping
// the profile below it.
type Threshold struct {
	Floor int
}

func NewThreshold(floor int) *Threshold {
	return &Threshold{Floor: floor}
}

func (p *Threshold) SelectTrack(state game.State, remaining int) (game.Action, error) {
	if remaining <= 0 {
		return game.Stop, nil
	}
	for i := state.Len() - 1; i >= 0; i-- {
		if state.Rating(i) >= p.Floor {
			return game.Action(i), nil
		}
	}
	return game.Stop, nil
}

func (p *Threshold) Name() string { return "threshold" }

// ClosestToMean plays the account whose rating is nearest the profile
// average, preferring the smaller canonical index on ties.
type ClosestToMean struct{}

func NewClosestToMean() *ClosestToMean {
	return &ClosestToMean{}
}

func (p *ClosestToMean) SelectTrack(state game.State, remaining int) (game.Action, error) {
	if remaining <= 0 {
		return game.Stop, nil
	}
	mean := state.Mean()
	best := 0
	bestDist := dist(state.Rating(0), mean)
	for i := 1; i < state.Len(); i++ {
		if d := dist(state.Rating(i), mean); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return game.Action(best), nil
}

func (p *ClosestToMean) Name() string { return "closest-to-mean" }

func dist(rating int, mean float64) float64 {
	d := float64(rating) - mean
	if d < 0 {
		return -d
	}
	return d
}
