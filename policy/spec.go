package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"ladder/game"
	"ladder/solver"
)

// Spec names a policy plus its knobs, so front ends (CLI flags, JSON
// requests) can select strategies without exposing code execution.
type Spec struct {
	Name       string  `json:"name"`
	StopProb   float64 `json:"stop_prob,omitempty"`
	FixedIndex int     `json:"fixed_index,omitempty"`
	Floor      int     `json:"floor,omitempty"`
}

// Names lists every recognized policy name.
func Names() []string {
	return []string{"optimal", "random", "fixed", "greedy", "threshold", "closest-to-mean"}
}

// Build instantiates the named policy. The solver is only consulted by the
// optimal policy; the rng only by the random policy. The params argument
// reserves room for strategies that need the probability model directly.
func Build(spec Spec, s *solver.Solver, params game.Parameters, rng *rand.Rand) (Policy, error) {
	switch spec.Name {
	case "optimal":
		if s == nil {
			return nil, fmt.Errorf("optimal policy needs a solver")
		}
		return NewOptimal(s), nil
	case "random":
		if spec.StopProb < 0 || spec.StopProb > 1 {
			return nil, fmt.Errorf("stop probability %v outside [0, 1]", spec.StopProb)
		}
		return NewRandom(spec.StopProb, rng), nil
	case "fixed":
		return NewFixed(spec.FixedIndex), nil
	case "greedy":
		return NewGreedy(), nil
	case "threshold":
		floor := spec.Floor
		if floor == 0 {
			floor = int(params.Mu)
		}
		return NewThreshold(floor), nil
	case "closest-to-mean":
		return NewClosestToMean(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", spec.Name)
	}
}
