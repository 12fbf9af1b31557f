// Package simulator runs Monte-Carlo rollouts of account-selection policies
// against the stochastic rating model. All randomness lives here: the solver
// and the policies (other than the random baseline's own rng) are pure.
package simulator

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"lukechampine.com/frand"

	"ladder/game"
	"ladder/policy"
)

// EpisodeResult is the outcome of one rollout.
type EpisodeResult struct {
	Final   int  // banked rating
	Matches int  // matches actually played
	Stopped bool // whether the policy stopped before the budget ran out
}

// Result aggregates the episodes of one policy from one initial state.
type Result struct {
	Policy      string    `json:"policy"`
	Episodes    int       `json:"episodes"`
	Mean        float64   `json:"mean"`
	StdDev      float64   `json:"std_dev"`
	Min         int       `json:"min"`
	Max         int       `json:"max"`
	MatchesMean float64   `json:"matches_mean"`
	StopRate    float64   `json:"stop_rate"`
	Finals      []float64 `json:"-"`
}

type Simulator struct {
	policy policy.Policy
	params game.Parameters
	rng    *rand.Rand
}

type Option func(*Simulator)

// WithSeed makes every rollout reproducible. Without it the simulator seeds
// itself from system entropy.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

func New(p policy.Policy, params game.Parameters, options ...Option) *Simulator {
	s := &Simulator{
		policy: p,
		params: params,
		rng:    rand.New(rand.NewSource(frand.Uint64n(math.MaxUint64))),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// RunEpisode plays out a single run: ask the policy, sample the match
// outcome, repeat until the policy stops or the budget runs out.
func (s *Simulator) RunEpisode(initial game.State, maxMatches int) (EpisodeResult, error) {
	state := initial
	for played := 0; played < maxMatches; played++ {
		action, err := s.policy.SelectTrack(state, maxMatches-played)
		if err != nil {
			return EpisodeResult{}, fmt.Errorf("policy %s: %w", s.policy.Name(), err)
		}
		if action.IsStop() {
			return EpisodeResult{Final: state.Best(), Matches: played, Stopped: true}, nil
		}
		idx := action.Index()
		if idx >= state.Len() {
			return EpisodeResult{}, fmt.Errorf("policy %s chose account %d of %d", s.policy.Name(), idx, state.Len())
		}
		won := s.rng.Float64() < s.params.WinProb(state.Rating(idx))
		state = state.AfterMatch(idx, won, s.params.Step)
	}
	return EpisodeResult{Final: state.Best(), Matches: maxMatches, Stopped: false}, nil
}

// Run repeats RunEpisode and aggregates the banked ratings.
func (s *Simulator) Run(initial game.State, maxMatches, episodes int) (Result, error) {
	if episodes < 1 {
		return Result{}, fmt.Errorf("episodes must be at least 1, got %d", episodes)
	}

	finals := make([]float64, 0, episodes)
	matches := 0
	stops := 0
	min, max := math.MaxInt, math.MinInt
	for i := 0; i < episodes; i++ {
		ep, err := s.RunEpisode(initial, maxMatches)
		if err != nil {
			return Result{}, err
		}
		finals = append(finals, float64(ep.Final))
		matches += ep.Matches
		if ep.Stopped {
			stops++
		}
		if ep.Final < min {
			min = ep.Final
		}
		if ep.Final > max {
			max = ep.Final
		}
	}

	return Result{
		Policy:      s.policy.Name(),
		Episodes:    episodes,
		Mean:        stat.Mean(finals, nil),
		StdDev:      stat.StdDev(finals, nil),
		Min:         min,
		Max:         max,
		MatchesMean: float64(matches) / float64(episodes),
		StopRate:    float64(stops) / float64(episodes),
		Finals:      finals,
	}, nil
}

// ComparePolicies runs each policy from the same initial state. Each policy
// gets its own rng stream derived from the seed so that adding a policy to
// the list does not perturb the others' outcomes. A zero seed draws a fresh
// one from entropy.
func ComparePolicies(policies []policy.Policy, params game.Parameters, initial game.State, maxMatches, episodes int, seed uint64) ([]Result, error) {
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64)
	}
	results := make([]Result, 0, len(policies))
	for i, p := range policies {
		log.Info().Str("policy", p.Name()).Int("episodes", episodes).Msg("simulating policy")
		sim := New(p, params, WithSeed(seed+uint64(i)))
		result, err := sim.Run(initial, maxMatches, episodes)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
