// Package experiments runs parameter sweeps over the solver and records the
// results as CSV plus a JSON config, one timestamped directory per run.
package experiments

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"ladder/cache"
	"ladder/game"
	"ladder/solver"
)

// Sweep is one experiment's output: expectation curves over a swept
// variable, one series per configuration.
type Sweep struct {
	Name   string
	XLabel string
	Series []string
	Rows   []Row
}

// Row is one x value with one y value per series.
type Row struct {
	X float64
	Y []float64
}

// Runner executes sweeps with a shared parameter set and optional persistent
// store, and writes results under its root directory.
type Runner struct {
	params game.Parameters
	store  cache.Store
	root   string
}

type RunnerOption func(*Runner)

func WithStore(store cache.Store) RunnerOption {
	return func(r *Runner) {
		r.store = store
	}
}

func NewRunner(params game.Parameters, root string, options ...RunnerOption) *Runner {
	r := &Runner{params: params, root: root}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Runner) newSolver() *solver.Solver {
	if r.store != nil {
		return solver.New(r.params, solver.WithStore(r.store))
	}
	return solver.New(r.params)
}

// EqualIntervalRatings builds r account ratings spaced dv apart starting at
// v0: v0, v0+dv, ..., v0+(r-1)dv.
func EqualIntervalRatings(v0, dv, r int) []int {
	ratings := make([]int, r)
	for i := range ratings {
		ratings[i] = v0 + i*dv
	}
	return ratings
}

// HorizonSweep computes expectation as a function of the remaining-match
// budget, one series per account count, with every account starting at v0.
func (r *Runner) HorizonSweep(horizons []int, trackCounts []int, v0 int) (Sweep, error) {
	sweep := Sweep{Name: "horizon", XLabel: "n"}
	for _, count := range trackCounts {
		sweep.Series = append(sweep.Series, fmt.Sprintf("accounts=%d", count))
	}

	s := r.newSolver()
	for _, n := range horizons {
		row := Row{X: float64(n)}
		for _, count := range trackCounts {
			state, err := game.NewState(EqualIntervalRatings(v0, 0, count))
			if err != nil {
				return Sweep{}, err
			}
			value, err := s.Expectation(n, state)
			if err != nil {
				return Sweep{}, fmt.Errorf("horizon sweep at n=%d accounts=%d: %w", n, count, err)
			}
			row.Y = append(row.Y, value)
		}
		sweep.Rows = append(sweep.Rows, row)
		log.Info().Int("n", n).Msg("horizon sweep point done")
	}
	return sweep, nil
}

// BaselineSweep computes expectation as a function of the starting rating
// v0, at a fixed horizon and account count.
func (r *Runner) BaselineSweep(v0s []int, n, tracks int) (Sweep, error) {
	sweep := Sweep{Name: "baseline", XLabel: "v0", Series: []string{fmt.Sprintf("n=%d accounts=%d", n, tracks)}}

	s := r.newSolver()
	for _, v0 := range v0s {
		state, err := game.NewState(EqualIntervalRatings(v0, 0, tracks))
		if err != nil {
			return Sweep{}, err
		}
		value, err := s.Expectation(n, state)
		if err != nil {
			return Sweep{}, fmt.Errorf("baseline sweep at v0=%d: %w", v0, err)
		}
		sweep.Rows = append(sweep.Rows, Row{X: float64(v0), Y: []float64{value}})
		log.Info().Int("v0", v0).Msg("baseline sweep point done")
	}
	return sweep, nil
}

// SpreadSweep computes expectation as a function of the rating gap between
// consecutive accounts, at a fixed horizon, baseline and account count.
func (r *Runner) SpreadSweep(dvs []int, n, v0, tracks int) (Sweep, error) {
	sweep := Sweep{Name: "spread", XLabel: "dv", Series: []string{fmt.Sprintf("n=%d v0=%d accounts=%d", n, v0, tracks)}}

	s := r.newSolver()
	for _, dv := range dvs {
		state, err := game.NewState(EqualIntervalRatings(v0, dv, tracks))
		if err != nil {
			return Sweep{}, err
		}
		value, err := s.Expectation(n, state)
		if err != nil {
			return Sweep{}, fmt.Errorf("spread sweep at dv=%d: %w", dv, err)
		}
		sweep.Rows = append(sweep.Rows, Row{X: float64(dv), Y: []float64{value}})
		log.Info().Int("dv", dv).Msg("spread sweep point done")
	}
	return sweep, nil
}

// Save writes a sweep and its configuration, returning the result directory.
func (r *Runner) Save(sweep Sweep, config any) (string, error) {
	writer, err := NewWriter(r.root, sweep.Name)
	if err != nil {
		return "", err
	}
	if err := writer.WriteSweep(sweep); err != nil {
		return "", err
	}
	if err := writer.WriteConfig(config); err != nil {
		return "", err
	}
	log.Info().Str("dir", writer.Dir()).Str("experiment", sweep.Name).Msg("experiment saved")
	return writer.Dir(), nil
}
