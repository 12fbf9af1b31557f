// Command ladder computes optimal stopping strategies for multi-account
// rating climbs and runs Monte-Carlo policy comparisons against them.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"lukechampine.com/frand"

	"ladder/cache"
	"ladder/config"
	"ladder/experiments"
	"ladder/game"
	"ladder/policy"
	"ladder/server"
	"ladder/simulator"
	"ladder/solver"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	switch os.Args[1] {
	case "dp":
		err = runDP(cfg, os.Args[2:])
	case "sim":
		err = runSim(cfg, os.Args[2:])
	case "experiment":
		err = runExperiment(cfg, os.Args[2:])
	case "serve":
		err = runServe(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ladder <command> [flags]

commands:
  dp          compute the optimal expected final rating and first action
  sim         Monte-Carlo simulation of account-selection policies
  experiment  run a named parameter sweep and save CSV/JSON records
  serve       start the HTTP API`)
}

type modelFlags struct {
	step *int
	k    *float64
	mu   *float64
}

func addModelFlags(fs *flag.FlagSet, cfg *config.Config) modelFlags {
	return modelFlags{
		step: fs.Int("rating-step", cfg.RatingStep, "rating points per match"),
		k:    fs.Float64("k-coeff", cfg.KCoeff, "slope of the win probability model"),
		mu:   fs.Float64("mu", cfg.Mu, "equilibrium rating"),
	}
}

func (m modelFlags) params() game.Parameters {
	return game.Parameters{Step: *m.step, K: *m.k, Mu: *m.mu}
}

// initialState builds the starting profile from --initial, or defaults every
// account to the equilibrium rating. An explicit list must match the
// declared account count; that is checked here, before the solver runs.
func initialState(initial string, accounts int, params game.Parameters) (game.State, error) {
	if accounts < 1 {
		return game.State{}, fmt.Errorf("accounts must be at least 1, got %d", accounts)
	}
	if initial == "" {
		ratings := make([]int, accounts)
		for i := range ratings {
			ratings[i] = int(math.Round(params.Mu))
		}
		return game.NewState(ratings)
	}

	fields := strings.Split(initial, ",")
	if len(fields) != accounts {
		return game.State{}, fmt.Errorf("account count (%d) does not match the number of initial ratings (%d)", accounts, len(fields))
	}
	ratings := make([]int, len(fields))
	for i, f := range fields {
		r, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return game.State{}, fmt.Errorf("bad initial rating %q: %w", f, err)
		}
		ratings[i] = params.SnapRating(r)
	}
	return game.NewState(ratings)
}

func openStore(cfg *config.Config, disabled bool) (cache.Store, error) {
	if disabled {
		return nil, nil
	}
	return cfg.OpenStore()
}

func newSolver(params game.Parameters, store cache.Store) *solver.Solver {
	if store != nil {
		return solver.New(params, solver.WithStore(store))
	}
	return solver.New(params)
}

func runDP(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dp", flag.ExitOnError)
	n := fs.Int("n", 0, "remaining matches")
	accounts := fs.Int("accounts", 2, "number of accounts")
	initial := fs.String("initial", "", "comma-separated initial ratings")
	noCache := fs.Bool("no-cache", false, "disable the persistent result store")
	model := addModelFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := model.params()
	state, err := initialState(*initial, *accounts, params)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, *noCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	s := newSolver(params, store)
	value, err := s.Expectation(*n, state)
	if err != nil {
		return err
	}
	action, err := s.BestAction(*n, state)
	if err != nil {
		return err
	}

	fmt.Printf("remaining matches: %d\n", *n)
	fmt.Printf("initial state:     %s\n", state.Key())
	fmt.Printf("expectation:       %.4f\n", value)
	fmt.Printf("best action:       %s\n", action)
	if *n > 0 {
		values, err := s.ActionValues(*n, state)
		if err != nil {
			return err
		}
		for i, v := range values {
			fmt.Printf("  play account %d (rating %d): %.4f\n", i, state.Rating(i), v)
		}
	}
	return nil
}

func runSim(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sim", flag.ExitOnError)
	n := fs.Int("n", 0, "maximum matches per episode")
	accounts := fs.Int("accounts", 2, "number of accounts")
	initial := fs.String("initial", "", "comma-separated initial ratings")
	episodes := fs.Int("episodes", 1000, "episodes per policy")
	policyName := fs.String("policy", "all", "policy name or \"all\"")
	stopProb := fs.Float64("stop-prob", 0, "per-turn stop probability for the random policy")
	fixedIdx := fs.Int("fixed-idx", 0, "canonical index for the fixed policy")
	floor := fs.Int("floor", 0, "rating floor for the threshold policy (defaults to mu)")
	seed := fs.Uint64("seed", 0, "rng seed (0 draws from entropy)")
	noCache := fs.Bool("no-cache", false, "disable the persistent result store")
	model := addModelFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := model.params()
	state, err := initialState(*initial, *accounts, params)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, *noCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	s := newSolver(params, store)
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = frand.Uint64n(math.MaxUint64)
	}
	rng := rand.New(rand.NewSource(rngSeed))

	names := []string{*policyName}
	if *policyName == "all" {
		names = policy.Names()
	}
	policies := make([]policy.Policy, 0, len(names))
	for _, name := range names {
		spec := policy.Spec{Name: name, StopProb: *stopProb, FixedIndex: *fixedIdx, Floor: *floor}
		p, err := policy.Build(spec, s, params, rng)
		if err != nil {
			return err
		}
		policies = append(policies, p)
	}

	optimum, err := s.Expectation(*n, state)
	if err != nil {
		return err
	}

	results, err := simulator.ComparePolicies(policies, params, state, *n, *episodes, rngSeed)
	if err != nil {
		return err
	}

	fmt.Printf("initial state: %s, max matches: %d, episodes: %d\n", state.Key(), *n, *episodes)
	fmt.Printf("theoretical optimum (DP): %.4f\n\n", optimum)
	for _, r := range results {
		fmt.Printf("%-16s mean=%.2f sd=%.2f min=%d max=%d matches=%.1f stop-rate=%.2f\n",
			r.Policy, r.Mean, r.StdDev, r.Min, r.Max, r.MatchesMean, r.StopRate)
	}

	fmt.Printf("\nfinal rating distribution (%s):\n", results[0].Policy)
	hist := histogram.Hist(9, results[0].Finals)
	return histogram.Fprint(os.Stdout, hist, histogram.Linear(40))
}

func runExperiment(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("experiment", flag.ExitOnError)
	name := fs.String("name", "horizon", "experiment name: horizon, baseline or spread")
	horizons := fs.String("horizons", "10,25,50,100", "horizon sweep points")
	trackCounts := fs.String("track-counts", "1,2,3", "account counts for the horizon sweep")
	v0s := fs.String("v0s", "1400,1450,1500,1550,1600", "baseline sweep points")
	dvs := fs.String("dvs", "0,16,32,64,128", "spread sweep points")
	n := fs.Int("n", 50, "horizon for baseline and spread sweeps")
	v0 := fs.Int("v0", 1500, "baseline rating")
	accounts := fs.Int("accounts", 2, "account count for baseline and spread sweeps")
	noCache := fs.Bool("no-cache", false, "disable the persistent result store")
	model := addModelFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := model.params()
	store, err := openStore(cfg, *noCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var runner *experiments.Runner
	if store != nil {
		runner = experiments.NewRunner(params, cfg.ExperimentsDir, experiments.WithStore(store))
	} else {
		runner = experiments.NewRunner(params, cfg.ExperimentsDir)
	}

	var sweep experiments.Sweep
	var cfgRecord any
	switch *name {
	case "horizon":
		ns, err := parseIntList(*horizons)
		if err != nil {
			return err
		}
		counts, err := parseIntList(*trackCounts)
		if err != nil {
			return err
		}
		sweep, err = runner.HorizonSweep(ns, counts, *v0)
		if err != nil {
			return err
		}
		cfgRecord = map[string]any{"horizons": ns, "track_counts": counts, "v0": *v0, "params": params}
	case "baseline":
		vs, err := parseIntList(*v0s)
		if err != nil {
			return err
		}
		sweep, err = runner.BaselineSweep(vs, *n, *accounts)
		if err != nil {
			return err
		}
		cfgRecord = map[string]any{"v0s": vs, "n": *n, "accounts": *accounts, "params": params}
	case "spread":
		ds, err := parseIntList(*dvs)
		if err != nil {
			return err
		}
		sweep, err = runner.SpreadSweep(ds, *n, *v0, *accounts)
		if err != nil {
			return err
		}
		cfgRecord = map[string]any{"dvs": ds, "n": *n, "v0": *v0, "accounts": *accounts, "params": params}
	default:
		return fmt.Errorf("unknown experiment %q", *name)
	}

	dir, err := runner.Save(sweep, cfgRecord)
	if err != nil {
		return err
	}
	fmt.Printf("experiment %s saved to %s\n", sweep.Name, dir)
	return nil
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.ServerAddr, "listen address")
	noCache := fs.Bool("no-cache", false, "disable the persistent result store")
	model := addModelFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(cfg, *noCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var srv *server.Server
	if store != nil {
		srv = server.New(model.params(), server.WithStore(store))
	} else {
		srv = server.New(model.params())
	}

	log.Info().Str("addr", *addr).Msg("starting ladder server")
	return srv.Router().Run(*addr)
}

func parseIntList(raw string) ([]int, error) {
	fields := strings.Split(raw, ",")
	values := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad integer %q: %w", f, err)
		}
		values = append(values, v)
	}
	return values, nil
}
