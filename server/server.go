// Package server exposes the solver and simulator over a small JSON API. It
// performs input validation and formatting only; every decision is made by
// the solver. Results are deterministic, so failed requests are not worth
// retrying and are reported once with a structured error body.
package server

import (
	"math"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/rand"
	"lukechampine.com/frand"

	"ladder/cache"
	"ladder/game"
	"ladder/policy"
	"ladder/simulator"
	"ladder/solver"
)

type Server struct {
	defaults game.Parameters
	store    cache.Store

	// One solver per parameter set so repeated requests share a memo. The
	// store and the memos are not safe for concurrent writers, so requests
	// that solve are serialized.
	mu      sync.Mutex
	solvers map[game.Parameters]*solver.Solver
}

type Option func(*Server)

// WithStore attaches a persistent result store shared by all solvers.
func WithStore(store cache.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

func New(defaults game.Parameters, options ...Option) *Server {
	s := &Server{
		defaults: defaults,
		solvers:  make(map[game.Parameters]*solver.Solver),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.POST("/solve", s.handleSolve)
	api.POST("/simulate", s.handleSimulate)
	return router
}

type paramsPayload struct {
	Step *int     `json:"step"`
	K    *float64 `json:"k"`
	Mu   *float64 `json:"mu"`
}

type solveRequest struct {
	Horizon int            `json:"horizon"`
	Ratings []int          `json:"ratings"`
	Tracks  int            `json:"tracks"`
	Params  *paramsPayload `json:"params"`
}

type solveResponse struct {
	Expectation  float64   `json:"expectation"`
	BestAction   *int      `json:"best_action"`
	ActionValues []float64 `json:"action_values,omitempty"`
}

type simulateRequest struct {
	solveRequest
	Episodes int         `json:"episodes"`
	Policy   policy.Spec `json:"policy"`
	Seed     uint64      `json:"seed"`
}

func (s *Server) params(override *paramsPayload) game.Parameters {
	p := s.defaults
	if override == nil {
		return p
	}
	if override.Step != nil {
		p.Step = *override.Step
	}
	if override.K != nil {
		p.K = *override.K
	}
	if override.Mu != nil {
		p.Mu = *override.Mu
	}
	return p
}

// state resolves the initial rating profile: an explicit list, or tracks
// copies of Mu. An explicit list and a declared track count must agree.
func (s *Server) state(req solveRequest, params game.Parameters) (game.State, bool, string) {
	if req.Horizon < 0 {
		return game.State{}, false, "horizon must be non-negative"
	}
	if len(req.Ratings) > 0 {
		if req.Tracks > 0 && req.Tracks != len(req.Ratings) {
			return game.State{}, false, "declared track count does not match the number of ratings"
		}
		state, err := game.NewState(req.Ratings)
		if err != nil {
			return game.State{}, false, err.Error()
		}
		return state, true, ""
	}
	if req.Tracks < 1 {
		return game.State{}, false, "need ratings or a positive track count"
	}
	ratings := make([]int, req.Tracks)
	for i := range ratings {
		ratings[i] = int(math.Round(params.Mu))
	}
	state, err := game.NewState(ratings)
	if err != nil {
		return game.State{}, false, err.Error()
	}
	return state, true, ""
}

func (s *Server) solverFor(params game.Parameters) *solver.Solver {
	if sv, ok := s.solvers[params]; ok {
		return sv
	}
	var sv *solver.Solver
	if s.store != nil {
		sv = solver.New(params, solver.WithStore(s.store))
	} else {
		sv = solver.New(params)
	}
	s.solvers[params] = sv
	return sv
}

func (s *Server) handleSolve(c *gin.Context) {
	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	params := s.params(req.Params)
	state, ok, msg := s.state(req, params)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sv := s.solverFor(params)

	value, err := sv.Expectation(req.Horizon, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	action, err := sv.BestAction(req.Horizon, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := solveResponse{Expectation: value}
	if !action.IsStop() {
		idx := action.Index()
		resp.BestAction = &idx
	}
	if req.Horizon > 0 {
		values, err := sv.ActionValues(req.Horizon, state)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp.ActionValues = values
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	params := s.params(req.Params)
	state, ok, msg := s.state(req.solveRequest, params)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if req.Episodes < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episodes must be at least 1"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sv := s.solverFor(params)

	seed := req.Seed
	if seed == 0 {
		seed = frand.Uint64n(math.MaxUint64)
	}
	rng := rand.New(rand.NewSource(seed))
	pol, err := policy.Build(req.Policy, sv, params, rng)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sim := simulator.New(pol, params, simulator.WithSeed(seed))
	result, err := sim.Run(state, req.Horizon, req.Episodes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
