package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"ladder/game"
	"ladder/solver"
)

func testParams() game.Parameters {
	return game.Parameters{Step: 16, K: 1.0 / 800.0, Mu: 1500}
}

func TestAllPoliciesStopWithNoBudget(t *testing.T) {
	s := solver.New(testParams())
	rng := rand.New(rand.NewSource(1))
	state := game.MustState(1500, 1500)

	for _, name := range Names() {
		p, err := Build(Spec{Name: name}, s, testParams(), rng)
		require.NoError(t, err)

		action, err := p.SelectTrack(state, 0)
		require.NoError(t, err)
		require.True(t, action.IsStop(), "%s must stop with no matches left", name)
	}
}

func TestOptimal(t *testing.T) {
	s := solver.New(testParams())
	p := NewOptimal(s)

	t.Run("stops when the lead is not worth risking", func(t *testing.T) {
		action, err := p.SelectTrack(game.MustState(1600, 1500), 3)
		require.NoError(t, err)
		require.True(t, action.IsStop())
	})

	t.Run("plays when a second account makes it free", func(t *testing.T) {
		action, err := p.SelectTrack(game.MustState(1500, 1500), 1)
		require.NoError(t, err)
		require.Equal(t, game.Action(0), action)
	})
}

func TestRandom(t *testing.T) {
	state := game.MustState(1500, 1500, 1500)

	t.Run("always stops at stop probability one", func(t *testing.T) {
		p := NewRandom(1, rand.New(rand.NewSource(7)))
		action, err := p.SelectTrack(state, 10)
		require.NoError(t, err)
		require.True(t, action.IsStop())
	})

	t.Run("selects an in-range account otherwise", func(t *testing.T) {
		p := NewRandom(0, rand.New(rand.NewSource(7)))
		for i := 0; i < 50; i++ {
			action, err := p.SelectTrack(state, 10)
			require.NoError(t, err)
			require.False(t, action.IsStop())
			require.Less(t, action.Index(), state.Len())
		}
	})
}

func TestFixed(t *testing.T) {
	state := game.MustState(1500, 1500)

	action, err := NewFixed(1).SelectTrack(state, 5)
	require.NoError(t, err)
	require.Equal(t, game.Action(1), action)

	_, err = NewFixed(2).SelectTrack(state, 5)
	require.Error(t, err, "index past the account count must be rejected")
}

func TestGreedy(t *testing.T) {
	action, err := NewGreedy().SelectTrack(game.MustState(1600, 1500, 1400), 5)
	require.NoError(t, err)
	require.Equal(t, game.Action(2), action, "greedy must play the lowest-rated account")
}

func TestThreshold(t *testing.T) {
	p := NewThreshold(1500)

	t.Run("plays the lowest account still at the floor", func(t *testing.T) {
		action, err := p.SelectTrack(game.MustState(1600, 1516, 1484), 5)
		require.NoError(t, err)
		require.Equal(t, game.Action(1), action)
	})

	t.Run("stops when every account is below the floor", func(t *testing.T) {
		action, err := p.SelectTrack(game.MustState(1484, 1468), 5)
		require.NoError(t, err)
		require.True(t, action.IsStop())
	})
}

func TestClosestToMean(t *testing.T) {
	// Mean of (1600, 1500, 1400) is 1500.
	action, err := NewClosestToMean().SelectTrack(game.MustState(1600, 1500, 1400), 5)
	require.NoError(t, err)
	require.Equal(t, game.Action(1), action)
}

func TestBuildUnknownPolicy(t *testing.T) {
	_, err := Build(Spec{Name: "eval"}, nil, testParams(), nil)
	require.Error(t, err)
}
