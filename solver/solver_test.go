package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ladder/cache"
	"ladder/game"
)

func testParams() game.Parameters {
	return game.Parameters{Step: 16, K: 1.0 / 800.0, Mu: 1500}
}

func TestExpectationBaseCase(t *testing.T) {
	s := New(testParams())
	for _, state := range []game.State{
		game.MustState(1500),
		game.MustState(1600, 1500),
		game.MustState(1400, 1450, 1700),
	} {
		value, err := s.Expectation(0, state)
		require.NoError(t, err)
		require.Equal(t, float64(state.Best()), value, "with no matches left the value is the best current rating")

		action, err := s.BestAction(0, state)
		require.NoError(t, err)
		require.True(t, action.IsStop(), "no matches left means stop")
	}
}

func TestExpectationStopDominance(t *testing.T) {
	// A 100-point lead at p=0.375 is not worth risking: every play's
	// continuation value sits at or below the banked 1600.
	s := New(testParams())
	state := game.MustState(1600, 1500)

	value, err := s.Expectation(3, state)
	require.NoError(t, err)
	require.Equal(t, 1600.0, value)

	action, err := s.BestAction(3, state)
	require.NoError(t, err)
	require.True(t, action.IsStop(), "stop must win ties against equal-valued plays")
}

func TestExpectationEquilibrium(t *testing.T) {
	t.Run("single account ties exactly and stop wins", func(t *testing.T) {
		s := New(testParams())
		value, err := s.Expectation(1, game.MustState(1500))
		require.NoError(t, err)
		require.Equal(t, 1500.0, value)

		action, err := s.BestAction(1, game.MustState(1500))
		require.NoError(t, err)
		require.True(t, action.IsStop())
	})

	t.Run("second account makes playing free", func(t *testing.T) {
		// Losing on one account cannot drag down the other's banked 1500, so
		// one coin-flip match is worth (1516+1500)/2 = 1508.
		s := New(testParams())
		state := game.MustState(1500, 1500)

		value, err := s.Expectation(1, state)
		require.NoError(t, err)
		require.Equal(t, 1508.0, value)

		action, err := s.BestAction(1, state)
		require.NoError(t, err)
		require.Equal(t, game.Action(0), action, "equal-valued plays must resolve to the smallest index")
	})
}

func TestExpectationMonotonicInHorizon(t *testing.T) {
	s := New(testParams())
	for _, state := range []game.State{
		game.MustState(1500, 1500),
		game.MustState(1600, 1500),
		game.MustState(1550),
	} {
		prev, err := s.Expectation(0, state)
		require.NoError(t, err)
		for n := 1; n <= 6; n++ {
			value, err := s.Expectation(n, state)
			require.NoError(t, err)
			require.GreaterOrEqual(t, value, prev,
				"an extra match can never reduce the optimal value (state %s, n %d)", state, n)
			prev = value
		}
	}
}

func TestExpectationCanonicalizationInvariance(t *testing.T) {
	s := New(testParams())
	a, err := s.Expectation(4, game.MustState(1500, 1600))
	require.NoError(t, err)
	b, err := s.Expectation(4, game.MustState(1600, 1500))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestActionValues(t *testing.T) {
	s := New(testParams())
	state := game.MustState(1500, 1500)

	values, err := s.ActionValues(1, state)
	require.NoError(t, err)
	require.Equal(t, []float64{1508, 1508}, values)

	t.Run("max play value matches expectation when playing is optimal", func(t *testing.T) {
		value, err := s.Expectation(1, state)
		require.NoError(t, err)
		require.Equal(t, value, values[0])
	})

	t.Run("rejects horizon zero", func(t *testing.T) {
		_, err := s.ActionValues(0, state)
		require.Error(t, err)
	})
}

func TestNegativeHorizonRejected(t *testing.T) {
	s := New(testParams())
	_, err := s.Expectation(-1, game.MustState(1500))
	require.Error(t, err)
	_, err = s.BestAction(-3, game.MustState(1500))
	require.Error(t, err)
}

func TestCheckpointingRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := cache.NewFileStore(dir)
	s := New(testParams(), WithStore(store), WithCheckpointInterval(1))
	state := game.MustState(1500, 1500)

	value, err := s.Expectation(2, state)
	require.NoError(t, err)
	require.Equal(t, 1508.0, value)

	t.Run("checkpointed record matches the computed result", func(t *testing.T) {
		records, err := store.Load(2, 2)
		require.NoError(t, err)
		rec, ok := records[state.Key()]
		require.True(t, ok, "root state should be checkpointed at interval 1")
		require.Equal(t, 1508.0, rec.Value)
		require.Equal(t, game.Action(0), rec.Action)
	})

	t.Run("fresh solver reuses the persisted results", func(t *testing.T) {
		again := New(testParams(), WithStore(cache.NewFileStore(dir)))
		value, err := again.Expectation(2, state)
		require.NoError(t, err)
		require.Equal(t, 1508.0, value)

		action, err := again.BestAction(2, state)
		require.NoError(t, err)
		require.Equal(t, game.Action(0), action)
	})
}

func TestCheckpointIntervalSkipsIntermediateHorizons(t *testing.T) {
	dir := t.TempDir()
	store := cache.NewFileStore(dir)
	s := New(testParams(), WithStore(store), WithCheckpointInterval(2))

	_, err := s.Expectation(3, game.MustState(1500, 1500))
	require.NoError(t, err)

	even, err := store.Load(2, 2)
	require.NoError(t, err)
	require.NotEmpty(t, even, "multiples of the interval must be persisted")

	odd, err := store.Load(3, 2)
	require.NoError(t, err)
	require.Empty(t, odd, "horizons off the interval must not be persisted")

	odd, err = store.Load(1, 2)
	require.NoError(t, err)
	require.Empty(t, odd)
}
