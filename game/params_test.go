package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWinProb(t *testing.T) {
	params := DefaultParameters()

	t.Run("equilibrium is a coin flip", func(t *testing.T) {
		require.InDelta(t, 0.5, params.WinProb(1500), 1e-12)
	})

	t.Run("linear decay around mu", func(t *testing.T) {
		require.InDelta(t, 0.375, params.WinProb(1600), 1e-12)
		require.InDelta(t, 0.625, params.WinProb(1400), 1e-12)
	})

	t.Run("clamped to [0, 1]", func(t *testing.T) {
		require.Equal(t, 0.0, params.WinProb(2000), "far above mu should clamp to 0")
		require.Equal(t, 1.0, params.WinProb(1000), "far below mu should clamp to 1")
	})

	t.Run("non-increasing in rating", func(t *testing.T) {
		prev := params.WinProb(900)
		for r := 901; r <= 2100; r++ {
			p := params.WinProb(r)
			require.LessOrEqual(t, p, prev, "win probability rose from rating %d to %d", r-1, r)
			prev = p
		}
	})
}

func TestRatingGridConversion(t *testing.T) {
	t.Run("round trip stays within half a step", func(t *testing.T) {
		for _, r := range []float64{1500, 1507.9, 1492.1, 1600, 1384.5, 1516} {
			back := GridToRating(RatingToGrid(r, 1500, 16), 1500, 16)
			require.InDelta(t, r, back, 8.0, "rating %v snapped too far", r)
		}
	})

	t.Run("idempotent on the grid", func(t *testing.T) {
		for i := -10; i <= 10; i++ {
			r := GridToRating(i, 1500, 16)
			require.Equal(t, i, RatingToGrid(r, 1500, 16))
		}
	})

	t.Run("snap lands on reachable ratings", func(t *testing.T) {
		params := DefaultParameters()
		require.Equal(t, 1500, params.SnapRating(1503))
		require.Equal(t, 1516, params.SnapRating(1510))
		require.Equal(t, 1596, params.SnapRating(1600))
	})
}
