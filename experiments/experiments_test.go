package experiments

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ladder/game"
)

func testParams() game.Parameters {
	return game.Parameters{Step: 16, K: 1.0 / 800.0, Mu: 1500}
}

func TestEqualIntervalRatings(t *testing.T) {
	require.Equal(t, []int{1500, 1532, 1564}, EqualIntervalRatings(1500, 32, 3))
	require.Equal(t, []int{1500, 1500}, EqualIntervalRatings(1500, 0, 2))
	require.Equal(t, []int{1600}, EqualIntervalRatings(1600, 16, 1))
}

func TestHorizonSweep(t *testing.T) {
	runner := NewRunner(testParams(), t.TempDir())

	sweep, err := runner.HorizonSweep([]int{0, 2, 4}, []int{1, 2}, 1500)
	require.NoError(t, err)
	require.Equal(t, "horizon", sweep.Name)
	require.Equal(t, []string{"accounts=1", "accounts=2"}, sweep.Series)
	require.Len(t, sweep.Rows, 3)

	t.Run("expectation grows with the horizon", func(t *testing.T) {
		for col := range sweep.Series {
			for i := 1; i < len(sweep.Rows); i++ {
				require.GreaterOrEqual(t, sweep.Rows[i].Y[col], sweep.Rows[i-1].Y[col])
			}
		}
	})

	t.Run("a second account never hurts", func(t *testing.T) {
		for _, row := range sweep.Rows {
			require.GreaterOrEqual(t, row.Y[1], row.Y[0])
		}
	})
}

func TestBaselineSweep(t *testing.T) {
	runner := NewRunner(testParams(), t.TempDir())

	sweep, err := runner.BaselineSweep([]int{1468, 1500, 1532}, 3, 2)
	require.NoError(t, err)
	require.Len(t, sweep.Rows, 3)
	for i := 1; i < len(sweep.Rows); i++ {
		require.Greater(t, sweep.Rows[i].Y[0], sweep.Rows[i-1].Y[0],
			"a higher starting rating must be worth more")
	}
}

func TestSaveWritesRecordsAndConfig(t *testing.T) {
	root := t.TempDir()
	runner := NewRunner(testParams(), root)

	sweep, err := runner.SpreadSweep([]int{0, 16}, 2, 1500, 2)
	require.NoError(t, err)

	dir, err := runner.Save(sweep, map[string]any{"n": 2, "v0": 1500})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "records.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per sweep point")
	require.Equal(t, "dv", rows[0][0])

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	var config map[string]any
	require.NoError(t, json.Unmarshal(data, &config))
	require.Equal(t, float64(1500), config["v0"])
}
