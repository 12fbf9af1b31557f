package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ladder/game"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ladder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	state := game.MustState(1600, 1500)

	require.NoError(t, store.Append(50, state, 1612.5, game.Action(1)))
	require.NoError(t, store.Append(50, game.MustState(1500, 1500), 1500, game.Stop))

	records, err := store.Load(50, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[state.Key()]
	require.Equal(t, state, rec.State)
	require.Equal(t, 1612.5, rec.Value)
	require.Equal(t, game.Action(1), rec.Action)

	stop := records[game.MustState(1500, 1500).Key()]
	require.True(t, stop.Action.IsStop(), "NULL action must load as stop")
}

func TestSQLiteStoreDuplicateAppend(t *testing.T) {
	store := newTestSQLiteStore(t)
	state := game.MustState(1500, 1500)

	require.NoError(t, store.Append(50, state, 1500, game.Stop))
	require.NoError(t, store.Append(50, state, 1234, game.Action(0)), "duplicate append must be ignored, not fail")

	records, err := store.Load(50, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 1500.0, records[state.Key()].Value, "the first write wins")
}

func TestSQLiteStoreLoadAll(t *testing.T) {
	store := newTestSQLiteStore(t)
	require.NoError(t, store.Append(50, game.MustState(1500, 1500), 1510, game.Action(0)))
	require.NoError(t, store.Append(100, game.MustState(1516, 1500), 1540, game.Stop))
	require.NoError(t, store.Append(50, game.MustState(1500, 1500, 1500), 1520, game.Action(2)))

	all, err := store.LoadAll(2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Contains(t, all, 50)
	require.Contains(t, all, 100)
	require.Len(t, all[50], 1, "the three-account record must not leak into two-account loads")
}
