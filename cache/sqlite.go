package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"ladder/game"
)

// SQLiteStore keeps every (horizon, account count) partition in a single
// indexed database instead of one flat file per pair, which avoids the
// file-count explosion of fine-grained checkpoint intervals. Uniqueness of a
// (horizon, tracks, state) record is enforced by the primary key, so a
// duplicate Append is a no-op at the database level.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
	horizon INTEGER NOT NULL,
	tracks  INTEGER NOT NULL,
	ratings TEXT    NOT NULL,
	value   REAL    NOT NULL,
	action  INTEGER,
	PRIMARY KEY (horizon, tracks, ratings)
);`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(n, tracks int) (map[string]Record, error) {
	rows, err := s.db.Query(
		`SELECT ratings, value, action FROM results WHERE horizon = ? AND tracks = ?`,
		n, tracks)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	records := map[string]Record{}
	for rows.Next() {
		var key string
		var value float64
		var action sql.NullInt64
		if err := rows.Scan(&key, &value, &action); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		state, err := game.ParseKey(key)
		if err != nil {
			// Drifted or hand-edited row; skip it like a malformed file line.
			continue
		}
		rec := Record{State: state, Value: value, Action: game.Stop}
		if action.Valid {
			rec.Action = game.Action(action.Int64)
		}
		records[state.Key()] = rec
	}
	return records, rows.Err()
}

func (s *SQLiteStore) LoadAll(tracks int) (map[int]map[string]Record, error) {
	rows, err := s.db.Query(`SELECT DISTINCT horizon FROM results WHERE tracks = ?`, tracks)
	if err != nil {
		return nil, fmt.Errorf("query horizons: %w", err)
	}
	defer rows.Close()

	horizons := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan horizon: %w", err)
		}
		horizons = append(horizons, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all := map[int]map[string]Record{}
	for _, n := range horizons {
		records, err := s.Load(n, tracks)
		if err != nil {
			return nil, err
		}
		all[n] = records
	}
	return all, nil
}

func (s *SQLiteStore) Append(n int, state game.State, value float64, action game.Action) error {
	var act any
	if !action.IsStop() {
		act = action.Index()
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO results (horizon, tracks, ratings, value, action) VALUES (?, ?, ?, ?, ?)`,
		n, state.Len(), state.Key(), value, act)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
