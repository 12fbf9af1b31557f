package cache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"ladder/game"
)

// FileStore keeps one flat text file per (horizon, account count) pair under
// a base directory. File layout:
//
//	n=<horizon>
//	r=<accounts>
//
//	account1, account2, ..., accountR, expectation, best_action
//	<int>, <int>, ..., <int>, <real>, <int-or-empty>
//
// Data lines are appended and never rewritten; best_action is empty when
// stopping is optimal.
type FileStore struct {
	dir     string
	written map[fileKey]map[string]struct{}
}

type fileKey struct {
	n      int
	tracks int
}

const headerLines = 4

var fileNameRe = regexp.MustCompile(`^n(\d+)_acc(\d+)\.txt$`)

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:     dir,
		written: make(map[fileKey]map[string]struct{}),
	}
}

func (fs *FileStore) path(n, tracks int) string {
	return filepath.Join(fs.dir, fmt.Sprintf("n%d_acc%d.txt", n, tracks))
}

// Load reads the file for (n, tracks). A missing file is an empty cache, not
// an error. Individually malformed lines are logged and skipped so that
// files written by older format revisions, or truncated by a crash, do not
// poison the whole load.
func (fs *FileStore) Load(n, tracks int) (map[string]Record, error) {
	f, err := os.Open(fs.path(n, tracks))
	if os.IsNotExist(err) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open result file: %w", err)
	}
	defer f.Close()

	records := map[string]Record{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if line <= headerLines {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		rec, err := parseLine(text, tracks)
		if err != nil {
			log.Warn().Err(err).
				Str("file", fs.path(n, tracks)).
				Int("line", line).
				Msg("skipping malformed cache line")
			continue
		}
		records[rec.State.Key()] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	return records, nil
}

func parseLine(text string, tracks int) (Record, error) {
	fields := strings.Split(text, ",")
	if len(fields) != tracks+2 {
		return Record{}, fmt.Errorf("want %d fields, got %d", tracks+2, len(fields))
	}
	ratings := make([]int, tracks)
	for i := 0; i < tracks; i++ {
		r, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return Record{}, fmt.Errorf("bad rating: %w", err)
		}
		ratings[i] = r
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(fields[tracks]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad expectation: %w", err)
	}
	action := game.Stop
	if raw := strings.TrimSpace(fields[tracks+1]); raw != "" && !strings.EqualFold(raw, "none") {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return Record{}, fmt.Errorf("bad best action: %w", err)
		}
		action = game.Action(idx)
	}
	state, err := game.NewState(ratings)
	if err != nil {
		return Record{}, err
	}
	return Record{State: state, Value: value, Action: action}, nil
}

// LoadAll scans the base directory for every horizon persisted for one
// account count.
func (fs *FileStore) LoadAll(tracks int) (map[int]map[string]Record, error) {
	entries, err := os.ReadDir(fs.dir)
	if os.IsNotExist(err) {
		return map[int]map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan cache dir: %w", err)
	}

	all := map[int]map[string]Record{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNameRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		acc, _ := strconv.Atoi(m[2])
		if acc != tracks {
			continue
		}
		records, err := fs.Load(n, tracks)
		if err != nil {
			return nil, err
		}
		all[n] = records
	}
	return all, nil
}

// Append writes one record unless the state is already present for
// (n, tracks). The first Append for a pair reads the existing file once to
// learn what is already on disk; the first write creates the file with its
// header.
func (fs *FileStore) Append(n int, state game.State, value float64, action game.Action) error {
	key := fileKey{n: n, tracks: state.Len()}
	if fs.written[key] == nil {
		existing, err := fs.Load(n, state.Len())
		if err != nil {
			return err
		}
		set := make(map[string]struct{}, len(existing))
		for k := range existing {
			set[k] = struct{}{}
		}
		fs.written[key] = set
	}
	if _, ok := fs.written[key][state.Key()]; ok {
		return nil
	}

	if err := os.MkdirAll(fs.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	path := fs.path(n, state.Len())
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open result file: %w", err)
	}
	defer f.Close()

	if isNew {
		if err := writeHeader(f, n, state.Len()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(f, formatLine(state, value, action)); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	fs.written[key][state.Key()] = struct{}{}
	return nil
}

func writeHeader(f *os.File, n, tracks int) error {
	cols := make([]string, 0, tracks+2)
	for i := 0; i < tracks; i++ {
		cols = append(cols, fmt.Sprintf("account%d", i+1))
	}
	cols = append(cols, "expectation", "best_action")
	_, err := fmt.Fprintf(f, "n=%d\nr=%d\n\n%s\n", n, tracks, strings.Join(cols, ", "))
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func formatLine(state game.State, value float64, action game.Action) string {
	fields := make([]string, 0, state.Len()+2)
	for _, r := range state.Ratings() {
		fields = append(fields, strconv.Itoa(r))
	}
	fields = append(fields, strconv.FormatFloat(value, 'g', -1, 64))
	if action.IsStop() {
		fields = append(fields, "")
	} else {
		fields = append(fields, strconv.Itoa(action.Index()))
	}
	return strings.Join(fields, ", ")
}

func (fs *FileStore) Close() error {
	return nil
}
