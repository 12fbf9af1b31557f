package experiments

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Writer stores one sweep's records under a timestamped directory so that
// repeated runs of the same experiment never clobber each other.
type Writer struct {
	baseDir string
}

func NewWriter(root, name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join(root, name, timestamp)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create experiment directory: %w", err)
	}
	return &Writer{baseDir: baseDir}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

// WriteSweep stores the sweep rows as records.csv: one column for the swept
// variable, one per series.
func (w *Writer) WriteSweep(sweep Sweep) error {
	path := filepath.Join(w.baseDir, "records.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := append([]string{sweep.XLabel}, sweep.Series...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write records header: %w", err)
	}

	for _, row := range sweep.Rows {
		record := make([]string, 0, len(row.Y)+1)
		record = append(record, strconv.FormatFloat(row.X, 'g', -1, 64))
		for _, y := range row.Y {
			record = append(record, strconv.FormatFloat(y, 'g', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write records row: %w", err)
		}
	}
	return nil
}

// WriteConfig stores the experiment's configuration next to its records so a
// result directory is self-describing.
func (w *Writer) WriteConfig(config any) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode experiment config: %w", err)
	}
	path := filepath.Join(w.baseDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write experiment config: %w", err)
	}
	return nil
}
