package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report is one exported result table with its run metadata.
type Report struct {
	Name        string    `json:"name"`
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Rows        any       `json:"rows"`
}

// New stamps a result table with run metadata.
func New(name, runID string, rows any) Report {
	return Report{
		Name:        name,
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Rows:        rows,
	}
}

// ExportJSON writes the report as indented JSON under dir with a timestamped
// filename, creating the directory if needed. Returns the written path.
func ExportJSON(dir string, rep Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := TimestampedFilename(dir, rep.Name, rep.GeneratedAt)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", rep.Name, err)
	}

	return path, nil
}

// TimestampedFilename builds dir/name_20060102_150405.json.
func TimestampedFilename(dir, name string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", name, at.Format("20060102_150405")))
}
