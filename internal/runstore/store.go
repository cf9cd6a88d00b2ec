// Package runstore persists a run's ordered result set as results.json in
// the output directory. The file is both the resume source for interrupted
// runs and the "previous" side of a diff, so every field the diff engine
// reads must survive a save/load cycle.
package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sightline/pkg/models"
)

const fileName = "results.json"

// Path returns the results file location for an output directory.
func Path(dir string) string {
	return filepath.Join(dir, fileName)
}

// Save writes the full ordered result set for a run.
func Save(dir string, results []models.CaptureResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(Path(dir), data, 0644)
}

// Load reads a previously saved result set. A missing file is an error;
// callers that treat absence as "no prior run" should use Exists first or
// LoadCompleted.
func Load(dir string) ([]models.CaptureResult, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, err
	}
	var results []models.CaptureResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", Path(dir), err)
	}
	return results, nil
}

// Exists reports whether a run record is present in the directory.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// LoadCompleted returns the prior run's non-errored results for resume.
// Error-marked entries are dropped so they get re-attempted. A missing file
// yields an empty set and no error; a malformed file is reported so the
// caller can skip resume without aborting the run.
func LoadCompleted(dir string) ([]models.CaptureResult, error) {
	if !Exists(dir) {
		return nil, nil
	}
	all, err := Load(dir)
	if err != nil {
		return nil, err
	}
	var completed []models.CaptureResult
	for _, r := range all {
		if !r.Failed() {
			completed = append(completed, r)
		}
	}
	return completed, nil
}
