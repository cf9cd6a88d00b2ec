// Package diff compares two capture runs: pixel-region visual diffing with a
// noise-resistant block algorithm, structured-field diffing, and a reduction
// of both into a single severity per target.
package diff

import (
	"fmt"
	"os"
	"path/filepath"

	"sightline/pkg/models"
)

// Options configures a diff pass between two run directories.
type Options struct {
	PrevDir   string // directory of the previous run (screenshot paths are relative to it)
	OutDir    string // directory of the current run; artifacts go to OutDir/diffs
	Threshold int    // per-block average luma threshold, 0-255

	// Progress, when set, is called once per current result.
	Progress func()
}

// Run matches current results to previous ones by URL and enriches the
// current set in place with diff fields. Targets absent from the previous
// run are marked new and skip comparison. The capture phase has completed
// before this runs, so the slice is touched single-threaded.
func Run(previous, current []models.CaptureResult, opts Options) (models.SeverityCounts, error) {
	diffsDir := filepath.Join(opts.OutDir, "diffs")
	if err := os.MkdirAll(diffsDir, 0755); err != nil {
		return models.SeverityCounts{}, fmt.Errorf("creating diffs directory: %w", err)
	}

	prevByURL := make(map[string]*models.CaptureResult, len(previous))
	for i := range previous {
		prevByURL[previous[i].URL] = &previous[i]
	}

	var counts models.SeverityCounts
	for i := range current {
		r := &current[i]
		prev, ok := prevByURL[r.URL]
		if !ok {
			r.DiffPercent = models.DiffUnavailable
			r.DiffSeverity = models.SeverityNew
			r.ContentChanges = nil
			counts.New++
			tick(opts.Progress)
			continue
		}

		oldShot := filepath.Join(opts.PrevDir, prev.Screenshot)
		newShot := filepath.Join(opts.OutDir, r.Screenshot)
		if prev.Screenshot != "" && r.Screenshot != "" && fileExists(oldShot) && fileExists(newShot) {
			r.DiffPercent, r.DiffHeatmap, r.DiffCompare = Visual(oldShot, newShot, diffsDir, r.Index, opts.Threshold)
		} else {
			r.DiffPercent = models.DiffUnavailable
		}

		r.ContentChanges = Content(prev, r)
		r.DiffSeverity = Classify(r.DiffPercent, r.ContentChanges)

		switch r.DiffSeverity {
		case models.SeverityCritical:
			counts.Critical++
		case models.SeverityHigh:
			counts.High++
		case models.SeverityMedium:
			counts.Medium++
		case models.SeverityLow:
			counts.Low++
		default:
			counts.Unchanged++
		}
		tick(opts.Progress)
	}
	return counts, nil
}

func tick(progress func()) {
	if progress != nil {
		progress()
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
