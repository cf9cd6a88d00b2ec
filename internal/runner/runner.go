// Package runner schedules capture work across a bounded pool of workers,
// carries completed results forward on resume, and buckets the outcome of
// every target.
package runner

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"sightline/pkg/models"
)

// Capturer captures one target. Implementations must be safe for
// concurrent use.
type Capturer interface {
	Capture(ctx context.Context, t models.Target) models.CaptureResult
}

// Pool fans targets out to capture workers.
type Pool struct {
	Capturer Capturer
	Threads  int

	// Limiter, when set, throttles capture starts across all workers.
	Limiter *rate.Limiter

	// Progress, when set, is called once per finished target.
	Progress func(models.CaptureResult)
}

// Run captures every target not already completed in previous and returns
// all results ordered by target index. Previous results are carried over
// verbatim apart from the index, which follows the current input order.
func (p *Pool) Run(ctx context.Context, targets []models.Target, previous []models.CaptureResult) (models.Counts, []models.CaptureResult) {
	done := make(map[string]models.CaptureResult, len(previous))
	for _, r := range previous {
		done[r.URL] = r
	}

	out := make([]models.CaptureResult, len(targets))
	jobs := make(chan models.Target, len(targets))

	var mu sync.Mutex
	var wg sync.WaitGroup

	finish := func(t models.Target, r models.CaptureResult) {
		mu.Lock()
		out[t.Index] = r
		mu.Unlock()
		if p.Progress != nil {
			p.Progress(r)
		}
	}

	for i := 0; i < p.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if p.Limiter != nil {
					if err := p.Limiter.Wait(ctx); err != nil {
						finish(t, canceledResult(t, err))
						continue
					}
				}
				finish(t, p.Capturer.Capture(ctx, t))
			}
		}()
	}

	for _, t := range targets {
		if prior, ok := done[t.URL]; ok {
			prior.Index = t.Index
			finish(t, prior)
			continue
		}
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	var counts models.Counts
	counts.Total = len(out)
	for i := range out {
		bucket(&out[i], &counts)
	}
	return counts, out
}

func canceledResult(t models.Target, err error) models.CaptureResult {
	return models.CaptureResult{
		Index:       t.Index,
		URL:         t.URL,
		FinalURL:    t.URL,
		Err:         err.Error(),
		DiffPercent: models.DiffUnavailable,
	}
}

// bucket stamps the note for one result and tallies it. Success is strictly
// 2xx/3xx; anything outside the taxonomy (status 0 from a page with no
// document response, 1xx) falls to the failure bucket.
func bucket(r *models.CaptureResult, counts *models.Counts) {
	switch {
	case r.Failed():
		r.Notes = "Failed to load"
		counts.Fail++
	case r.StatusCode >= 200 && r.StatusCode < 400:
		r.Notes = "Success"
		counts.Success++
	case r.StatusCode >= 400 && r.StatusCode < 500:
		r.Notes = "Client Error"
		counts.Warn++
	default:
		r.Notes = "Server Error"
		counts.Fail++
	}
}
