package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"sightline/internal/config"
)

const (
	readyPoll    = 100 * time.Millisecond
	networkQuiet = 300 * time.Millisecond
	consoleCap   = 50
)

// waitReady blocks until the DOM is at least interactive, bounded by ctx.
func waitReady(ctx context.Context) error {
	for {
		var state string
		if err := chromedp.Evaluate("document.readyState", &state).Do(ctx); err != nil {
			return err
		}
		if state == "interactive" || state == "complete" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPoll):
		}
	}
}

// settle gives the page time to finish rendering after navigation: first a
// bounded wait for readyState complete, then a bounded wait for the network
// to go quiet, and a final grace sleep for pages that never complete. All
// stages are best effort.
func settle(ctx context.Context, obs *observer, wm config.WaitMode) {
	complete := false
	deadline := time.Now().Add(wm.Load)
	for time.Now().Before(deadline) {
		var state string
		if err := chromedp.Run(ctx, chromedp.Evaluate("document.readyState", &state)); err != nil {
			break
		}
		if state == "complete" {
			complete = true
			break
		}
		if !sleepCtx(ctx, readyPoll) {
			return
		}
	}

	deadline = time.Now().Add(wm.Idle)
	var quietSince time.Time
	for time.Now().Before(deadline) {
		if obs.inflightCount() == 0 {
			if quietSince.IsZero() {
				quietSince = time.Now()
			}
			if time.Since(quietSince) >= networkQuiet {
				break
			}
		} else {
			quietSince = time.Time{}
		}
		if !sleepCtx(ctx, 50*time.Millisecond) {
			return
		}
	}

	if !complete {
		sleepCtx(ctx, 500*time.Millisecond)
	}
}

// sleepCtx sleeps unless ctx ends first, reporting whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// observer accumulates CDP events for one capture. Event callbacks arrive
// on a chromedp-owned goroutine, so every field is mutex-guarded.
type observer struct {
	mu       sync.Mutex
	status   int
	headers  map[string]string
	security *network.SecurityDetails
	chain    []string
	console  []string
	inflight map[network.RequestID]struct{}
	gotDoc   bool
}

func newObserver() *observer {
	return &observer{
		headers:  make(map[string]string),
		inflight: make(map[network.RequestID]struct{}),
	}
}

func (o *observer) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		o.mu.Lock()
		o.inflight[e.RequestID] = struct{}{}
		if e.Type == network.ResourceTypeDocument {
			o.chain = append(o.chain, e.Request.URL)
		}
		o.mu.Unlock()

	case *network.EventResponseReceived:
		o.mu.Lock()
		if e.Type == network.ResourceTypeDocument && !o.gotDoc {
			o.gotDoc = true
			o.status = int(e.Response.Status)
			for k, v := range e.Response.Headers {
				o.headers[strings.ToLower(k)] = fmt.Sprint(v)
			}
			o.security = e.Response.SecurityDetails
		}
		o.mu.Unlock()

	case *network.EventLoadingFinished:
		o.mu.Lock()
		delete(o.inflight, e.RequestID)
		o.mu.Unlock()

	case *network.EventLoadingFailed:
		o.mu.Lock()
		delete(o.inflight, e.RequestID)
		o.mu.Unlock()

	case *runtime.EventConsoleAPICalled:
		o.mu.Lock()
		if len(o.console) < consoleCap {
			o.console = append(o.console, consoleLine(e))
		}
		o.mu.Unlock()
	}
}

func (o *observer) inflightCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inflight)
}

// snapshot returns a copy of everything observed so far.
func (o *observer) snapshot() (status int, headers map[string]string, security *network.SecurityDetails, chain, console []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	headers = make(map[string]string, len(o.headers))
	for k, v := range o.headers {
		headers[k] = v
	}
	chain = append([]string(nil), o.chain...)
	console = append([]string(nil), o.console...)
	return o.status, headers, o.security, chain, console
}

func consoleLine(e *runtime.EventConsoleAPICalled) string {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if arg == nil {
			continue
		}
		if len(arg.Value) > 0 {
			parts = append(parts, string(arg.Value))
		} else if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	return fmt.Sprintf("%s: %s", e.Type, strings.Join(parts, " "))
}
