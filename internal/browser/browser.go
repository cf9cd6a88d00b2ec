// Package browser owns the headless Chrome allocator shared by all capture
// workers. Each capture gets its own browser context off the allocator so
// one hung page never poisons another.
package browser

import (
	"context"

	"github.com/chromedp/chromedp"

	"sightline/internal/config"
)

// Session is a running Chrome allocator.
type Session struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewSession configures and starts the exec allocator. The browser binary
// itself launches lazily on the first NewContext run.
func NewSession(ctx context.Context, cfg *config.BrowserConfig) *Session {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &Session{allocCtx: allocCtx, cancel: cancel}
}

// NewContext returns an isolated browser context for one capture. The
// caller must invoke the returned cancel when the capture finishes.
func (s *Session) NewContext() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(s.allocCtx)
}

// Close tears down the allocator and any browsers it spawned.
func (s *Session) Close() {
	s.cancel()
}
