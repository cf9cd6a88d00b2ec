// Package capture drives one headless-browser visit per target: navigate,
// settle, screenshot, and extract the structural facts (status, headers,
// title, technologies, certificate) that later runs diff against.
package capture

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"sightline/internal/analyze"
	"sightline/internal/browser"
	"sightline/internal/config"
	"sightline/pkg/models"
)

const (
	cookieCap      = 30
	filenameMaxLen = 60
)

// reportedHeaders is the subset of response headers worth keeping in the
// result record. The full header map is still used for fingerprinting and
// grading before being discarded.
var reportedHeaders = append([]string{
	"server",
	"x-powered-by",
	"content-type",
	"via",
	"x-generator",
}, analyze.SecurityHeaders...)

// Worker captures targets one at a time. Multiple workers share one browser
// session; each capture runs in its own browser context.
type Worker struct {
	session *browser.Session
	cfg     *config.AppConfig
	shotDir string
	logger  *log.Logger
}

// NewWorker creates a capture worker writing screenshots under
// outDir/screenshots.
func NewWorker(session *browser.Session, cfg *config.AppConfig, outDir string, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Worker{
		session: session,
		cfg:     cfg,
		shotDir: filepath.Join(outDir, "screenshots"),
		logger:  logger,
	}
}

// Capture visits the target, retrying failed attempts with a short delay.
// It never returns an error: a target that exhausts its retries yields a
// result with Err set so the run can continue past it.
func (w *Worker) Capture(ctx context.Context, t models.Target) models.CaptureResult {
	var lastErr error
	for attempt := 0; attempt <= w.cfg.Scan.Retries; attempt++ {
		if attempt > 0 {
			w.logger.Printf("retry %d/%d for %s: %v", attempt, w.cfg.Scan.Retries, t.URL, lastErr)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = w.cfg.Scan.Retries // no more attempts after cancellation
				continue
			case <-time.After(w.cfg.Scan.RetryDelay):
			}
		}
		res, err := w.attempt(ctx, t)
		if err == nil {
			return res
		}
		lastErr = err
	}

	w.logger.Printf("giving up on %s: %v", t.URL, lastErr)
	return models.CaptureResult{
		Index:       t.Index,
		URL:         t.URL,
		FinalURL:    t.URL,
		Err:         lastErr.Error(),
		DiffPercent: models.DiffUnavailable,
	}
}

func (w *Worker) attempt(ctx context.Context, t models.Target) (models.CaptureResult, error) {
	start := time.Now()

	tabCtx, cancel := w.session.NewContext()
	defer cancel()

	obs := newObserver()
	chromedp.ListenTarget(tabCtx, obs.handle)

	vp, err := config.ParseViewport(w.cfg.Browser.Viewport)
	if err != nil {
		return models.CaptureResult{}, err
	}

	prep := []chromedp.Action{
		network.Enable(),
		runtime.Enable(),
		chromedp.EmulateViewport(vp.Width, vp.Height),
	}
	if len(w.cfg.Browser.Headers) > 0 {
		prep = append(prep, network.SetExtraHTTPHeaders(extraHeaders(w.cfg.Browser.Headers)))
	}
	if len(w.cfg.Browser.Cookies) > 0 {
		prep = append(prep, storage.SetCookies(cookieParams(w.cfg.Browser.Cookies, t.URL)))
	}

	// Navigation and the initial readiness wait share the configured
	// timeout. The settle stages afterwards carry their own bounds.
	navCtx, navCancel := context.WithTimeout(tabCtx, w.cfg.Scan.Timeout)
	defer navCancel()

	actions := append(prep, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, err := page.Navigate(t.URL).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigation failed: %s", errText)
		}
		return waitReady(ctx)
	}))
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return models.CaptureResult{}, fmt.Errorf("loading %s: %w", t.URL, err)
	}

	settle(tabCtx, obs, w.cfg.Wait())

	if js := w.cfg.Browser.JSInject; js != "" {
		// Injection failures are the page's problem, not ours.
		_ = chromedp.Run(tabCtx, chromedp.Evaluate(js, nil))
		sleepCtx(tabCtx, 300*time.Millisecond)
	}

	shot, err := w.screenshot(tabCtx)
	if err != nil {
		return models.CaptureResult{}, fmt.Errorf("screenshot of %s: %w", t.URL, err)
	}

	// Everything below is best effort: a page that dies after the
	// screenshot still produces a result.
	var title, pageHTML, finalURL string
	_ = chromedp.Run(tabCtx,
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if finalURL == "" {
		finalURL = t.URL
	}

	var cookies []models.Cookie
	_ = chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		all, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range all {
			if len(cookies) == cookieCap {
				break
			}
			cookies = append(cookies, models.Cookie{
				Name:     c.Name,
				Domain:   c.Domain,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return nil
	}))

	name := fmt.Sprintf("%03d_%s.%s", t.Index, sanitizeFilename(hostOf(finalURL)), w.cfg.ImageExt())
	if err := os.WriteFile(filepath.Join(w.shotDir, name), shot, 0644); err != nil {
		return models.CaptureResult{}, fmt.Errorf("writing screenshot: %w", err)
	}

	status, headers, security, chain, console := obs.snapshot()

	grade, present := analyze.GradeSecurityHeaders(headers)
	result := models.CaptureResult{
		Index:        t.Index,
		URL:          t.URL,
		FinalURL:     finalURL,
		StatusCode:   status,
		LoadMillis:   time.Since(start).Milliseconds(),
		Title:        strings.TrimSpace(title),
		Headers:      filterHeaders(headers),
		Technologies: analyze.FingerprintTech(headers, pageHTML),
		Category:     analyze.CategorizePage(title, pageHTML),
		SecGrade:     grade,
		SecHeaders:   present,
		ConsoleLogs:  console,
		Cookies:      cookies,
		Screenshot:   filepath.Join("screenshots", name),
		DiffPercent:  models.DiffUnavailable,
	}
	if len(chain) > 1 {
		result.RedirectChain = chain
	}
	if security != nil && strings.HasPrefix(finalURL, "https") {
		result.TLS = tlsInfo(security)
	}
	return result, nil
}

func (w *Worker) screenshot(ctx context.Context) ([]byte, error) {
	quality := w.cfg.Browser.ImageQuality
	if quality == 0 {
		quality = 80
	}

	var shot []byte
	shotCtx, cancel := context.WithTimeout(ctx, w.cfg.Scan.Timeout)
	defer cancel()

	if w.cfg.Browser.FullPage {
		// FullScreenshot encodes png at quality 100 and jpeg below it.
		if w.cfg.Browser.ImageFormat == "png" {
			quality = 100
		}
		return shot, chromedp.Run(shotCtx, chromedp.FullScreenshot(&shot, quality))
	}

	return shot, chromedp.Run(shotCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := page.CaptureScreenshot()
		if w.cfg.Browser.ImageFormat == "jpeg" {
			p = p.WithFormat(page.CaptureScreenshotFormatJpeg).WithQuality(int64(quality))
		} else {
			p = p.WithFormat(page.CaptureScreenshotFormatPng)
		}
		var err error
		shot, err = p.Do(ctx)
		return err
	}))
}

func tlsInfo(sec *network.SecurityDetails) *models.TLSInfo {
	info := &models.TLSInfo{
		Issuer:   sec.Issuer,
		Subject:  sec.SubjectName,
		Protocol: sec.Protocol,
	}
	if sec.ValidFrom != nil {
		info.ValidFrom = sec.ValidFrom.Time().UTC().Format(time.RFC3339)
	}
	if sec.ValidTo != nil {
		info.ValidTo = sec.ValidTo.Time().UTC().Format(time.RFC3339)
	}
	return info
}

// filterHeaders keeps only the headers reports care about.
func filterHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string)
	for _, name := range reportedHeaders {
		if v, ok := headers[name]; ok {
			out[name] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func extraHeaders(h map[string]string) network.Headers {
	out := make(network.Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func cookieParams(specs []config.CookieSpec, targetURL string) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(specs))
	for _, c := range specs {
		p := &network.CookieParam{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path}
		if p.Domain == "" {
			p.URL = targetURL
		}
		params = append(params, p)
	}
	return params
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// sanitizeFilename turns a host into a safe screenshot file stem.
func sanitizeFilename(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > filenameMaxLen {
		out = out[:filenameMaxLen]
	}
	if out == "" {
		return "site"
	}
	return out
}
