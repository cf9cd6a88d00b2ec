package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"sightline/internal/browser"
	"sightline/internal/capture"
	"sightline/internal/config"
	"sightline/internal/diff"
	"sightline/internal/history"
	"sightline/internal/report"
	"sightline/internal/runner"
	"sightline/internal/runstore"
	"sightline/internal/targets"
	"sightline/pkg/models"
)

var flags struct {
	configFile string

	urls        []string
	inputFile   string
	nmapFile    string
	cidr        string
	ports       string
	excludes    []string
	stdin       bool

	threads    int
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	waitMode   string
	rateLimit  time.Duration
	resume     bool

	viewport  string
	fullPage  bool
	proxy     string
	userAgent string
	headers   []string
	cookies   []string
	jsInject  string
	format    string
	quality   int

	outDir  string
	json    bool
	csv     bool
	diffDir string
	thresh  int

	quiet   bool
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:   "sightline",
	Short: "Capture, fingerprint, and diff the visual state of web targets",
	Long: `sightline screenshots a list of web targets with a headless browser,
records each page's status, headers, technologies, and certificate, and can
diff the whole run against a previous one to surface what changed.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cmd)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scan runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return printHistory(cmd.Context(), limit)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "YAML configuration file")

	f.StringSliceVarP(&flags.urls, "url", "u", nil, "target URL (repeatable)")
	f.StringVarP(&flags.inputFile, "file", "f", "", "file with one target per line")
	f.StringVar(&flags.nmapFile, "nmap", "", "nmap XML file to read web targets from")
	f.StringVar(&flags.cidr, "cidr", "", "CIDR range to expand into targets")
	f.StringVar(&flags.ports, "ports", "80,443", "ports to pair with --cidr")
	f.StringSliceVar(&flags.excludes, "exclude", nil, "regex of targets to skip (repeatable)")
	f.BoolVar(&flags.stdin, "stdin", false, "read targets from standard input")

	f.IntVarP(&flags.threads, "threads", "t", 5, "concurrent capture workers")
	f.DurationVar(&flags.timeout, "timeout", 8*time.Second, "per-page load timeout")
	f.IntVar(&flags.retries, "retries", 2, "retries per failed target")
	f.DurationVar(&flags.retryDelay, "retry-delay", 300*time.Millisecond, "delay between retries")
	f.StringVar(&flags.waitMode, "wait-mode", "balanced", "settle mode: fast, balanced, thorough")
	f.DurationVar(&flags.rateLimit, "rate-limit", 0, "minimum spacing between capture starts")
	f.BoolVar(&flags.resume, "resume", false, "skip targets completed in a prior run of the same output dir")

	f.StringVar(&flags.viewport, "viewport", "1920x1080", "viewport size or preset (desktop, laptop, tablet, mobile)")
	f.BoolVar(&flags.fullPage, "full-page", false, "capture the full scroll height")
	f.StringVar(&flags.proxy, "proxy", "", "proxy server for all browser traffic")
	f.StringVar(&flags.userAgent, "user-agent", "", "User-Agent override")
	f.StringArrayVarP(&flags.headers, "header", "H", nil, `extra request header, "Name: Value" (repeatable)`)
	f.StringArrayVarP(&flags.cookies, "cookie", "c", nil, `cookie, "name=value; domain=.example.com; path=/" (repeatable)`)
	f.StringVar(&flags.jsInject, "js-inject", "", "JavaScript to evaluate on each page before the screenshot")
	f.StringVar(&flags.format, "format", "png", "screenshot format: png or jpeg")
	f.IntVar(&flags.quality, "quality", 0, "jpeg quality 1-100")

	f.StringVarP(&flags.outDir, "out", "o", "sightline_report", "output directory")
	f.BoolVar(&flags.json, "json", false, "write results.json")
	f.BoolVar(&flags.csv, "csv", false, "write results.csv")
	f.StringVar(&flags.diffDir, "diff", "", "previous run directory to diff against")
	f.IntVar(&flags.thresh, "diff-threshold", 10, "visual diff sensitivity, 0-255")

	f.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress the banner and progress bar")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "mirror the scan log to stderr")

	historyCmd.Flags().Int("limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cobra.Command) error {
	if !flags.quiet {
		figure.NewColorFigure("SIGHTLINE", "doom", "cyan", true).Print()
		fmt.Println()
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	allTargets, err := collectTargets()
	if err != nil {
		return err
	}
	if len(allTargets) == 0 {
		return fmt.Errorf("no targets: supply --url, --file, --cidr, --nmap, or --stdin")
	}

	outDir := cfg.Output.Dir
	if err := os.MkdirAll(filepath.Join(outDir, "screenshots"), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(outDir, "scan.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening scan log: %w", err)
	}
	defer logFile.Close()
	var logSink io.Writer = logFile
	if flags.verbose {
		logSink = io.MultiWriter(logFile, os.Stderr)
	}
	logger := log.New(logSink, "", log.LstdFlags)
	logger.Printf("scan start: %d targets, %d threads, wait=%s", len(allTargets), cfg.Scan.Threads, cfg.Scan.WaitMode)

	var previous []models.CaptureResult
	if cfg.Scan.Resume {
		previous, err = runstore.LoadCompleted(outDir)
		if err != nil {
			color.Yellow("warning: cannot resume from %s: %v", runstore.Path(outDir), err)
			previous = nil
		} else if len(previous) > 0 {
			fmt.Printf("resuming: %d targets already completed\n", len(previous))
		}
	}

	session := browser.NewSession(ctx, &cfg.Browser)
	defer session.Close()

	var bar *progressbar.ProgressBar
	if !flags.quiet {
		bar = progressbar.NewOptions(len(allTargets),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionSetDescription("[cyan]capturing[reset]"),
			progressbar.OptionShowCount(),
		)
	}

	pool := &runner.Pool{
		Capturer: capture.NewWorker(session, cfg, outDir, logger),
		Threads:  cfg.Scan.Threads,
	}
	if cfg.Scan.RateLimit > 0 {
		pool.Limiter = rate.NewLimiter(rate.Every(cfg.Scan.RateLimit), 1)
	}
	if bar != nil {
		pool.Progress = func(models.CaptureResult) { _ = bar.Add(1) }
	}

	start := time.Now()
	counts, results := pool.Run(ctx, allTargets, previous)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	var severity *models.SeverityCounts
	if cfg.Diff.PreviousDir != "" {
		prev, err := runstore.Load(cfg.Diff.PreviousDir)
		if err != nil {
			color.Yellow("warning: skipping diff, cannot load %s: %v", runstore.Path(cfg.Diff.PreviousDir), err)
		} else {
			var diffBar *progressbar.ProgressBar
			var tick func()
			if !flags.quiet {
				diffBar = progressbar.NewOptions(len(results),
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionSetWidth(50),
					progressbar.OptionSetDescription("[yellow]diffing[reset]"),
				)
				tick = func() { _ = diffBar.Add(1) }
			}
			sev, err := diff.Run(prev, results, diff.Options{
				PrevDir:   cfg.Diff.PreviousDir,
				OutDir:    outDir,
				Threshold: cfg.Diff.Threshold,
				Progress:  tick,
			})
			if diffBar != nil {
				_ = diffBar.Finish()
				fmt.Println()
			}
			if err != nil {
				color.Yellow("warning: diff failed: %v", err)
			} else {
				severity = &sev
			}
		}
	}

	if cfg.Output.JSON || cfg.Scan.Resume {
		if err := runstore.Save(outDir, results); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}
	if err := report.WriteHTML(filepath.Join(outDir, "report.html"), results, counts, severity); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if cfg.Output.CSV {
		if err := report.WriteCSV(filepath.Join(outDir, "results.csv"), results); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}

	rec := history.Run{
		StartedAt:  start,
		FinishedAt: time.Now(),
		OutputDir:  outDir,
		Targets:    counts.Total,
		Success:    counts.Success,
		Failed:     counts.Fail,
		DiffedWith: cfg.Diff.PreviousDir,
	}
	if severity != nil {
		rec.Critical = severity.Critical
		rec.High = severity.High
		rec.Medium = severity.Medium
		rec.Low = severity.Low
		rec.New = severity.New
	}
	recordHistory(ctx, logger, rec)

	logger.Printf("scan done: %d ok, %d warn, %d fail in %s", counts.Success, counts.Warn, counts.Fail, time.Since(start).Round(time.Millisecond))
	report.PrintSummary(os.Stdout, counts, severity, outDir, time.Since(start))
	return nil
}

// buildConfig layers flag overrides on top of the file or default config.
// Only flags the user actually set override file values.
func buildConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	var cfg *config.AppConfig
	var err error
	if flags.configFile != "" {
		cfg, err = config.Load(flags.configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.CreateDefault()
	}

	set := cmd.Flags().Changed
	if set("threads") {
		cfg.Scan.Threads = flags.threads
	}
	if set("timeout") {
		cfg.Scan.Timeout = flags.timeout
	}
	if set("retries") {
		cfg.Scan.Retries = flags.retries
	}
	if set("retry-delay") {
		cfg.Scan.RetryDelay = flags.retryDelay
	}
	if set("wait-mode") {
		cfg.Scan.WaitMode = flags.waitMode
	}
	if set("rate-limit") {
		cfg.Scan.RateLimit = flags.rateLimit
	}
	if set("resume") {
		cfg.Scan.Resume = flags.resume
	}
	if set("viewport") {
		cfg.Browser.Viewport = flags.viewport
	}
	if set("full-page") {
		cfg.Browser.FullPage = flags.fullPage
	}
	if set("proxy") {
		cfg.Browser.Proxy = flags.proxy
	}
	if set("user-agent") {
		cfg.Browser.UserAgent = flags.userAgent
	}
	if set("js-inject") {
		cfg.Browser.JSInject = flags.jsInject
	}
	if set("format") {
		cfg.Browser.ImageFormat = flags.format
	}
	if set("quality") {
		cfg.Browser.ImageQuality = flags.quality
	}
	if set("out") {
		cfg.Output.Dir = flags.outDir
	}
	if set("json") {
		cfg.Output.JSON = flags.json
	}
	if set("csv") {
		cfg.Output.CSV = flags.csv
	}
	if set("diff") {
		cfg.Diff.PreviousDir = flags.diffDir
	}
	if set("diff-threshold") {
		cfg.Diff.Threshold = flags.thresh
	}

	if len(flags.headers) > 0 {
		if cfg.Browser.Headers == nil {
			cfg.Browser.Headers = make(map[string]string)
		}
		for _, h := range flags.headers {
			name, value, err := parseHeader(h)
			if err != nil {
				return nil, err
			}
			cfg.Browser.Headers[name] = value
		}
	}
	for _, c := range flags.cookies {
		spec, err := parseCookie(c)
		if err != nil {
			return nil, err
		}
		cfg.Browser.Cookies = append(cfg.Browser.Cookies, spec)
	}
	return cfg, nil
}

func collectTargets() ([]models.Target, error) {
	var urls []string

	for _, u := range flags.urls {
		urls = append(urls, targets.Normalize(u))
	}
	if flags.inputFile != "" {
		fromFile, err := targets.FromFile(flags.inputFile)
		if err != nil {
			return nil, fmt.Errorf("reading targets: %w", err)
		}
		urls = append(urls, fromFile...)
	}
	if flags.nmapFile != "" {
		fromNmap, err := targets.FromNmapXML(flags.nmapFile)
		if err != nil {
			return nil, fmt.Errorf("reading nmap file: %w", err)
		}
		urls = append(urls, fromNmap...)
	}
	if flags.cidr != "" {
		ports, err := targets.ParsePorts(flags.ports)
		if err != nil {
			return nil, err
		}
		expanded, err := targets.ExpandCIDR(flags.cidr, ports)
		if err != nil {
			return nil, err
		}
		urls = append(urls, expanded...)
	}
	if flags.stdin {
		fromStdin, err := targets.FromReader(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		urls = append(urls, fromStdin...)
	}

	if len(flags.excludes) > 0 {
		kept, dropped, err := targets.Exclude(urls, flags.excludes)
		if err != nil {
			return nil, err
		}
		if dropped > 0 {
			fmt.Printf("excluded %d targets\n", dropped)
		}
		urls = kept
	}
	return targets.Dedupe(urls), nil
}

// parseHeader splits "Name: Value".
func parseHeader(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("invalid header %q: expected \"Name: Value\"", s)
	}
	return strings.TrimSpace(name), strings.TrimSpace(value), nil
}

// parseCookie splits "name=value; domain=.example.com; path=/". The first
// pair is the cookie itself; domain and path attributes are optional.
func parseCookie(s string) (config.CookieSpec, error) {
	parts := strings.Split(s, ";")
	name, value, ok := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !ok || name == "" {
		return config.CookieSpec{}, fmt.Errorf("invalid cookie %q: expected \"name=value\"", s)
	}
	spec := config.CookieSpec{Name: name, Value: value}
	for _, attr := range parts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(attr), "=")
		switch strings.ToLower(k) {
		case "domain":
			spec.Domain = v
		case "path":
			spec.Path = v
		}
	}
	return spec, nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sightline_history.db"
	}
	return filepath.Join(home, ".sightline_history.db")
}

// recordHistory is best effort: a broken history database never fails a
// finished scan.
func recordHistory(ctx context.Context, logger *log.Logger, run history.Run) {
	store, err := history.Open(ctx, historyPath())
	if err != nil {
		logger.Printf("history unavailable: %v", err)
		return
	}
	defer store.Close()
	if err := store.RecordRun(ctx, run); err != nil {
		logger.Printf("history record failed: %v", err)
	}
}

func printHistory(ctx context.Context, limit int) error {
	store, err := history.Open(ctx, historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s\n", bold("recent runs:"))
	for _, r := range runs {
		line := fmt.Sprintf("  %s  %-30s  %d targets (%d ok, %d failed)",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.OutputDir, r.Targets, r.Success, r.Failed)
		if r.DiffedWith != "" {
			line += fmt.Sprintf("  diffed vs %s: %d changed, %d new",
				r.DiffedWith, r.Critical+r.High+r.Medium+r.Low, r.New)
		}
		fmt.Println(line)
	}
	return nil
}
