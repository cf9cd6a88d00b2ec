package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Scan    ScanConfig    `yaml:"scan"`
	Browser BrowserConfig `yaml:"browser"`
	Output  OutputConfig  `yaml:"output"`
	Diff    DiffConfig    `yaml:"diff"`
}

// ScanConfig controls scheduling and retry behavior.
type ScanConfig struct {
	Threads    int           `yaml:"threads"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	WaitMode   string        `yaml:"wait_mode"`
	RateLimit  time.Duration `yaml:"rate_limit"`
	Resume     bool          `yaml:"resume"`
}

// BrowserConfig controls how each page is rendered and captured.
type BrowserConfig struct {
	Viewport     string            `yaml:"viewport"`
	FullPage     bool              `yaml:"full_page"`
	Proxy        string            `yaml:"proxy"`
	UserAgent    string            `yaml:"user_agent"`
	Headers      map[string]string `yaml:"headers"`
	Cookies      []CookieSpec      `yaml:"cookies"`
	JSInject     string            `yaml:"js_inject"`
	ImageFormat  string            `yaml:"image_format"`
	ImageQuality int               `yaml:"image_quality"`
}

// CookieSpec is a cookie supplied up front to every browsing context.
type CookieSpec struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Domain string `yaml:"domain"`
	Path   string `yaml:"path"`
}

// OutputConfig controls where and in which formats results are written.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	JSON bool   `yaml:"json"`
	CSV  bool   `yaml:"csv"`
}

// DiffConfig controls the comparison against a previous run.
type DiffConfig struct {
	PreviousDir string `yaml:"previous_dir"`
	Threshold   int    `yaml:"threshold"`
}

// Viewport is a parsed browser window size.
type Viewport struct {
	Width  int64
	Height int64
}

// WaitMode bounds the two best-effort settle stages after navigation.
type WaitMode struct {
	Load time.Duration
	Idle time.Duration
}

// WaitModes maps the wait-mode names to their settle timeouts.
var WaitModes = map[string]WaitMode{
	"fast":     {Load: 500 * time.Millisecond, Idle: 1 * time.Second},
	"balanced": {Load: 2 * time.Second, Idle: 3 * time.Second},
	"thorough": {Load: 4 * time.Second, Idle: 6 * time.Second},
}

// ViewportPresets maps the named viewport presets to pixel sizes.
var ViewportPresets = map[string]Viewport{
	"desktop": {Width: 1920, Height: 1080},
	"laptop":  {Width: 1366, Height: 768},
	"tablet":  {Width: 768, Height: 1024},
	"mobile":  {Width: 375, Height: 812},
}

// Load loads the configuration from a YAML file, filling unset fields with
// defaults.
func Load(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := CreateDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return config, nil
}

// CreateDefault creates a configuration with the default scan behavior.
func CreateDefault() *AppConfig {
	return &AppConfig{
		Scan: ScanConfig{
			Threads:    5,
			Timeout:    8 * time.Second,
			Retries:    2,
			RetryDelay: 300 * time.Millisecond,
			WaitMode:   "balanced",
		},
		Browser: BrowserConfig{
			Viewport:    "1920x1080",
			ImageFormat: "png",
		},
		Output: OutputConfig{
			Dir: "sightline_report",
		},
		Diff: DiffConfig{
			Threshold: 10,
		},
	}
}

// ParseViewport resolves a preset name or a WIDTHxHEIGHT string.
func ParseViewport(s string) (Viewport, error) {
	if vp, ok := ViewportPresets[strings.ToLower(s)]; ok {
		return vp, nil
	}
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return Viewport{}, fmt.Errorf("invalid viewport %q: use WIDTHxHEIGHT or a preset (desktop, laptop, tablet, mobile)", s)
	}
	w, werr := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	h, herr := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport %q: use WIDTHxHEIGHT or a preset (desktop, laptop, tablet, mobile)", s)
	}
	return Viewport{Width: w, Height: h}, nil
}

// Validate checks the configuration before any capture work begins.
// Validation errors are the only errors fatal to a whole run.
func (c *AppConfig) Validate() error {
	if c.Scan.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Scan.Threads)
	}
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Scan.Timeout)
	}
	if c.Scan.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Scan.Retries)
	}
	if _, ok := WaitModes[c.Scan.WaitMode]; !ok {
		return fmt.Errorf("unknown wait mode %q: use fast, balanced, or thorough", c.Scan.WaitMode)
	}
	if _, err := ParseViewport(c.Browser.Viewport); err != nil {
		return err
	}
	switch c.Browser.ImageFormat {
	case "png", "jpeg":
	default:
		return fmt.Errorf("unsupported image format %q: use png or jpeg", c.Browser.ImageFormat)
	}
	if q := c.Browser.ImageQuality; q != 0 && (q < 1 || q > 100) {
		return fmt.Errorf("image quality must be between 1 and 100, got %d", q)
	}
	if t := c.Diff.Threshold; t < 0 || t > 255 {
		return fmt.Errorf("diff threshold must be between 0 and 255, got %d", t)
	}
	return nil
}

// ImageExt is the screenshot file extension for the configured format.
func (c *AppConfig) ImageExt() string {
	if c.Browser.ImageFormat == "jpeg" {
		return "jpg"
	}
	return c.Browser.ImageFormat
}

// Wait returns the settle timeouts for the configured wait mode.
func (c *AppConfig) Wait() WaitMode {
	if wm, ok := WaitModes[c.Scan.WaitMode]; ok {
		return wm
	}
	return WaitModes["balanced"]
}
