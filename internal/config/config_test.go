package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseViewport(t *testing.T) {
	tests := []struct {
		in      string
		want    Viewport
		wantErr bool
	}{
		{"desktop", Viewport{1920, 1080}, false},
		{"Mobile", Viewport{375, 812}, false},
		{"1280x800", Viewport{1280, 800}, false},
		{"800X600", Viewport{800, 600}, false},
		{"huge", Viewport{}, true},
		{"1280", Viewport{}, true},
		{"0x600", Viewport{}, true},
		{"-1x600", Viewport{}, true},
	}
	for _, tt := range tests {
		got, err := ParseViewport(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseViewport(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseViewport(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := CreateDefault()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"zero threads", func(c *AppConfig) { c.Scan.Threads = 0 }},
		{"negative retries", func(c *AppConfig) { c.Scan.Retries = -1 }},
		{"zero timeout", func(c *AppConfig) { c.Scan.Timeout = 0 }},
		{"bad wait mode", func(c *AppConfig) { c.Scan.WaitMode = "warp" }},
		{"bad viewport", func(c *AppConfig) { c.Browser.Viewport = "wide" }},
		{"bad format", func(c *AppConfig) { c.Browser.ImageFormat = "webp" }},
		{"quality too high", func(c *AppConfig) { c.Browser.ImageQuality = 101 }},
		{"threshold out of range", func(c *AppConfig) { c.Diff.Threshold = 300 }},
	}
	for _, tt := range tests {
		c := CreateDefault()
		tt.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
scan:
  threads: 12
  wait_mode: thorough
browser:
  viewport: mobile
  image_format: jpeg
  image_quality: 80
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.Threads != 12 {
		t.Errorf("Threads = %d, want 12", cfg.Scan.Threads)
	}
	if cfg.Scan.WaitMode != "thorough" {
		t.Errorf("WaitMode = %q, want thorough", cfg.Scan.WaitMode)
	}
	// Unset fields keep their defaults.
	if cfg.Scan.Timeout != 8*time.Second {
		t.Errorf("Timeout = %v, want 8s default", cfg.Scan.Timeout)
	}
	if cfg.ImageExt() != "jpg" {
		t.Errorf("ImageExt = %q, want jpg", cfg.ImageExt())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate, got %v", err)
	}
}

func TestWaitFallsBackToBalanced(t *testing.T) {
	c := CreateDefault()
	c.Scan.WaitMode = "nonsense"
	if got := c.Wait(); got != WaitModes["balanced"] {
		t.Errorf("Wait() = %+v, want balanced", got)
	}
}
