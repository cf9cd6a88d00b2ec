package diff

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"sightline/pkg/models"
)

func writeTestImage(t *testing.T, path string, w, h int, fill color.RGBA, patch image.Rectangle, patchColor color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := fill
			if image.Pt(x, y).In(patch) {
				c = patchColor
			}
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestVisualIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	writeTestImage(t, path, 64, 64, color.RGBA{80, 90, 100, 255}, image.Rectangle{}, color.RGBA{})

	for _, threshold := range []int{0, 10, 255} {
		pct, heat, comp := Visual(path, path, dir, 1, threshold)
		if pct != 0 {
			t.Errorf("identity diff at threshold %d = %v, want 0", threshold, pct)
		}
		if heat != "" || comp != "" {
			t.Errorf("identity diff should produce no artifacts, got %q %q", heat, comp)
		}
	}
}

func TestVisualHalfChanged(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.png")
	newPath := filepath.Join(dir, "new.png")
	black := color.RGBA{0, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}

	// 64x64: left half identical, right half flips black to white.
	writeTestImage(t, oldPath, 64, 64, black, image.Rectangle{}, color.RGBA{})
	writeTestImage(t, newPath, 64, 64, black, image.Rect(32, 0, 64, 64), white)

	pct, heat, comp := Visual(oldPath, newPath, dir, 2, 10)
	if pct != 50.0 {
		t.Errorf("half-changed diff = %v, want 50.0", pct)
	}
	if heat == "" || comp == "" {
		t.Errorf("large diff should produce artifacts, got %q %q", heat, comp)
	}
	for _, rel := range []string{heat, comp} {
		full := filepath.Join(dir, filepath.Base(rel))
		if _, err := os.Stat(full); err != nil {
			t.Errorf("artifact %s not written: %v", rel, err)
		}
	}
}

func TestVisualDeterministic(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.png")
	newPath := filepath.Join(dir, "new.png")
	writeTestImage(t, oldPath, 48, 48, color.RGBA{10, 20, 30, 255}, image.Rectangle{}, color.RGBA{})
	writeTestImage(t, newPath, 48, 48, color.RGBA{10, 20, 30, 255}, image.Rect(0, 0, 16, 16), color.RGBA{200, 40, 40, 255})

	first, _, _ := Visual(oldPath, newPath, dir, 3, 10)
	for i := 0; i < 3; i++ {
		again, _, _ := Visual(oldPath, newPath, dir, 3, 10)
		if again != first {
			t.Fatalf("diff not deterministic: %v then %v", first, again)
		}
	}
}

func TestVisualResamplesOnSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.png")
	newPath := filepath.Join(dir, "new.png")
	grey := color.RGBA{120, 120, 120, 255}
	writeTestImage(t, oldPath, 64, 64, grey, image.Rectangle{}, color.RGBA{})
	// Same solid color at double resolution: after resampling, no change.
	writeTestImage(t, newPath, 128, 128, grey, image.Rectangle{}, color.RGBA{})

	pct, _, _ := Visual(oldPath, newPath, dir, 4, 10)
	if pct != 0 {
		t.Errorf("resampled identical-color diff = %v, want 0", pct)
	}
}

func TestVisualUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeTestImage(t, good, 32, 32, color.RGBA{1, 2, 3, 255}, image.Rectangle{}, color.RGBA{})
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}

	if pct, _, _ := Visual(bad, good, dir, 5, 10); pct != models.DiffUnavailable {
		t.Errorf("unreadable old image diff = %v, want sentinel", pct)
	}
	if pct, _, _ := Visual(good, bad, dir, 5, 10); pct != models.DiffUnavailable {
		t.Errorf("unreadable new image diff = %v, want sentinel", pct)
	}
	if pct, _, _ := Visual(filepath.Join(dir, "missing.png"), good, dir, 5, 10); pct != models.DiffUnavailable {
		t.Errorf("missing image diff = %v, want sentinel", pct)
	}
}
