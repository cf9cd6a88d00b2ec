package diff

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // decode registration for jpeg screenshots
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sightline/pkg/models"
)

const (
	blockSize = 8

	// Artifacts are only worth producing once the change is visible.
	artifactMinPercent = 0.5

	// Luma bands for the heatmap tiers.
	heatMediumFloor = 60
	heatHighFloor   = 140
)

// Visual compares two screenshots with the block algorithm and, when the
// change is large enough, writes a heatmap and a before/diff/after composite
// into diffDir. It returns the changed-block percentage (rounded to one
// decimal) and the artifact paths relative to the output directory. Any I/O
// or decode failure yields the unavailable sentinel instead of an error:
// a missing artifact must never fail the diff pass.
func Visual(oldPath, newPath, diffDir string, index, threshold int) (float64, string, string) {
	oldImg, err := loadRGBA(oldPath)
	if err != nil {
		return models.DiffUnavailable, "", ""
	}
	newImg, err := loadRGBA(newPath)
	if err != nil {
		return models.DiffUnavailable, "", ""
	}

	// Dimension mismatch never skips the comparison: resample the new image
	// onto the old one's grid first.
	if !newImg.Bounds().Eq(oldImg.Bounds()) {
		resized := image.NewRGBA(oldImg.Bounds())
		xdraw.CatmullRom.Scale(resized, resized.Bounds(), newImg, newImg.Bounds(), xdraw.Src, nil)
		newImg = resized
	}

	w := oldImg.Bounds().Dx()
	h := oldImg.Bounds().Dy()
	gray := lumaDiff(oldImg, newImg)
	pct := blockPercent(gray, w, h, threshold)

	if pct <= artifactMinPercent {
		return pct, "", ""
	}

	heatmap := renderHeatmap(newImg, gray, threshold)
	heatName := fmt.Sprintf("diff_%03d_heatmap.png", index)
	heatRel := ""
	if savePNG(filepath.Join(diffDir, heatName), heatmap) == nil {
		heatRel = filepath.Join("diffs", heatName)
	}

	composite := renderComposite(oldImg, heatmap, newImg)
	compName := fmt.Sprintf("diff_%03d_compare.png", index)
	compRel := ""
	if savePNG(filepath.Join(diffDir, compName), composite) == nil {
		compRel = filepath.Join("diffs", compName)
	}

	return pct, heatRel, compRel
}

func loadRGBA(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, xdraw.Src)
	return rgba, nil
}

// lumaDiff computes the per-pixel luma of the absolute channel differences,
// one byte per pixel in row-major order.
func lumaDiff(a, b *image.RGBA) []uint8 {
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		ao := a.PixOffset(0, y)
		bo := b.PixOffset(0, y)
		for x := 0; x < w; x++ {
			dr := absDiff(a.Pix[ao], b.Pix[bo])
			dg := absDiff(a.Pix[ao+1], b.Pix[bo+1])
			db := absDiff(a.Pix[ao+2], b.Pix[bo+2])
			out[y*w+x] = uint8((299*int(dr) + 587*int(dg) + 114*int(db)) / 1000)
			ao += 4
			bo += 4
		}
	}
	return out
}

// blockPercent partitions the diff plane into fixed-size blocks and counts a
// block as changed when its average difference exceeds the threshold.
// Averaging over blocks suppresses one-or-two pixel anti-aliasing noise that
// a raw pixel diff would over-report.
func blockPercent(gray []uint8, w, h, threshold int) float64 {
	bw := w / blockSize
	bh := h / blockSize
	if bw < 1 {
		bw = 1
	}
	if bh < 1 {
		bh = 1
	}

	changed := 0
	total := bw * bh
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			sum, n := 0, 0
			for y := by * blockSize; y < (by+1)*blockSize && y < h; y++ {
				for x := bx * blockSize; x < (bx+1)*blockSize && x < w; x++ {
					sum += int(gray[y*w+x])
					n++
				}
			}
			if n > 0 && sum/n > threshold {
				changed++
			}
		}
	}
	return math.Round(float64(changed)/float64(total)*1000) / 10
}

// renderHeatmap overlays three difference tiers (green / yellow / red) on the
// new image, dimming the unchanged regions.
func renderHeatmap(base *image.RGBA, gray []uint8, threshold int) *image.RGBA {
	w := base.Bounds().Dx()
	h := base.Bounds().Dy()
	out := image.NewRGBA(base.Bounds())

	green := [3]uint8{0, 220, 100}
	yellow := [3]uint8{255, 200, 0}
	red := [3]uint8{255, 40, 40}

	for y := 0; y < h; y++ {
		o := base.PixOffset(0, y)
		for x := 0; x < w; x++ {
			d := int(gray[y*w+x])
			r, g, b := base.Pix[o], base.Pix[o+1], base.Pix[o+2]
			switch {
			case d >= heatHighFloor:
				r, g, b = blend(r, g, b, red, 0.55)
			case d >= heatMediumFloor:
				r, g, b = blend(r, g, b, yellow, 0.50)
			case d > threshold:
				r, g, b = blend(r, g, b, green, 0.45)
			default:
				r = uint8(float64(r) * 0.35)
				g = uint8(float64(g) * 0.35)
				b = uint8(float64(b) * 0.35)
			}
			out.Pix[o] = r
			out.Pix[o+1] = g
			out.Pix[o+2] = b
			out.Pix[o+3] = 0xff
			o += 4
		}
	}
	return out
}

// renderComposite lays out BEFORE | DIFF | AFTER panels with labels.
func renderComposite(before, heat, after *image.RGBA) *image.RGBA {
	w := before.Bounds().Dx()
	h := before.Bounds().Dy()
	const gap = 4
	const top = 28

	canvas := image.NewRGBA(image.Rect(0, 0, w*3+gap*2, h+top+4))
	bg := color.RGBA{15, 18, 25, 255}
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)

	label(canvas, w/2-25, 16, "BEFORE", color.RGBA{180, 180, 180, 255})
	label(canvas, w+gap+w/2-15, 16, "DIFF", color.RGBA{255, 100, 100, 255})
	label(canvas, w*2+gap*2+w/2-20, 16, "AFTER", color.RGBA{100, 230, 160, 255})

	paste(canvas, before, 0, top)
	paste(canvas, heat, w+gap, top)
	paste(canvas, after, w*2+gap*2, top)
	return canvas
}

func paste(dst *image.RGBA, src *image.RGBA, x, y int) {
	r := image.Rect(x, y, x+src.Bounds().Dx(), y+src.Bounds().Dy())
	xdraw.Draw(dst, r, src, src.Bounds().Min, xdraw.Src)
}

func label(dst *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func blend(r, g, b uint8, tint [3]uint8, alpha float64) (uint8, uint8, uint8) {
	mix := func(base, over uint8) uint8 {
		return uint8(float64(base)*(1-alpha) + float64(over)*alpha)
	}
	return mix(r, tint[0]), mix(g, tint[1]), mix(b, tint[2])
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
