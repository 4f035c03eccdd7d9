// File: internal/vision/annotate.go
package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// AnnotateOptions controls the refinement crop rendering.
type AnnotateOptions struct {
	// CropRadius is the half-size of the square window cut around the
	// estimate, in capture pixels (500 => a 1000x1000 window).
	CropRadius int
	// ZoomFactor upscales the crop so the oracle can read the rulers.
	ZoomFactor int
	// MarkerRadius is the marker size on the zoomed image, in pixels.
	MarkerRadius int
}

// DefaultAnnotateOptions mirrors the tuning the refinement loop was
// calibrated with.
func DefaultAnnotateOptions() AnnotateOptions {
	return AnnotateOptions{CropRadius: 500, ZoomFactor: 3, MarkerRadius: 8}
}

// Ruler layout constants, in pixels. Ticks are spaced in REAL (pre-zoom)
// pixels so the oracle reports offsets in capture units.
const (
	tickSpacing    = 10 // real pixels between ticks
	labelSpacing   = 50 // real pixels between labeled ticks
	rulerOffset    = 50 // zoomed pixels between the marker and each ruler
	rulerThickness = 4
)

var (
	markerFill    = color.RGBA{R: 255, A: 255}                 // red
	markerOutline = color.RGBA{R: 255, G: 255, B: 255, A: 255} // white
	rulerXColor   = color.RGBA{R: 255, G: 255, A: 255}         // yellow, horizontal
	rulerYColor   = color.RGBA{G: 255, B: 255, A: 255}         // cyan, vertical
	infoTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255} // white
)

// AnnotatePoint cuts a CropRadius window around (x, y), upscales it by
// ZoomFactor with a quality-preserving filter, and draws a marker plus two
// calibrated rulers anchored at the point: one toward increasing X, one
// toward increasing Y. The result lets the oracle read off a directional
// offset in real capture pixels instead of guessing absolute coordinates.
func AnnotatePoint(src image.Image, x, y int, opts AnnotateOptions) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	cropX1 := max(0, x-opts.CropRadius)
	cropY1 := max(0, y-opts.CropRadius)
	cropX2 := min(width, x+opts.CropRadius)
	cropY2 := min(height, y+opts.CropRadius)

	cropW := cropX2 - cropX1
	cropH := cropY2 - cropY1

	// Marker position inside the crop, before zoom.
	localX := x - cropX1
	localY := y - cropY1

	zoomedW := cropW * opts.ZoomFactor
	zoomedH := cropH * opts.ZoomFactor
	zoomed := image.NewRGBA(image.Rect(0, 0, zoomedW, zoomedH))

	srcRect := image.Rect(bounds.Min.X+cropX1, bounds.Min.Y+cropY1, bounds.Min.X+cropX2, bounds.Min.Y+cropY2)
	xdraw.CatmullRom.Scale(zoomed, zoomed.Bounds(), src, srcRect, xdraw.Src, nil)

	zx := localX * opts.ZoomFactor
	zy := localY * opts.ZoomFactor

	drawMarker(zoomed, zx, zy, opts.MarkerRadius)
	drawHorizontalRuler(zoomed, zx, zy, opts)
	drawVerticalRuler(zoomed, zx, zy, opts)

	drawLabel(zoomed, 10, 20, fmt.Sprintf("Point: (%d, %d)", x, y), infoTextColor)
	drawLabel(zoomed, 10, 40, fmt.Sprintf("Zoom: x%d", opts.ZoomFactor), infoTextColor)
	drawLabel(zoomed, 10, 60, "Rulers: real screen pixels", infoTextColor)

	return zoomed
}

// EncodePNG serializes an annotated crop for an inline oracle query.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode annotated crop: %w", err)
	}
	return buf.Bytes(), nil
}

// drawMarker paints a filled disc with a contrasting outline ring.
func drawMarker(img *image.RGBA, cx, cy, radius int) {
	outer := radius + 3
	for dy := -outer; dy <= outer; dy++ {
		for dx := -outer; dx <= outer; dx++ {
			d2 := dx*dx + dy*dy
			switch {
			case d2 <= radius*radius:
				setPixel(img, cx+dx, cy+dy, markerFill)
			case d2 <= outer*outer:
				setPixel(img, cx+dx, cy+dy, markerOutline)
			}
		}
	}
}

// drawHorizontalRuler draws the X-axis ruler just below the marker with
// ticks every tickSpacing real pixels and labels every labelSpacing.
func drawHorizontalRuler(img *image.RGBA, zx, zy int, opts AnnotateOptions) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	rulerY := zy + rulerOffset

	fillRect(img, 0, rulerY-rulerThickness/2, w, rulerY+rulerThickness/2, rulerXColor)

	for offset := -opts.CropRadius; offset <= opts.CropRadius; offset += tickSpacing {
		tickX := zx + offset*opts.ZoomFactor
		if tickX < 0 || tickX > w {
			continue
		}
		if offset%labelSpacing == 0 {
			fillRect(img, tickX-2, rulerY-20, tickX+2, rulerY+20, rulerXColor)
			label := fmt.Sprintf("%+d", offset)
			if offset == 0 {
				label = "0"
			}
			labelY := rulerY + 34
			if rulerY >= h/2 {
				labelY = rulerY - 26
			}
			drawLabel(img, tickX-14, labelY, label, rulerXColor)
		} else {
			fillRect(img, tickX-1, rulerY-10, tickX+1, rulerY+10, rulerXColor)
		}
	}
}

// drawVerticalRuler draws the Y-axis ruler just right of the marker.
func drawVerticalRuler(img *image.RGBA, zx, zy int, opts AnnotateOptions) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	rulerX := zx + rulerOffset

	fillRect(img, rulerX-rulerThickness/2, 0, rulerX+rulerThickness/2, h, rulerYColor)

	for offset := -opts.CropRadius; offset <= opts.CropRadius; offset += tickSpacing {
		tickY := zy + offset*opts.ZoomFactor
		if tickY < 0 || tickY > h {
			continue
		}
		if offset%labelSpacing == 0 {
			fillRect(img, rulerX-20, tickY-2, rulerX+20, tickY+2, rulerYColor)
			label := fmt.Sprintf("%+d", offset)
			if offset == 0 {
				label = "0"
			}
			labelX := rulerX + 26
			if rulerX >= w/2 {
				labelX = rulerX - 58
			}
			drawLabel(img, labelX, tickY+4, label, rulerYColor)
		} else {
			fillRect(img, rulerX-10, tickY-1, rulerX+10, tickY+1, rulerYColor)
		}
	}
}

// fillRect fills the clamped rectangle [x0,x1)x[y0,y1).
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	b := img.Bounds()
	x0, y0 = max(x0, b.Min.X), max(y0, b.Min.Y)
	x1, y1 = min(x1, b.Max.X), min(y1, b.Max.Y)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel renders small text with the fixed-size basicfont face; (x, y) is
// the baseline origin.
func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
