// File: internal/geometry/geometry.go
// Package geometry maps between the coordinate space the perception oracle
// reasons in (pixels of the captured image, which on high-DPI displays is a
// multiple of the logical resolution) and the logical coordinate space the
// actuation channel expects.
package geometry

import (
	"fmt"
	"image"
	"math"
	"os"

	// Register decoders for the capture formats we read dimensions from.
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

// heuristicWidthThreshold separates laptop-class (usually scaled) panels
// from external monitors when no capture is available yet.
const heuristicWidthThreshold = 1920

// Resolver owns scale resolution and click-coordinate correction. It mutates
// nothing but the Display's cached scale, and only from the single task flow.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("geometry")}
}

// ResolveScale determines the physical/logical pixel ratio for a display.
// The authoritative method compares the capture's pixel dimensions against
// the display's logical dimensions; the width heuristic only bootstraps the
// value before any capture exists. Resolution failure degrades to 1.0 with
// a warning instead of aborting: clicks stay correct on unscaled displays
// and are off by exactly the scale factor on scaled ones.
func (r *Resolver) ResolveScale(display *schemas.Display, capturePath string) float64 {
	if display.Scale > 0 {
		return display.Scale
	}

	if capturePath != "" {
		scale, err := scaleFromCapture(display, capturePath)
		if err == nil {
			display.Scale = scale
			r.logger.Debug("Resolved display scale from capture",
				zap.Int("display", display.ID),
				zap.Float64("scale", scale),
			)
			return scale
		}
		r.logger.Warn("Could not resolve scale from capture, coordinates may be degraded",
			zap.String("capture", capturePath),
			zap.Error(err),
		)
		if display.Width <= 0 {
			return 1.0
		}
	}

	if display.Width <= 0 {
		r.logger.Warn("Display has no logical width, assuming unscaled")
		return 1.0
	}

	// Heuristic fallback, not cached: the next capture gives the exact value.
	if display.Width < heuristicWidthThreshold {
		return 2.0
	}
	return 1.0
}

// scaleFromCapture computes round(max(cw/w, ch/h)) from the capture header.
func scaleFromCapture(display *schemas.Display, capturePath string) (float64, error) {
	if display.Width <= 0 || display.Height <= 0 {
		return 0, fmt.Errorf("display %d has non-positive logical dimensions", display.ID)
	}

	f, err := os.Open(capturePath)
	if err != nil {
		return 0, fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("decode capture header: %w", err)
	}

	scaleX := float64(cfg.Width) / float64(display.Width)
	scaleY := float64(cfg.Height) / float64(display.Height)
	scale := math.Round(math.Max(scaleX, scaleY))
	if scale < 1 {
		scale = 1
	}
	return scale, nil
}

// CorrectClick converts a coordinate pair returned by the perception oracle
// (capture pixels, display-relative) into absolute logical coordinates for
// actuation: divide by the resolved scale, then add the display's logical
// origin. Every oracle coordinate must pass through here before a click or
// move; skipping it lands clicks at up to scale x the intended offset.
func (r *Resolver) CorrectClick(visionX, visionY int, display *schemas.Display, capturePath string) (int, int, float64) {
	scale := r.ResolveScale(display, capturePath)

	logicalX := int(float64(visionX) / scale)
	logicalY := int(float64(visionY) / scale)

	absX := display.X + logicalX
	absY := display.Y + logicalY

	r.logger.Debug("Corrected click coordinates",
		zap.Int("vision_x", visionX), zap.Int("vision_y", visionY),
		zap.Float64("scale", scale),
		zap.Int("abs_x", absX), zap.Int("abs_y", absY),
	)
	return absX, absY, scale
}
