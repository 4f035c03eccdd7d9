// File: internal/vision/locator.go
// Package vision grounds natural-language element descriptions to screen
// coordinates. Vision models are unreliable at naming absolute pixel
// coordinates but materially better at judging relative offsets once shown
// a magnified, ruler-annotated region, so the locator refines a coarse
// guess through bounded rounds of calibrated correction.
package vision

import (
	"context"
	"fmt"
	"image"
	_ "image/png" // capture decoding
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

// coarsePromptFormat states the coordinate convention explicitly; the reply
// format matches coordinatesRe in parser.go.
const coarsePromptFormat = `On this %dx%d pixel image, find: %s

IMPORTANT:
- The origin (0, 0) is the TOP-LEFT corner
- X grows to the RIGHT (0 to %d)
- Y grows DOWNWARD (0 to %d)

Answer STRICTLY in this format:
Coordinates: X Y
Description: where the element is

Example:
Coordinates: 520 1650
Description: search button in the top toolbar`

// verifyPromptFormat asks for one of the three verdicts the refinement loop
// understands; the reply formats match the verdict patterns in parser.go.
const verifyPromptFormat = `This image is a MAGNIFIED FRAGMENT of a screen.

The RED DOT marks the point (%d, %d).

RULERS:
- YELLOW horizontal ruler below the dot (0 = the dot)
- CYAN vertical ruler right of the dot (0 = the dot)
- Ticks every 10-50 REAL screen pixels

QUESTION: would a click at the red dot activate this element: "%s"?

SUCCESS CRITERION:
- The dot does NOT have to be centered on the element
- If the dot lands anywhere INSIDE the element's clickable area, that is enough
- Ask for a correction ONLY if the click would genuinely miss

Answer STRICTLY in one of these formats:

1) If the element is not present in this fragment:
Element NOT VISIBLE in this fragment

2) If a click at the dot would hit the element:
Point: CORRECT

3) Only if the click would miss, give the minimal correction:
Point: INCORRECT
Offset X: <signed integer>
Offset Y: <signed integer>

Offset rules:
- Element to the RIGHT of the dot: positive X
- Element to the LEFT: negative X
- Element BELOW the dot: positive Y
- Element ABOVE: negative Y`

// Locator implements schemas.ElementLocator with the iterative
// ruler-refinement algorithm.
type Locator struct {
	oracle     schemas.PerceptionOracle
	logger     *zap.Logger
	iterations int
	annotate   AnnotateOptions
}

var _ schemas.ElementLocator = (*Locator)(nil)

// NewLocator creates a Locator with the given refinement budget and
// annotation tuning.
func NewLocator(oracle schemas.PerceptionOracle, iterations int, annotate AnnotateOptions, logger *zap.Logger) *Locator {
	return &Locator{
		oracle:     oracle,
		logger:     logger.Named("locator"),
		iterations: iterations,
		annotate:   annotate,
	}
}

// Locate resolves a description to a click point in capture-pixel
// coordinates. The confidence tier is high only when the oracle explicitly
// confirmed the point; exhausting the budget or losing the ability to parse
// replies yields medium (the estimate was refined, just not confirmed), and
// failing coarse localization yields low.
func (l *Locator) Locate(ctx context.Context, query schemas.ElementQuery) schemas.ElementResult {
	if err := ValidateDescription(query.Description); err != nil {
		return notFound(fmt.Sprintf("invalid element description: %v", err))
	}

	original, width, height, err := loadCapture(query.Capture.Path)
	if err != nil {
		return notFound(fmt.Sprintf("could not read capture: %v", err))
	}

	l.logger.Info("Locating element",
		zap.String("description", query.Description),
		zap.Int("width", width), zap.Int("height", height),
	)

	currentX, currentY, ok := l.coarseLocate(ctx, query, width, height)
	if !ok {
		// A malformed coarse reply means the oracle could not even attempt
		// localization; retrying the same question would not help.
		return notFound("coarse localization reply did not contain coordinates")
	}

	for iteration := 1; iteration <= l.iterations; iteration++ {
		l.logger.Debug("Refinement iteration",
			zap.Int("iteration", iteration),
			zap.Int("x", currentX), zap.Int("y", currentY),
		)

		crop := AnnotatePoint(original, currentX, currentY, l.annotate)
		encoded, err := EncodePNG(crop)
		if err != nil {
			l.logger.Warn("Failed to encode refinement crop, keeping last estimate", zap.Error(err))
			return l.unconfirmed(currentX, currentY, iteration)
		}

		prompt := fmt.Sprintf(verifyPromptFormat, currentX, currentY, query.Description)
		reply, err := l.oracle.QueryImageBytes(ctx, prompt, encoded)
		if err != nil {
			l.logger.Warn("Refinement query failed, keeping last estimate", zap.Error(err))
			return l.unconfirmed(currentX, currentY, iteration)
		}

		switch verdict := ParseVerdict(reply); verdict.Kind {
		case ReplyCorrect:
			l.logger.Info("Point confirmed",
				zap.Int("iteration", iteration),
				zap.Int("x", currentX), zap.Int("y", currentY),
			)
			return schemas.ElementResult{
				Found:       true,
				X:           currentX,
				Y:           currentY,
				Confidence:  schemas.ConfidenceHigh,
				Explanation: fmt.Sprintf("confirmed after %d refinement iterations", iteration),
			}

		case ReplyOffset:
			currentX = clamp(currentX+verdict.DX, 0, width)
			currentY = clamp(currentY+verdict.DY, 0, height)
			l.logger.Debug("Applied ruler correction",
				zap.Int("dx", verdict.DX), zap.Int("dy", verdict.DY),
				zap.Int("x", currentX), zap.Int("y", currentY),
			)

		case ReplyNotVisible:
			// The estimate drifted out of frame; re-anchor from the full
			// capture and keep iterating.
			l.logger.Warn("Element not visible in crop, re-anchoring from full capture")
			x, y, ok := l.coarseLocate(ctx, query, width, height)
			if !ok {
				return l.unconfirmed(currentX, currentY, iteration)
			}
			currentX, currentY = x, y

		default: // ReplyFailed
			l.logger.Warn("Could not parse refinement verdict, keeping last estimate")
			return l.unconfirmed(currentX, currentY, iteration)
		}
	}

	l.logger.Warn("Refinement budget exhausted without confirmation",
		zap.Int("iterations", l.iterations),
	)
	return l.unconfirmed(currentX, currentY, l.iterations)
}

// coarseLocate asks for absolute coordinates on the full capture.
func (l *Locator) coarseLocate(ctx context.Context, query schemas.ElementQuery, width, height int) (int, int, bool) {
	prompt := fmt.Sprintf(coarsePromptFormat, width, height, query.Description, width, height)
	reply, err := l.oracle.QueryImage(ctx, prompt, query.Capture.Path)
	if err != nil {
		l.logger.Warn("Coarse localization query failed", zap.Error(err))
		return 0, 0, false
	}

	parsed := ParseCoordinates(reply)
	if parsed.Kind != ReplyCoordinates {
		return 0, 0, false
	}
	return clamp(parsed.X, 0, width), clamp(parsed.Y, 0, height), true
}

// unconfirmed returns the last refined estimate at medium confidence.
func (l *Locator) unconfirmed(x, y, iterations int) schemas.ElementResult {
	return schemas.ElementResult{
		Found:       true,
		X:           x,
		Y:           y,
		Confidence:  schemas.ConfidenceMedium,
		Explanation: fmt.Sprintf("unconfirmed estimate after %d iterations", iterations),
	}
}

func notFound(explanation string) schemas.ElementResult {
	return schemas.ElementResult{
		Found:       false,
		Confidence:  schemas.ConfidenceLow,
		Explanation: explanation,
	}
}

func loadCapture(path string) (image.Image, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode capture: %w", err)
	}
	b := img.Bounds()
	return img, b.Dx(), b.Dy(), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
