// File: internal/screen/screen.go
// Package screen is the OS boundary: display enumeration, screenshot capture
// and pixel-level input. Everything here goes through robotgo so the engine
// stays portable across window systems.
package screen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
	"github.com/xkilldash9x/screenpilot/internal/config"
)

// Manager implements schemas.CaptureProvider and schemas.Actuator.
type Manager struct {
	cfg    config.ScreenConfig
	logger *zap.Logger
}

var (
	_ schemas.CaptureProvider = (*Manager)(nil)
	_ schemas.Actuator        = (*Manager)(nil)
)

// NewManager creates the screen boundary and its capture directory.
func NewManager(cfg config.ScreenConfig, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(cfg.CaptureDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory %s: %w", cfg.CaptureDir, err)
	}
	return &Manager{cfg: cfg, logger: logger.Named("screen")}, nil
}

// Displays enumerates the attached displays in OS order.
func (m *Manager) Displays() []schemas.Display {
	n := robotgo.DisplaysNum()
	displays := make([]schemas.Display, 0, n)
	for i := 0; i < n; i++ {
		x, y, w, h := robotgo.GetDisplayBounds(i)
		displays = append(displays, schemas.Display{ID: i, X: x, Y: y, Width: w, Height: h})
	}
	return displays
}

// CaptureDisplay screenshots one display to a uniquely named PNG in the
// capture directory. The returned Capture carries the display record so
// downstream geometry can resolve the pixel scale.
func (m *Manager) CaptureDisplay(ctx context.Context, index int) (schemas.Capture, error) {
	if err := ctx.Err(); err != nil {
		return schemas.Capture{}, err
	}

	displays := m.Displays()
	if index < 0 || index >= len(displays) {
		return schemas.Capture{}, fmt.Errorf("display index %d out of range (have %d)", index, len(displays))
	}
	d := displays[index]

	img, _ := robotgo.CaptureImg(d.X, d.Y, d.Width, d.Height)
	if img == nil {
		return schemas.Capture{}, fmt.Errorf("screen capture of display %d failed", index)
	}

	path := filepath.Join(m.cfg.CaptureDir, fmt.Sprintf("capture_%s.png", uuid.NewString()))
	if err := robotgo.Save(img, path); err != nil {
		return schemas.Capture{}, fmt.Errorf("failed to save capture: %w", err)
	}

	m.logger.Debug("Captured display",
		zap.Int("display", index), zap.String("path", path),
		zap.Int("width", d.Width), zap.Int("height", d.Height),
	)
	return schemas.Capture{Path: path, Display: d}, nil
}

// MoveAndClick moves the pointer smoothly to absolute screen coordinates and
// clicks. Smooth movement matters: some applications ignore clicks from a
// pointer that teleported.
func (m *Manager) MoveAndClick(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("Clicking", zap.Int("x", x), zap.Int("y", y))
	robotgo.MoveSmooth(x, y)
	robotgo.MilliSleep(100)
	robotgo.Click("left", false)
	return nil
}

// TypeText types a string with a per-character delay so the focused
// application's input handling keeps up.
func (m *Manager) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("Typing text", zap.Int("chars", len(text)))
	delay := int(m.cfg.TypeDelay / time.Millisecond)
	robotgo.TypeStrDelay(text, delay)
	return nil
}

// Hotkey presses a key combo given as "modifier+modifier+key", e.g.
// "cmd+shift+4" or "enter".
func (m *Manager) Hotkey(ctx context.Context, combo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	if len(parts) == 0 || parts[0] == "" {
		return fmt.Errorf("empty hotkey combo")
	}

	key := parts[len(parts)-1]
	modifiers := make([]interface{}, 0, len(parts)-1)
	for _, mod := range parts[:len(parts)-1] {
		modifiers = append(modifiers, normalizeModifier(mod))
	}

	m.logger.Info("Pressing hotkey", zap.String("combo", combo))
	if err := robotgo.KeyTap(key, modifiers...); err != nil {
		return fmt.Errorf("hotkey %q failed: %w", combo, err)
	}
	return nil
}

// RunCommand executes a shell command line and returns its combined output.
func (m *Manager) RunCommand(ctx context.Context, command string) (string, error) {
	m.logger.Info("Running command", zap.String("command", command))
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("command failed: %w", err)
	}
	return string(out), nil
}

// normalizeModifier maps common aliases onto robotgo modifier names.
func normalizeModifier(mod string) string {
	switch mod {
	case "cmd", "command", "meta", "super", "win":
		return "cmd"
	case "ctrl", "control":
		return "ctrl"
	case "opt", "option", "alt":
		return "alt"
	case "shift":
		return "shift"
	default:
		return mod
	}
}
