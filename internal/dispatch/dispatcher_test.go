// File: internal/dispatch/dispatcher_test.go
package dispatch

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
	"github.com/xkilldash9x/screenpilot/internal/config"
	"github.com/xkilldash9x/screenpilot/internal/geometry"
	"github.com/xkilldash9x/screenpilot/internal/memory"
)

// -- collaborator stubs --

type stubTransport struct {
	err   error
	out   string
	calls int
	tools []string
}

func (s *stubTransport) Invoke(_ context.Context, tool string, _ map[string]string) (string, error) {
	s.calls++
	s.tools = append(s.tools, tool)
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

func (s *stubTransport) Close() error { return nil }

type stubLocator struct {
	result schemas.ElementResult
	calls  int
}

func (s *stubLocator) Locate(_ context.Context, _ schemas.ElementQuery) schemas.ElementResult {
	s.calls++
	return s.result
}

type stubCapture struct {
	capture schemas.Capture
	err     error
}

func (s *stubCapture) CaptureDisplay(_ context.Context, _ int) (schemas.Capture, error) {
	return s.capture, s.err
}

type stubActuator struct {
	clicks   [][2]int
	typed    []string
	hotkeys  []string
	commands []string
	fail     error
}

func (s *stubActuator) MoveAndClick(_ context.Context, x, y int) error {
	s.clicks = append(s.clicks, [2]int{x, y})
	return s.fail
}

func (s *stubActuator) TypeText(_ context.Context, text string) error {
	s.typed = append(s.typed, text)
	return s.fail
}

func (s *stubActuator) Hotkey(_ context.Context, combo string) error {
	s.hotkeys = append(s.hotkeys, combo)
	return s.fail
}

func (s *stubActuator) RunCommand(_ context.Context, command string) (string, error) {
	s.commands = append(s.commands, command)
	return "ok", s.fail
}

// -- harness --

type harness struct {
	transport *stubTransport
	locator   *stubLocator
	actuator  *stubActuator
	tracker   *memory.ActionTracker
	d         *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 300, 200))))
	require.NoError(t, f.Close())

	h := &harness{
		transport: &stubTransport{out: "done"},
		locator:   &stubLocator{},
		actuator:  &stubActuator{},
		tracker:   memory.NewActionTracker(zap.NewNop()),
	}
	capture := &stubCapture{capture: schemas.Capture{
		Path:    path,
		Display: schemas.Display{Width: 300, Height: 200},
	}}

	engCfg := config.EngineConfig{
		TransportRetries:   2,
		RetryBackoff:       time.Millisecond,
		MinClickConfidence: "medium",
	}
	h.d = NewDispatcher(
		h.transport, h.locator, capture, h.actuator,
		geometry.NewResolver(zap.NewNop()), h.tracker,
		engCfg, config.ScreenConfig{}, zap.NewNop(),
	)
	return h
}

const buttonDesc = "round Play button in the bottom toolbar"

func clickStep(desc string) schemas.PlanStep {
	return schemas.PlanStep{
		Action: schemas.ActionClick,
		Params: map[string]string{"element_description": desc},
	}
}

// -- tests --

func TestExecuteStep_PixelClickHappyPath(t *testing.T) {
	h := newHarness(t)
	h.locator.result = schemas.ElementResult{
		Found: true, X: 120, Y: 80, Confidence: schemas.ConfidenceHigh,
	}

	res := h.d.ExecuteStep(context.Background(), clickStep(buttonDesc), nil)

	assert.True(t, res.Success)
	assert.False(t, res.NeedsReplan)
	require.Len(t, h.actuator.clicks, 1)
	// Capture matches the display 1:1, so vision coordinates pass through.
	assert.Equal(t, [2]int{120, 80}, h.actuator.clicks[0])
}

func TestExecuteStep_LowConfidenceClickRequestsReplan(t *testing.T) {
	h := newHarness(t)
	h.locator.result = schemas.ElementResult{
		Found: true, X: 10, Y: 10, Confidence: schemas.ConfidenceLow,
		Explanation: "coarse localization failed",
	}

	res := h.d.ExecuteStep(context.Background(), clickStep(buttonDesc), nil)

	assert.False(t, res.Success)
	assert.True(t, res.NeedsReplan)
	assert.Empty(t, h.actuator.clicks)
	// The failure lands in the ledger so the same click is refused next time.
	assert.True(t, h.tracker.IsRepeating(schemas.ActionClick, map[string]string{"element_description": buttonDesc}))
}

func TestExecuteStep_RepeatedClickShortCircuits(t *testing.T) {
	h := newHarness(t)
	h.tracker.AddFailed(schemas.ActionClick, map[string]string{"element_description": buttonDesc}, "miss")

	res := h.d.ExecuteStep(context.Background(), clickStep(buttonDesc), nil)

	assert.False(t, res.Success)
	assert.True(t, res.NeedsReplan)
	assert.Zero(t, h.locator.calls, "a repeated failure must not reach the locator")
}

func TestExecuteStep_StructuredClickFallsBackToPixelClick(t *testing.T) {
	h := newHarness(t)
	h.transport.err = fmt.Errorf("node not found")
	h.locator.result = schemas.ElementResult{
		Found: true, X: 50, Y: 60, Confidence: schemas.ConfidenceMedium,
	}

	step := schemas.PlanStep{
		Action: schemas.ActionStructuredClick,
		Params: map[string]string{
			"selector":            "#submit",
			"element_description": "blue Submit button in the bottom right corner",
		},
	}
	res := h.d.ExecuteStep(context.Background(), step, nil)

	assert.True(t, res.Success)
	assert.Equal(t, 3, h.transport.calls, "two retries then fallback")
	assert.Equal(t, 1, h.locator.calls)
	require.Len(t, h.actuator.clicks, 1)
}

func TestExecuteStep_StructuredNonClickFailureRequestsReplan(t *testing.T) {
	h := newHarness(t)
	h.transport.err = fmt.Errorf("navigation timeout")

	step := schemas.PlanStep{
		Action: schemas.ActionNavigate,
		Params: map[string]string{"url": "https://example.com"},
	}
	res := h.d.ExecuteStep(context.Background(), step, nil)

	assert.False(t, res.Success)
	assert.True(t, res.NeedsReplan)
	assert.Equal(t, 3, h.transport.calls)
	assert.Zero(t, h.locator.calls, "non-click structured actions have no pixel fallback")
}

func TestExecuteStep_TerminalAndHotkeyAndType(t *testing.T) {
	h := newHarness(t)

	res := h.d.ExecuteStep(context.Background(), schemas.PlanStep{
		Action: schemas.ActionTerminal,
		Params: map[string]string{"command": "open -a Spotify"},
	}, nil)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"open -a Spotify"}, h.actuator.commands)

	res = h.d.ExecuteStep(context.Background(), schemas.PlanStep{
		Action: schemas.ActionHotkey,
		Params: map[string]string{"keys": "cmd+l"},
	}, nil)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"cmd+l"}, h.actuator.hotkeys)

	res = h.d.ExecuteStep(context.Background(), schemas.PlanStep{
		Action: schemas.ActionType_,
		Params: map[string]string{"text": "hello world"},
	}, nil)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"hello world"}, h.actuator.typed)
}

func TestExecuteStep_WaitClampsToMinimum(t *testing.T) {
	h := newHarness(t)

	start := time.Now()
	res := h.d.ExecuteStep(context.Background(), schemas.PlanStep{
		Action: schemas.ActionWait,
		Params: map[string]string{"seconds": "0"},
	}, nil)

	assert.True(t, res.Success)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestExecuteStep_ReplanActionSurfacesDirectly(t *testing.T) {
	h := newHarness(t)

	res := h.d.ExecuteStep(context.Background(), schemas.PlanStep{Action: schemas.ActionReplan}, nil)

	assert.False(t, res.Success)
	assert.True(t, res.NeedsReplan)
}

func TestExecuteStep_MissingParamsRequestReplan(t *testing.T) {
	h := newHarness(t)

	for _, action := range []schemas.ActionType{
		schemas.ActionTerminal, schemas.ActionHotkey, schemas.ActionType_,
	} {
		res := h.d.ExecuteStep(context.Background(), schemas.PlanStep{Action: action}, nil)
		assert.False(t, res.Success, string(action))
		assert.True(t, res.NeedsReplan, string(action))
	}
}
