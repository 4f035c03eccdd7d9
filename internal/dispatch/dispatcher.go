// File: internal/dispatch/dispatcher.go
// Package dispatch executes single plan steps through a strict priority
// order: OS-level commands first, structured automation second, pixel-level
// interaction last. Expected failures are reported as data on the
// ActionResult so the planning loop stays free of error-handling branches.
package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
	"github.com/xkilldash9x/screenpilot/internal/config"
	"github.com/xkilldash9x/screenpilot/internal/geometry"
	"github.com/xkilldash9x/screenpilot/internal/memory"
	"github.com/xkilldash9x/screenpilot/internal/vision"
)

const (
	minWait = 1 * time.Second
	maxWait = 10 * time.Second
)

// Dispatcher implements schemas.StepExecutor.
type Dispatcher struct {
	transport schemas.AutomationTransport
	locator   schemas.ElementLocator
	capture   schemas.CaptureProvider
	actuator  schemas.Actuator
	geo       *geometry.Resolver
	tracker   *memory.ActionTracker
	retry     RetryPolicy
	minClick  schemas.ConfidenceTier
	postWait  time.Duration
	display   int
	logger    *zap.Logger
}

var _ schemas.StepExecutor = (*Dispatcher)(nil)

// NewDispatcher wires the dispatcher's collaborators.
func NewDispatcher(
	transport schemas.AutomationTransport,
	locator schemas.ElementLocator,
	capture schemas.CaptureProvider,
	actuator schemas.Actuator,
	geo *geometry.Resolver,
	tracker *memory.ActionTracker,
	engCfg config.EngineConfig,
	screenCfg config.ScreenConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		locator:   locator,
		capture:   capture,
		actuator:  actuator,
		geo:       geo,
		tracker:   tracker,
		retry:     RetryPolicy{Retries: engCfg.TransportRetries, Backoff: engCfg.RetryBackoff},
		minClick:  engCfg.MinConfidence(),
		postWait:  screenCfg.PostActionWait,
		display:   screenCfg.DisplayIndex,
		logger:    logger.Named("dispatcher"),
	}
}

// ExecuteStep runs one plan step and reports the outcome. The switch is
// total over the known action set; plan parsing already rejected unknown
// tags.
func (d *Dispatcher) ExecuteStep(ctx context.Context, step schemas.PlanStep, display *schemas.Display) schemas.ActionResult {
	d.logger.Info("Executing step",
		zap.String("action", string(step.Action)),
		zap.String("reasoning", step.Reasoning),
	)

	// A click that already failed recently is the classic loop signature;
	// short-circuit straight to replanning instead of failing it again.
	if d.tracker.IsRepeating(step.Action, step.Params) {
		d.logger.Warn("Refusing to repeat a recently failed action",
			zap.String("action", string(step.Action)))
		return schemas.ActionResult{
			Result:      "this action already failed recently, a different approach is needed",
			NeedsReplan: true,
		}
	}

	var res schemas.ActionResult
	switch step.Action {
	case schemas.ActionTerminal:
		res = d.runTerminal(ctx, step)
	case schemas.ActionHotkey:
		res = d.runHotkey(ctx, step)
	case schemas.ActionType_:
		res = d.runType(ctx, step)
	case schemas.ActionWait:
		res = d.runWait(ctx, step)
	case schemas.ActionClick:
		res = d.runPixelClick(ctx, step, display, step.Params["element_description"])
	case schemas.ActionNavigate, schemas.ActionStructuredClick, schemas.ActionExecuteScript,
		schemas.ActionStructuredType, schemas.ActionGetContent, schemas.ActionScreenshot:
		res = d.runStructured(ctx, step, display)
	case schemas.ActionReplan:
		res = schemas.ActionResult{Result: "plan requested verification", NeedsReplan: true}
	default:
		res = schemas.ActionResult{
			Result:      fmt.Sprintf("unsupported action %q", step.Action),
			NeedsReplan: true,
		}
	}

	if !res.Success && res.NeedsReplan && step.Action != schemas.ActionReplan {
		d.tracker.AddFailed(step.Action, step.Params, res.Result)
	}
	if res.Success && d.postWait > 0 {
		// Give the UI time to settle before the next observation.
		select {
		case <-time.After(d.postWait):
		case <-ctx.Done():
		}
	}
	return res
}

// runTerminal launches an OS command, the most reliable tier.
func (d *Dispatcher) runTerminal(ctx context.Context, step schemas.PlanStep) schemas.ActionResult {
	command := step.Params["command"]
	if command == "" {
		return schemas.ActionResult{Result: "TERMINAL step without a command", NeedsReplan: true}
	}
	out, err := d.actuator.RunCommand(ctx, command)
	if err != nil {
		return schemas.ActionResult{
			Result:      fmt.Sprintf("command failed: %v (output: %s)", err, out),
			NeedsReplan: true,
		}
	}
	return schemas.ActionResult{Success: true, Result: "command completed", Data: out}
}

func (d *Dispatcher) runHotkey(ctx context.Context, step schemas.PlanStep) schemas.ActionResult {
	combo := step.Params["keys"]
	if combo == "" {
		return schemas.ActionResult{Result: "HOTKEY step without keys", NeedsReplan: true}
	}
	if err := d.actuator.Hotkey(ctx, combo); err != nil {
		return schemas.ActionResult{Result: err.Error(), NeedsReplan: true}
	}
	return schemas.ActionResult{Success: true, Result: fmt.Sprintf("pressed %s", combo)}
}

func (d *Dispatcher) runType(ctx context.Context, step schemas.PlanStep) schemas.ActionResult {
	text := step.Params["text"]
	if text == "" {
		return schemas.ActionResult{Result: "TYPE step without text", NeedsReplan: true}
	}
	if err := d.actuator.TypeText(ctx, text); err != nil {
		return schemas.ActionResult{Result: err.Error(), NeedsReplan: true}
	}
	return schemas.ActionResult{Success: true, Result: "text typed"}
}

// runWait sleeps a clamped duration. Plans sometimes ask for absurd waits;
// the clamp keeps a single step from stalling the whole task.
func (d *Dispatcher) runWait(ctx context.Context, step schemas.PlanStep) schemas.ActionResult {
	seconds, err := strconv.Atoi(step.Params["seconds"])
	if err != nil {
		seconds = 2
	}
	wait := time.Duration(seconds) * time.Second
	if wait < minWait {
		wait = minWait
	}
	if wait > maxWait {
		wait = maxWait
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return schemas.ActionResult{Result: "wait interrupted", NeedsReplan: true}
	}
	return schemas.ActionResult{Success: true, Result: fmt.Sprintf("waited %s", wait)}
}

// runStructured issues a tier-3 automation call with bounded retries. A
// failed structured click falls back to a pixel click; everything else
// surfaces as a replan request.
func (d *Dispatcher) runStructured(ctx context.Context, step schemas.PlanStep, display *schemas.Display) schemas.ActionResult {
	var output string
	err := d.retry.Do(ctx, func() error {
		var invokeErr error
		output, invokeErr = d.transport.Invoke(ctx, string(step.Action), step.Params)
		return invokeErr
	})
	if err == nil {
		return schemas.ActionResult{Success: true, Result: "structured action completed", Data: output}
	}

	d.logger.Warn("Structured action failed after retries",
		zap.String("action", string(step.Action)), zap.Error(err))

	if step.Action == schemas.ActionStructuredClick {
		// Clicks have a pixel-level fallback; re-issue through the locator.
		desc := step.Params["element_description"]
		if desc == "" {
			desc = fmt.Sprintf("interactive element matching selector %q near the center of the page", step.Params["selector"])
		}
		d.logger.Info("Falling back to pixel-level click", zap.String("description", desc))
		return d.runPixelClick(ctx, step, display, desc)
	}

	return schemas.ActionResult{Result: err.Error(), NeedsReplan: true}
}

// runPixelClick is the last-resort tier: capture, locate, correct, click.
func (d *Dispatcher) runPixelClick(ctx context.Context, step schemas.PlanStep, display *schemas.Display, description string) schemas.ActionResult {
	if err := vision.ValidateDescription(description); err != nil {
		return schemas.ActionResult{
			Result:      fmt.Sprintf("unusable element description: %v", err),
			NeedsReplan: true,
		}
	}

	capture, err := d.capture.CaptureDisplay(ctx, d.display)
	if err != nil {
		return schemas.ActionResult{Result: fmt.Sprintf("capture failed: %v", err), NeedsReplan: true}
	}
	if display != nil {
		capture.Display = *display
	}

	found := d.locator.Locate(ctx, schemas.ElementQuery{
		Description: description,
		Capture:     capture,
	})
	if !found.Found || !found.Confidence.AtLeast(d.minClick) {
		return schemas.ActionResult{
			Result: fmt.Sprintf("element not located with sufficient confidence (%s): %s",
				found.Confidence, found.Explanation),
			NeedsReplan: true,
		}
	}

	target := capture.Display
	absX, absY, scale := d.geo.CorrectClick(found.X, found.Y, &target, capture.Path)
	if display != nil {
		display.Scale = target.Scale
	}
	d.logger.Info("Resolved click point",
		zap.Int("vision_x", found.X), zap.Int("vision_y", found.Y),
		zap.Int("abs_x", absX), zap.Int("abs_y", absY),
		zap.Float64("scale", scale),
		zap.String("confidence", string(found.Confidence)),
	)

	if err := d.actuator.MoveAndClick(ctx, absX, absY); err != nil {
		return schemas.ActionResult{Result: fmt.Sprintf("click failed: %v", err), NeedsReplan: true}
	}
	return schemas.ActionResult{
		Success: true,
		Result:  fmt.Sprintf("clicked %q at (%d, %d)", description, absX, absY),
	}
}
