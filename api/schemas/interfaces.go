// File: api/schemas/interfaces.go
// Canonical collaborator interfaces live here, at the API boundary, so the
// engine packages can depend on them without importing each other.
package schemas

import "context"

// PerceptionOracle is the vision-capable model the engine queries with
// images and text. Replies are unstructured text; every textual convention
// the engine relies on is parsed in internal/vision, nowhere else.
type PerceptionOracle interface {
	// Query sends a text-only prompt.
	Query(ctx context.Context, prompt string) (string, error)
	// QueryImage sends a prompt with a full capture read from disk.
	QueryImage(ctx context.Context, prompt, imagePath string) (string, error)
	// QueryImageBytes sends a prompt with an in-memory encoded image, used
	// for annotated refinement crops that never touch disk.
	QueryImageBytes(ctx context.Context, prompt string, png []byte) (string, error)
}

// AutomationTransport executes structured browser-automation tools. Any
// returned error is a tier failure subject to the dispatcher's retry policy.
type AutomationTransport interface {
	Invoke(ctx context.Context, tool string, args map[string]string) (string, error)
	Close() error
}

// CaptureProvider takes screenshots of a display, returning a
// filesystem-resident image.
type CaptureProvider interface {
	CaptureDisplay(ctx context.Context, displayIndex int) (Capture, error)
}

// Actuator is the OS-level input channel: mouse, keyboard and shell.
type Actuator interface {
	MoveAndClick(ctx context.Context, x, y int) error
	TypeText(ctx context.Context, text string) error
	Hotkey(ctx context.Context, combo string) error
	RunCommand(ctx context.Context, command string) (string, error)
}

// ElementLocator grounds a natural-language element description to a click
// point on a capture.
type ElementLocator interface {
	Locate(ctx context.Context, query ElementQuery) ElementResult
}

// StepExecutor dispatches one plan step and reports the uniform result. The
// display pointer carries the cached pixel scale across steps; nil means no
// display has been observed yet.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, step PlanStep, display *Display) ActionResult
}

// Planner is the surface an outer task orchestrator drives.
type Planner interface {
	CreateInitialPlan(ctx context.Context, goal string) (Plan, error)
	Replan(ctx context.Context, capture Capture, goal, currentState string, stepsDone []string) (Plan, error)
}
