// File: api/schemas/schemas.go
package schemas

// ActionType enumerates every action the planner may emit. The dispatcher's
// tier logic is a total switch over this set; tags outside it are rejected
// when a plan is parsed, never deep inside dispatch.
type ActionType string

const (
	// -- Direct OS-level actions (tier 1) --
	ActionTerminal ActionType = "TERMINAL" // Runs a shell command (app launch, system command).
	ActionHotkey   ActionType = "HOTKEY"   // Presses a key combination, e.g. "cmd+a".
	ActionType_    ActionType = "TYPE"     // Types text through the OS keyboard.
	ActionWait     ActionType = "WAIT"     // Pauses for a bounded number of seconds.

	// -- Structured browser automation (tier 3) --
	ActionNavigate        ActionType = "NAVIGATE"         // Opens a URL in the attached browser.
	ActionStructuredClick ActionType = "STRUCTURED_CLICK" // Clicks an element by CSS selector.
	ActionExecuteScript   ActionType = "EXECUTE_SCRIPT"   // Evaluates JavaScript on the page.
	ActionStructuredType  ActionType = "STRUCTURED_TYPE"  // Types into an element by CSS selector.
	ActionGetContent      ActionType = "GET_CONTENT"      // Reads the page's visible content.
	ActionScreenshot      ActionType = "SCREENSHOT"       // Captures the page through the browser.

	// -- Visual grounding (tier 4, last resort) --
	ActionClick ActionType = "CLICK" // Pixel-level click located by the vision oracle.

	// -- Control flow --
	ActionReplan ActionType = "REPLAN" // The planner wants a fresh look at the screen.
)

// knownActions is the closed set used by ParseAction.
var knownActions = map[ActionType]struct{}{
	ActionTerminal: {}, ActionHotkey: {}, ActionType_: {}, ActionWait: {},
	ActionNavigate: {}, ActionStructuredClick: {}, ActionExecuteScript: {},
	ActionStructuredType: {}, ActionGetContent: {}, ActionScreenshot: {},
	ActionClick: {}, ActionReplan: {},
}

// ParseAction maps a raw tag from the planning model onto the closed action
// set. Unknown tags come back as a typed error at the parse boundary.
func ParseAction(raw string) (ActionType, error) {
	a := ActionType(raw)
	if _, ok := knownActions[a]; !ok {
		return "", &UnknownActionError{Tag: raw}
	}
	return a, nil
}

// UnknownActionError reports a planner-emitted action tag outside the
// supported vocabulary.
type UnknownActionError struct {
	Tag string
}

func (e *UnknownActionError) Error() string {
	return "unknown action tag: " + e.Tag
}

// IsStructured reports whether the action runs through the automation
// transport (tier 3).
func (a ActionType) IsStructured() bool {
	switch a {
	case ActionNavigate, ActionStructuredClick, ActionExecuteScript,
		ActionStructuredType, ActionGetContent, ActionScreenshot:
		return true
	}
	return false
}

// PlanStep is one concrete step decided by the planning model, including its
// confidence and the reasoning that led to it.
type PlanStep struct {
	Action     ActionType        `json:"action"`
	Params     map[string]string `json:"params,omitempty"`
	Confidence float64           `json:"confidence"`
	Reasoning  string            `json:"reasoning,omitempty"`
}

// Plan is a bounded, ordered sequence of steps toward a goal. Plans are
// truncated to the configured maximum step count at creation time.
type Plan struct {
	Goal      string     `json:"goal"`
	Steps     []PlanStep `json:"steps"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// ActionResult is the uniform return contract of every dispatch path.
// Expected failure modes travel here as data, not as errors.
type ActionResult struct {
	Success     bool   `json:"success"`
	Result      string `json:"result"`
	NeedsReplan bool   `json:"needs_replan"`
	Data        string `json:"data,omitempty"`
}

// ConfidenceTier is the coarse calibration of a located point. High is only
// produced when the refinement loop terminated by explicit confirmation.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// AtLeast reports whether the tier meets a minimum acceptance tier.
func (c ConfidenceTier) AtLeast(min ConfidenceTier) bool {
	rank := map[ConfidenceTier]int{ConfidenceLow: 0, ConfidenceMedium: 1, ConfidenceHigh: 2}
	return rank[c] >= rank[min]
}

// Display describes one connected monitor in logical coordinates. Scale is
// the physical/logical pixel ratio, resolved lazily from a capture and
// cached; zero means unresolved.
type Display struct {
	ID     int     `json:"id"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale,omitempty"`
}

// Capture references a stored screen image and the display it was taken
// from. Captures are short-lived observation artifacts.
type Capture struct {
	Path    string  `json:"path"`
	Display Display `json:"display"`
}

// ElementQuery asks the locator for the on-screen position of an element
// described in natural language.
type ElementQuery struct {
	Description string  `json:"description"`
	Capture     Capture `json:"capture"`
}

// ElementResult is the locator's best-effort answer: a click point in
// capture-pixel coordinates plus how much it should be trusted.
type ElementResult struct {
	Found       bool           `json:"found"`
	X           int            `json:"x"`
	Y           int            `json:"y"`
	Confidence  ConfidenceTier `json:"confidence"`
	Explanation string         `json:"explanation,omitempty"`
}

// TaskState labels the planning loop's position in its state machine.
type TaskState string

const (
	StatePlanning   TaskState = "PLANNING"
	StateExecuting  TaskState = "EXECUTING"
	StateVerifying  TaskState = "VERIFYING"
	StateReplanning TaskState = "REPLANNING"
	StateDone       TaskState = "DONE"
	StateStuck      TaskState = "STUCK"
	StateBudget     TaskState = "BUDGET_EXHAUSTED"
	StateFailed     TaskState = "FAILED"
)

// TaskResult is the terminal outcome of one task execution.
type TaskResult struct {
	State   TaskState `json:"state"`
	Summary string    `json:"summary"`
	Replans int       `json:"replans"`
}
