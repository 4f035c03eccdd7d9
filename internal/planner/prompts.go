// File: internal/planner/prompts.go
package planner

import (
	"fmt"
	"strings"
)

// capabilitiesPrompt tells the planning model what the engine can actually
// do and how to describe click targets. Bad element descriptions are the
// dominant failure mode, so the description formula is stated aggressively.
const capabilitiesPrompt = `You drive a desktop computer for the user. You can see the screen and plan
short sequences of actions.

## AVAILABLE ACTIONS (priority order, prefer the earliest applicable)
1. TERMINAL  {"command": "..."}            - run a shell command (best for launching apps)
2. HOTKEY    {"keys": "cmd+a"}             - press a key combination
3. NAVIGATE  {"url": "..."}                - open a URL in the managed browser
4. STRUCTURED_CLICK {"selector": "...", "element_description": "..."} - click by CSS selector
5. STRUCTURED_TYPE  {"selector": "...", "text": "..."} - type into an element by CSS selector
6. EXECUTE_SCRIPT   {"code": "..."}        - evaluate JavaScript on the page
7. GET_CONTENT      {}                     - read the page's visible text
8. TYPE      {"text": "..."}               - type through the OS keyboard (focused field)
9. WAIT      {"seconds": "2"}              - pause 1-10 seconds for the UI to settle
10. CLICK    {"element_description": "..."} - pixel click found visually (LAST RESORT)
11. REPLAN   {}                            - stop and ask for a fresh look at the screen

## ELEMENT DESCRIPTIONS (for CLICK)
Use ONLY the key "element_description". Every description must follow the
formula [SHAPE/COLOR] + [CONTENT] + [LOCATION]:
- GOOD: "round green Play button in the bottom player bar"
- GOOD: "search input field with a magnifier icon in the top toolbar"
- BAD: "Play" (no shape, no location)
- BAD: "the first result" (describe what it looks like and where it is)
Never use a URL or a bare application name as a description.

## TYPING INTO FIELDS THAT MAY HOLD TEXT
A field with existing text must be cleared first:
CLICK the field, then HOTKEY "cmd+a", then TYPE. Otherwise the old and new
text concatenate.

## PLANNING RULES
- Plan AT MOST the 2-4 most obvious next steps. Never plan past what you can see.
- Every step needs confidence > 0.9; if the next step is less certain, emit REPLAN instead.
- More REPLAN is better than a wrong plan.
- For browser tasks prefer NAVIGATE / STRUCTURED_CLICK / STRUCTURED_TYPE over pixel actions.`

// initialPlanPrompt asks for the first bounded plan. No screenshot exists
// yet, so the model must not plan past the obvious opening moves.
func initialPlanPrompt(goal string) string {
	return fmt.Sprintf(`%s

## USER TASK
%s

Create a plan for this task. PLAN ONLY THE MOST OBVIOUS FIRST 2-4 STEPS!

Answer in JSON:
{
    "goal": "overall goal of the task",
    "steps": [
        {
            "action": "TERMINAL|HOTKEY|NAVIGATE|STRUCTURED_CLICK|STRUCTURED_TYPE|EXECUTE_SCRIPT|GET_CONTENT|TYPE|WAIT|CLICK|REPLAN",
            "params": {},
            "confidence": 0.95,
            "reasoning": "why this step"
        }
    ],
    "reasoning": "overall logic of the plan"
}

You cannot see the screen yet, so end the plan with REPLAN unless the task is
finished by the planned steps alone.`, capabilitiesPrompt, goal)
}

// replanPrompt asks for a fresh bounded plan given the current screenshot,
// what has been done, and what already failed.
func replanPrompt(goal, currentState string, stepsDone []string, failureLedger string) string {
	done := "Nothing yet."
	if len(stepsDone) > 0 {
		var b strings.Builder
		for i, step := range stepsDone {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		done = strings.TrimRight(b.String(), "\n")
	}

	return fmt.Sprintf(`%s

## ORIGINAL GOAL
%s

## ALREADY DONE
%s

## FAILED ATTEMPTS (DO NOT REPEAT THESE!)
%s

## CURRENT STATE (SEE SCREENSHOT)
%s

Look at the screenshot and create a NEW plan toward the goal. If a previous
attempt failed, choose a DIFFERENT approach, not the same action again.

Answer in JSON:
{
    "steps": [
        {
            "action": "TERMINAL|HOTKEY|NAVIGATE|STRUCTURED_CLICK|STRUCTURED_TYPE|EXECUTE_SCRIPT|GET_CONTENT|TYPE|WAIT|CLICK|REPLAN",
            "params": {},
            "confidence": 0.95,
            "reasoning": "why this step, and why it is not a repeat of a failed attempt"
        }
    ],
    "reasoning": "are we progressing toward the goal or stuck"
}

If the goal is ALREADY ACHIEVED on the screenshot, return an EMPTY steps list: [].`,
		capabilitiesPrompt, goal, done, failureLedger, currentState)
}

// verificationPrompt asks whether the goal is visibly met on a screenshot.
func verificationPrompt(goal string) string {
	return fmt.Sprintf(`Analyze this screenshot and answer one question.

TASK: %s

Is this task completed on the screenshot?

Answer in JSON:
{
    "completed": true/false,
    "explanation": "what is visible on the screen",
    "next_element": "the EXACT UI element to interact with next (when not completed)"
}

Rules for next_element:
- Describe it precisely: "search input field with a magnifier icon in the top toolbar",
  not "the search button".
- Always include a location: "in the top toolbar", "in the left sidebar",
  "in the center of the screen".`, goal)
}
