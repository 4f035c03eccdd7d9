// File: internal/planner/plan.go
package planner

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rawPlan mirrors the JSON shape the planning model is instructed to emit.
// Action tags arrive as free-form strings and are validated into the closed
// enum here, at the parse boundary.
type rawPlan struct {
	Goal      string    `json:"goal"`
	Steps     []rawStep `json:"steps"`
	Reasoning string    `json:"reasoning"`
}

type rawStep struct {
	Action     string            `json:"action"`
	Params     map[string]string `json:"params"`
	Confidence float64           `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
}

// Verification is the oracle's answer to "is the goal already met?".
type Verification struct {
	Completed   bool   `json:"completed"`
	Explanation string `json:"explanation"`
	NextElement string `json:"next_element"`
}

// extractJSON strips a fenced code block if the model wrapped its reply in
// one. Models do this even when told not to.
func extractJSON(text string) string {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		if inner, _, ok := strings.Cut(after, "```"); ok {
			return strings.TrimSpace(inner)
		}
	}
	if _, after, ok := strings.Cut(text, "```"); ok {
		if inner, _, ok := strings.Cut(after, "```"); ok {
			return strings.TrimSpace(inner)
		}
	}
	return strings.TrimSpace(text)
}

// ParsePlan decodes a planning reply into a bounded Plan. Unknown action
// tags are a typed error; over-long plans are truncated, not rejected.
func ParsePlan(text string, maxSteps int) (schemas.Plan, error) {
	var raw rawPlan
	if err := json.UnmarshalFromString(extractJSON(text), &raw); err != nil {
		return schemas.Plan{}, fmt.Errorf("plan reply is not valid JSON: %w", err)
	}

	if len(raw.Steps) > maxSteps {
		raw.Steps = raw.Steps[:maxSteps]
	}

	plan := schemas.Plan{
		Goal:      raw.Goal,
		Reasoning: raw.Reasoning,
		Steps:     make([]schemas.PlanStep, 0, len(raw.Steps)),
	}
	for i, rs := range raw.Steps {
		action, err := schemas.ParseAction(rs.Action)
		if err != nil {
			return schemas.Plan{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		plan.Steps = append(plan.Steps, schemas.PlanStep{
			Action:     action,
			Params:     rs.Params,
			Confidence: rs.Confidence,
			Reasoning:  rs.Reasoning,
		})
	}
	return plan, nil
}

// ParseVerification decodes a verification reply. A non-JSON reply is not an
// error: it degrades to a keyword scan, and an unreadable reply counts as
// "not completed" with the raw text as the explanation.
func ParseVerification(text string) Verification {
	var v Verification
	if err := json.UnmarshalFromString(extractJSON(text), &v); err == nil {
		return v
	}

	lower := strings.ToLower(text)
	completed := strings.Contains(lower, `"completed": true`) ||
		strings.HasPrefix(strings.TrimSpace(lower), "yes")
	return Verification{
		Completed:   completed,
		Explanation: strings.TrimSpace(text),
	}
}
