// File: internal/planner/plan_test.go
package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

func TestParsePlan_FencedJSON(t *testing.T) {
	reply := "Here is the plan:\n```json\n" + `{
  "goal": "open spotify",
  "steps": [
    {"action": "TERMINAL", "params": {"command": "open -a Spotify"}, "confidence": 0.98, "reasoning": "launch the app"},
    {"action": "WAIT", "params": {"seconds": "3"}, "confidence": 0.95},
    {"action": "REPLAN", "params": {}, "confidence": 0.9}
  ],
  "reasoning": "start simple"
}` + "\n```\nGood luck!"

	plan, err := ParsePlan(reply, 4)
	require.NoError(t, err)

	assert.Equal(t, "open spotify", plan.Goal)
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, schemas.ActionTerminal, plan.Steps[0].Action)
	assert.Equal(t, "open -a Spotify", plan.Steps[0].Params["command"])
	assert.Equal(t, schemas.ActionReplan, plan.Steps[2].Action)
}

func TestParsePlan_BareJSON(t *testing.T) {
	plan, err := ParsePlan(`{"goal": "g", "steps": []}`, 4)
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
}

func TestParsePlan_TruncatesToMaxSteps(t *testing.T) {
	reply := `{"goal": "g", "steps": [
		{"action": "WAIT"}, {"action": "WAIT"}, {"action": "WAIT"},
		{"action": "WAIT"}, {"action": "WAIT"}, {"action": "WAIT"}
	]}`

	plan, err := ParsePlan(reply, 4)
	require.NoError(t, err)
	assert.Len(t, plan.Steps, 4)
}

func TestParsePlan_UnknownActionIsTypedError(t *testing.T) {
	_, err := ParsePlan(`{"goal": "g", "steps": [{"action": "TELEPORT"}]}`, 4)
	require.Error(t, err)

	var unknown *schemas.UnknownActionError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "TELEPORT", unknown.Tag)
}

func TestParsePlan_InvalidJSON(t *testing.T) {
	_, err := ParsePlan("the plan is to click around until something happens", 4)
	assert.Error(t, err)
}

func TestParseVerification(t *testing.T) {
	t.Run("structured reply", func(t *testing.T) {
		v := ParseVerification("```json\n" + `{
			"completed": false,
			"explanation": "spotify shows the home view",
			"next_element": "round green Play button in the bottom player bar"
		}` + "\n```")
		assert.False(t, v.Completed)
		assert.Equal(t, "spotify shows the home view", v.Explanation)
		assert.NotEmpty(t, v.NextElement)
	})

	t.Run("non-JSON reply degrades to a keyword scan", func(t *testing.T) {
		v := ParseVerification("Yes, the track is playing, the progress bar is moving.")
		assert.True(t, v.Completed)

		v = ParseVerification("The page is still loading, nothing visible yet.")
		assert.False(t, v.Completed)
		assert.Contains(t, v.Explanation, "still loading")
	})
}
