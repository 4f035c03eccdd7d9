// File: internal/memory/tracker_test.go
package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

func clickParams(desc string) map[string]string {
	return map[string]string{"element_description": desc}
}

func TestActionTracker_RepeatingClickDetection(t *testing.T) {
	tr := NewActionTracker(zap.NewNop())

	tr.AddFailed(schemas.ActionClick, clickParams("round Play button in the bottom toolbar"), "low confidence")

	assert.True(t, tr.IsRepeating(schemas.ActionClick, clickParams("round Play button in the bottom toolbar")))
	assert.False(t, tr.IsRepeating(schemas.ActionClick, clickParams("gear icon in the left sidebar")))
	// Typing the same text twice is legitimate, never flagged.
	assert.False(t, tr.IsRepeating(schemas.ActionType_, map[string]string{"text": "hello"}))
}

func TestActionTracker_RepeatWindowIsBounded(t *testing.T) {
	tr := NewActionTracker(zap.NewNop())

	tr.AddFailed(schemas.ActionClick, clickParams("old button in the top bar"), "miss")
	for i := 0; i < 3; i++ {
		tr.AddFailed(schemas.ActionClick, clickParams(fmt.Sprintf("filler %d in the bottom bar", i)), "miss")
	}

	// The old failure has scrolled out of the 3-record window.
	assert.False(t, tr.IsRepeating(schemas.ActionClick, clickParams("old button in the top bar")))
}

func TestActionTracker_LedgerEvictsOldest(t *testing.T) {
	tr := NewActionTracker(zap.NewNop())

	for i := 0; i < 15; i++ {
		tr.AddFailed(schemas.ActionClick, clickParams(fmt.Sprintf("button %d", i)), "miss")
	}
	assert.Equal(t, 10, tr.Len())
}

func TestActionTracker_KeyTruncation(t *testing.T) {
	tr := NewActionTracker(zap.NewNop())

	long := strings.Repeat("a", 80) + " tail"
	tr.AddFailed(schemas.ActionClick, clickParams(long), "miss")

	// Anything sharing the first 50 characters collides on purpose.
	other := strings.Repeat("a", 80) + " different tail"
	assert.True(t, tr.IsRepeating(schemas.ActionClick, clickParams(other)))
}

func TestActionTracker_HistoryText(t *testing.T) {
	tr := NewActionTracker(zap.NewNop())
	assert.Equal(t, "No failed attempts yet.", tr.HistoryText())

	for i := 0; i < 7; i++ {
		tr.AddFailed(schemas.ActionNavigate, nil, fmt.Sprintf("timeout %d", i))
	}

	text := tr.HistoryText()
	assert.Equal(t, 5, strings.Count(text, "- FAILED:"))
	assert.Contains(t, text, "timeout 6")
	assert.NotContains(t, text, "timeout 1")
}

func TestProgressTracker_TripsOnThirdIdenticalObservation(t *testing.T) {
	p := NewProgressTracker(3, zap.NewNop())

	assert.True(t, p.Update("login page with an empty email field"))
	assert.True(t, p.Update("login page with an empty email field"))
	assert.False(t, p.Update("login page with an empty email field"), "third identical observation trips the detector")
}

func TestProgressTracker_DistinctObservationResetsRun(t *testing.T) {
	p := NewProgressTracker(3, zap.NewNop())

	assert.True(t, p.Update("login page"))
	assert.True(t, p.Update("login page"))
	assert.True(t, p.Update("dashboard page"))
	assert.Equal(t, 1, p.StuckCount())

	assert.True(t, p.Update("dashboard page"))
	assert.False(t, p.Update("dashboard page"))
}

func TestProgressTracker_HashIsCaseFoldedAndTruncated(t *testing.T) {
	p := NewProgressTracker(3, zap.NewNop())

	base := strings.Repeat("x", 200)
	assert.True(t, p.Update(base+" trailing noise 1"))
	assert.True(t, p.Update(strings.ToUpper(base)+" trailing noise 2"))
	assert.False(t, p.Update(base+" trailing noise 3"))
}
