// File: internal/memory/tracker.go
// Package memory holds the in-process failure ledger and progress detector
// consumed by the replanning loop. Both types are owned by a single task
// execution and need no locking.
package memory

import (
	"fmt"
	"hash/fnv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
)

const (
	maxFailureRecords = 10
	repeatWindow      = 3
	historyWindow     = 5

	clickKeyChars  = 50
	typeKeyChars   = 30
	stateHashChars = 200
)

// FailureRecord is one condensed entry in the failure ledger.
type FailureRecord struct {
	Key    string
	Reason string
}

// ActionTracker remembers recently failed actions so the planner can be told
// what not to retry. Records are condensed to an action key before storage;
// the ring never grows past maxFailureRecords, oldest evicted first.
type ActionTracker struct {
	failures []FailureRecord
	logger   *zap.Logger
}

// NewActionTracker creates an empty failure ledger.
func NewActionTracker(logger *zap.Logger) *ActionTracker {
	return &ActionTracker{logger: logger.Named("action_tracker")}
}

// actionKey condenses a step into a comparable ledger key. Only clicks and
// typing carry distinguishing payload; everything else is keyed by the
// action tag alone.
func actionKey(action schemas.ActionType, params map[string]string) string {
	key := string(action)
	switch action {
	case schemas.ActionClick:
		key += fmt.Sprintf(" '%s'", truncate(params["element_description"], clickKeyChars))
	case schemas.ActionType_:
		key += fmt.Sprintf(" '%s'", truncate(params["text"], typeKeyChars))
	}
	return key
}

// AddFailed records one failed action.
func (t *ActionTracker) AddFailed(action schemas.ActionType, params map[string]string, reason string) {
	key := actionKey(action, params)
	t.failures = append(t.failures, FailureRecord{Key: key, Reason: reason})
	if len(t.failures) > maxFailureRecords {
		t.failures = t.failures[len(t.failures)-maxFailureRecords:]
	}
	t.logger.Info("Recorded failed action",
		zap.String("action", key), zap.String("reason", reason))
}

// IsRepeating reports whether the step matches a click that already failed
// within the last repeatWindow records. Only clicks are checked: a repeated
// click on the same description is the classic loop signature, while typing
// the same text twice is often legitimate.
func (t *ActionTracker) IsRepeating(action schemas.ActionType, params map[string]string) bool {
	if action != schemas.ActionClick {
		return false
	}
	key := actionKey(action, params)
	start := max(0, len(t.failures)-repeatWindow)
	for _, rec := range t.failures[start:] {
		if rec.Key == key {
			return true
		}
	}
	return false
}

// HistoryText renders the last historyWindow failures for a replan prompt.
func (t *ActionTracker) HistoryText() string {
	if len(t.failures) == 0 {
		return "No failed attempts yet."
	}
	start := max(0, len(t.failures)-historyWindow)
	lines := make([]string, 0, historyWindow)
	for _, rec := range t.failures[start:] {
		lines = append(lines, fmt.Sprintf("- FAILED: %s (%s)", rec.Key, rec.Reason))
	}
	return strings.Join(lines, "\n")
}

// Len returns the current ledger size.
func (t *ActionTracker) Len() int {
	return len(t.failures)
}

// ProgressTracker detects stuck loops by hashing consecutive scene
// descriptions. The counter is the length of the current run of identical
// observations; a distinct observation starts a new run.
type ProgressTracker struct {
	threshold  int
	prevHash   uint64
	hasPrev    bool
	stuckCount int
	logger     *zap.Logger
}

// NewProgressTracker creates a detector that trips once threshold
// consecutive identical descriptions have been observed.
func NewProgressTracker(threshold int, logger *zap.Logger) *ProgressTracker {
	return &ProgressTracker{threshold: threshold, logger: logger.Named("progress_tracker")}
}

// Update folds one scene description into the detector. It returns false
// exactly on the observation where the run length reaches the threshold.
func (p *ProgressTracker) Update(stateDescription string) bool {
	h := stateHash(stateDescription)

	if p.hasPrev && h == p.prevHash {
		p.stuckCount++
		p.logger.Warn("No visible progress",
			zap.Int("count", p.stuckCount), zap.Int("threshold", p.threshold))
	} else {
		p.stuckCount = 1
	}
	p.prevHash = h
	p.hasPrev = true

	if p.stuckCount >= p.threshold {
		p.logger.Error("Stuck: repeated identical state",
			zap.Int("threshold", p.threshold))
		return false
	}
	return true
}

// StuckCount returns the current run length of identical observations.
func (p *ProgressTracker) StuckCount() int {
	return p.stuckCount
}

// stateHash digests a truncated, case-folded description. Truncation keeps
// trailing noise (timestamps, counters) from masking a genuinely unchanged
// scene.
func stateHash(description string) uint64 {
	folded := strings.ToLower(description)
	if len(folded) > stateHashChars {
		folded = folded[:stateHashChars]
	}
	h := fnv.New64a()
	h.Write([]byte(folded))
	return h.Sum64()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
