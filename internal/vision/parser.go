// File: internal/vision/parser.go
package vision

import (
	"regexp"
	"strconv"
)

// ReplyKind tags the outcome of parsing an oracle reply. Every textual
// convention the engine expects from the perception oracle is matched in
// this file and nowhere else.
type ReplyKind int

const (
	// ReplyFailed means the reply matched none of the documented formats.
	ReplyFailed ReplyKind = iota
	// ReplyCoordinates carries an absolute point from coarse localization.
	ReplyCoordinates
	// ReplyCorrect confirms the marked point lands inside the target.
	ReplyCorrect
	// ReplyOffset carries a signed correction read off the rulers.
	ReplyOffset
	// ReplyNotVisible means the target is outside the cropped region.
	ReplyNotVisible
)

// ParsedReply is the tagged result of parsing one oracle reply.
type ParsedReply struct {
	Kind ReplyKind
	X    int
	Y    int
	DX   int
	DY   int
}

// Documented reply conventions. The prompts in locator.go state these
// formats verbatim; keep the two in sync.
var (
	coordinatesRe = regexp.MustCompile(`(?i)Coordinates:\s*(\d+)[,\s]+(\d+)`)
	correctRe     = regexp.MustCompile(`(?i)Point:\s*CORRECT`)
	incorrectRe   = regexp.MustCompile(`(?i)Point:\s*INCORRECT`)
	notVisibleRe  = regexp.MustCompile(`(?i)NOT\s+VISIBLE`)
	offsetXRe     = regexp.MustCompile(`(?i)Offset\s*X:\s*([+-]?\d+)`)
	offsetYRe     = regexp.MustCompile(`(?i)Offset\s*Y:\s*([+-]?\d+)`)
)

// ParseCoordinates extracts an absolute "Coordinates: X Y" pair.
func ParseCoordinates(reply string) ParsedReply {
	m := coordinatesRe.FindStringSubmatch(reply)
	if m == nil {
		return ParsedReply{Kind: ReplyFailed}
	}
	x, errX := strconv.Atoi(m[1])
	y, errY := strconv.Atoi(m[2])
	if errX != nil || errY != nil {
		return ParsedReply{Kind: ReplyFailed}
	}
	return ParsedReply{Kind: ReplyCoordinates, X: x, Y: y}
}

// ParseVerdict classifies a refinement reply: not visible, correct, or
// incorrect with a signed offset. An incorrect verdict without parseable
// offsets degrades to ReplyFailed so the caller stops refining.
func ParseVerdict(reply string) ParsedReply {
	if notVisibleRe.MatchString(reply) {
		return ParsedReply{Kind: ReplyNotVisible}
	}
	if incorrectRe.MatchString(reply) {
		mx := offsetXRe.FindStringSubmatch(reply)
		my := offsetYRe.FindStringSubmatch(reply)
		if mx == nil || my == nil {
			return ParsedReply{Kind: ReplyFailed}
		}
		dx, errX := strconv.Atoi(mx[1])
		dy, errY := strconv.Atoi(my[1])
		if errX != nil || errY != nil {
			return ParsedReply{Kind: ReplyFailed}
		}
		return ParsedReply{Kind: ReplyOffset, DX: dx, DY: dy}
	}
	if correctRe.MatchString(reply) {
		return ParsedReply{Kind: ReplyCorrect}
	}
	return ParsedReply{Kind: ReplyFailed}
}
