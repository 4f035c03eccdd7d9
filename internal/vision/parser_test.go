// File: internal/vision/parser_test.go
package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCoordinates(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
		want  ParsedReply
	}{
		{
			name:  "plain pair",
			reply: "Coordinates: 520 1650\nDescription: search button in the top toolbar",
			want:  ParsedReply{Kind: ReplyCoordinates, X: 520, Y: 1650},
		},
		{
			name:  "comma separated",
			reply: "Sure. Coordinates: 100, 200",
			want:  ParsedReply{Kind: ReplyCoordinates, X: 100, Y: 200},
		},
		{
			name:  "case insensitive with extra whitespace",
			reply: "coordinates:   42   7",
			want:  ParsedReply{Kind: ReplyCoordinates, X: 42, Y: 7},
		},
		{
			name:  "free-form prose without the tag",
			reply: "The button is near the top right, roughly at 520 by 1650.",
			want:  ParsedReply{Kind: ReplyFailed},
		},
		{
			name:  "empty reply",
			reply: "",
			want:  ParsedReply{Kind: ReplyFailed},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseCoordinates(tc.reply))
		})
	}
}

func TestParseVerdict(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
		want  ParsedReply
	}{
		{
			name:  "correct",
			reply: "Point: CORRECT",
			want:  ParsedReply{Kind: ReplyCorrect},
		},
		{
			name:  "correct lowercase",
			reply: "point: correct",
			want:  ParsedReply{Kind: ReplyCorrect},
		},
		{
			name:  "incorrect with signed offsets",
			reply: "Point: INCORRECT\nOffset X: +15\nOffset Y: -40",
			want:  ParsedReply{Kind: ReplyOffset, DX: 15, DY: -40},
		},
		{
			name:  "incorrect with unsigned offsets",
			reply: "Point: INCORRECT\nOffset X: 5\nOffset Y: 5",
			want:  ParsedReply{Kind: ReplyOffset, DX: 5, DY: 5},
		},
		{
			name:  "incorrect without offsets degrades to failed",
			reply: "Point: INCORRECT\nThe element is somewhere to the left.",
			want:  ParsedReply{Kind: ReplyFailed},
		},
		{
			name:  "incorrect with only one offset degrades to failed",
			reply: "Point: INCORRECT\nOffset X: +15",
			want:  ParsedReply{Kind: ReplyFailed},
		},
		{
			name:  "not visible",
			reply: "Element NOT VISIBLE in this fragment",
			want:  ParsedReply{Kind: ReplyNotVisible},
		},
		{
			name:  "not visible wins over a stray correct",
			reply: "Element NOT VISIBLE in this fragment. Point: CORRECT would be wrong.",
			want:  ParsedReply{Kind: ReplyNotVisible},
		},
		{
			name:  "unparseable prose",
			reply: "I think the click would probably work.",
			want:  ParsedReply{Kind: ReplyFailed},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseVerdict(tc.reply))
		})
	}
}
