// File: internal/screen/screen_test.go
package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeModifier(t *testing.T) {
	aliases := map[string]string{
		"cmd": "cmd", "command": "cmd", "meta": "cmd", "super": "cmd", "win": "cmd",
		"ctrl": "ctrl", "control": "ctrl",
		"alt": "alt", "opt": "alt", "option": "alt",
		"shift": "shift",
		"fn":    "fn", // unknown names pass through
	}
	for in, want := range aliases {
		assert.Equal(t, want, normalizeModifier(in), in)
	}
}
