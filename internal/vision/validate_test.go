// File: internal/vision/validate_test.go
package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDescription(t *testing.T) {
	t.Run("accepts anchored descriptions", func(t *testing.T) {
		valid := []string{
			"round Play button in the bottom toolbar",
			"search field in the top right corner",
			"gear icon in the left sidebar",
			"круглая кнопка Play в нижней панели",
		}
		for _, desc := range valid {
			assert.NoError(t, ValidateDescription(desc), desc)
		}
	})

	t.Run("rejects unusable descriptions", func(t *testing.T) {
		invalid := []string{
			"",
			"   ",
			"Chrome",                      // bare app name, also too short
			"spotify",                     // bare app name
			"about:blank",                 // URL-like
			"open https://example.com now",// URL-like
			"the big blue submit button",  // no location qualifier
		}
		for _, desc := range invalid {
			assert.Error(t, ValidateDescription(desc), desc)
		}
	})
}
