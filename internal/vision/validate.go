// File: internal/vision/validate.go
package vision

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Under-specified descriptions reliably produce wrong localizations, so they
// are rejected before any model call.

const minDescriptionRunes = 10

// urlMarkers flag descriptions that are page content (a URL or address bar
// text), not the appearance of a UI element.
var urlMarkers = []string{"http://", "https://", "about:", "www.", ".com", ".ru", ".org"}

// bareAppNames are application names the planner sometimes emits instead of
// describing the visible element.
var bareAppNames = map[string]struct{}{
	"spotify": {}, "chrome": {}, "safari": {}, "yandex": {},
	"firefox": {}, "telegram": {}, "zoom": {}, "terminal": {}, "finder": {},
}

// locationMarkers must appear somewhere in a valid description: the oracle
// needs a spatial anchor to disambiguate repeated elements. Both Latin and
// Cyrillic qualifiers are accepted since plans may arrive in either language.
var locationMarkers = []string{
	"top", "bottom", "left", "right", "center", "corner",
	"toolbar", "sidebar", "bar", "menu", "dock", "panel",
	"верх", "низ", "нижн", "лев", "прав", "центр", "угол",
	"док", "панел", "строк", "сторон", "край", "меню",
}

// ValidateDescription checks that an element description is usable as a
// visual-grounding query. It returns nil when valid, or an error naming the
// first failed predicate.
func ValidateDescription(description string) error {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return fmt.Errorf("empty element description")
	}
	if utf8.RuneCountInString(desc) < minDescriptionRunes {
		return fmt.Errorf("description too short (minimum %d characters)", minDescriptionRunes)
	}

	lower := strings.ToLower(desc)
	for _, marker := range urlMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("description looks like a URL, not a UI element: %q", desc)
		}
	}
	if _, ok := bareAppNames[lower]; ok {
		return fmt.Errorf("%q is an application name, not a UI element description", desc)
	}

	for _, marker := range locationMarkers {
		if strings.Contains(lower, marker) {
			return nil
		}
	}
	return fmt.Errorf("description has no location qualifier (add top/bottom/left/right/center)")
}
