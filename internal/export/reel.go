package export

import (
	"strings"
	"unicode"

	"github.com/cutlens/cutlens/internal/store"
)

// maxReelLen is the CMX 3600 reel column width.
const maxReelLen = 8

// ReelName derives the reel column for an item from its version code,
// falling back to the clip code. Characters outside the CMX alphabet
// become underscores and the result is clamped to eight characters.
// An item with no usable name gets the conventional AX reel.
func ReelName(item *store.CutItem) string {
	name := item.VersionCode
	if name == "" {
		name = item.Code
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		if isReelRune(r) {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		return "AX"
	}
	runes := []rune(cleaned)
	if len(runes) > maxReelLen {
		cleaned = string(runes[:maxReelLen])
	}
	return cleaned
}

func isReelRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
