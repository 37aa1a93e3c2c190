package cutdiff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cutlens/cutlens/internal/timeline"
)

// pureCommentPattern matches EDL comment payloads that look like a shot
// name, with or without a leading COMMENT: tag.
var pureCommentPattern = regexp.MustCompile(`^(\s*COMMENT\s*:)?\s*([a-z0-9A-Z_-]+)$`)

// computeShotName finds the shot a clip belongs to. Sources are tried
// in order of preference: the recorded cut item's shot link, the first
// marker, EDL comments (COMMENT: lines win over bare ones) and, when
// enabled, the clip name itself (optionally filtered through a regexp).
func computeShotName(clip *timeline.Clip, settings *Settings) string {
	if clip.Recorded != nil && clip.Recorded.ShotCode != "" {
		return clip.Recorded.ShotCode
	}
	if len(clip.Markers) > 0 {
		if fields := strings.Fields(clip.Markers[0].Name); len(fields) > 0 {
			return fields[0]
		}
	}
	if name := shotNameFromComments(clip.Comments); name != "" {
		return name
	}
	if !settings.UseClipNamesForShotNames {
		return ""
	}
	if settings.ClipNameShotRegexp == nil {
		return clip.Name
	}
	return applyShotRegexp(settings.ClipNameShotRegexp, clip.Name)
}

func shotNameFromComments(comments []string) string {
	var match string
	for _, comment := range comments {
		m := pureCommentPattern.FindStringSubmatch(comment)
		if m == nil {
			continue
		}
		if m[1] != "" {
			// COMMENT: lines take priority over bare comments.
			return m[2]
		}
		if match == "" {
			match = m[2]
		}
	}
	return match
}

func applyShotRegexp(re *regexp.Regexp, name string) string {
	m := re.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	if idx := re.SubexpIndex("shot_name"); idx > 0 && idx < len(m) {
		return m[idx]
	}
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}

// uniqueNames assigns every clip a name unique within its track by
// suffixing duplicates with _001, _002, ... in track order.
func uniqueNames(clips []*Clip) {
	seen := make(map[string]int)
	for _, clip := range clips {
		n := seen[clip.Name]
		seen[clip.Name] = n + 1
		if n == 0 {
			clip.UniqueName = clip.Name
		} else {
			clip.UniqueName = fmt.Sprintf("%s_%03d", clip.Name, n)
		}
	}
}
