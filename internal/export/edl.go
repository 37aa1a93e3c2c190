// Package export renders stored cuts back out as CMX 3600 EDLs.
package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cutlens/cutlens/internal/store"
)

// EDL renders cut and its items as a CMX 3600 edit decision list. Items
// are emitted in cut order using the timecodes recorded at import, so a
// round trip through the reader reproduces the same positions.
func EDL(cut *store.Cut, items []*store.CutItem) (string, error) {
	if err := cut.Validate(); err != nil {
		return "", err
	}

	sorted := make([]*store.CutItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CutOrder < sorted[j].CutOrder })

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", cut.Code)
	if isDropFrame(cut.Fps) {
		b.WriteString("FCM: DROP FRAME\n\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n\n")
	}

	for i, item := range sorted {
		if item.TimecodeEditIn == "" || item.TimecodeEditOut == "" {
			return "", fmt.Errorf("cut item %s: missing record timecodes", item.Code)
		}
		fmt.Fprintf(&b, "%03d  %-8s V     C        %s %s %s %s\n",
			i+1, ReelName(item),
			item.TimecodeCutItemIn, item.TimecodeCutItemOut,
			item.TimecodeEditIn, item.TimecodeEditOut)
		fmt.Fprintf(&b, "* FROM CLIP NAME: %s\n", item.Code)
		if item.ShotCode != "" {
			fmt.Fprintf(&b, "* COMMENT: %s\n", item.ShotCode)
		}
	}
	return b.String(), nil
}

func isDropFrame(fps float64) bool {
	return math.Abs(fps-29.97) < 0.01 || math.Abs(fps-59.94) < 0.01
}
