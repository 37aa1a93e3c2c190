package edl

import (
	"fmt"
	"math"
	"strings"

	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/timeline"
)

// Write renders a track as a CMX 3600 EDL.
func Write(track *timeline.Track) string {
	rate := track.FrameRate()
	isDropFrame := math.Abs(rate-29.97) < 0.01 || math.Abs(rate-59.94) < 0.01

	title := track.Name
	if title == "" {
		title = "UNTITLED"
	}
	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	number := 0
	var pending *timeline.Transition
	for i, item := range track.Items {
		switch it := item.(type) {
		case *timeline.Transition:
			pending = it
		case *timeline.Gap:
			// gaps are holes in record time, no event emitted
			pending = nil
		case *timeline.Clip:
			number++
			rec := track.RangeInParent(i)
			lines = append(lines, eventLines(number, it, rec, pending)...)
			pending = nil
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func eventLines(number int, clip *timeline.Clip, rec otime.TimeRange, trans *timeline.Transition) []string {
	reel := clip.Reel
	if reel == "" {
		reel = "AX"
	}
	transCode := "C       "
	if trans != nil {
		transCode = fmt.Sprintf("D    %03d", trans.Duration().ToFrames())
	}
	lines := []string{fmt.Sprintf("%03d  %-8s %-5s %s %s %s %s %s",
		number, reel, "V", transCode,
		clip.SourceRange.Start.ToTimecode(),
		clip.SourceRange.EndExclusive().ToTimecode(),
		rec.Start.ToTimecode(),
		rec.EndExclusive().ToTimecode())}
	if clip.Name != "" && clip.Name != reel {
		lines = append(lines, fmt.Sprintf("* FROM CLIP NAME:  %s", clip.Name))
	}
	for _, comment := range clip.Comments {
		lines = append(lines, fmt.Sprintf("* %s", comment))
	}
	for _, marker := range clip.Markers {
		color := marker.Color
		if color == "" {
			color = "RED"
		}
		lines = append(lines, fmt.Sprintf("* LOC: %s %s %s",
			rec.Start.ToTimecode(), color, marker.Name))
	}
	return lines
}
