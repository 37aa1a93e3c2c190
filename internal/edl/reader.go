// Package edl reads and writes CMX 3600 edit decision lists.
package edl

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/timeline"
)

// eventPattern matches a standard CMX 3600 event line:
//
//	001  reel_1   V     C        01:00:01:00 01:00:10:00 01:00:00:00 01:00:08:23
var eventPattern = regexp.MustCompile(
	`^(\d+)\s+(\S+)\s+(\S+)\s+(C|D|W\d+)\s*(\d+)?\s+` +
		`(\d{2}:\d{2}:\d{2}[:;]\d{2})\s+(\d{2}:\d{2}:\d{2}[:;]\d{2})\s+` +
		`(\d{2}:\d{2}:\d{2}[:;]\d{2})\s+(\d{2}:\d{2}:\d{2}[:;]\d{2})\s*$`)

// motionPattern matches an M2 retime line: M2  reel  47.5  01:00:01:00
var motionPattern = regexp.MustCompile(`^M2\s+(\S+)\s+(-?\d+(?:\.\d+)?)\s+\S+\s*$`)

// locPattern matches an Avid locator line: * LOC: 01:00:02:19 RED shot_001
var locPattern = regexp.MustCompile(`^\*\s*LOC:\s+\S+\s+(\S+)\s+(.*)$`)

type event struct {
	number     int
	reel       string
	transition string // "C", "D" or "Wxxx"
	transDur   int    // frames, dissolves and wipes only
	sourceIn   otime.RationalTime
	sourceOut  otime.RationalTime
	recordIn   otime.RationalTime
	recordOut  otime.RationalTime
	clipName   string
	comments   []string
	markers    []timeline.Marker
	timeScalar float64
}

// Read parses a CMX 3600 EDL into a single video track at the given
// frame rate. Record-time holes between events become gaps; dissolves
// and wipes become transitions ahead of the incoming clip.
func Read(r io.Reader, rate float64) (*timeline.Track, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", rate)
	}
	track := &timeline.Track{Name: "V1"}

	var events []*event
	var current *event

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "TITLE:"):
			track.Name = strings.TrimSpace(strings.TrimPrefix(line, "TITLE:"))
		case strings.HasPrefix(line, "FCM:"):
			// frame-counting mode noted in the timecodes themselves
		case eventPattern.MatchString(line):
			ev, err := parseEvent(eventPattern.FindStringSubmatch(line), rate)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			events = append(events, ev)
			current = ev
		case motionPattern.MatchString(line):
			if current == nil {
				continue
			}
			m := motionPattern.FindStringSubmatch(line)
			speed, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad M2 speed %q", lineNo, m[2])
			}
			current.timeScalar = speed / rate
		case strings.HasPrefix(line, "*"):
			if current == nil {
				continue
			}
			if m := locPattern.FindStringSubmatch(line); m != nil {
				current.markers = append(current.markers, timeline.Marker{
					Name:  strings.TrimSpace(m[2]),
					Color: m[1],
				})
				continue
			}
			comment := strings.TrimSpace(strings.TrimPrefix(line, "*"))
			if name, ok := strings.CutPrefix(comment, "FROM CLIP NAME:"); ok {
				current.clipName = strings.TrimSpace(name)
				continue
			}
			if comment != "" {
				current.comments = append(current.comments, comment)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events found")
	}

	track.Start = events[0].recordIn
	buildTrack(track, events, rate)
	return track, nil
}

func parseEvent(m []string, rate float64) (*event, error) {
	number, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("bad event number %q", m[1])
	}
	ev := &event{number: number, reel: m[2], transition: m[4]}
	if m[5] != "" {
		ev.transDur, err = strconv.Atoi(m[5])
		if err != nil {
			return nil, fmt.Errorf("bad transition duration %q", m[5])
		}
	}
	tcs := []*otime.RationalTime{&ev.sourceIn, &ev.sourceOut, &ev.recordIn, &ev.recordOut}
	for i, raw := range m[6:10] {
		tc := strings.ReplaceAll(raw, ";", ":")
		t, err := otime.FromTimecode(tc, rate)
		if err != nil {
			return nil, fmt.Errorf("bad timecode %q: %w", raw, err)
		}
		*tcs[i] = t
	}
	if ev.recordOut.Less(ev.recordIn) {
		return nil, fmt.Errorf("event %03d: record out before record in", number)
	}
	return ev, nil
}

func buildTrack(track *timeline.Track, events []*event, rate float64) {
	recordEnd := track.Start
	for _, ev := range events {
		if ev.recordIn.Greater(recordEnd) {
			track.Append(&timeline.Gap{
				TimeSpan: otime.RangeFromStartEnd(recordEnd, ev.recordIn),
			})
		}
		if ev.transition != "C" && ev.transDur > 0 {
			track.Append(&timeline.Transition{
				Name:      transitionName(ev.transition),
				InOffset:  otime.FromFrames(0, rate),
				OutOffset: otime.FromFrames(ev.transDur, rate),
			})
		}
		track.Append(ev.clip(rate))
		if ev.recordOut.Greater(recordEnd) {
			recordEnd = ev.recordOut
		}
	}
}

func transitionName(code string) string {
	if code == "D" {
		return "Dissolve"
	}
	return "Wipe " + strings.TrimPrefix(code, "W")
}

func (ev *event) clip(rate float64) *timeline.Clip {
	name := ev.clipName
	if name == "" {
		name = ev.reel
	}
	clip := &timeline.Clip{
		Name:        name,
		Reel:        ev.reel,
		SourceRange: otime.RangeFromStartEnd(ev.sourceIn, ev.sourceOut),
		Comments:    ev.comments,
		Markers:     ev.markers,
	}
	if ev.timeScalar != 0 {
		clip.Effects = append(clip.Effects, timeline.Effect{
			Name:       "LinearTimeWarp",
			TimeScalar: ev.timeScalar,
		})
	}
	return clip
}
