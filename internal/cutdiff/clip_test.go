package cutdiff

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/cutlens/cutlens/internal/edl"
	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
)

// baseEDL is a three event cut where events 001 and 003 belong to the
// same shot, spelled with different casing on purpose.
const baseEDL = `TITLE:   CUT_DIFF_TEST

001  ABC0100  V  C  01:00:01:00 01:00:10:00 01:00:00:00 01:00:09:00
* FROM CLIP NAME: clip_1
* COMMENT: shot_001
002  ABC0200  V  C  01:00:02:00 01:00:05:00 01:00:09:00 01:00:12:00
* FROM CLIP NAME: clip_2
* COMMENT: shot_002
003  ABC0300  V  C  01:00:00:00 01:00:04:00 01:00:12:00 01:00:16:00
* FROM CLIP NAME: clip_3
* COMMENT: SHOT_001
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseEDL(t *testing.T, text string, rate float64) *timeline.Track {
	t.Helper()
	track, err := edl.Read(strings.NewReader(text), rate)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return track
}

// wrapTrack builds comparison clips for every clip on the track,
// indexed by clip name.
func wrapTrack(t *testing.T, track *timeline.Track, settings *Settings) map[string]*Clip {
	t.Helper()
	clips, err := wrapClips(track, settings, discardLogger())
	if err != nil {
		t.Fatalf("wrapClips() error = %v", err)
	}
	byName := make(map[string]*Clip, len(clips))
	for _, c := range clips {
		byName[c.UniqueName] = c
	}
	return byName
}

func TestClipPositionsDefaults(t *testing.T) {
	track := parseEDL(t, baseEDL, 24)
	clips := wrapTrack(t, track, DefaultSettings())

	c := clips["clip_2"]
	if c == nil {
		t.Fatal("clip_2 not found")
	}
	checks := []struct {
		name string
		got  otime.RationalTime
		want int
	}{
		{"SourceIn", c.SourceIn(), 86448},
		{"VisibleDuration", c.VisibleDuration(), 72},
		{"HeadIn", c.HeadIn(), 1001},
		{"HeadOut", c.HeadOut(), 1008},
		{"CutIn", c.CutIn(), 1009},
		{"CutOut", c.CutOut(), 1080},
		{"TailIn", c.TailIn(), 1081},
		{"TailOut", c.TailOut(), 1088},
		{"HeadDuration", c.HeadDuration(), 8},
		{"TailDuration", c.TailDuration(), 8},
		{"WorkingDuration", c.WorkingDuration(), 87},
		{"EditIn", c.EditIn(), 217},
		{"EditOut", c.EditOut(), 288},
	}
	for _, check := range checks {
		if got := check.got.ToFrames(); got != check.want {
			t.Errorf("%s = %d, want %d", check.name, got, check.want)
		}
	}
	if c.Index != 2 {
		t.Errorf("Index = %d, want 2", c.Index)
	}
	if c.ShotName != "shot_002" {
		t.Errorf("ShotName = %q, want shot_002", c.ShotName)
	}
}

func TestClipMappingModes(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Settings)
		// expected clip_2 cut in, source in 01:00:02:00 at 24 fps
		cutIn int
	}{
		{
			name:  "automatic",
			setup: func(s *Settings) {},
			cutIn: 1009,
		},
		{
			name:  "absolute",
			setup: func(s *Settings) { s.Mode = MapAbsolute },
			cutIn: 86448,
		},
		{
			name: "relative",
			setup: func(s *Settings) {
				s.Mode = MapRelative
				s.RelativeStart = "01:00:00:00"
				s.RelativeFrame = 1001
			},
			cutIn: 1049,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.setup(settings)
			track := parseEDL(t, baseEDL, 24)
			clips := wrapTrack(t, track, settings)
			c := clips["clip_2"]
			if got := c.CutIn().ToFrames(); got != tt.cutIn {
				t.Errorf("CutIn = %d, want %d", got, tt.cutIn)
			}
			// The visible duration never depends on the mapping mode.
			if got := c.CutOut().ToFrames(); got != tt.cutIn+71 {
				t.Errorf("CutOut = %d, want %d", got, tt.cutIn+71)
			}
		})
	}
}

func TestClipCustomHandles(t *testing.T) {
	settings := DefaultSettings()
	settings.HeadIn = 123
	settings.HeadDuration = 54
	settings.TailDuration = 10

	track := parseEDL(t, baseEDL, 24)
	clips := wrapTrack(t, track, settings)
	c := clips["clip_2"]
	if got := c.CutIn().ToFrames(); got != 177 {
		t.Errorf("CutIn = %d, want 177", got)
	}
	if got := c.HeadIn().ToFrames(); got != 123 {
		t.Errorf("HeadIn = %d, want 123", got)
	}
	if got := c.TailOut().ToFrames(); got != 177+71+10 {
		t.Errorf("TailOut = %d, want %d", got, 177+71+10)
	}
}

func TestClipCarriedForwardFromRecorded(t *testing.T) {
	// A previously recorded cut item pins the cut in; moving the
	// source in moves the cut in by the same amount.
	shifted := strings.Replace(baseEDL, "01:00:02:00 01:00:05:00", "01:00:02:07 01:00:05:00", 1)
	clips := wrapTrack(t, parseEDL(t, shifted, 24), DefaultSettings())

	c := clips["clip_2"]
	c.Recorded = &store.CutItem{
		Code:              "clip_2",
		TimecodeCutItemIn: "01:00:02:00",
		CutItemIn:         store.IntPtr(1009),
	}
	c.applyMapping()
	if got := c.CutIn().ToFrames(); got != 1016 {
		t.Errorf("CutIn = %d, want 1016", got)
	}
}

func TestClipRetime(t *testing.T) {
	text := baseEDL + "M2   ABC0300            048.0                01:00:00:00\n"
	track := parseEDL(t, text, 24)
	clips := wrapTrack(t, track, DefaultSettings())
	c := clips["clip_3"]
	if !c.HasRetime() {
		t.Fatal("HasRetime = false, want true")
	}
	// 96 frames at double speed cover 192 source frames.
	if got := c.VisibleDuration().ToFrames(); got != 192 {
		t.Errorf("VisibleDuration = %d, want 192", got)
	}
}

func TestClipNoFrameRate(t *testing.T) {
	track := &timeline.Track{Name: "V1"}
	track.Append(&timeline.Clip{Name: "no_rate"})
	_, err := NewClip(track, 0, 1, DefaultSettings(), discardLogger())
	if !errors.Is(err, ErrNoFrameRate) {
		t.Errorf("NewClip() error = %v, want ErrNoFrameRate", err)
	}
}
