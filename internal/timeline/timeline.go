// Package timeline models an editorial video track as an ordered list of
// clips, gaps and transitions with rational-time ranges.
package timeline

import (
	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/store"
)

// Item is an entry on a Track. Clips and gaps occupy time on the track,
// transitions sit between two items and occupy none.
type Item interface {
	ItemName() string
	Duration() otime.RationalTime
}

// Effect is a non-transition effect applied to a clip. A TimeScalar
// different from 1.0 marks a retime.
type Effect struct {
	Name       string
	TimeScalar float64
}

// IsRetime reports whether the effect changes the clip's play rate.
func (e Effect) IsRetime() bool {
	return e.TimeScalar != 0 && e.TimeScalar != 1.0
}

// Marker is a locator placed on a clip.
type Marker struct {
	Name  string
	Color string
}

// Clip is a piece of source media placed on a track.
type Clip struct {
	Name        string
	Reel        string
	SourceRange otime.TimeRange
	Comments    []string
	Effects     []Effect
	Markers     []Marker

	// Recorded is the stored cut item this clip was loaded from,
	// nil for clips read from an EDL.
	Recorded *store.CutItem
}

func (c *Clip) ItemName() string { return c.Name }

func (c *Clip) Duration() otime.RationalTime { return c.SourceRange.Duration }

// HasRetime reports whether any effect on the clip is a retime.
func (c *Clip) HasRetime() bool {
	for _, e := range c.Effects {
		if e.IsRetime() {
			return true
		}
	}
	return false
}

// HasEffects reports whether the clip carries any non-retime effect.
func (c *Clip) HasEffects() bool {
	for _, e := range c.Effects {
		if !e.IsRetime() {
			return true
		}
	}
	return false
}

// Gap is empty track time between two clips.
type Gap struct {
	Name     string
	TimeSpan otime.TimeRange
}

func (g *Gap) ItemName() string { return g.Name }

func (g *Gap) Duration() otime.RationalTime { return g.TimeSpan.Duration }

// Transition is a dissolve or wipe between two adjacent items. InOffset
// is how far it reaches back into the outgoing item, OutOffset how far
// it reaches into the incoming one.
type Transition struct {
	Name      string
	InOffset  otime.RationalTime
	OutOffset otime.RationalTime
}

func (t *Transition) ItemName() string { return t.Name }

func (t *Transition) Duration() otime.RationalTime {
	return t.InOffset.Add(t.OutOffset)
}

// Track is a single ordered video track.
type Track struct {
	Name  string
	Start otime.RationalTime
	Items []Item
}

// FrameRate returns the rate of the track start time.
func (t *Track) FrameRate() float64 { return t.Start.Rate() }

// Clips returns the clips on the track in order.
func (t *Track) Clips() []*Clip {
	var clips []*Clip
	for _, item := range t.Items {
		if c, ok := item.(*Clip); ok {
			clips = append(clips, c)
		}
	}
	return clips
}

// Append adds an item at the end of the track.
func (t *Track) Append(items ...Item) {
	t.Items = append(t.Items, items...)
}

// RangeInParent returns the track-time range occupied by the item at
// index i. Transitions occupy no track time: the returned range is the
// zero-duration point where the items they join meet.
func (t *Track) RangeInParent(i int) otime.TimeRange {
	offset := t.Start
	for j := 0; j < i; j++ {
		switch it := t.Items[j].(type) {
		case *Transition:
			// no track time
			_ = it
		default:
			offset = offset.Add(t.Items[j].Duration())
		}
	}
	if _, ok := t.Items[i].(*Transition); ok {
		return otime.NewRange(offset, otime.FromFrames(0, t.FrameRate()))
	}
	return otime.NewRange(offset, t.Items[i].Duration())
}

// TransitionBefore returns the transition immediately preceding the item
// at index i, or nil.
func (t *Track) TransitionBefore(i int) *Transition {
	if i > 0 {
		if tr, ok := t.Items[i-1].(*Transition); ok {
			return tr
		}
	}
	return nil
}

// TransitionAfter returns the transition immediately following the item
// at index i, or nil.
func (t *Track) TransitionAfter(i int) *Transition {
	if i+1 < len(t.Items) {
		if tr, ok := t.Items[i+1].(*Transition); ok {
			return tr
		}
	}
	return nil
}

// VisibleRange returns the source range of the item at index i extended
// by adjacent transitions: a preceding transition makes the item visible
// OutOffset earlier, a following one keeps it visible InOffset longer.
func (t *Track) VisibleRange(i int) otime.TimeRange {
	item := t.Items[i]
	var src otime.TimeRange
	switch it := item.(type) {
	case *Clip:
		src = it.SourceRange
	case *Gap:
		src = it.TimeSpan
	default:
		return otime.TimeRange{}
	}
	var before, after otime.RationalTime
	if tr := t.TransitionBefore(i); tr != nil {
		before = tr.OutOffset
	}
	if tr := t.TransitionAfter(i); tr != nil {
		after = tr.InOffset
	}
	return src.Extended(before, after)
}

// Duration returns the total duration of the track, transitions excluded.
func (t *Track) Duration() otime.RationalTime {
	total := otime.FromFrames(0, t.FrameRate())
	for _, item := range t.Items {
		if _, ok := item.(*Transition); ok {
			continue
		}
		total = total.Add(item.Duration())
	}
	return total
}
