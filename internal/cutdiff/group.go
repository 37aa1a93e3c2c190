package cutdiff

import (
	"fmt"

	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/store"
)

// Group is an ordered, mutable collection of clips sharing one shot
// identity. It maintains aggregate head/cut/tail boundaries and pushes
// recomputed handle durations back onto every member so the group
// behaves as one continuous logical shot.
type Group struct {
	// Name keeps the casing of the first clip seen for the shot; the
	// grouping key is its lowercase form.
	Name string

	clips []*Clip
	rate  float64

	earliest *Clip // smallest source_in
	last     *Clip // largest source_out

	baseHeadIn   otime.RationalTime // head in before any shot link
	headIn       otime.RationalTime
	headDuration otime.RationalTime
	tailDuration otime.RationalTime

	hasEffects bool
	hasRetime  bool

	shot *store.Shot
}

// NewGroup creates an empty group for a shot name.
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// Clips returns the group members in insertion order. The returned
// slice is a copy.
func (g *Group) Clips() []*Clip {
	return append([]*Clip(nil), g.clips...)
}

// AddClip adds a clip and recomputes the group aggregates. Clips with
// a different frame rate than the group's are rejected.
func (g *Group) AddClip(c *Clip) error {
	if g.rate == 0 {
		g.rate = c.FrameRate()
		g.baseHeadIn = c.HeadIn()
	}
	if c.FrameRate() != g.rate {
		return fmt.Errorf("clip %q rate %v, group %q rate %v: %w",
			c.Name, c.FrameRate(), g.Name, g.rate, ErrFrameRateMismatch)
	}
	if g.shot != nil {
		if err := c.setShotRef(g.shot); err != nil {
			return err
		}
	}
	g.clips = append(g.clips, c)
	g.recompute()
	return nil
}

// RemoveClip removes a clip. Aggregates are replayed from the
// remaining members rather than subtracted incrementally.
func (g *Group) RemoveClip(c *Clip) {
	for i, member := range g.clips {
		if member == c {
			g.clips = append(g.clips[:i], g.clips[i+1:]...)
			break
		}
	}
	g.recompute()
}

// recompute rebuilds earliest/last/effects caches from all members,
// derives the group handle boundaries and pushes handle durations down
// so that every member's head_in and tail_out line up with the group's.
func (g *Group) recompute() {
	g.earliest = nil
	g.last = nil
	g.hasEffects = false
	g.hasRetime = false
	for _, c := range g.clips {
		if g.earliest == nil || c.SourceIn().Less(g.earliest.SourceIn()) {
			g.earliest = c
		}
		if g.last == nil || c.SourceOut().Greater(g.last.SourceOut()) {
			g.last = c
		}
		g.hasEffects = g.hasEffects || c.HasEffects()
		g.hasRetime = g.hasRetime || c.HasRetime()
	}
	if g.earliest == nil {
		return
	}

	// The earliest member's mapping-derived cut in anchors the whole
	// group; cut positions never move when handles are re-derived.
	anchor := g.earliest.mappedCutIn
	g.headIn = g.baseHeadIn
	if g.shot != nil && g.shot.HeadIn != nil {
		g.headIn = otime.FromFrames(*g.shot.HeadIn, g.rate)
	}
	g.headDuration = anchor.Sub(g.headIn)

	sourceIn := g.earliest.SourceIn()
	sourceOut := g.last.SourceOut()
	if g.shot != nil && g.shot.TailOut != nil {
		cutOut := anchor.Add(sourceOut.Sub(sourceIn)).Sub(otime.FromFrames(1, g.rate))
		g.tailDuration = otime.FromFrames(*g.shot.TailOut, g.rate).Sub(cutOut)
	} else {
		g.tailDuration = g.last.mappedTailDuration
	}

	for _, c := range g.clips {
		c.setHeadIn(g.headIn)
		c.setHeadDuration(c.SourceIn().Sub(sourceIn).Add(g.headDuration))
		c.setTailDuration(sourceOut.Sub(c.SourceOut()).Add(g.tailDuration))
	}
}

// Empty reports whether the group has no members.
func (g *Group) Empty() bool { return len(g.clips) == 0 }

// FrameRate returns the group's established frame rate, 0 when empty.
func (g *Group) FrameRate() float64 { return g.rate }

// Index returns the index of the earliest member, the clip the shot
// starts with in source time.
func (g *Group) Index() int {
	if g.earliest == nil {
		return 0
	}
	return g.earliest.Index
}

// SourceIn returns the smallest source_in of the members.
func (g *Group) SourceIn() otime.RationalTime { return g.earliest.SourceIn() }

// SourceOut returns the largest source_out of the members.
func (g *Group) SourceOut() otime.RationalTime { return g.last.SourceOut() }

// HeadIn returns the group head in position.
func (g *Group) HeadIn() otime.RationalTime { return g.headIn }

// HeadOut returns the last frame of the group's head handle.
func (g *Group) HeadOut() otime.RationalTime {
	return g.CutIn().Sub(otime.FromFrames(1, g.rate))
}

// HeadDuration returns the group head handle duration.
func (g *Group) HeadDuration() otime.RationalTime { return g.headDuration }

// TailDuration returns the group tail handle duration.
func (g *Group) TailDuration() otime.RationalTime { return g.tailDuration }

// CutIn returns the smallest cut_in of the members.
func (g *Group) CutIn() otime.RationalTime { return g.earliest.CutIn() }

// CutOut returns the largest cut_out of the members.
func (g *Group) CutOut() otime.RationalTime {
	out := g.clips[0].CutOut()
	for _, c := range g.clips[1:] {
		if c.CutOut().Greater(out) {
			out = c.CutOut()
		}
	}
	return out
}

// TailIn returns the first frame of the group's tail handle.
func (g *Group) TailIn() otime.RationalTime {
	return g.CutOut().Add(otime.FromFrames(1, g.rate))
}

// TailOut returns the last frame of the group's tail handle.
func (g *Group) TailOut() otime.RationalTime { return g.CutOut().Add(g.tailDuration) }

// Duration returns cut_out − cut_in + 1 frame.
func (g *Group) Duration() otime.RationalTime {
	return g.CutOut().Sub(g.CutIn()).Add(otime.FromFrames(1, g.rate))
}

// WorkingDuration returns tail_out − head_in (exclusive tail).
func (g *Group) WorkingDuration() otime.RationalTime { return g.TailOut().Sub(g.headIn) }

// HasEffects reports whether any member has an adjacent transition.
func (g *Group) HasEffects() bool { return g.hasEffects }

// HasRetime reports whether any member has a retime.
func (g *Group) HasRetime() bool { return g.hasRetime }

// Shot returns the linked shot entity, or nil.
func (g *Group) Shot() *store.Shot { return g.shot }

// SetShot links the group and all its members to a shot entity,
// re-deriving handle boundaries from the shot's recorded head in and
// tail out while keeping cut positions unchanged.
func (g *Group) SetShot(shot *store.Shot) error {
	for _, c := range g.clips {
		if err := c.setShotRef(shot); err != nil {
			return err
		}
	}
	g.shot = shot
	g.recompute()
	return nil
}
