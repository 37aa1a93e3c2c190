package cutdiff

import (
	"fmt"
	"log/slog"

	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
)

// Clip wraps one timeline clip and derives its cut, head, tail and edit
// positions. Head and tail fields are mutated only by the owning Group,
// or by SetShot when the clip stands alone.
type Clip struct {
	Name       string
	UniqueName string
	Index      int // 1-based position in the track
	ShotName   string

	// Recorded is the stored cut item this clip was loaded from, nil
	// for clips coming straight from an EDL.
	Recorded *store.CutItem

	sourceIn        otime.RationalTime // visible source in, transitions folded
	visibleDuration otime.RationalTime
	recordIn        otime.RationalTime
	recordOut       otime.RationalTime
	editIn          otime.RationalTime
	editOut         otime.RationalTime
	rate            float64

	headIn       otime.RationalTime
	headDuration otime.RationalTime
	tailDuration otime.RationalTime

	// mapping-derived positions, untouched by group push-down
	mappedCutIn        otime.RationalTime
	mappedTailDuration otime.RationalTime

	effect     *timeline.Effect
	hasEffects bool

	shot     *store.Shot
	settings *Settings
}

// NewClip builds a Clip from the track item at itemIndex. The index is
// the clip's 1-based position counting clips only. A nil logger
// suppresses warnings about unsupported effects.
func NewClip(track *timeline.Track, itemIndex, index int, settings *Settings, logger *slog.Logger) (*Clip, error) {
	tlClip, ok := track.Items[itemIndex].(*timeline.Clip)
	if !ok {
		return nil, fmt.Errorf("item %d is %T, not a clip", itemIndex, track.Items[itemIndex])
	}
	rate := tlClip.SourceRange.Duration.Rate()
	if rate == 0 {
		rate = track.FrameRate()
	}
	if rate == 0 {
		return nil, fmt.Errorf("clip %q: %w", tlClip.Name, ErrNoFrameRate)
	}

	c := &Clip{
		Name:       tlClip.Name,
		UniqueName: tlClip.Name,
		Index:      index,
		Recorded:   tlClip.Recorded,
		rate:       rate,
		settings:   settings,
	}

	visible := track.VisibleRange(itemIndex)
	c.sourceIn = visible.Start
	c.visibleDuration = visible.Duration
	c.effect = relevantTimingEffect(tlClip, logger)
	if c.effect != nil {
		c.visibleDuration = otime.New(
			c.visibleDuration.Value()*c.effect.TimeScalar, rate)
	}

	before := track.TransitionBefore(itemIndex)
	after := track.TransitionAfter(itemIndex)
	c.hasEffects = before != nil || after != nil

	rec := track.RangeInParent(itemIndex)
	var extBefore, extAfter otime.RationalTime
	if before != nil {
		extBefore = before.OutOffset
	}
	if after != nil {
		extAfter = after.InOffset
	}
	rec = rec.Extended(extBefore, extAfter)
	c.recordIn = rec.Start
	c.recordOut = rec.EndExclusive()
	c.editIn = rec.Start.Sub(track.Start).Add(otime.FromFrames(1, rate))
	c.editOut = rec.EndExclusive().Sub(track.Start)

	c.ShotName = computeShotName(tlClip, settings)
	c.applyMapping()
	return c, nil
}

// relevantTimingEffect keeps the first linear retime on the clip and
// warns about everything else.
func relevantTimingEffect(clip *timeline.Clip, logger *slog.Logger) *timeline.Effect {
	var kept *timeline.Effect
	for i := range clip.Effects {
		e := &clip.Effects[i]
		if !e.IsRetime() {
			if logger != nil {
				logger.Warn("unsupported effect ignored", "clip", clip.Name, "effect", e.Name)
			}
			continue
		}
		if kept != nil {
			if logger != nil {
				logger.Warn("only one timing effect per clip is supported, ignoring",
					"clip", clip.Name, "effect", e.Name)
			}
			continue
		}
		kept = e
	}
	return kept
}

// applyMapping derives the initial head/tail fields from the settings'
// mapping mode.
func (c *Clip) applyMapping() {
	c.headIn = otime.FromFrames(c.settings.HeadIn, c.rate)
	c.tailDuration = otime.FromFrames(c.settings.TailDuration, c.rate)

	var cutIn otime.RationalTime
	switch c.settings.Mode {
	case MapAbsolute:
		cutIn = c.sourceIn
	case MapRelative:
		ref, err := otime.FromTimecode(c.settings.RelativeStart, c.rate)
		if err != nil {
			// validated at load time, fall back to automatic defaults
			cutIn = c.headIn.Add(otime.FromFrames(c.settings.HeadDuration, c.rate))
			break
		}
		cutIn = c.sourceIn.Sub(ref).Add(otime.FromFrames(c.settings.RelativeFrame, c.rate))
	default: // MapAutomatic
		if c.Recorded != nil && c.Recorded.CutItemIn != nil {
			recSourceIn, err := otime.FromTimecode(c.Recorded.TimecodeCutItemIn, c.rate)
			if err == nil {
				offset := c.sourceIn.Sub(recSourceIn)
				cutIn = otime.FromFrames(*c.Recorded.CutItemIn, c.rate).Add(offset)
				break
			}
		}
		cutIn = c.headIn.Add(otime.FromFrames(c.settings.HeadDuration, c.rate))
	}
	c.headDuration = cutIn.Sub(c.headIn)
	c.mappedCutIn = cutIn
	c.mappedTailDuration = c.tailDuration
}

// FrameRate returns the clip's frame rate.
func (c *Clip) FrameRate() float64 { return c.rate }

// SourceIn returns the visible source start time.
func (c *Clip) SourceIn() otime.RationalTime { return c.sourceIn }

// SourceOut returns the visible source end time (exclusive).
func (c *Clip) SourceOut() otime.RationalTime { return c.sourceIn.Add(c.visibleDuration) }

// VisibleDuration returns the clip duration with transitions and a
// linear retime folded in.
func (c *Clip) VisibleDuration() otime.RationalTime { return c.visibleDuration }

// HeadIn returns the head in position.
func (c *Clip) HeadIn() otime.RationalTime { return c.headIn }

// HeadOut returns the last frame of the head handle.
func (c *Clip) HeadOut() otime.RationalTime {
	return c.headIn.Add(c.headDuration).Sub(c.oneFrame())
}

// HeadDuration returns the head handle duration, cut_in − head_in.
func (c *Clip) HeadDuration() otime.RationalTime { return c.headDuration }

// TailDuration returns the tail handle duration, tail_out − cut_out.
func (c *Clip) TailDuration() otime.RationalTime { return c.tailDuration }

// CutIn returns the cut in position.
func (c *Clip) CutIn() otime.RationalTime { return c.headIn.Add(c.headDuration) }

// CutOut returns the cut out position, inclusive.
func (c *Clip) CutOut() otime.RationalTime {
	return c.CutIn().Add(c.visibleDuration).Sub(c.oneFrame())
}

// TailIn returns the first frame of the tail handle.
func (c *Clip) TailIn() otime.RationalTime { return c.CutOut().Add(c.oneFrame()) }

// TailOut returns the last frame of the tail handle.
func (c *Clip) TailOut() otime.RationalTime { return c.CutOut().Add(c.tailDuration) }

// WorkingDuration returns tail_out − head_in (exclusive tail).
func (c *Clip) WorkingDuration() otime.RationalTime { return c.TailOut().Sub(c.headIn) }

// EditIn returns the 1-based position where the clip starts in the
// track's own numbering.
func (c *Clip) EditIn() otime.RationalTime { return c.editIn }

// EditOut returns the position where the clip ends in the track's own
// numbering.
func (c *Clip) EditOut() otime.RationalTime { return c.editOut }

// RecordIn returns the clip start offset by the track's global start.
func (c *Clip) RecordIn() otime.RationalTime { return c.recordIn }

// RecordOut returns the clip end offset by the track's global start.
func (c *Clip) RecordOut() otime.RationalTime { return c.recordOut }

// HasEffects reports whether the clip has an adjacent transition.
func (c *Clip) HasEffects() bool { return c.hasEffects }

// HasRetime reports whether the clip has a linear retime.
func (c *Clip) HasRetime() bool { return c.effect != nil }

// Effect returns the clip's single linear retime, or nil.
func (c *Clip) Effect() *timeline.Effect { return c.effect }

// Shot returns the linked shot entity, or nil.
func (c *Clip) Shot() *store.Shot { return c.shot }

// SetShot links the clip to a shot entity and re-derives its head and
// tail fields from the shot's recorded boundaries, keeping cut
// positions unchanged. Changing an established link to a different
// shot is an error.
func (c *Clip) SetShot(shot *store.Shot) error {
	if err := c.setShotRef(shot); err != nil {
		return err
	}
	c.applyShotBoundaries()
	return nil
}

// setShotRef assigns the link without touching any derived field.
func (c *Clip) setShotRef(shot *store.Shot) error {
	if c.shot != nil && shot != nil && c.shot.ID != shot.ID {
		return fmt.Errorf("clip %q: %w", c.Name, ErrShotMismatch)
	}
	c.shot = shot
	return nil
}

// applyShotBoundaries moves head_in to the shot's recorded head in and
// stretches the tail to its recorded tail out. The resulting durations
// can go negative, which is what rescan detection looks for.
func (c *Clip) applyShotBoundaries() {
	if c.shot == nil {
		return
	}
	cutIn := c.CutIn()
	cutOut := c.CutOut()
	if c.shot.HeadIn != nil {
		c.headIn = otime.FromFrames(*c.shot.HeadIn, c.rate)
		c.headDuration = cutIn.Sub(c.headIn)
	}
	if c.shot.TailOut != nil {
		c.tailDuration = otime.FromFrames(*c.shot.TailOut, c.rate).Sub(cutOut)
	}
}

func (c *Clip) setHeadIn(t otime.RationalTime)       { c.headIn = t }
func (c *Clip) setHeadDuration(t otime.RationalTime) { c.headDuration = t }
func (c *Clip) setTailDuration(t otime.RationalTime) { c.tailDuration = t }

func (c *Clip) oneFrame() otime.RationalTime { return otime.FromFrames(1, c.rate) }
