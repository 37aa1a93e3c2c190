package cutdiff

import (
	"fmt"

	"github.com/cutlens/cutlens/internal/otime"
)

// DiffType classifies what happened to a clip or shot between two cuts.
type DiffType int

const (
	// NoLink means the clip could not be linked to any shot name.
	NoLink DiffType = iota
	// New means the shot name was never linked to a recorded shot.
	New
	// NewInCut means the shot exists but this clip was not in the old cut.
	NewInCut
	// Omitted means the old clip's shot is gone from the new cut.
	Omitted
	// OmittedInCut means an old clip is gone but its shot still appears.
	OmittedInCut
	// Reinstated means the shot was omitted before and is back.
	Reinstated
	// Rescan means the new in/out points reach outside available media.
	Rescan
	// CutChange means the in/out points moved.
	CutChange
	// NoChange means nothing changed.
	NoChange
)

var diffTypeNames = map[DiffType]string{
	NoLink:       "No Link",
	New:          "New",
	NewInCut:     "New In Cut",
	Omitted:      "Omitted",
	OmittedInCut: "Omitted In Cut",
	Reinstated:   "Reinstated",
	Rescan:       "Needs Rescan",
	CutChange:    "Cut Change",
	NoChange:     "No Change",
}

func (t DiffType) String() string {
	if name, ok := diffTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DiffType(%d)", int(t))
}

// Entry is one clip of the comparison. A current entry wraps a clip of
// the new cut and may carry the old clip it was matched to; an omitted
// entry wraps an old clip with no new counterpart.
type Entry struct {
	*Clip

	oldClip   *Clip
	asOmitted bool
	repeated  bool

	diffType DiffType
	reasons  []string
}

// NewEntry wraps a clip of the new cut as a current entry.
func NewEntry(c *Clip) *Entry {
	e := &Entry{Clip: c}
	e.checkAndSetChanges()
	return e
}

// NewOmittedEntry wraps an old clip that has no counterpart in the new
// cut.
func NewOmittedEntry(old *Clip) *Entry {
	e := &Entry{Clip: old, asOmitted: true}
	e.checkAndSetChanges()
	return e
}

// Current returns the new-cut side of the entry, nil for omitted ones.
func (e *Entry) Current() *Clip {
	if e.asOmitted {
		return nil
	}
	return e.Clip
}

// Old returns the old-cut side of the entry, nil when the clip is new.
func (e *Entry) Old() *Clip {
	if e.asOmitted {
		return e.Clip
	}
	return e.oldClip
}

// AsOmitted reports whether the entry represents an old clip only.
func (e *Entry) AsOmitted() bool { return e.asOmitted }

// Repeated reports whether the entry's shot holds more than one clip
// in the new cut.
func (e *Entry) Repeated() bool { return e.repeated }

// DiffType returns the entry's classification.
func (e *Entry) DiffType() DiffType { return e.diffType }

// Reasons returns human-readable change descriptions; empty unless the
// entry is a cut change or rescan.
func (e *Entry) Reasons() []string { return e.reasons }

// SetOldClip records the matched old counterpart and reclassifies.
// In automatic mapping mode the old clip becomes the entry's previous
// import reference: the new cut in carries the old one forward, offset
// by however far the source in moved. Omitted entries cannot take one.
func (e *Entry) SetOldClip(old *Clip) error {
	if e.asOmitted {
		return fmt.Errorf("entry %q: %w", e.Name, ErrOmittedOldClip)
	}
	e.oldClip = old
	if e.settings.Mode == MapAutomatic && old != nil && old.Recorded != nil {
		e.Clip.Recorded = old.Recorded
		e.Clip.applyMapping()
	}
	e.checkAndSetChanges()
	return nil
}

// SetRepeated flags the entry as one of several clips for its shot and
// reclassifies.
func (e *Entry) SetRepeated(repeated bool) {
	e.repeated = repeated
	e.checkAndSetChanges()
}

// OldIndex returns the old clip's track index.
func (e *Entry) OldIndex() (int, bool) {
	old := e.Old()
	if old == nil {
		return 0, false
	}
	return old.Index, true
}

// OldCutIn returns the cut in recorded for the old clip.
func (e *Entry) OldCutIn() (otime.RationalTime, bool) {
	old := e.Old()
	if old == nil || old.Recorded == nil || old.Recorded.CutItemIn == nil {
		return otime.RationalTime{}, false
	}
	return otime.FromFrames(*old.Recorded.CutItemIn, old.FrameRate()), true
}

// OldCutOut returns the cut out recorded for the old clip.
func (e *Entry) OldCutOut() (otime.RationalTime, bool) {
	old := e.Old()
	if old == nil || old.Recorded == nil || old.Recorded.CutItemOut == nil {
		return otime.RationalTime{}, false
	}
	return otime.FromFrames(*old.Recorded.CutItemOut, old.FrameRate()), true
}

// OldVisibleDuration returns the old clip's visible duration.
func (e *Entry) OldVisibleDuration() (otime.RationalTime, bool) {
	old := e.Old()
	if old == nil {
		return otime.RationalTime{}, false
	}
	return old.VisibleDuration(), true
}

// checkAndSetChanges classifies the entry. It runs whenever the old
// counterpart or the repeated flag changes.
func (e *Entry) checkAndSetChanges() {
	e.diffType = NoChange
	e.reasons = nil

	if e.ShotName == "" {
		e.diffType = NoLink
		return
	}
	if e.shot == nil {
		e.diffType = New
		return
	}
	if e.asOmitted {
		if !e.repeated {
			e.diffType = Omitted
		} else {
			e.diffType = OmittedInCut
		}
		return
	}
	if e.settings.isOmittedStatus(e.shot.Status) {
		e.diffType = Reinstated
		return
	}
	if e.oldClip == nil {
		e.diffType = NewInCut
		return
	}

	// If any of the previous values are unknown assume everything
	// changed (initial import).
	_, okIn := e.OldCutIn()
	_, okOut := e.OldCutOut()
	_, okDur := e.OldVisibleDuration()
	if !okIn || !okOut || !okDur {
		e.diffType = CutChange
		return
	}

	e.checkAndSetRescan()
}

// checkAndSetRescan detects in/out points reaching outside the shot's
// recorded boundaries, then falls back to plain cut-change detection.
func (e *Entry) checkAndSetRescan() {
	if e.shot.HeadIn != nil && e.headDuration.ToFrames() < 0 {
		e.diffType = Rescan
	}
	if e.shot.TailOut != nil && e.tailDuration.ToFrames() < 0 {
		e.diffType = Rescan
	}

	if oldCutIn, ok := e.OldCutIn(); ok && !oldCutIn.Equal(e.CutIn()) {
		if e.diffType != Rescan {
			e.diffType = CutChange
		}
		diff := e.CutIn().Sub(oldCutIn).ToFrames()
		if diff > 0 {
			e.reasons = append(e.reasons, fmt.Sprintf("Head extended %d frs", diff))
		} else {
			e.reasons = append(e.reasons, fmt.Sprintf("Head trimmed %d frs", -diff))
		}
	}

	if oldCutOut, ok := e.OldCutOut(); ok && !oldCutOut.Equal(e.CutOut()) {
		if e.diffType != Rescan {
			e.diffType = CutChange
		}
		diff := e.CutOut().Sub(oldCutOut).ToFrames()
		if diff > 0 {
			e.reasons = append(e.reasons, fmt.Sprintf("Tail trimmed %d frs", diff))
		} else {
			e.reasons = append(e.reasons, fmt.Sprintf("Tail extended %d frs", -diff))
		}
	}
}

// Reclassify recomputes the diff type, picking up group-driven changes
// to handles or the shot link.
func (e *Entry) Reclassify() {
	e.checkAndSetChanges()
}
