package cutdiff

import (
	"github.com/cutlens/cutlens/internal/otime"
	"github.com/cutlens/cutlens/internal/store"
)

// DiffGroup collects the comparison entries of one shot. Current
// entries drive the aggregate ranges; when every entry is omitted the
// aggregates fall back to the old clips' values.
type DiffGroup struct {
	// Name keeps the casing of the first clip seen for the shot.
	Name string

	current      Group // aggregates over current entries
	omittedGroup Group // aggregates over omitted entries

	currentEntries []*Entry
	omittedEntries []*Entry

	shot *store.Shot
}

// NewDiffGroup creates an empty diff group for a shot name.
func NewDiffGroup(name string) *DiffGroup {
	return &DiffGroup{
		Name:         name,
		current:      Group{Name: name},
		omittedGroup: Group{Name: name},
	}
}

// AddEntry adds a comparison entry. A second current entry marks every
// current member repeated; omitted entries are repeated when the shot
// still appears in the new cut.
func (g *DiffGroup) AddEntry(e *Entry) error {
	if e.AsOmitted() {
		if err := g.omittedGroup.AddClip(e.Clip); err != nil {
			return err
		}
		g.omittedEntries = append(g.omittedEntries, e)
		e.SetRepeated(len(g.currentEntries) > 0)
		return nil
	}
	if err := g.current.AddClip(e.Clip); err != nil {
		return err
	}
	g.currentEntries = append(g.currentEntries, e)
	if len(g.currentEntries) == 2 {
		for _, member := range g.currentEntries {
			member.SetRepeated(true)
		}
		for _, member := range g.omittedEntries {
			member.SetRepeated(true)
		}
	} else if len(g.currentEntries) > 2 {
		e.SetRepeated(true)
	} else {
		e.Reclassify()
	}
	return nil
}

// RemoveEntry removes an entry, replaying the aggregates over the
// remaining members.
func (g *DiffGroup) RemoveEntry(e *Entry) {
	if e.AsOmitted() {
		for i, member := range g.omittedEntries {
			if member == e {
				g.omittedEntries = append(g.omittedEntries[:i], g.omittedEntries[i+1:]...)
				break
			}
		}
		g.omittedGroup.RemoveClip(e.Clip)
		return
	}
	for i, member := range g.currentEntries {
		if member == e {
			g.currentEntries = append(g.currentEntries[:i], g.currentEntries[i+1:]...)
			break
		}
	}
	g.current.RemoveClip(e.Clip)
}

// Entries returns all entries, current ones first.
func (g *DiffGroup) Entries() []*Entry {
	entries := make([]*Entry, 0, len(g.currentEntries)+len(g.omittedEntries))
	entries = append(entries, g.currentEntries...)
	entries = append(entries, g.omittedEntries...)
	return entries
}

// CurrentEntries returns the entries present in the new cut.
func (g *DiffGroup) CurrentEntries() []*Entry {
	return append([]*Entry(nil), g.currentEntries...)
}

// OmittedEntries returns the entries present only in the old cut.
func (g *DiffGroup) OmittedEntries() []*Entry {
	return append([]*Entry(nil), g.omittedEntries...)
}

// Empty reports whether the group has no entries at all.
func (g *DiffGroup) Empty() bool {
	return len(g.currentEntries) == 0 && len(g.omittedEntries) == 0
}

// aggregates returns the group whose values represent this shot:
// current entries when present, old clips otherwise.
func (g *DiffGroup) aggregates() *Group {
	if !g.current.Empty() {
		return &g.current
	}
	return &g.omittedGroup
}

// Index returns the index of the shot's earliest clip.
func (g *DiffGroup) Index() int { return g.aggregates().Index() }

// FrameRate returns the group's frame rate.
func (g *DiffGroup) FrameRate() float64 { return g.aggregates().FrameRate() }

// HeadIn returns the shot's head in position.
func (g *DiffGroup) HeadIn() otime.RationalTime { return g.aggregates().HeadIn() }

// CutIn returns the shot's cut in position.
func (g *DiffGroup) CutIn() otime.RationalTime { return g.aggregates().CutIn() }

// CutOut returns the shot's cut out position, inclusive.
func (g *DiffGroup) CutOut() otime.RationalTime { return g.aggregates().CutOut() }

// TailOut returns the shot's tail out position.
func (g *DiffGroup) TailOut() otime.RationalTime { return g.aggregates().TailOut() }

// Duration returns cut_out − cut_in + 1 frame.
func (g *DiffGroup) Duration() otime.RationalTime { return g.aggregates().Duration() }

// WorkingDuration returns tail_out − head_in.
func (g *DiffGroup) WorkingDuration() otime.RationalTime { return g.aggregates().WorkingDuration() }

// HasEffects reports whether any entry has an adjacent transition.
func (g *DiffGroup) HasEffects() bool { return g.aggregates().HasEffects() }

// HasRetime reports whether any entry has a retime.
func (g *DiffGroup) HasRetime() bool { return g.aggregates().HasRetime() }

// Shot returns the linked shot entity, or nil.
func (g *DiffGroup) Shot() *store.Shot { return g.shot }

// SetShot links the group, all entries included, to a shot entity and
// reclassifies every entry.
func (g *DiffGroup) SetShot(shot *store.Shot) error {
	if err := g.current.SetShot(shot); err != nil {
		return err
	}
	if err := g.omittedGroup.SetShot(shot); err != nil {
		return err
	}
	g.shot = shot
	for _, e := range g.Entries() {
		e.Reclassify()
	}
	return nil
}

// Refresh replays the aggregate ranges and reclassifies every entry.
// Call it after matching rewrites entry mappings.
func (g *DiffGroup) Refresh() {
	if !g.current.Empty() {
		g.current.recompute()
	}
	if !g.omittedGroup.Empty() {
		g.omittedGroup.recompute()
	}
	for _, e := range g.Entries() {
		e.Reclassify()
	}
}

// shotPriorityTypes win immediately when any entry carries them, in
// this order.
var shotPriorityTypes = []DiffType{NoLink, New, Reinstated, Omitted, Rescan}

// ShotDiffType derives one diff type for the whole shot from its
// entries. The precedence scan is order dependent on purpose; see the
// counting rules in TrackDiff.
func (g *DiffGroup) ShotDiffType() DiffType {
	entries := g.Entries()
	for _, t := range shotPriorityTypes {
		for _, e := range entries {
			if e.DiffType() == t {
				return t
			}
		}
	}
	result := DiffType(-1)
	for _, e := range entries {
		t := e.DiffType()
		switch t {
		case OmittedInCut:
			t = Omitted
		case NewInCut:
			t = CutChange
		}
		if result == DiffType(-1) {
			result = t
			continue
		}
		if result != t {
			result = CutChange
		}
	}
	if result == DiffType(-1) {
		result = NoChange
	}
	return result
}
