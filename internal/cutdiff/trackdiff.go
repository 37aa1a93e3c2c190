package cutdiff

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cutlens/cutlens/internal/logging"
	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
)

// TrackDiff is the result of comparing a new cut against a previously
// recorded one. Groups and their entries iterate in first-seen order.
type TrackDiff struct {
	settings *Settings
	logger   *slog.Logger

	order  []string
	groups map[string]*DiffGroup

	counts      map[DiffType]int
	activeCount int
}

// Compare reads the old cut from the store and diffs the new track
// against it. An oldCutID of 0 means there is no previous cut.
func Compare(ctx context.Context, st store.Store, newTrack *timeline.Track, oldCutID int64, settings *Settings, logger *slog.Logger) (*TrackDiff, error) {
	var oldTrack *timeline.Track
	if oldCutID != 0 {
		if logger != nil {
			logger = logging.WithCut(logger, oldCutID)
		}
		var err error
		oldTrack, err = ReadCut(ctx, st, oldCutID, logger)
		if err != nil {
			return nil, err
		}
	}
	return DiffTracks(ctx, st, newTrack, oldTrack, settings, logger)
}

// DiffTracks resolves the shots referenced by both tracks through the
// store, then runs the pure comparison.
func DiffTracks(ctx context.Context, st store.Store, newTrack, oldTrack *timeline.Track, settings *Settings, logger *slog.Logger) (*TrackDiff, error) {
	newClips, err := wrapClips(newTrack, settings, logger)
	if err != nil {
		return nil, err
	}
	var oldClips []*Clip
	if oldTrack != nil {
		oldClips, err = wrapClips(oldTrack, settings, logger)
		if err != nil {
			return nil, err
		}
	}

	codes := collectShotCodes(newClips, oldClips)
	shots := map[string]*store.Shot{}
	if len(codes) > 0 {
		shots, err = st.FindShotsByCodes(ctx, codes)
		if err != nil {
			return nil, fmt.Errorf("resolve shots: %w", err)
		}
	}
	return diffClips(newClips, oldClips, shots, settings, logger)
}

// DiffTracksWithShots runs the comparison with shots already resolved;
// the map is keyed by lowercase shot code. It performs no I/O.
func DiffTracksWithShots(newTrack, oldTrack *timeline.Track, shots map[string]*store.Shot, settings *Settings, logger *slog.Logger) (*TrackDiff, error) {
	newClips, err := wrapClips(newTrack, settings, logger)
	if err != nil {
		return nil, err
	}
	var oldClips []*Clip
	if oldTrack != nil {
		oldClips, err = wrapClips(oldTrack, settings, logger)
		if err != nil {
			return nil, err
		}
	}
	return diffClips(newClips, oldClips, shots, settings, logger)
}

// wrapClips builds comparison clips for every clip on the track, with
// track-unique names.
func wrapClips(track *timeline.Track, settings *Settings, logger *slog.Logger) ([]*Clip, error) {
	var clips []*Clip
	index := 0
	for itemIndex, item := range track.Items {
		if _, ok := item.(*timeline.Clip); !ok {
			continue
		}
		index++
		clip, err := NewClip(track, itemIndex, index, settings, logger)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	uniqueNames(clips)
	return clips, nil
}

func collectShotCodes(newClips, oldClips []*Clip) []string {
	seen := make(map[string]bool)
	var codes []string
	add := func(code string) {
		key := strings.ToLower(code)
		if code == "" || seen[key] {
			return
		}
		seen[key] = true
		codes = append(codes, code)
	}
	for _, c := range newClips {
		add(c.ShotName)
	}
	for _, c := range oldClips {
		if c.Recorded != nil {
			add(c.Recorded.ShotCode)
		}
	}
	return codes
}

// diffClips is the comparison proper: group, resolve, match, sweep
// leftovers, count.
func diffClips(newClips, oldClips []*Clip, shots map[string]*store.Shot, settings *Settings, logger *slog.Logger) (*TrackDiff, error) {
	td := &TrackDiff{
		settings: settings,
		logger:   logger,
		groups:   make(map[string]*DiffGroup),
		counts:   make(map[DiffType]int),
	}

	// Group the new clips by shot. Clips without a shot name get a
	// synthetic per-index key so they never collide into one group.
	for _, clip := range newClips {
		key, name := td.groupKey(clip)
		group, ok := td.groups[key]
		if !ok {
			group = NewDiffGroup(name)
			td.groups[key] = group
			td.order = append(td.order, key)
		}
		if err := group.AddEntry(NewEntry(clip)); err != nil {
			return nil, err
		}
	}

	// Link groups to their shot entities.
	for _, key := range td.order {
		group := td.groups[key]
		shot := shots[key]
		if shot == nil {
			continue
		}
		if err := group.SetShot(shot); err != nil {
			return nil, err
		}
	}

	// Match current entries against the old clip pool. A matched old
	// clip leaves the pool, it can serve at most one new clip.
	pool := append([]*Clip(nil), oldClips...)
	for _, key := range td.order {
		group := td.groups[key]
		shot := group.Shot()
		if shot == nil {
			continue
		}
		matched := false
		for _, entry := range group.CurrentEntries() {
			old := matchOldClip(entry, shot, &pool)
			if old == nil {
				continue
			}
			if err := entry.SetOldClip(old); err != nil {
				return nil, err
			}
			matched = true
		}
		// Matching may have remapped cut positions; replay the group
		// aggregates so handles line up again.
		if matched {
			group.Refresh()
		}
	}

	// Old clips never matched become omitted entries on their shot's
	// group. Leftovers without a shot link are a data inconsistency in
	// the input, not fatal.
	for _, old := range pool {
		if old.Recorded == nil || old.Recorded.ShotCode == "" {
			if logger != nil {
				logger.Warn("unmatched old clip without shot link", "clip", old.Name)
			}
			continue
		}
		key := strings.ToLower(old.Recorded.ShotCode)
		group, ok := td.groups[key]
		if !ok {
			group = NewDiffGroup(old.Recorded.ShotCode)
			td.groups[key] = group
			td.order = append(td.order, key)
		}
		if group.Shot() == nil {
			if shot := shots[key]; shot != nil {
				if err := group.SetShot(shot); err != nil {
					return nil, err
				}
			} else if logger != nil {
				logging.WithShot(logger, old.Recorded.ShotCode).Warn(
					"unresolved shot for omitted clip", "clip", old.Name)
			}
		}
		old.ShotName = old.Recorded.ShotCode
		if err := group.AddEntry(NewOmittedEntry(old)); err != nil {
			return nil, err
		}
	}

	td.recount()
	return td, nil
}

func (td *TrackDiff) groupKey(clip *Clip) (key, name string) {
	if clip.ShotName == "" {
		return fmt.Sprintf("_no_link_%03d", clip.Index), clip.Name
	}
	return strings.ToLower(clip.ShotName), clip.ShotName
}

// matchOldClip scans the pool for the best old counterpart of a new
// entry. Index, source in and source out equality score one point
// each; the version bonus dominates everything. The first highest
// scoring candidate wins and is removed from the pool.
func matchOldClip(entry *Entry, shot *store.Shot, pool *[]*Clip) *Clip {
	versionCode := entry.versionConstraint()

	var best *Clip
	bestScore := -1
	bestIdx := -1
	for i, old := range *pool {
		rec := old.Recorded
		if rec == nil || rec.ShotID == nil || *rec.ShotID != shot.ID {
			continue
		}
		score := 0
		if old.Index == entry.Index {
			score++
		}
		if old.SourceIn().ToFrames() == entry.SourceIn().ToFrames() {
			score++
		}
		if old.SourceOut().ToFrames() == entry.SourceOut().ToFrames() {
			score++
		}
		switch {
		case versionCode == "":
			// any clip of the right shot is provisionally acceptable
			score += 100
		case rec.VersionCode == versionCode:
			score += 1000
		case rec.VersionCode == "":
			// no version on the old clip, keep as fallback
		default:
			// contradicting version, no bonus
		}
		if score > bestScore {
			best, bestScore, bestIdx = old, score, i
		}
	}
	if best != nil {
		*pool = append((*pool)[:bestIdx], (*pool)[bestIdx+1:]...)
	}
	return best
}

// versionConstraint returns the version code a match should prefer.
// In editorial workflows the clip name carries the version, so it is
// used as the constraint unless it is just the shot name again.
func (c *Clip) versionConstraint() string {
	if c.Name == "" || strings.EqualFold(c.Name, c.ShotName) {
		return ""
	}
	return c.Name
}

// perShotCountTypes are counted once per shot, using the shot-level
// diff type; everything else counts per entry.
var perShotCountTypes = map[DiffType]bool{
	New:        true,
	Omitted:    true,
	Reinstated: true,
	Rescan:     true,
}

func (td *TrackDiff) recount() {
	td.counts = make(map[DiffType]int)
	td.activeCount = 0
	for _, key := range td.order {
		group := td.groups[key]
		shotType := group.ShotDiffType()
		if perShotCountTypes[shotType] {
			td.counts[shotType]++
		} else {
			for _, e := range group.Entries() {
				t := e.DiffType()
				// entry-level in-cut types collapse into CUT_CHANGE
				// for counting only
				if t == NewInCut || t == OmittedInCut {
					t = CutChange
				}
				td.counts[t]++
			}
		}
		td.activeCount += len(group.CurrentEntries())
	}
}

// GroupNames returns the shot group names in first-seen order.
func (td *TrackDiff) GroupNames() []string {
	names := make([]string, 0, len(td.order))
	for _, key := range td.order {
		names = append(names, td.groups[key].Name)
	}
	return names
}

// Groups returns the diff groups in first-seen order.
func (td *TrackDiff) Groups() []*DiffGroup {
	groups := make([]*DiffGroup, 0, len(td.order))
	for _, key := range td.order {
		groups = append(groups, td.groups[key])
	}
	return groups
}

// Group returns the diff group for a shot name, or nil.
func (td *TrackDiff) Group(name string) *DiffGroup {
	return td.groups[strings.ToLower(name)]
}

// Counts returns the aggregate counts keyed by diff type. The returned
// map is a copy.
func (td *TrackDiff) Counts() map[DiffType]int {
	counts := make(map[DiffType]int, len(td.counts))
	for t, n := range td.counts {
		counts[t] = n
	}
	return counts
}

// Count returns the aggregate count for one diff type.
func (td *TrackDiff) Count(t DiffType) int { return td.counts[t] }

// ActiveCount returns the number of current, non-omitted entries.
func (td *TrackDiff) ActiveCount() int { return td.activeCount }

// TotalCount returns the number of entries, omitted ones included.
func (td *TrackDiff) TotalCount() int {
	n := 0
	for _, key := range td.order {
		n += len(td.groups[key].Entries())
	}
	return n
}
