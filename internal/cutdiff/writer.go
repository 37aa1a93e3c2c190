package cutdiff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cutlens/cutlens/internal/config"
	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
)

// Writer persists a scanned track as a cut with items, creating
// missing shots and updating the linked shots' boundary fields.
type Writer struct {
	store    store.Store
	settings *Settings
	logger   *slog.Logger
}

// NewWriter returns a Writer persisting through st.
func NewWriter(st store.Store, settings *Settings, logger *slog.Logger) *Writer {
	return &Writer{store: st, settings: settings, logger: logger}
}

// WriteCut stores the track as a new revision of the cut for the given
// entity. Shots referenced by the track are created when missing and
// their head/cut/tail fields updated; shots sitting in an omitted
// status are reinstated.
func (w *Writer) WriteCut(ctx context.Context, track *timeline.Track, entityType string, entityID int64, description string) (*store.Cut, error) {
	clips, err := wrapClips(track, w.settings, w.logger)
	if err != nil {
		return nil, err
	}
	rate := track.FrameRate()
	if rate == 0 {
		return nil, fmt.Errorf("track %q: %w", track.Name, ErrNoFrameRate)
	}

	revision := 1
	if prev, err := w.store.LatestCutForEntity(ctx, entityType, entityID); err == nil {
		revision = prev.Revision + 1
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("look up latest cut: %w", err)
	}

	cut := &store.Cut{
		Code:          track.Name,
		Fps:           rate,
		Revision:      revision,
		TimecodeStart: track.Start.ToTimecode(),
		TimecodeEnd:   track.Start.Add(track.Duration()).ToTimecode(),
		EntityType:    entityType,
		EntityID:      entityID,
		Description:   description,
	}
	if err := w.store.CreateCut(ctx, cut); err != nil {
		return nil, fmt.Errorf("create cut: %w", err)
	}

	groups, order, err := w.groupClips(clips)
	if err != nil {
		return nil, err
	}
	shots, err := w.resolveShots(ctx, groups, order)
	if err != nil {
		return nil, err
	}

	var requests []store.BatchRequest
	cutOrder := 0
	for _, key := range order {
		group := groups[key]
		shot := shots[key]
		if shot != nil {
			requests = append(requests, store.BatchRequest{
				Op:         store.BatchUpdate,
				ShotID:     shot.ID,
				ShotUpdate: w.shotUpdate(group, shot),
			})
		}
	}
	versions, err := w.resolveVersions(ctx, clips, shots)
	if err != nil {
		return nil, err
	}
	for _, clip := range clips {
		cutOrder++
		requests = append(requests, store.BatchRequest{
			Op:      store.BatchCreate,
			CutItem: w.cutItem(cut, clip, cutOrder, shots, versions),
		})
	}
	if err := w.store.Batch(ctx, requests); err != nil {
		return nil, fmt.Errorf("write cut %q: %w", cut.Code, err)
	}
	if w.logger != nil {
		w.logger.Info("cut written",
			"cut", cut.Code, "revision", cut.Revision, "items", len(clips))
	}
	return cut, nil
}

// groupClips groups the track's clips by shot identity, keeping
// first-seen key order.
func (w *Writer) groupClips(clips []*Clip) (map[string]*Group, []string, error) {
	groups := make(map[string]*Group)
	var order []string
	for _, clip := range clips {
		if clip.ShotName == "" {
			continue
		}
		key := strings.ToLower(clip.ShotName)
		group, ok := groups[key]
		if !ok {
			group = NewGroup(clip.ShotName)
			groups[key] = group
			order = append(order, key)
		}
		if err := group.AddClip(clip); err != nil {
			return nil, nil, err
		}
	}
	return groups, order, nil
}

// resolveShots finds the shots the groups reference and creates the
// missing ones.
func (w *Writer) resolveShots(ctx context.Context, groups map[string]*Group, order []string) (map[string]*store.Shot, error) {
	codes := make([]string, 0, len(order))
	for _, key := range order {
		codes = append(codes, groups[key].Name)
	}
	shots, err := w.store.FindShotsByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("resolve shots: %w", err)
	}
	for _, key := range order {
		if shots[key] != nil {
			continue
		}
		shot := &store.Shot{Code: groups[key].Name}
		if err := w.store.CreateShot(ctx, shot); err != nil {
			return nil, fmt.Errorf("create shot %q: %w", shot.Code, err)
		}
		if w.logger != nil {
			w.logger.Info("shot created", "shot", shot.Code)
		}
		shots[key] = shot
	}
	for _, key := range order {
		if err := groups[key].SetShot(shots[key]); err != nil {
			return nil, err
		}
	}
	return shots, nil
}

// shotUpdate builds the boundary update for a shot from its group. A
// shot found in an omitted status is reinstated; the configured
// sentinel keeps whatever status the shot had before omission, which
// without status history means leaving it untouched.
func (w *Writer) shotUpdate(group *Group, shot *store.Shot) *store.ShotUpdate {
	update := &store.ShotUpdate{
		HeadIn:          store.IntPtr(group.HeadIn().ToFrames()),
		CutIn:           store.IntPtr(group.CutIn().ToFrames()),
		CutOut:          store.IntPtr(group.CutOut().ToFrames()),
		TailOut:         store.IntPtr(group.TailOut().ToFrames()),
		CutDuration:     store.IntPtr(group.Duration().ToFrames()),
		WorkingDuration: store.IntPtr(group.WorkingDuration().ToFrames()),
		CutOrder:        store.IntPtr(group.Index()),
		HasEffects:      boolPtr(group.HasEffects()),
		HasRetime:       boolPtr(group.HasRetime()),
	}
	if w.settings.isOmittedStatus(shot.Status) &&
		w.settings.ReinstateStatus != "" &&
		w.settings.ReinstateStatus != config.ReinstateFromPreviousStatus {
		update.Status = &w.settings.ReinstateStatus
	}
	return update
}

// resolveVersions finds or creates the versions named by the clips.
func (w *Writer) resolveVersions(ctx context.Context, clips []*Clip, shots map[string]*store.Shot) (map[string]*store.Version, error) {
	versions := make(map[string]*store.Version)
	for _, clip := range clips {
		code := clip.versionConstraint()
		if code == "" || versions[code] != nil {
			continue
		}
		version, err := w.store.FindVersionByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			version = &store.Version{Code: code}
			if shot := shots[strings.ToLower(clip.ShotName)]; shot != nil {
				version.ShotID = store.Int64Ptr(shot.ID)
			}
			if err := w.store.CreateVersion(ctx, version); err != nil {
				return nil, fmt.Errorf("create version %q: %w", code, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("resolve version %q: %w", code, err)
		}
		versions[code] = version
	}
	return versions, nil
}

// cutItem builds the stored item for one clip.
func (w *Writer) cutItem(cut *store.Cut, clip *Clip, cutOrder int, shots map[string]*store.Shot, versions map[string]*store.Version) *store.CutItem {
	item := &store.CutItem{
		CutID:              cut.ID,
		Code:               clip.UniqueName,
		CutOrder:           cutOrder,
		TimecodeCutItemIn:  clip.SourceIn().ToTimecode(),
		TimecodeCutItemOut: clip.SourceOut().ToTimecode(),
		TimecodeEditIn:     clip.RecordIn().ToTimecode(),
		TimecodeEditOut:    clip.RecordOut().ToTimecode(),
		CutItemIn:          store.IntPtr(clip.CutIn().ToFrames()),
		CutItemOut:         store.IntPtr(clip.CutOut().ToFrames()),
		EditIn:             store.IntPtr(clip.EditIn().ToFrames()),
		EditOut:            store.IntPtr(clip.EditOut().ToFrames()),
		CutItemDuration:    store.IntPtr(clip.VisibleDuration().ToFrames()),
		HasEffects:         clip.HasEffects(),
		HasRetime:          clip.HasRetime(),
	}
	if clip.ShotName != "" {
		if shot := shots[strings.ToLower(clip.ShotName)]; shot != nil {
			item.ShotID = store.Int64Ptr(shot.ID)
			item.ShotCode = shot.Code
		}
	}
	if code := clip.versionConstraint(); code != "" {
		item.VersionCode = code
		if version := versions[code]; version != nil {
			item.VersionID = store.Int64Ptr(version.ID)
		}
	}
	return item
}

func boolPtr(b bool) *bool { return &b }
