package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MemoryStore is an in-memory Store used in tests and for one-shot
// comparisons that never touch disk.
type MemoryStore struct {
	cuts     map[int64]*Cut
	cutItems map[int64][]*CutItem
	shots    map[int64]*Shot
	versions map[int64]*Version
	nextID   int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cuts:     make(map[int64]*Cut),
		cutItems: make(map[int64][]*CutItem),
		shots:    make(map[int64]*Shot),
		versions: make(map[int64]*Version),
	}
}

func (s *MemoryStore) nextSequence() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateCut(ctx context.Context, c *Cut) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == 0 {
		c.ID = s.nextSequence()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.cuts[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCut(ctx context.Context, id int64) (*Cut, error) {
	c, ok := s.cuts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListCuts(ctx context.Context, limit int) ([]*Cut, error) {
	var cuts []*Cut
	for _, c := range s.cuts {
		cuts = append(cuts, c)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].ID > cuts[j].ID })
	if limit > 0 && len(cuts) > limit {
		cuts = cuts[:limit]
	}
	return cuts, nil
}

func (s *MemoryStore) LatestCutForEntity(ctx context.Context, entityType string, entityID int64) (*Cut, error) {
	var latest *Cut
	for _, c := range s.cuts {
		if c.EntityType != entityType || c.EntityID != entityID {
			continue
		}
		if latest == nil || c.Revision > latest.Revision ||
			(c.Revision == latest.Revision && c.ID > latest.ID) {
			latest = c
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) CreateCutItems(ctx context.Context, items []*CutItem) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if item.ID == 0 {
			item.ID = s.nextSequence()
		}
		s.cutItems[item.CutID] = append(s.cutItems[item.CutID], item)
	}
	return nil
}

func (s *MemoryStore) GetCutItems(ctx context.Context, cutID int64) ([]*CutItem, error) {
	items := append([]*CutItem(nil), s.cutItems[cutID]...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].CutOrder < items[j].CutOrder })
	return items, nil
}

func (s *MemoryStore) CreateShot(ctx context.Context, shot *Shot) error {
	if shot.ID == 0 {
		shot.ID = s.nextSequence()
	}
	now := time.Now()
	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = now
	}
	shot.UpdatedAt = now
	s.shots[shot.ID] = shot
	return nil
}

func (s *MemoryStore) GetShot(ctx context.Context, id int64) (*Shot, error) {
	shot, ok := s.shots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return shot, nil
}

func (s *MemoryStore) FindShotsByCodes(ctx context.Context, codes []string) (map[string]*Shot, error) {
	wanted := make(map[string]bool, len(codes))
	for _, code := range codes {
		wanted[strings.ToLower(code)] = true
	}
	result := make(map[string]*Shot)
	ids := make([]int64, 0, len(s.shots))
	for id := range s.shots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		shot := s.shots[id]
		key := strings.ToLower(shot.Code)
		if wanted[key] {
			if _, seen := result[key]; !seen {
				result[key] = shot
			}
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateShot(ctx context.Context, id int64, update *ShotUpdate) error {
	shot, ok := s.shots[id]
	if !ok {
		return ErrNotFound
	}
	if update.Status != nil {
		shot.Status = *update.Status
	}
	if update.HeadIn != nil {
		shot.HeadIn = update.HeadIn
	}
	if update.CutIn != nil {
		shot.CutIn = update.CutIn
	}
	if update.CutOut != nil {
		shot.CutOut = update.CutOut
	}
	if update.TailOut != nil {
		shot.TailOut = update.TailOut
	}
	if update.CutDuration != nil {
		shot.CutDuration = update.CutDuration
	}
	if update.WorkingDuration != nil {
		shot.WorkingDuration = update.WorkingDuration
	}
	if update.CutOrder != nil {
		shot.CutOrder = update.CutOrder
	}
	if update.HasEffects != nil {
		shot.HasEffects = *update.HasEffects
	}
	if update.HasRetime != nil {
		shot.HasRetime = *update.HasRetime
	}
	shot.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateVersion(ctx context.Context, v *Version) error {
	if v.ID == 0 {
		v.ID = s.nextSequence()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	s.versions[v.ID] = v
	return nil
}

func (s *MemoryStore) GetVersion(ctx context.Context, id int64) (*Version, error) {
	v, ok := s.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) FindVersionByCode(ctx context.Context, code string) (*Version, error) {
	var found *Version
	for _, v := range s.versions {
		if v.Code == code && (found == nil || v.ID > found.ID) {
			found = v
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) Batch(ctx context.Context, requests []BatchRequest) error {
	for i, req := range requests {
		var err error
		switch {
		case req.Op == BatchCreate && req.CutItem != nil:
			err = s.CreateCutItems(ctx, []*CutItem{req.CutItem})
		case req.Op == BatchCreate && req.Shot != nil:
			err = s.CreateShot(ctx, req.Shot)
		case req.Op == BatchCreate && req.Version != nil:
			err = s.CreateVersion(ctx, req.Version)
		case req.Op == BatchUpdate && req.ShotUpdate != nil:
			err = s.UpdateShot(ctx, req.ShotID, req.ShotUpdate)
		default:
			err = fmt.Errorf("unsupported operation %q", req.Op)
		}
		if err != nil {
			return fmt.Errorf("batch request %d: %w", i, err)
		}
	}
	return nil
}

func (s *MemoryStore) EntityTypes(ctx context.Context) ([]string, error) {
	return []string{"Cut", "CutItem", "Shot", "Version"}, nil
}

func (s *MemoryStore) FieldNames(ctx context.Context, entityType string) ([]string, error) {
	switch entityType {
	case "Cut":
		return []string{"id", "code", "fps", "revision", "timecode_start", "timecode_end", "entity_type", "entity_id", "description", "created_at"}, nil
	case "CutItem":
		return []string{"id", "cut_id", "code", "cut_order", "timecode_cut_item_in", "timecode_cut_item_out", "cut_item_in", "cut_item_out", "edit_in", "edit_out", "cut_item_duration", "shot_id", "version_id"}, nil
	case "Shot":
		return []string{"id", "code", "status", "head_in", "cut_in", "cut_out", "tail_out", "cut_duration", "working_duration", "cut_order", "has_effects", "has_retime"}, nil
	case "Version":
		return []string{"id", "code", "shot_id"}, nil
	}
	return nil, fmt.Errorf("unknown entity type %q", entityType)
}
