package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get* methods when no entity matches.
var ErrNotFound = errors.New("entity not found")

// ShotUpdate carries the cut fields a cut import writes back to a Shot.
// Nil fields are left untouched.
type ShotUpdate struct {
	Status          *string
	HeadIn          *int
	CutIn           *int
	CutOut          *int
	TailOut         *int
	CutDuration     *int
	WorkingDuration *int
	CutOrder        *int
	HasEffects      *bool
	HasRetime       *bool
}

// Batch operations.
const (
	BatchCreate = "create"
	BatchUpdate = "update"
)

// BatchRequest is one entry of a Batch call. Exactly one of Shot,
// Version or CutItem must be set for creates; updates carry the entity
// id plus a ShotUpdate.
type BatchRequest struct {
	Op         string
	Shot       *Shot
	Version    *Version
	CutItem    *CutItem
	ShotID     int64
	ShotUpdate *ShotUpdate
}

// Store is the production-tracking entity store the comparison engine
// reads recorded cuts and shots from. Implementations must keep Find*
// results in a stable order so comparisons stay deterministic.
type Store interface {
	CreateCut(ctx context.Context, cut *Cut) error
	GetCut(ctx context.Context, id int64) (*Cut, error)
	ListCuts(ctx context.Context, limit int) ([]*Cut, error)
	LatestCutForEntity(ctx context.Context, entityType string, entityID int64) (*Cut, error)

	CreateCutItems(ctx context.Context, items []*CutItem) error
	GetCutItems(ctx context.Context, cutID int64) ([]*CutItem, error)

	CreateShot(ctx context.Context, shot *Shot) error
	GetShot(ctx context.Context, id int64) (*Shot, error)
	// FindShotsByCodes matches codes case-insensitively and returns the
	// shots found, keyed by lowercased code.
	FindShotsByCodes(ctx context.Context, codes []string) (map[string]*Shot, error)
	UpdateShot(ctx context.Context, id int64, update *ShotUpdate) error

	CreateVersion(ctx context.Context, version *Version) error
	GetVersion(ctx context.Context, id int64) (*Version, error)
	FindVersionByCode(ctx context.Context, code string) (*Version, error)

	// Batch applies requests in order inside one transaction.
	Batch(ctx context.Context, requests []BatchRequest) error

	// Schema introspection: which entity types exist and which fields
	// each carries.
	EntityTypes(ctx context.Context) ([]string, error)
	FieldNames(ctx context.Context, entityType string) ([]string, error)
}
