// Package store persists cuts, cut items, shots and versions, and
// exposes them to the comparison engine through typed records. Entities
// are validated here, at the storage boundary, so the engine can rely on
// the optional fields being either nil or meaningful.
package store

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Ref identifies an entity by type and id.
type Ref struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Shot is a production shot. Cut fields are pointers because a Shot may
// never have been through a cut import, in which case they are unset.
type Shot struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	Status          string     `json:"status,omitempty"`
	HeadIn          *int       `json:"head_in,omitempty"`
	CutIn           *int       `json:"cut_in,omitempty"`
	CutOut          *int       `json:"cut_out,omitempty"`
	TailOut         *int       `json:"tail_out,omitempty"`
	CutDuration     *int       `json:"cut_duration,omitempty"`
	WorkingDuration *int       `json:"working_duration,omitempty"`
	CutOrder        *int       `json:"cut_order,omitempty"`
	HasEffects      bool       `json:"has_effects"`
	HasRetime       bool       `json:"has_retime"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Ref returns a reference to the shot.
func (s *Shot) Ref() Ref { return Ref{Type: "Shot", ID: s.ID} }

// Version is a reviewable take of a shot.
type Version struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	ShotID    *int64    `json:"shot_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ref returns a reference to the version.
func (v *Version) Ref() Ref { return Ref{Type: "Version", ID: v.ID} }

// Cut is one recorded revision of an edit.
type Cut struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Fps           float64   `json:"fps"`
	Revision      int       `json:"revision"`
	TimecodeStart string    `json:"timecode_start,omitempty"`
	TimecodeEnd   string    `json:"timecode_end,omitempty"`
	EntityType    string    `json:"entity_type,omitempty"`
	EntityID      int64     `json:"entity_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ref returns a reference to the cut.
func (c *Cut) Ref() Ref { return Ref{Type: "Cut", ID: c.ID} }

// CutItem is one clip of a recorded cut. CutItemIn/Out and EditIn/Out
// are frame numbers; the timecode fields hold the authoritative source
// range the frame numbers were derived from.
type CutItem struct {
	ID                 int64  `json:"id"`
	CutID              int64  `json:"cut_id"`
	Code               string `json:"code"`
	CutOrder           int    `json:"cut_order"`
	TimecodeCutItemIn  string `json:"timecode_cut_item_in"`
	TimecodeCutItemOut string `json:"timecode_cut_item_out"`
	TimecodeEditIn     string `json:"timecode_edit_in,omitempty"`
	TimecodeEditOut    string `json:"timecode_edit_out,omitempty"`
	CutItemIn          *int   `json:"cut_item_in,omitempty"`
	CutItemOut         *int   `json:"cut_item_out,omitempty"`
	EditIn             *int   `json:"edit_in,omitempty"`
	EditOut            *int   `json:"edit_out,omitempty"`
	CutItemDuration    *int   `json:"cut_item_duration,omitempty"`
	ShotID             *int64 `json:"shot_id,omitempty"`
	ShotCode           string `json:"shot_code,omitempty"`
	VersionID          *int64 `json:"version_id,omitempty"`
	VersionCode        string `json:"version_code,omitempty"`
	HasEffects         bool   `json:"has_effects"`
	HasRetime          bool   `json:"has_retime"`
	Description        string `json:"description,omitempty"`
}

// ShotRef returns a reference to the linked shot, or nil when the item
// is not linked.
func (ci *CutItem) ShotRef() *Ref {
	if ci.ShotID == nil {
		return nil
	}
	return &Ref{Type: "Shot", ID: *ci.ShotID}
}

// VersionRef returns a reference to the linked version, or nil.
func (ci *CutItem) VersionRef() *Ref {
	if ci.VersionID == nil {
		return nil
	}
	return &Ref{Type: "Version", ID: *ci.VersionID}
}

// Validate checks the fields the comparison engine relies on.
func (ci *CutItem) Validate() error {
	if ci.Code == "" {
		return fmt.Errorf("cut item has no code")
	}
	if ci.CutOrder < 1 {
		return fmt.Errorf("cut item %s: cut order %d is not 1-based", ci.Code, ci.CutOrder)
	}
	if ci.TimecodeCutItemIn == "" || ci.TimecodeCutItemOut == "" {
		return fmt.Errorf("cut item %s: missing source timecodes", ci.Code)
	}
	return nil
}

// Validate checks the fields required to reconstruct a track.
func (c *Cut) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("cut has no code")
	}
	if c.Fps <= 0 {
		return fmt.Errorf("cut %s: invalid fps %v", c.Code, c.Fps)
	}
	return nil
}

// IntPtr is a convenience for building optional int fields.
func IntPtr(v int) *int { return &v }

// Int64Ptr is a convenience for building optional int64 fields.
func Int64Ptr(v int64) *int64 { return &v }

// NewID returns a random identifier for request tracing.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
