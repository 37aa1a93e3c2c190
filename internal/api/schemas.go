package api

import "github.com/cutlens/cutlens/internal/store"

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

// SchemaResponse maps entity type names to their field names.
type SchemaResponse struct {
	Entities map[string][]string `json:"entities"`
}

type CutsResponse struct {
	Cuts []*store.Cut `json:"cuts"`
}

type CutDetailResponse struct {
	Cut   *store.Cut       `json:"cut"`
	Items []*store.CutItem `json:"items"`
}

// ImportRequest carries an EDL to store as a new cut revision.
type ImportRequest struct {
	EDL         string  `json:"edl"`
	Rate        float64 `json:"rate,omitempty"`
	EntityType  string  `json:"entity_type,omitempty"`
	EntityID    int64   `json:"entity_id,omitempty"`
	Description string  `json:"description,omitempty"`
}

// CompareRequest carries an EDL to diff against a stored cut. An
// OldCutID of 0 compares against nothing, every shot comes out new.
type CompareRequest struct {
	EDL      string  `json:"edl"`
	Rate     float64 `json:"rate,omitempty"`
	OldCutID int64   `json:"old_cut_id,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
