package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutlens/cutlens/internal/cutdiff"
	"github.com/cutlens/cutlens/internal/edl"
	"github.com/cutlens/cutlens/internal/export"
	"github.com/cutlens/cutlens/internal/report"
	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
)

const defaultListLimit = 50

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/schema", schemaHandler(cfg))
	r.Get("/cuts", listCutsHandler(cfg))
	r.Get("/cuts/{id}", getCutHandler(cfg))
	r.Get("/cuts/{id}/edl", exportCutHandler(cfg))
	r.Post("/cuts", importCutHandler(cfg))
	r.Post("/compare", compareHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func schemaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := cfg.Store.EntityTypes(r.Context())
		if err != nil {
			cfg.Logger.Error("read schema", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to read schema", "INTERNAL_ERROR")
			return
		}
		entities := make(map[string][]string, len(types))
		for _, entityType := range types {
			fields, err := cfg.Store.FieldNames(r.Context(), entityType)
			if err != nil {
				cfg.Logger.Error("read schema fields", "entity_type", entityType, "error", err)
				WriteError(w, http.StatusInternalServerError, "failed to read schema", "INTERNAL_ERROR")
				return
			}
			entities[entityType] = fields
		}
		WriteJSON(w, http.StatusOK, SchemaResponse{Entities: entities})
	}
}

func listCutsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "invalid limit", "BAD_REQUEST")
				return
			}
			limit = n
		}

		cuts, err := cfg.Store.ListCuts(r.Context(), limit)
		if err != nil {
			cfg.Logger.Error("list cuts", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to list cuts", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, CutsResponse{Cuts: cuts})
	}
}

func getCutHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid cut id", "BAD_REQUEST")
			return
		}

		cut, err := cfg.Store.GetCut(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "cut not found", "NOT_FOUND")
			return
		}
		if err != nil {
			cfg.Logger.Error("get cut", "cut_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to get cut", "INTERNAL_ERROR")
			return
		}
		items, err := cfg.Store.GetCutItems(r.Context(), id)
		if err != nil {
			cfg.Logger.Error("get cut items", "cut_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to get cut items", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, CutDetailResponse{Cut: cut, Items: items})
	}
}

func exportCutHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid cut id", "BAD_REQUEST")
			return
		}

		cut, err := cfg.Store.GetCut(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "cut not found", "NOT_FOUND")
			return
		}
		if err != nil {
			cfg.Logger.Error("get cut", "cut_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to get cut", "INTERNAL_ERROR")
			return
		}
		items, err := cfg.Store.GetCutItems(r.Context(), id)
		if err != nil {
			cfg.Logger.Error("get cut items", "cut_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to get cut items", "INTERNAL_ERROR")
			return
		}

		text, err := export.EDL(cut, items)
		if err != nil {
			cfg.Logger.Error("export cut", "cut_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to export cut", "INTERNAL_ERROR")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
	}
}

func importCutHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		track, ok := parseEDLRequest(w, req.EDL, req.Rate)
		if !ok {
			return
		}

		writer := cutdiff.NewWriter(cfg.Store, cfg.Settings, cfg.Logger)
		cut, err := writer.WriteCut(r.Context(), track, req.EntityType, req.EntityID, req.Description)
		if err != nil {
			cfg.Logger.Error("import cut", "error", err)
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		items, err := cfg.Store.GetCutItems(r.Context(), cut.ID)
		if err != nil {
			cfg.Logger.Error("get cut items", "cut_id", cut.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to get cut items", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusCreated, CutDetailResponse{Cut: cut, Items: items})
	}
}

func compareHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		track, ok := parseEDLRequest(w, req.EDL, req.Rate)
		if !ok {
			return
		}

		td, err := cutdiff.Compare(r.Context(), cfg.Store, track, req.OldCutID, cfg.Settings, cfg.Logger)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "old cut not found", "NOT_FOUND")
				return
			}
			cfg.Logger.Error("compare", "old_cut_id", req.OldCutID, "error", err)
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, report.Build(td, track.Name))
	}
}

func parseEDLRequest(w http.ResponseWriter, text string, rate float64) (*timeline.Track, bool) {
	if text == "" {
		WriteError(w, http.StatusBadRequest, "edl is required", "BAD_REQUEST")
		return nil, false
	}
	if rate == 0 {
		rate = 24
	}
	track, err := edl.Read(strings.NewReader(text), rate)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return nil, false
	}
	return track, true
}
