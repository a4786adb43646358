package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/vinylscout/vinylscout/pkg/client"
	"github.com/vinylscout/vinylscout/pkg/logging"
	"github.com/vinylscout/vinylscout/pkg/record"
	"github.com/vinylscout/vinylscout/pkg/sampler"
)

// StaleHeader flags responses served from a stale cache entry after a
// pipeline failure, so callers and dashboards can track degraded reads.
const StaleHeader = "X-Vinylscout-Cache"

// requestTimeout bounds one inbound request end to end. Generous
// because a cold style pays for a full paced enrichment batch.
const requestTimeout = 90 * time.Second

// phasedResponse is the response envelope in phased mode.
type phasedResponse struct {
	Records    []record.Record `json:"records"`
	IsComplete bool            `json:"isComplete"`
	Sample     string          `json:"sample,omitempty"`
}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	service *Service
	logger  zerolog.Logger
}

// NewHandler creates an HTTP handler for the pipeline service.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
		logger:  logging.NewLogger("http"),
	}
}

// RegisterRoutes attaches the record routes to a router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/records", h.GetRecords).Methods("GET")
}

// GetRecords serves GET /records?style=<s>[&phase=basic|complete][&sample=<handle>].
//
// Non-phased responses are a bare record array; phased responses wrap
// the records with an isComplete marker. Partial per-record enrichment
// failures are invisible here: they only show up as absent optional
// fields.
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	style := r.URL.Query().Get("style")
	if style == "" {
		h.respondWithError(w, http.StatusBadRequest, "query parameter 'style' is required")
		return
	}

	phase := r.URL.Query().Get("phase")

	var (
		result *Result
		err    error
	)
	switch phase {
	case "":
		result, err = h.service.Records(ctx, style)
	case "basic":
		result, err = h.service.RecordsBasic(ctx, style)
	case "complete":
		result, err = h.service.RecordsComplete(ctx, style, r.URL.Query().Get("sample"))
	default:
		h.respondWithError(w, http.StatusBadRequest, "phase must be 'basic' or 'complete'")
		return
	}

	if err != nil {
		h.respondWithPipelineError(w, style, err)
		return
	}

	if result.Stale {
		w.Header().Set(StaleHeader, "stale")
	}

	if phase == "" {
		h.respondWithJSON(w, http.StatusOK, result.Records)
		return
	}
	h.respondWithJSON(w, http.StatusOK, phasedResponse{
		Records:    result.Records,
		IsComplete: result.IsComplete,
		Sample:     result.SampleHandle,
	})
}

// respondWithPipelineError maps pipeline failures to the inbound
// contract: 404 for empty styles, 500 for everything else.
func (h *Handler) respondWithPipelineError(w http.ResponseWriter, style string, err error) {
	switch {
	case errors.Is(err, sampler.ErrNoResults):
		h.respondWithError(w, http.StatusNotFound, "no records found for style "+style)
	case errors.Is(err, client.ErrTokenNotConfigured):
		h.logger.Error().Str("style", style).Msg("Marketplace token not configured")
		h.respondWithError(w, http.StatusInternalServerError, "marketplace credentials not configured")
	default:
		h.logger.Error().Err(err).Str("style", style).Msg("Pipeline request failed")
		h.respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
