// Package handler serves the opus API: adding, listing, removing and
// purging works, and the catalog summary.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/pirex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/logger"
)

const maxBodyBytes = 16 << 20

type Library interface {
	AddOpus(ctx context.Context, sub catalog.Submission) (catalog.LoadSummary, error)
	RemoveOpus(ctx context.Context, ordinal int) error
	Purge(ctx context.Context)
	Opi() []catalog.Opus
	Opus(ordinal int) (catalog.Opus, error)
	Summary() string
	Stats() catalog.Stats
}

type Handler struct {
	library Library
	logger  *slog.Logger
}

func New(lib Library) *Handler {
	return &Handler{
		library: lib,
		logger:  slog.Default().With("component", "opus-handler"),
	}
}

// AddOpus handles POST /api/v1/opi.
func (h *Handler) AddOpus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.AddOpusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateAddOpus(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := req.Submission()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.library.AddOpus(ctx, sub)
	if err != nil {
		h.writeAppError(w, r, "adding opus failed", err)
		return
	}
	log.Info("opus added",
		"ordinal", summary.Ordinal,
		"documents", summary.Documents,
		"index_terms", summary.Terms,
	)
	h.writeJSON(w, http.StatusCreated, summary)
}

// ListOpi handles GET /api/v1/opi.
func (h *Handler) ListOpi(w http.ResponseWriter, r *http.Request) {
	opi := h.library.Opi()
	views := make([]ingestion.OpusView, 0, len(opi))
	for _, o := range opi {
		views = append(views, ingestion.ViewOf(o))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"opi": views, "count": len(views)})
}

// GetOpus handles GET /api/v1/opi/{ordinal}.
func (h *Handler) GetOpus(w http.ResponseWriter, r *http.Request) {
	ordinal, ok := h.ordinal(w, r)
	if !ok {
		return
	}
	opus, err := h.library.Opus(ordinal)
	if err != nil {
		h.writeAppError(w, r, "loading opus failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, opus)
}

// RemoveOpus handles DELETE /api/v1/opi/{ordinal}.
func (h *Handler) RemoveOpus(w http.ResponseWriter, r *http.Request) {
	ordinal, ok := h.ordinal(w, r)
	if !ok {
		return
	}
	if err := h.library.RemoveOpus(r.Context(), ordinal); err != nil {
		h.writeAppError(w, r, "removing opus failed", err)
		return
	}
	logger.FromContext(r.Context()).Info("opus removed", "ordinal", ordinal)
	w.WriteHeader(http.StatusNoContent)
}

// Purge handles DELETE /api/v1/opi.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	removed := h.library.Stats().Opi
	h.library.Purge(r.Context())
	logger.FromContext(r.Context()).Warn("catalog purged", "opi_removed", removed)
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "purged", "opi_removed": removed})
}

// Summary handles GET /api/v1/summary. It answers with the plain-text
// catalog summary unless format=json asks for the statistics instead.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		h.writeJSON(w, http.StatusOK, h.library.Stats())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(h.library.Summary() + "\n")); err != nil {
		h.logger.Error("failed to write summary", "error", err)
	}
}

func (h *Handler) ordinal(w http.ResponseWriter, r *http.Request) (int, bool) {
	ordinal, err := strconv.Atoi(r.PathValue("ordinal"))
	if err != nil || ordinal < 1 {
		h.writeError(w, http.StatusBadRequest, "ordinal must be a positive integer")
		return 0, false
	}
	return ordinal, true
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status_code", status)
		h.writeError(w, status, msg)
		return
	}
	log.Info(msg, "error", err, "status_code", status)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
