package fines

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/librisys/librisys/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the fines module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the fines handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers fines routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/members/{memberID}", h.currentFine)
	r.Get("/settings", h.settings)
}

func (h *Handler) currentFine(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	outstanding, err := h.service.CurrentFine(r.Context(), memberID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"member_id":        memberID,
		"outstanding_fine": outstanding,
	})
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	rate, err := h.service.PerDayFine(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"per_day_fine": rate})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSettingsMissing) {
		httpx.Problem(w, http.StatusConflict, "Fine Settings Missing", err.Error())
		return
	}
	h.logger.Error("fines request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
