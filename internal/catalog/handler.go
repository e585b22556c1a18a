package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/librisys/librisys/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the catalog module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/titles", h.createTitle)
	r.Get("/titles", h.listTitles)
	r.Get("/titles/{isbn}", h.getTitle)
}

type createTitleRequest struct {
	ISBN        string `json:"isbn" validate:"required,isbn"`
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author"`
	TotalCopies int    `json:"total_copies" validate:"required,gt=0"`
}

type titleResponse struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

func toTitleResponse(t BookTitle) titleResponse {
	return titleResponse{
		ISBN:            t.ISBN,
		Title:           t.Title,
		Author:          t.Author,
		TotalCopies:     t.TotalCopies,
		AvailableCopies: t.AvailableCopies,
	}
}

func (h *Handler) createTitle(w http.ResponseWriter, r *http.Request) {
	var req createTitleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	title, err := h.service.CreateTitle(r.Context(), BookTitle{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		TotalCopies: req.TotalCopies,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTitleResponse(title))
}

func (h *Handler) getTitle(w http.ResponseWriter, r *http.Request) {
	title, err := h.service.GetTitle(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTitleResponse(title))
}

func (h *Handler) listTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.service.ListTitles(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]titleResponse, 0, len(titles))
	for _, t := range titles {
		out = append(out, toTitleResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTitleNotFound):
		httpx.Problem(w, http.StatusNotFound, "Title Not Found", err.Error())
	case errors.Is(err, ErrDuplicateTitle):
		httpx.Problem(w, http.StatusConflict, "Duplicate Title", err.Error())
	case errors.Is(err, ErrInvalidCopyCount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("catalog request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
