package reservation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/circulation"
	"github.com/librisys/librisys/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the reservation module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the reservation handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers reservation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/issue", h.convertToIssue)
}

type createReservationRequest struct {
	ISBN     string `json:"isbn" validate:"required,isbn"`
	MemberID string `json:"member_id" validate:"required"`
}

type reservationResponse struct {
	ID        string `json:"id"`
	ISBN      string `json:"isbn"`
	MemberID  string `json:"member_id"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
}

func toReservationResponse(res Reservation) reservationResponse {
	return reservationResponse{
		ID:        res.ID,
		ISBN:      res.ISBN,
		MemberID:  res.MemberID,
		CreatedAt: res.CreatedAt.Format(time.RFC3339),
		Status:    string(res.Status),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	res, err := h.service.Create(r.Context(), req.ISBN, req.MemberID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReservationResponse(res))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReservationResponse(res))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	member := r.URL.Query().Get("member_id")
	isbn := r.URL.Query().Get("isbn")

	var (
		reservations []Reservation
		err          error
	)
	switch {
	case member != "":
		reservations, err = h.service.ListByMember(r.Context(), member)
	case isbn != "":
		reservations, err = h.service.ListByISBN(r.Context(), isbn)
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "member_id or isbn query parameter required")
		return
	}
	if err != nil {
		h.respondError(w, err)
		return
	}

	out := make([]reservationResponse, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, toReservationResponse(res))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) convertToIssue(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.ConvertToIssue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"record_id":  rec.ID,
		"isbn":       rec.ISBN,
		"member_id":  rec.MemberID,
		"issue_date": rec.IssueDate.Format(time.RFC3339),
		"due_date":   rec.DueDate.Format(time.RFC3339),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Reservation Not Found", err.Error())
	case errors.Is(err, ErrNotPending):
		httpx.Problem(w, http.StatusConflict, "Reservation Not Pending", err.Error())
	case errors.Is(err, catalog.ErrNoCopiesAvailable):
		httpx.Problem(w, http.StatusConflict, "No Copies Available", err.Error())
	case errors.Is(err, catalog.ErrTitleNotFound):
		httpx.Problem(w, http.StatusNotFound, "Title Not Found", err.Error())
	case errors.Is(err, circulation.ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Record Not Found", err.Error())
	default:
		h.logger.Error("reservation request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
