package circulation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the circulation module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the circulation handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers circulation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/issues", h.issueDirect)
	r.Post("/returns/{id}", h.recordReturn)
	r.Get("/members/{memberID}/loans", h.memberLoans)
}

type issueRequest struct {
	ISBN     string `json:"isbn" validate:"required,isbn"`
	MemberID string `json:"member_id" validate:"required"`
}

type returnRequest struct {
	Condition  string   `json:"condition" validate:"required,oneof=GOOD DAMAGED"`
	DamageFine *float64 `json:"damage_fine" validate:"omitempty,gte=0"`
}

type recordResponse struct {
	ID               string   `json:"id"`
	ISBN             string   `json:"isbn"`
	MemberID         string   `json:"member_id"`
	IssueDate        string   `json:"issue_date"`
	DueDate          *string  `json:"due_date,omitempty"`
	ActualReturnDate *string  `json:"actual_return_date,omitempty"`
	Condition        string   `json:"condition,omitempty"`
	DamageFine       *float64 `json:"damage_fine,omitempty"`
}

type returnResponse struct {
	Record          recordResponse `json:"record"`
	OutstandingFine float64        `json:"outstanding_fine"`
	DamageFine      float64        `json:"damage_fine"`
}

func toRecordResponse(rec Record) recordResponse {
	out := recordResponse{
		ID:         rec.ID,
		ISBN:       rec.ISBN,
		MemberID:   rec.MemberID,
		IssueDate:  rec.IssueDate.Format(time.RFC3339),
		Condition:  string(rec.Condition),
		DamageFine: rec.DamageFine,
	}
	if rec.DueDate != nil {
		due := rec.DueDate.Format(time.RFC3339)
		out.DueDate = &due
	}
	if rec.ActualReturnDate != nil {
		ret := rec.ActualReturnDate.Format(time.RFC3339)
		out.ActualReturnDate = &ret
	}
	return out
}

func (h *Handler) issueDirect(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	rec, err := h.service.IssueDirect(r.Context(), IssueInput{ISBN: req.ISBN, MemberID: req.MemberID})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (h *Handler) recordReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.RecordReturn(r.Context(), ReturnInput{
		RecordID:   chi.URLParam(r, "id"),
		Condition:  Condition(req.Condition),
		DamageFine: req.DamageFine,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, returnResponse{
		Record:          toRecordResponse(result.Record),
		OutstandingFine: result.OutstandingFine,
		DamageFine:      result.DamageFine,
	})
}

func (h *Handler) memberLoans(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.MemberLoans(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Record Not Found", err.Error())
	case errors.Is(err, ErrAlreadyReturned):
		httpx.Problem(w, http.StatusConflict, "Already Returned", err.Error())
	case errors.Is(err, ErrInvalidCondition), errors.Is(err, ErrInvalidDamageFine):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, catalog.ErrNoCopiesAvailable):
		httpx.Problem(w, http.StatusConflict, "No Copies Available", err.Error())
	case errors.Is(err, catalog.ErrTitleNotFound):
		httpx.Problem(w, http.StatusNotFound, "Title Not Found", err.Error())
	default:
		h.logger.Error("circulation request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
