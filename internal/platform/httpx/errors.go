package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/librisys/librisys/internal/platform/db"
)

// Shared sentinel errors for the HTTP layer.
var (
	ErrValidation = errors.New("validation failed")
)

// RespondError maps cross-cutting errors to HTTP problem responses. Domain
// handlers match their own sentinels first and fall back to this for store
// level failures, so a caller can tell a transient fault (retry now) from an
// operator error.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusServiceUnavailable, "Store Timeout", "the operation may or may not have been applied; retry is safe for idempotent operations")
	case errors.Is(err, db.ErrTxConflict):
		Problem(w, http.StatusServiceUnavailable, "Store Conflict", "concurrent update conflict, retry shortly")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
