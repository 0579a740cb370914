package ledger

import (
	"errors"
	"net/http"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// RespondError maps ledger sentinel errors to RFC7807 problem responses.
// It lives here rather than in platform/httpx so the transport helpers stay
// free of domain imports; every handler package already depends on ledger.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPeriodNotFound),
		errors.Is(err, ErrUnknownAccount):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrSourceAlreadyLinked):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrPeriodClosed),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid State", err.Error())
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrTooFewLines):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
