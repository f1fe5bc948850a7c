package handler

import (
	"errors"
	"net/http"

	"github.com/payfone/prefill-verify/internal/domain"
)

// httpError maps domain sentinel errors to HTTP statuses. Provider failures
// deliberately hide the underlying message.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrCapReached),
		errors.Is(err, domain.ErrTooSoon):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotEligible):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrProvider):
		writeError(w, http.StatusInternalServerError, "verification provider error")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
