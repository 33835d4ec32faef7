package authz

import (
	"errors"
	"net/http"

	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// RespondError maps access-control domain errors to HTTP problem responses.
// ErrEngineUnavailable becomes 503: the check could not run and the caller
// must treat that as a denial, never as permission to proceed.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCatalogValue):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Catalog Value", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate Name", err.Error())
	case errors.Is(err, ErrAlreadyAssigned):
		httpx.Problem(w, http.StatusConflict, "Already Assigned", err.Error())
	case errors.Is(err, ErrImmutable):
		httpx.Problem(w, http.StatusConflict, "Immutable", err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Role In Use", err.Error())
	case errors.Is(err, ErrEngineUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Access Check Unavailable", "access could not be verified")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
