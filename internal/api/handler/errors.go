package handler

import (
	"errors"
	"net/http"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/api/models"
	"github.com/amedasmap/amedasmap/internal/api/response"
)

// noSnapshotRetryAfter is the Retry-After hint while the first snapshot loads.
const noSnapshotRetryAfter = 30

// writeError maps a service error to its problem response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, amedas.ErrStationNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, amedas.ErrUnknownElement):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "element", Message: "unknown element", Code: "INVALID"},
		})
	case errors.Is(err, amedas.ErrNoSnapshot):
		response.ServiceUnavailable(w, r, err.Error(), noSnapshotRetryAfter)
	case errors.Is(err, amedas.ErrWrongURL),
		errors.Is(err, amedas.ErrHTTP),
		errors.Is(err, amedas.ErrParse):
		response.BadGateway(w, r, err.Error())
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
