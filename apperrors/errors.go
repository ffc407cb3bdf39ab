package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel error kinds. Callers branch on these with errors.Is rather than
// parsing messages; wrap with fmt.Errorf("%w: ...") to add detail.
var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrInvalidCredential = errors.New("invalid or expired credential")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrBadReference      = errors.New("referenced entity not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInfrastructure    = errors.New("internal error")
)

// HTTPStatus maps an error kind to its response status code.
// Unknown errors are treated as infrastructure failures.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadReference):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
