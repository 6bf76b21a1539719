package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventregistry/internal/domain"
)

// StatusFor maps a service error to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, domain.ErrDuplicateRegistration),
		errors.Is(err, domain.ErrDuplicateWaitlist),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPaymentAlreadyLinked),
		errors.Is(err, domain.ErrPaymentNotSettled),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrEventHasRegistrations):
		return http.StatusConflict, ErrCodeConflict
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// WriteServiceError writes the error envelope for err. Infrastructure errors
// are logged and reported without their details.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, code, "internal error")
		return
	}
	WriteJSONError(w, status, code, err.Error())
}
