package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps a service error onto the HTTP surface. The sentinel
// taxonomy maps one-to-one; anything unrecognized is an internal error and is
// logged with the resource name for correlation.
//
// Checks run most-specific first: ErrInvalidRole and ErrInvalidParent carry
// their own codes even though both are validation failures.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, resource string, err error) {
	var statusCode int
	var errorCode, message string

	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		statusCode, errorCode, message = http.StatusUnauthorized, "unauthorized", "Authentication required"
	case errors.Is(err, apperrors.ErrNotFound):
		statusCode, errorCode, message = http.StatusNotFound, "not_found", resource+" not found"
	case errors.Is(err, apperrors.ErrPermissionDenied):
		statusCode, errorCode, message = http.StatusForbidden, "forbidden", "Insufficient role for this operation"
	case errors.Is(err, apperrors.ErrLastOwner):
		statusCode, errorCode, message = http.StatusConflict, "last_owner", "Cannot remove the workspace's only owner"
	case errors.Is(err, apperrors.ErrConflict):
		statusCode, errorCode, message = http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, apperrors.ErrInvalidRole):
		statusCode, errorCode, message = http.StatusBadRequest, "invalid_role", err.Error()
	case errors.Is(err, apperrors.ErrInvalidParent):
		statusCode, errorCode, message = http.StatusBadRequest, "invalid_parent", err.Error()
	case errors.Is(err, apperrors.ErrValidation):
		statusCode, errorCode, message = http.StatusBadRequest, "invalid_input", err.Error()
	default:
		logger.Error("Unhandled service error",
			zap.String("resource", resource),
			zap.Error(err))
		statusCode, errorCode, message = http.StatusInternalServerError, "internal_error", "Internal server error"
	}

	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
