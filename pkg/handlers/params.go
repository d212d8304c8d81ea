package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseWorkspaceID extracts and validates the workspace ID from the request
// path. Returns the parsed UUID and true on success, or uuid.Nil and false on
// error (after writing an error response).
// Expects path parameter: wid
func ParseWorkspaceID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "wid", "invalid_workspace_id", "Invalid workspace ID format", logger)
}

// ParseProjectID extracts and validates the project ID from the request path.
// Expects path parameter: pid
func ParseProjectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "pid", "invalid_project_id", "Invalid project ID format", logger)
}

// ParseModelID extracts and validates the scene model ID from the request
// path. Expects path parameter: mid
func ParseModelID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "mid", "invalid_model_id", "Invalid model ID format", logger)
}

// ParseMaterialID extracts and validates the material ID from the request
// path. Expects path parameter: mid
func ParseMaterialID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "mid", "invalid_material_id", "Invalid material ID format", logger)
}

// ParseMemberID extracts and validates the member's user ID from the request
// path. Expects path parameter: uid
func ParseMemberID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "uid", "invalid_user_id", "Invalid user ID format", logger)
}

// ParseVersionNumber extracts and validates the version number from the
// request path. Version numbers start at 1. Expects path parameter: num
func ParseVersionNumber(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	numStr := r.PathValue("num")
	num, err := strconv.Atoi(numStr)
	if err != nil || num < 1 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_version", "Version must be a positive integer"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return num, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
