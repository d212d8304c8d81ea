package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/audit"
	"github.com/myschoolstory/collab-3d/pkg/logging"
	"github.com/myschoolstory/collab-3d/pkg/screening"
)

// TextField pairs a request field name with its submitted value for
// injection screening.
type TextField struct {
	Name  string
	Value string
}

// ScreenTextFields runs injection screening over user-supplied display text
// before it reaches storage. On the first hit it records a security audit
// event with the client address, writes a 400, and returns false; the caller
// must stop handling the request.
func ScreenTextFields(w http.ResponseWriter, r *http.Request, auditor *audit.SecurityAuditor, logger *zap.Logger, workspaceID uuid.UUID, fields ...TextField) bool {
	for _, f := range fields {
		result := screening.CheckText(f.Name, f.Value)
		if result == nil {
			continue
		}

		auditor.LogInjectionAttempt(r.Context(), workspaceID, audit.InjectionDetails{
			Field:       result.Field,
			Value:       logging.TruncateString(result.Value, logging.MaxAuditSampleLength),
			Kind:        result.Kind,
			Fingerprint: result.Fingerprint,
		}, r.RemoteAddr)

		if err := ErrorResponse(w, http.StatusBadRequest, "input_rejected", "Input rejected by security screening"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
