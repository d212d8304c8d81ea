// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventPermissionDenied is logged when the authorization guard rejects
	// an operation.
	EventPermissionDenied SecurityEventType = "permission_denied"
	// EventInjectionAttempt is logged when libinjection flags stored
	// display text (names, descriptions) as SQLi or XSS.
	EventInjectionAttempt SecurityEventType = "injection_attempt"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   SecurityEventType `json:"event_type"`
	WorkspaceID uuid.UUID         `json:"workspace_id"`
	UserID      string            `json:"user_id,omitempty"`
	ClientIP    string            `json:"client_ip,omitempty"`
	Details     any               `json:"details"`
	Severity    string            `json:"severity"` // info, warning, critical
}

// PermissionDeniedDetails contains specifics of a rejected operation.
type PermissionDeniedDetails struct {
	Operation string `json:"operation"`
	// Role is the caller's resolved membership role; empty when the caller
	// is not a member at all.
	Role string `json:"role,omitempty"`
}

// InjectionDetails contains specifics of flagged input text.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Kind        string `json:"kind"`                  // "sqli" or "xss"
	Fingerprint string `json:"fingerprint,omitempty"` // libinjection fingerprint (sqli only)
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	// Create a child logger with security-specific namespace for SIEM parsing
	securityLogger := logger.Named("security_audit")
	return &SecurityAuditor{logger: securityLogger}
}

// LogPermissionDenied records an operation rejected by the authorization
// guard. Logged at WARN level: routine in isolation, but a burst from one
// user is the probing signature SIEM rules key on.
func (a *SecurityAuditor) LogPermissionDenied(
	ctx context.Context,
	workspaceID uuid.UUID,
	operation, role string,
) {
	userID := contextUserID(ctx)

	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventPermissionDenied,
		WorkspaceID: workspaceID,
		UserID:      userID,
		Details: PermissionDeniedDetails{
			Operation: operation,
			Role:      role,
		},
		Severity: "warning",
	}

	// Serialize event to JSON for SIEM ingestion
	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Permission denied",
		zap.String("event_json", string(eventJSON)),
		zap.String("workspace_id", workspaceID.String()),
		zap.String("operation", operation),
		zap.String("role", role),
		zap.String("user_id", userID),
		zap.String("severity", "warning"),
	)
}

// LogInjectionAttempt records input text flagged by libinjection with full
// context. This is logged at ERROR level with "critical" severity for
// immediate alerting.
//
// The context is used to extract user ID from JWT claims if available.
// Client IP should be extracted from the HTTP request (typically r.RemoteAddr).
func (a *SecurityAuditor) LogInjectionAttempt(
	ctx context.Context,
	workspaceID uuid.UUID,
	details InjectionDetails,
	clientIP string,
) {
	userID := contextUserID(ctx)

	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventInjectionAttempt,
		WorkspaceID: workspaceID,
		UserID:      userID,
		ClientIP:    clientIP,
		Details:     details,
		Severity:    "critical",
	}

	eventJSON, _ := json.Marshal(event)

	// Log at ERROR level to ensure visibility in monitoring systems
	a.logger.Error("Injection attempt detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("workspace_id", workspaceID.String()),
		zap.String("field", details.Field),
		zap.String("kind", details.Kind),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "critical"),
	)
}

// contextUserID extracts the caller's user ID for event attribution.
// Anonymous callers yield an empty string so omitempty drops the field.
func contextUserID(ctx context.Context) string {
	userID := auth.CurrentUserID(ctx)
	if userID == uuid.Nil {
		return ""
	}
	return userID.String()
}
