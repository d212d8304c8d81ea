package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestParseWorkspaceID(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		pathValue  string
		wantOK     bool
		wantNilID  bool
		wantStatus int
		wantError  string
	}{
		{
			name:      "valid UUID",
			pathValue: "550e8400-e29b-41d4-a716-446655440000",
			wantOK:    true,
			wantNilID: false,
		},
		{
			name:       "invalid UUID",
			pathValue:  "not-a-uuid",
			wantOK:     false,
			wantNilID:  true,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_workspace_id",
		},
		{
			name:       "empty UUID",
			pathValue:  "",
			wantOK:     false,
			wantNilID:  true,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_workspace_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.SetPathValue("wid", tt.pathValue)
			rec := httptest.NewRecorder()

			id, ok := ParseWorkspaceID(rec, req, logger)

			if ok != tt.wantOK {
				t.Errorf("ParseWorkspaceID() ok = %v, want %v", ok, tt.wantOK)
			}

			if tt.wantNilID && id != uuid.Nil {
				t.Errorf("ParseWorkspaceID() id = %v, want uuid.Nil", id)
			}

			if !tt.wantOK {
				if rec.Code != tt.wantStatus {
					t.Errorf("ParseWorkspaceID() status = %v, want %v", rec.Code, tt.wantStatus)
				}

				var resp map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp["error"] != tt.wantError {
					t.Errorf("ParseWorkspaceID() error = %v, want %v", resp["error"], tt.wantError)
				}
			}
		})
	}
}

func TestParseProjectID(t *testing.T) {
	logger := zap.NewNop()
	validUUID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("pid", validUUID.String())
	rec := httptest.NewRecorder()

	id, ok := ParseProjectID(rec, req, logger)

	if !ok {
		t.Error("ParseProjectID() ok = false, want true")
	}
	if id != validUUID {
		t.Errorf("ParseProjectID() id = %v, want %v", id, validUUID)
	}
}

func TestParseProjectID_Invalid(t *testing.T) {
	logger := zap.NewNop()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("pid", "invalid")
	rec := httptest.NewRecorder()

	id, ok := ParseProjectID(rec, req, logger)

	if ok {
		t.Error("ParseProjectID() ok = true, want false")
	}
	if id != uuid.Nil {
		t.Errorf("ParseProjectID() id = %v, want uuid.Nil", id)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ParseProjectID() status = %v, want %v", rec.Code, http.StatusBadRequest)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "invalid_project_id" {
		t.Errorf("ParseProjectID() error = %v, want invalid_project_id", resp["error"])
	}
}

func TestParseModelID(t *testing.T) {
	logger := zap.NewNop()
	validUUID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("mid", validUUID.String())
	rec := httptest.NewRecorder()

	id, ok := ParseModelID(rec, req, logger)

	if !ok {
		t.Error("ParseModelID() ok = false, want true")
	}
	if id != validUUID {
		t.Errorf("ParseModelID() id = %v, want %v", id, validUUID)
	}
}

func TestParseModelID_Invalid(t *testing.T) {
	logger := zap.NewNop()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("mid", "bad-id")
	rec := httptest.NewRecorder()

	id, ok := ParseModelID(rec, req, logger)

	if ok {
		t.Error("ParseModelID() ok = true, want false")
	}
	if id != uuid.Nil {
		t.Errorf("ParseModelID() id = %v, want uuid.Nil", id)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "invalid_model_id" {
		t.Errorf("ParseModelID() error = %v, want invalid_model_id", resp["error"])
	}
}

func TestParseMemberID_Invalid(t *testing.T) {
	logger := zap.NewNop()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("uid", "wrong")
	rec := httptest.NewRecorder()

	id, ok := ParseMemberID(rec, req, logger)

	if ok {
		t.Error("ParseMemberID() ok = true, want false")
	}
	if id != uuid.Nil {
		t.Errorf("ParseMemberID() id = %v, want uuid.Nil", id)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "invalid_user_id" {
		t.Errorf("ParseMemberID() error = %v, want invalid_user_id", resp["error"])
	}
}

func TestParseVersionNumber(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name      string
		pathValue string
		wantOK    bool
		wantNum   int
	}{
		{name: "valid number", pathValue: "7", wantOK: true, wantNum: 7},
		{name: "first version", pathValue: "1", wantOK: true, wantNum: 1},
		{name: "zero", pathValue: "0", wantOK: false},
		{name: "negative", pathValue: "-2", wantOK: false},
		{name: "not a number", pathValue: "latest", wantOK: false},
		{name: "empty", pathValue: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.SetPathValue("num", tt.pathValue)
			rec := httptest.NewRecorder()

			num, ok := ParseVersionNumber(rec, req, logger)

			if ok != tt.wantOK {
				t.Errorf("ParseVersionNumber() ok = %v, want %v", ok, tt.wantOK)
			}

			if tt.wantOK {
				if num != tt.wantNum {
					t.Errorf("ParseVersionNumber() num = %v, want %v", num, tt.wantNum)
				}
			} else {
				if rec.Code != http.StatusBadRequest {
					t.Errorf("ParseVersionNumber() status = %v, want %v", rec.Code, http.StatusBadRequest)
				}

				var resp map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp["error"] != "invalid_version" {
					t.Errorf("ParseVersionNumber() error = %v, want invalid_version", resp["error"])
				}
			}
		})
	}
}

func TestParseUUID_PathParamVariations(t *testing.T) {
	logger := zap.NewNop()

	// Test that the internal parseUUID helper correctly uses different path params
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	validUUID := uuid.New()
	req.SetPathValue("custom_param", validUUID.String())
	rec := httptest.NewRecorder()

	id, ok := parseUUID(rec, req, "custom_param", "custom_error", "Custom error message", logger)

	if !ok {
		t.Error("parseUUID() ok = false, want true")
	}
	if id != validUUID {
		t.Errorf("parseUUID() id = %v, want %v", id, validUUID)
	}
}

func TestParseUUID_CustomErrorMessages(t *testing.T) {
	logger := zap.NewNop()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("my_id", "not-valid")
	rec := httptest.NewRecorder()

	_, ok := parseUUID(rec, req, "my_id", "my_error_code", "My custom error message", logger)

	if ok {
		t.Error("parseUUID() ok = true, want false")
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "my_error_code" {
		t.Errorf("parseUUID() error = %v, want my_error_code", resp["error"])
	}
	if resp["message"] != "My custom error message" {
		t.Errorf("parseUUID() message = %v, want 'My custom error message'", resp["message"])
	}
}
