package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// mockJWKSClient is a mock implementation of JWKSClientInterface for testing.
type mockJWKSClient struct {
	claims *Claims
	err    error
}

func (m *mockJWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockJWKSClient) Close() {}

func claimsWithSubject(sub string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
	}
}

func TestAuthService_ValidateRequest_Cookie(t *testing.T) {
	expectedClaims := claimsWithSubject("7f1c6d2e-0000-0000-0000-000000000001")

	service := NewAuthService(&mockJWKSClient{claims: expectedClaims}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "test-token"})

	claims, token, err := service.ValidateRequest(req)
	if err != nil {
		t.Fatalf("ValidateRequest failed: %v", err)
	}

	if token != "test-token" {
		t.Errorf("expected token 'test-token', got %q", token)
	}

	if claims.Subject != expectedClaims.Subject {
		t.Errorf("expected subject %q, got %q", expectedClaims.Subject, claims.Subject)
	}
}

func TestAuthService_ValidateRequest_AuthHeader(t *testing.T) {
	expectedClaims := claimsWithSubject("7f1c6d2e-0000-0000-0000-000000000002")

	service := NewAuthService(&mockJWKSClient{claims: expectedClaims}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", "Bearer my-jwt-token")

	claims, token, err := service.ValidateRequest(req)
	if err != nil {
		t.Fatalf("ValidateRequest failed: %v", err)
	}

	if token != "my-jwt-token" {
		t.Errorf("expected token 'my-jwt-token', got %q", token)
	}

	if claims.Subject != expectedClaims.Subject {
		t.Errorf("expected subject %q, got %q", expectedClaims.Subject, claims.Subject)
	}
}

func TestAuthService_ValidateRequest_CookieTakesPrecedence(t *testing.T) {
	// When both cookie and header are present, cookie should win
	service := NewAuthService(&mockJWKSClient{claims: claimsWithSubject("sub")}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	_, token, err := service.ValidateRequest(req)
	if err != nil {
		t.Fatalf("ValidateRequest failed: %v", err)
	}

	if token != "cookie-token" {
		t.Errorf("expected cookie token to take precedence, got %q", token)
	}
}

func TestAuthService_ValidateRequest_MissingAuth(t *testing.T) {
	service := NewAuthService(&mockJWKSClient{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)

	_, _, err := service.ValidateRequest(req)
	if err == nil {
		t.Fatal("expected error for missing authorization")
	}

	if !errors.Is(err, ErrMissingAuthorization) {
		t.Errorf("expected ErrMissingAuthorization, got %v", err)
	}
}

func TestAuthService_ValidateRequest_InvalidAuthFormat(t *testing.T) {
	service := NewAuthService(&mockJWKSClient{}, zap.NewNop())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "just-a-token"},
		{"wrong prefix", "Basic some-token"},
		{"missing token", "Bearer"},
		{"extra parts", "Bearer token extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
			req.Header.Set("Authorization", tt.header)

			_, _, err := service.ValidateRequest(req)
			if err == nil {
				t.Fatal("expected error for invalid auth format")
			}

			if !errors.Is(err, ErrInvalidAuthFormat) {
				t.Errorf("expected ErrInvalidAuthFormat, got %v", err)
			}
		})
	}
}

func TestAuthService_ValidateRequest_TokenValidationError(t *testing.T) {
	validationErr := errors.New("token expired")
	service := NewAuthService(&mockJWKSClient{err: validationErr}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", "Bearer expired-token")

	_, _, err := service.ValidateRequest(req)
	if err == nil {
		t.Fatal("expected error for token validation failure")
	}

	if !errors.Is(err, validationErr) {
		t.Errorf("expected token validation error, got %v", err)
	}
}
