package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/services"
)

// UsersHandler handles user profile HTTP requests.
type UsersHandler struct {
	userService services.UserService
	logger      *zap.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(userService services.UserService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the users handler's routes on the given mux.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/users/provision",
		authMiddleware.RequireAuth(scopeMiddleware(h.Provision)))
	mux.HandleFunc("GET /api/users/me",
		authMiddleware.RequireAuth(scopeMiddleware(h.Me)))
}

// Provision handles POST /api/users/provision
// Creates or refreshes the caller's profile row from token claims.
// Idempotent.
func (h *UsersHandler) Provision(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Provision(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "User", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "User", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
