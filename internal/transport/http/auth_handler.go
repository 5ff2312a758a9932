package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"collectdash/internal/auth"
	apierrors "collectdash/internal/errors"
	"collectdash/internal/middleware"
)

// AuthHandler handles login, logout and password changes.
type AuthHandler struct {
	service      AuthService
	dashboard    DashboardService
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	secureCookie bool
}

// NewAuthHandler creates a new auth handler. The dashboard service supplies
// the agent picker shown at login.
func NewAuthHandler(service AuthService, dashboard DashboardService, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AuthHandler {
	return &AuthHandler{
		service:      service,
		dashboard:    dashboard,
		validator:    validator,
		logger:       logger.With(slog.String("component", "auth_handler")),
		errorHandler: errorHandler,
	}
}

// WithSecureCookie marks the session cookie Secure, for TLS deployments.
func (h *AuthHandler) WithSecureCookie(secure bool) *AuthHandler {
	h.secureCookie = secure
	return h
}

// Routes returns the auth routes. Logout, password and me need a session.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/login", h.Login)
	r.Get("/agents", h.Agents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(h.service, h.logger))
		r.Post("/logout", h.Logout)
		r.Post("/password", h.ChangePassword)
		r.Get("/me", h.Me)
	})
	return r
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token     string    `json:"token,omitempty"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sess, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, LoginResponse{
		Token:     sess.Token,
		Username:  sess.Username,
		Role:      string(sess.Role),
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), middleware.BearerToken(r))
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles POST /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
		return
	}

	var req auth.ChangePasswordRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), sess, req); err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, map[string]string{"status": "password updated"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
		return
	}
	render.JSON(w, r, LoginResponse{
		Username:  sess.Username,
		Role:      string(sess.Role),
		ExpiresAt: sess.ExpiresAt,
	})
}

// Agents handles GET /api/auth/agents
func (h *AuthHandler) Agents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.dashboard.Agents(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"agents": agents})
}
