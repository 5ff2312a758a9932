package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"collectdash/internal/auth"
	apierrors "collectdash/internal/errors"
	"collectdash/pkg/contracts/domain"
)

// SessionCookie is read when no Authorization header is sent, so browser
// downloads and WebSocket upgrades can authenticate.
const SessionCookie = "collectdash_session"

// Authenticator resolves a session token.
type Authenticator interface {
	Authenticate(token string) (domain.Session, error)
}

// BearerToken extracts the session token from the Authorization header or
// the session cookie.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Session rejects requests without a valid session and places the session in
// the request context for handlers.
func Session(authn Authenticator, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				renderProblem(w, r, http.StatusUnauthorized, apierrors.TypeUnauthorized, "Authentication required")
				return
			}

			sess, err := authn.Authenticate(token)
			if err != nil {
				detail := "Invalid session"
				if errors.Is(err, auth.ErrSessionExpired) {
					detail = "Session expired"
				}
				logger.InfoContext(r.Context(), "session rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				renderProblem(w, r, http.StatusUnauthorized, apierrors.TypeUnauthorized, detail)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// RequireRole lets through only sessions holding one of roles. It must run
// after Session.
func RequireRole(roles ...domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := auth.SessionFromContext(r.Context())
			if !ok {
				renderProblem(w, r, http.StatusUnauthorized, apierrors.TypeUnauthorized, "Authentication required")
				return
			}
			if !slices.Contains(roles, sess.Role) {
				renderProblem(w, r, http.StatusForbidden, apierrors.TypeForbidden,
					"This action requires one of the roles: "+joinRoles(roles))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole for admin and superadmin.
func RequireAdmin() func(next http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)
}

func joinRoles(roles []domain.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
