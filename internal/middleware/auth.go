package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/auth"
	"github.com/tolga/reserva/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID uint
	Role   model.Role
}

// IdentityFrom extracts the caller from the context. ok is false on
// unauthenticated requests.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// ErrorWriter renders an error response. Wired to the handler package's
// respondError to keep one error surface.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Authenticate verifies the bearer token and attaches the caller identity.
// Refresh tokens are rejected on API routes.
func Authenticate(tokens *auth.TokenManager, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeErr(w, r, apperror.Unauthenticated("missing authorization header"))
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeErr(w, r, apperror.Unauthenticated("authorization header must use the Bearer scheme"))
				return
			}
			claims, err := tokens.Verify(raw, auth.TokenTypeAccess)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			identity := Identity{UserID: claims.UserID, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

// RequireRole gates a route to the given roles.
func RequireRole(writeErr ErrorWriter, roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeErr(w, r, apperror.Unauthenticated("authentication required"))
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				writeErr(w, r, apperror.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireModerator gates a route to ADMIN and MANAGER.
func RequireModerator(writeErr ErrorWriter) func(http.Handler) http.Handler {
	return RequireRole(writeErr, model.RoleAdmin, model.RoleManager)
}
