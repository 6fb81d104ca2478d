package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tahmid/coursehub/internal/model"
)

// Credential extraction failures. Like the token verification errors, these
// never reach the client individually — both collapse into the one 401 shape.
var (
	ErrMissingCredential   = errors.New("auth: missing authorization header")
	ErrMalformedCredential = errors.New("auth: malformed authorization header")
)

// contextKey is an unexported type for context keys so no other package can
// read or shadow the identity stored by this middleware.
type contextKey string

const identityKey contextKey = "identity"

// unauthorizedBody is the single response shape for every credential failure.
// Missing header, wrong scheme, expired token, bad signature — the client
// sees exactly the same bytes, which prevents probing for which case it was.
const unauthorizedBody = `{"error":"unauthorized","message":"valid authentication required"}`

const forbiddenBody = `{"error":"forbidden","message":"insufficient permissions"}`

// RequireAuth enforces authentication on protected routes.
//
// It extracts the access token from the "Authorization: Bearer <token>"
// header, verifies it, and stores the resulting Identity in the request
// context. Any failure ends the chain with 401 and the generic body; the
// specific reason only goes to the debug log, with enough context to audit.
func RequireAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				logger.Debug("request rejected: bad credential header",
					slog.String("path", r.URL.Path),
					slog.String("remote", r.RemoteAddr),
					slog.String("reason", err.Error()),
				)
				writeUnauthorized(w)
				return
			}

			identity, err := tokens.Verify(raw)
			if err != nil {
				logger.Debug("request rejected: invalid access token",
					slog.String("path", r.URL.Path),
					slog.String("remote", r.RemoteAddr),
					slog.String("reason", err.Error()),
				)
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLearner passes any authenticated user — admins are learners too.
// Runs after RequireAuth; a request with no identity in context is treated
// as unauthenticated, not as a server bug.
func RequireLearner(logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(logger, model.RoleLearner, model.RoleAdmin)
}

// RequireAdmin passes only admins. The failure is 403, not 401 — the caller
// is authenticated, they just lack permission, and UIs need to tell "log in
// again" apart from "you can't do this".
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(logger, model.RoleAdmin)
}

func requireRole(logger *slog.Logger, allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}

			for _, role := range allowed {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Debug("request rejected: role not allowed",
				slog.String("path", r.URL.Path),
				slog.String("userID", identity.UserID),
				slog.String("role", string(identity.Role)),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(forbiddenBody))
		})
	}
}

// IdentityFromContext retrieves the authenticated identity set by
// RequireAuth. Returns (zero, false) on unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// bearerToken pulls the token out of the Authorization header. The scheme
// check is case-insensitive per RFC 9110.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingCredential
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMalformedCredential
	}
	return strings.TrimSpace(token), nil
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(unauthorizedBody))
}
