package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/tahmid/coursehub/internal/auth"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/service"
)

// AuthHandler owns the login flow and session endpoints.
//
// ROUTES:
//   - GET  /auth/github/url      → authorization URL for the client to open
//   - GET  /auth/github/callback → code exchange, token issuance
//   - POST /auth/refresh         → rotate a refresh token into a new access token
//   - POST /auth/logout          → revoke a refresh token
//   - GET  /api/me               → current user (behind RequireAuth)
type AuthHandler struct {
	auth    *service.AuthService
	refresh *service.RefreshManager
	tokens  *auth.TokenService
	logger  *slog.Logger
}

func NewAuthHandler(
	authSvc *service.AuthService,
	refresh *service.RefreshManager,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    authSvc,
		refresh: refresh,
		tokens:  tokens,
		logger:  logger,
	}
}

// loginResponse is returned by the OAuth callback: both credentials plus the
// resolved user, so the SPA can finish login in one round trip.
type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
	IsNewUser    bool        `json:"isNewUser"`
}

// HandleGitHubURL returns the GitHub authorization URL.
//
// HTTP: GET /auth/github/url
//
// The random state value is stored in a short-lived HttpOnly cookie and
// verified on callback — proof the flow started here, not on an attacker's
// page (CSRF protection on the OAuth flow).
func (h *AuthHandler) HandleGitHubURL(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"url": h.auth.AuthURL(state),
	})
}

// HandleGitHubCallback completes the login.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// Flow: verify state → resolve identity (exchange + profile fetch + upsert)
// → issue short-lived access token → obtain refresh token for this device.
// Device metadata for the refresh session comes from the User-Agent header
// and the client IP (RealIP middleware has already unwrapped proxy headers).
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch or missing state cookie")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_state",
			Message: "invalid OAuth state",
		})
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "authorization was denied",
		})
		return
	}

	user, isNew, err := h.auth.ResolveGitHub(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, err)
		return
	}

	accessToken, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("auth callback: access token issuance failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	refreshToken, err := h.refresh.Obtain(r.Context(), user, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		h.logger.Error("auth callback: refresh token issuance failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		IsNewUser:    isNew,
	})
}

// HandleRefresh rotates a refresh token into a fresh access token.
//
// HTTP: POST /auth/refresh
// BODY: {"refreshToken": "..."}
//
// Unknown, revoked and expired tokens all produce the same 401.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	result, err := h.refresh.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

// HandleLogout revokes the presented refresh token.
//
// HTTP: POST /auth/logout
// BODY: {"refreshToken": "..."}
//
// Idempotent: logging out twice, or with a token we've never seen, still
// answers 200. The access token lives on until its short expiry — that's the
// accepted trade-off of stateless verification.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	revoked, err := h.refresh.Revoke(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged out",
		"revoked": revoked,
	})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't depend on route wiring.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed", slog.String("userID", identity.UserID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
