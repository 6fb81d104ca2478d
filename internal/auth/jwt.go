// Package auth provides the identity and session-trust primitives: JWT access
// tokens, the GitHub OAuth exchange, device fingerprinting, webhook signature
// verification, and the request authentication middleware.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client fetches /auth/github/url and sends the user to GitHub
//  2. GitHub calls back with a one-time code
//  3. Server exchanges the code for the GitHub profile, upserts the user
//  4. Server issues a short-lived JWT access token plus a long-lived opaque
//     refresh token (managed by service.RefreshManager)
//  5. Protected requests carry "Authorization: Bearer <accessToken>"; the
//     middleware validates it statelessly — no store lookup per request
//
// The access token is deliberately short-lived because it cannot be revoked
// individually: killing a session means revoking its refresh token so no new
// access token can be minted, then waiting out the short expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tahmid/coursehub/internal/model"
)

const issuer = "coursehub"

// Token verification failures. The HTTP boundary collapses all three into one
// generic 401; the distinction exists for logging and tests only.
var (
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrTokenInvalid   = errors.New("auth: token invalid")
)

// Identity is what a verified access token proves: who the caller is and what
// they may do. It is a snapshot taken at issuance — a role change only takes
// effect once the client refreshes its access token.
type Identity struct {
	UserID string
	Role   model.Role
}

// TokenService issues and verifies JWT access tokens.
//
// Signing is HS256 with a single process-wide secret. Verification is pure —
// signature plus expiry, no revocation list. That trade-off is what keeps the
// per-request auth path free of store lookups.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret should be at least 32
// bytes of random data in production (JWT_SECRET=$(openssl rand -hex 32));
// anything under 16 characters is rejected outright. ttl is the access-token
// lifetime — keep it short, these tokens are never individually revocable.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: access token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the standard registered claims (sub carries the
// internal user ID) plus the role and account status snapshot.
type claims struct {
	jwt.RegisteredClaims
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Issue creates and signs an access token for the given user. Deterministic
// given the user, the secret and the clock; no I/O.
func (s *TokenService) Issue(user *model.User) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
		Role:   string(user.Role),
		Status: string(user.Status),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates an access token and returns the identity it
// encodes.
//
// Checks performed (mostly by the jwt library):
//   - signature is valid and the algorithm is HS256 — jwt.WithValidMethods
//     closes the algorithm-confusion hole where a token signed with "none"
//     could slip through
//   - token is not expired and carries an expiry at all
//   - issuer matches, so tokens minted by other apps sharing a secret by
//     accident are rejected
//
// Failure mapping: expiry → ErrTokenExpired; broken structure or signature →
// ErrTokenMalformed; everything else → ErrTokenInvalid.
func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Identity{}, ErrTokenMalformed
		default:
			return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, ErrTokenInvalid
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	role := model.Role(c.Role)
	if !role.Valid() {
		return Identity{}, fmt.Errorf("%w: unknown role", ErrTokenInvalid)
	}

	return Identity{UserID: c.Subject, Role: role}, nil
}
