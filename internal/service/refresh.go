package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/auth"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/repository"
)

// RefreshConfig tunes the refresh session state machine.
type RefreshConfig struct {
	// TTL is the refresh token lifetime. Half of it is the single threshold
	// governing both reuse-without-write and extend-in-place.
	TTL time.Duration
	// MaxDevices caps the number of distinct active device fingerprints a
	// user may hold at once.
	MaxDevices int
}

// RefreshManager owns the refresh token lifecycle: issue on login, rotate on
// refresh, revoke on logout, and the per-user device cap.
//
// STATE MACHINE per (user, device) pair:
//
//	absent → active → (expiry slides forward) → revoked
//
// A device keeps ONE stable token value for its whole session: rotation never
// mints a new value, it only pushes expiresAt forward once remaining life
// drops to half. That bounds write amplification (a chatty client refreshing
// every minute writes nothing most of the time) while guaranteeing an active
// session never silently expires mid-use.
//
// CONCURRENCY:
// The lookup-or-create and eviction-then-create sequences are read-then-write
// and would race under concurrent logins — two requests could both decide to
// evict and both create, transiently blowing the device cap. All mutating
// paths therefore hold a per-user mutex across the whole read-evaluate-write
// window. Revocation doesn't take the lock (it only knows the opaque value),
// so expiry extension is a conditional store write that refuses revoked rows
// — a logout always wins the race. Verification of access tokens stays
// lock-free.
type RefreshManager struct {
	tokens repository.RefreshTokenRepository
	users  repository.UserRepository
	issuer *auth.TokenService
	cfg    RefreshConfig
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-user mutexes, keyed by user ID
}

func NewRefreshManager(
	tokens repository.RefreshTokenRepository,
	users repository.UserRepository,
	issuer *auth.TokenService,
	cfg RefreshConfig,
	logger *slog.Logger,
) *RefreshManager {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = 5
	}
	return &RefreshManager{
		tokens: tokens,
		users:  users,
		issuer: issuer,
		cfg:    cfg,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing token mutations for one user.
// Mutexes are never removed; the map grows with the number of users seen by
// this process, a few dozen bytes each.
func (m *RefreshManager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}

// Obtain returns a refresh token for this (user, device) pair, creating one
// only when necessary.
//
// Decision order:
//  1. An active token for the exact (deviceInfo, ipAddress) tuple with more
//     than half its life left is returned unchanged — repeat logins from the
//     same device don't churn tokens.
//  2. The same token at or below half-life gets expiresAt pushed to now+TTL
//     and keeps its value (sliding-window renewal, not reissue).
//  3. Otherwise a fresh token is created; if the user already holds
//     MaxDevices distinct active fingerprints and this device isn't one of
//     them, the oldest-created active token is revoked first.
//
// The eviction policy is oldest-created, not least-recently-used — simpler,
// and good enough for a device cap. The cap check uses >= so a user sitting
// exactly at the cap triggers eviction for a brand-new device but never for
// a device already in the set.
//
// A changed IP on an otherwise identical device fails the exact-tuple match
// in steps 1–2 and lands on a new fingerprint in step 3, so it naturally
// produces a separate session rather than silently reusing the old one.
func (m *RefreshManager) Obtain(ctx context.Context, user *model.User, deviceInfo, ipAddress string) (string, error) {
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("service/refresh: user must not be nil")
	}

	lock := m.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()

	active, err := m.tokens.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("service/refresh: listing active tokens: %w", err)
	}

	// Steps 1–2: exact-tuple reuse or extension. FindActiveByUser orders by
	// expires_at descending, so the first match is the most-recently-expiring.
	for i := range active {
		t := &active[i]
		if t.DeviceInfo != deviceInfo || t.IPAddress != ipAddress {
			continue
		}
		if t.ExpiresAt.Sub(now) > m.cfg.TTL/2 {
			return t.Token, nil
		}
		expiresAt := now.Add(m.cfg.TTL)
		if err := m.tokens.ExtendExpiry(ctx, t.ID, expiresAt); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				// Revoked since the listing; mint a fresh token below.
				break
			}
			return "", fmt.Errorf("service/refresh: extending token: %w", err)
		}
		m.logger.Debug("refresh token extended",
			slog.String("userID", user.ID),
			slog.Time("expiresAt", expiresAt),
		)
		return t.Token, nil
	}

	// Step 3: new device. Enforce the cap before creating.
	fp := auth.Fingerprint(deviceInfo, ipAddress)
	if err := m.evictIfAtCap(ctx, user.ID, fp, active); err != nil {
		return "", err
	}

	value, err := newTokenValue()
	if err != nil {
		return "", fmt.Errorf("service/refresh: generating token value: %w", err)
	}

	token := &model.RefreshToken{
		UserID:     user.ID,
		Token:      value,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		ExpiresAt:  now.Add(m.cfg.TTL),
	}
	if err := m.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("service/refresh: creating token: %w", err)
	}

	m.logger.Info("refresh token issued",
		slog.String("userID", user.ID),
		slog.String("fingerprint", fp[:12]),
	)
	return value, nil
}

// evictIfAtCap revokes the oldest-created active token when the user already
// holds MaxDevices distinct fingerprints and newFP is not among them.
func (m *RefreshManager) evictIfAtCap(ctx context.Context, userID, newFP string, active []model.RefreshToken) error {
	devices := make(map[string]struct{}, len(active))
	var oldest *model.RefreshToken
	for i := range active {
		t := &active[i]
		devices[auth.Fingerprint(t.DeviceInfo, t.IPAddress)] = struct{}{}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}

	if _, known := devices[newFP]; known || len(devices) < m.cfg.MaxDevices {
		return nil
	}

	oldest.IsRevoked = true
	if err := m.tokens.Save(ctx, oldest); err != nil {
		return fmt.Errorf("service/refresh: evicting oldest token: %w", err)
	}
	m.logger.Info("device cap reached, oldest session evicted",
		slog.String("userID", userID),
		slog.Time("evictedCreatedAt", oldest.CreatedAt),
	)
	return nil
}

// RotateResult bundles what a successful refresh returns.
type RotateResult struct {
	AccessToken  string
	RefreshToken string // possibly unchanged — the value only dies on revocation
	User         *model.User
}

// Rotate exchanges a refresh token for a fresh access token, sliding the
// refresh expiry forward when it has crossed half-life.
//
// Unknown, revoked and expired token values all return the same
// apperror.ErrUnauthorized — callers (and attackers probing the endpoint)
// cannot tell which case they hit. The distinction is logged for audit. A
// missing owner account is the one fatal, non-retriable case: the token
// points at a user that no longer exists.
func (m *RefreshManager) Rotate(ctx context.Context, value string) (*RotateResult, error) {
	if value == "" {
		return nil, apperror.Unauthorized()
	}

	token, err := m.tokens.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			m.logger.Debug("rotation rejected: unknown or revoked refresh token")
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("service/refresh: looking up token: %w", err)
	}

	now := time.Now()
	if now.After(token.ExpiresAt) {
		m.logger.Debug("rotation rejected: expired refresh token",
			slog.String("userID", token.UserID),
			slog.Time("expiredAt", token.ExpiresAt),
		)
		return nil, apperror.Unauthorized()
	}

	user, err := m.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/refresh: token owner %s no longer exists: %w", token.UserID, err)
		}
		return nil, fmt.Errorf("service/refresh: loading token owner: %w", err)
	}

	// Status is checked at issuance time, not inside token verification: a
	// blocked account stops getting new access tokens on its next refresh.
	if user.Status != model.StatusActive {
		m.logger.Warn("rotation rejected: account not active",
			slog.String("userID", user.ID),
			slog.String("status", string(user.Status)),
		)
		return nil, apperror.Unauthorized()
	}

	accessToken, err := m.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("service/refresh: issuing access token: %w", err)
	}

	// Same half-life rule as Obtain: extend in place, never reissue. The
	// store only extends a still-unrevoked row, so a logout or cap eviction
	// that lands after the lookup above fails this rotation instead of being
	// overwritten by the stale copy.
	if token.ExpiresAt.Sub(now) <= m.cfg.TTL/2 {
		lock := m.userLock(token.UserID)
		lock.Lock()
		err = m.tokens.ExtendExpiry(ctx, token.ID, now.Add(m.cfg.TTL))
		lock.Unlock()
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				m.logger.Debug("rotation rejected: token revoked mid-rotation",
					slog.String("userID", token.UserID),
				)
				return nil, apperror.Unauthorized()
			}
			return nil, fmt.Errorf("service/refresh: extending token on rotation: %w", err)
		}
	}

	return &RotateResult{
		AccessToken:  accessToken,
		RefreshToken: token.Token,
		User:         user,
	}, nil
}

// Revoke marks the token as revoked and reports whether anything changed.
// Safe to retry; revoking an unknown or already-revoked value returns false,
// not an error.
func (m *RefreshManager) Revoke(ctx context.Context, value string) (bool, error) {
	if value == "" {
		return false, nil
	}

	revoked, err := m.tokens.Revoke(ctx, value)
	if err != nil {
		return false, fmt.Errorf("service/refresh: revoking token: %w", err)
	}
	if revoked {
		m.logger.Info("refresh token revoked")
	}
	return revoked, nil
}

// newTokenValue returns 32 bytes of crypto randomness, hex encoded. The
// value is opaque — its only property is being unguessable.
func newTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
