package model

import "time"

// RefreshToken is a long-lived session credential.
//
// The Token value is an opaque random string — it carries no claims and is
// only meaningful as a lookup key into the token store. DeviceInfo and
// IPAddress are kept so the manager can derive a device fingerprint and group
// sessions per device.
//
// LIFECYCLE:
//
//	absent → active → (expiry slides forward on use) → revoked
//
// Tokens are never hard-deleted; revocation flips IsRevoked. At most one
// active token should exist per (user, device fingerprint) pair — the refresh
// manager reuses or extends an existing token instead of minting duplicates.
type RefreshToken struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Token      string    `json:"-"` // never serialized in API responses
	DeviceInfo string    `json:"deviceInfo"`
	IPAddress  string    `json:"ipAddress"`
	ExpiresAt  time.Time `json:"expiresAt"`
	IsRevoked  bool      `json:"isRevoked"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Active reports whether the token can still mint access tokens at time now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
