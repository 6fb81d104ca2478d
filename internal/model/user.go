// Package model defines the data structures used throughout the application.
package model

import "time"

// Role controls what a user may do. Roles are assigned locally — the identity
// provider never influences them. New users always start as RoleLearner;
// promotion to RoleAdmin happens out of band (direct DB update or admin tool).
type Role string

const (
	RoleLearner Role = "LEARNER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles. Used when verifying
// access tokens — a token carrying an unknown role string is rejected rather
// than treated as a learner.
func (r Role) Valid() bool {
	return r == RoleLearner || r == RoleAdmin
}

// Status is the account state. Only StatusActive accounts can authenticate;
// the status travels inside the access token as a snapshot taken at issuance.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
)

// User represents a registered account.
//
// GitHub OAuth is the only identity provider, so the primary external
// identifier is the GitHub user ID. We still generate our own internal string
// ID (xid) to avoid tying primary keys to a third party's numbering scheme.
//
// Name, Username, Email and AvatarURL can all be empty — GitHub lets users
// hide their email and leave the display name unset. We use empty strings as
// the zero value rather than nullable pointers; the profile fields are
// refreshed from GitHub on every login.
type User struct {
	ID        string    `json:"id"`
	GitHubID  int64     `json:"githubId"` // GitHub's numeric user ID — stable, never changes
	Username  string    `json:"username"` // GitHub login, e.g. "nova"
	Name      string    `json:"name"`     // Display name (may be empty)
	Email     string    `json:"email"`    // Primary email (may be empty if hidden)
	AvatarURL string    `json:"avatarUrl"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	LastLogin time.Time `json:"lastLogin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
