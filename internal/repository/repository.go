// Package repository defines the storage interfaces the services depend on.
//
// Services receive these interfaces, never the concrete sqlite types. The
// identity core in particular depends only on UserRepository and
// RefreshTokenRepository, so tests can substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/tahmid/coursehub/internal/model"
)

type ListOptions struct {
	Limit           int
	Offset          int
	IncludeArchived bool
}

// UserRepository persists user accounts keyed by internal ID, with lookup by
// the GitHub identity ID for the OAuth upsert path.
type UserRepository interface {
	// FindByGitHubID returns apperror.ErrNotFound when no account exists for
	// the given GitHub ID.
	FindByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// Upsert creates the user on first login (filling in ID and timestamps)
	// or refreshes profile fields and LastLogin on subsequent logins. Role
	// and Status are written only on insert.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RefreshTokenRepository is the authoritative refresh token store.
type RefreshTokenRepository interface {
	// FindByValue returns the non-revoked token with the given opaque value,
	// or apperror.ErrNotFound. Revoked tokens are invisible here on purpose:
	// a revoked value must be indistinguishable from an unknown one.
	FindByValue(ctx context.Context, value string) (*model.RefreshToken, error)
	// FindActiveByUser returns all non-revoked, non-expired tokens for the
	// user, most recently expiring first.
	FindActiveByUser(ctx context.Context, userID string) ([]model.RefreshToken, error)
	Create(ctx context.Context, token *model.RefreshToken) error
	// Save persists mutations to an existing token (revocation).
	Save(ctx context.Context, token *model.RefreshToken) error
	// ExtendExpiry pushes the token's expiry forward, but only while the row
	// is still unrevoked — the check and the write are one atomic operation,
	// so a concurrent revocation can never be overwritten by a stale
	// in-memory copy. Returns apperror.ErrNotFound when the row is revoked
	// or gone.
	ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error
	// Revoke marks the token with the given value as revoked and reports
	// whether a row was actually affected. Idempotent.
	Revoke(ctx context.Context, value string) (bool, error)
}

type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, opts ListOptions) ([]model.Course, error)
	Update(ctx context.Context, course *model.Course) error
	// MaxPosition returns the highest position among non-archived courses,
	// or -1 when there are none.
	MaxPosition(ctx context.Context) (int, error)
	// ShiftPositions adds delta to the position of every non-archived course
	// whose position lies in [from, to].
	ShiftPositions(ctx context.Context, from, to, delta int) error
}

type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error)
	Update(ctx context.Context, lesson *model.Lesson) error
	MaxPositionByCourse(ctx context.Context, courseID string) (int, error)
	ShiftPositionsByCourse(ctx context.Context, courseID string, from, to, delta int) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	// FindByPaymentID returns apperror.ErrNotFound when the provider payment
	// ID has not been seen before.
	FindByPaymentID(ctx context.Context, paymentID string) (*model.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
}
