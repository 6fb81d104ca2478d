package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore implements repository.UserRepository.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, github_id, username, name, email, avatar_url, role, status, last_login, created_at, updated_at`

// FindByGitHubID looks up the account owning a GitHub identity.
func (s *UserStore) FindByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: finding user by github_id %d: %w", githubID, err)
	}
	return user, nil
}

// Upsert inserts or updates a user keyed on github_id.
//
// On the update path only the mutable profile fields and last_login change —
// role and status are locally assigned and must never be overwritten by
// whatever the identity provider sent. The caller's struct is refreshed with
// the canonical row either way.
func (s *UserStore) Upsert(ctx context.Context, user *model.User) error {
	existing, err := s.FindByGitHubID(ctx, user.GitHubID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	now := time.Now()
	user.LastLogin = now

	if existing != nil {
		user.ID = existing.ID
		user.Role = existing.Role
		user.Status = existing.Status
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = now
		_, err = s.conn.ExecContext(ctx,
			`UPDATE users SET username = ?, name = ?, email = ?, avatar_url = ?, last_login = ?, updated_at = ?
			 WHERE id = ?`,
			user.Username, user.Name, user.Email, user.AvatarURL, user.LastLogin, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = model.RoleLearner
	}
	if user.Status == "" {
		user.Status = model.StatusActive
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.GitHubID, user.Username, user.Name, user.Email, user.AvatarURL,
		string(user.Role), string(user.Status), user.LastLogin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}
	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var role, status string
	err := row.Scan(
		&u.ID, &u.GitHubID, &u.Username, &u.Name, &u.Email, &u.AvatarURL,
		&role, &status, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Status = model.Status(status)
	return &u, nil
}
