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

// compile-time check that *RefreshTokenStore implements repository.RefreshTokenRepository
var _ repository.RefreshTokenRepository = (*RefreshTokenStore)(nil)

// RefreshTokenStore implements repository.RefreshTokenRepository.
type RefreshTokenStore struct {
	conn *sql.DB
}

const tokenColumns = `id, user_id, token, device_info, ip_address, expires_at, is_revoked, created_at, updated_at`

// FindByValue returns the non-revoked token with the given opaque value.
//
// Revoked rows are filtered in SQL, not in Go: the caller is guaranteed to be
// unable to tell a revoked value from one that never existed, which is what
// the rotation endpoint relies on.
func (s *RefreshTokenStore) FindByValue(ctx context.Context, value string) (*model.RefreshToken, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token = ? AND is_revoked = 0`, value)

	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("refresh token", "by value")
		}
		return nil, fmt.Errorf("sqlite: finding refresh token: %w", err)
	}
	return token, nil
}

// FindActiveByUser returns the user's non-revoked, non-expired tokens,
// most recently expiring first.
func (s *RefreshTokenStore) FindActiveByUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens
		 WHERE user_id = ? AND is_revoked = 0 AND expires_at > ?
		 ORDER BY expires_at DESC`,
		userID, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active tokens for user %s: %w", userID, err)
	}
	defer rows.Close()

	var tokens []model.RefreshToken
	for rows.Next() {
		var t model.RefreshToken
		var revoked int
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Token, &t.DeviceInfo, &t.IPAddress,
			&t.ExpiresAt, &revoked, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning refresh token: %w", err)
		}
		t.IsRevoked = revoked != 0
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating refresh tokens: %w", err)
	}

	return tokens, nil
}

// Create inserts a new refresh token, filling in ID and timestamps.
func (s *RefreshTokenStore) Create(ctx context.Context, token *model.RefreshToken) error {
	token.ID = xid.New().String()
	now := time.Now()
	token.CreatedAt = now
	token.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+tokenColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.Token, token.DeviceInfo, token.IPAddress,
		token.ExpiresAt, boolToInt(token.IsRevoked), token.CreatedAt, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting refresh token for user %s: %w", token.UserID, err)
	}
	return nil
}

// Save persists mutations to an existing token row. The refresh manager uses
// it for revocation only; expiry extension goes through ExtendExpiry so a
// stale in-memory copy can never clear the revoked flag.
func (s *RefreshTokenStore) Save(ctx context.Context, token *model.RefreshToken) error {
	token.UpdatedAt = time.Now()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE refresh_tokens SET expires_at = ?, is_revoked = ?, updated_at = ? WHERE id = ?`,
		token.ExpiresAt, boolToInt(token.IsRevoked), token.UpdatedAt, token.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving refresh token %s: %w", token.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: saving refresh token %s: %w", token.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("refresh token", token.ID)
	}
	return nil
}

// ExtendExpiry pushes expires_at forward for a still-unrevoked row. The
// is_revoked guard lives in the WHERE clause so the check and the write are
// one statement — a revocation that lands first can never be undone here.
func (s *RefreshTokenStore) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE refresh_tokens SET expires_at = ?, updated_at = ? WHERE id = ? AND is_revoked = 0`,
		expiresAt, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: extending refresh token %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: extending refresh token %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("refresh token", id)
	}
	return nil
}

// Revoke soft-deletes by value. Reports whether a row actually flipped, so
// revoking an unknown or already-revoked token is a no-op, not an error.
func (s *RefreshTokenStore) Revoke(ctx context.Context, value string) (bool, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_revoked = 1, updated_at = ? WHERE token = ? AND is_revoked = 0`,
		time.Now(), value,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: revoking refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: revoking refresh token: %w", err)
	}
	return affected > 0, nil
}

func scanToken(row *sql.Row) (*model.RefreshToken, error) {
	var t model.RefreshToken
	var revoked int
	err := row.Scan(
		&t.ID, &t.UserID, &t.Token, &t.DeviceInfo, &t.IPAddress,
		&t.ExpiresAt, &revoked, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.IsRevoked = revoked != 0
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
