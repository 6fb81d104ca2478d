package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/repository"
)

var _ repository.EnrollmentRepository = (*EnrollmentStore)(nil)

// EnrollmentStore implements repository.EnrollmentRepository.
type EnrollmentStore struct {
	conn *sql.DB
}

func (s *EnrollmentStore) Create(ctx context.Context, enrollment *model.Enrollment) error {
	enrollment.ID = xid.New().String()
	enrollment.CreatedAt = time.Now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO enrollments (id, user_id, course_id, payment_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		enrollment.ID, enrollment.UserID, enrollment.CourseID,
		enrollment.PaymentID, enrollment.CreatedAt,
	)
	if err != nil {
		// The UNIQUE constraint on payment_id is the idempotency guard for
		// redelivered webhooks.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("enrollment", enrollment.PaymentID)
		}
		return fmt.Errorf("sqlite: inserting enrollment (payment %s): %w", enrollment.PaymentID, err)
	}
	return nil
}

func (s *EnrollmentStore) FindByPaymentID(ctx context.Context, paymentID string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, course_id, payment_id, created_at
		 FROM enrollments WHERE payment_id = ?`, paymentID,
	).Scan(&e.ID, &e.UserID, &e.CourseID, &e.PaymentID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("enrollment", paymentID)
		}
		return nil, fmt.Errorf("sqlite: finding enrollment by payment %s: %w", paymentID, err)
	}
	return &e, nil
}

func (s *EnrollmentStore) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, course_id, payment_id, created_at
		 FROM enrollments WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing enrollments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.PaymentID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating enrollments: %w", err)
	}
	return enrollments, nil
}
