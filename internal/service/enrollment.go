package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/repository"
)

// EnrollmentService creates enrollment records from verified payment
// webhooks. It trusts its caller to have verified the webhook signature —
// the handler must never invoke this on an unauthenticated payload.
type EnrollmentService struct {
	enrollments repository.EnrollmentRepository
	users       repository.UserRepository
	courses     repository.CourseRepository
	logger      *slog.Logger
}

func NewEnrollmentService(
	enrollments repository.EnrollmentRepository,
	users repository.UserRepository,
	courses repository.CourseRepository,
	logger *slog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		enrollments: enrollments,
		users:       users,
		courses:     courses,
		logger:      logger,
	}
}

// CreateFromWebhook records a purchase. The provider payment ID is the
// idempotency key: a redelivered webhook for an already-recorded payment
// returns the existing enrollment instead of creating a second one.
func (s *EnrollmentService) CreateFromWebhook(ctx context.Context, userID, courseID, paymentID string) (*model.Enrollment, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if courseID == "" {
		return nil, apperror.ValidationFailed("courseId", "course ID is required")
	}
	if paymentID == "" {
		return nil, apperror.ValidationFailed("paymentId", "payment ID is required")
	}

	if existing, err := s.enrollments.FindByPaymentID(ctx, paymentID); err == nil {
		s.logger.Info("webhook redelivery for known payment",
			slog.String("paymentID", paymentID),
		)
		return existing, nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("creating enrollment: %w", err)
	}

	// Both references must resolve before we record a purchase.
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("creating enrollment: %w", err)
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, fmt.Errorf("creating enrollment: %w", err)
	}

	enrollment := &model.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		PaymentID: paymentID,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		// Concurrent redelivery can still hit the UNIQUE constraint between
		// our check and the insert; surface it as the conflict it is.
		return nil, fmt.Errorf("creating enrollment: %w", err)
	}

	s.logger.Info("enrollment created",
		slog.String("id", enrollment.ID),
		slog.String("userID", userID),
		slog.String("courseID", courseID),
		slog.String("paymentID", paymentID),
	)
	return enrollment, nil
}

// ListByUser returns the caller's enrollments, newest first.
func (s *EnrollmentService) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing enrollments: %w", err)
	}
	return enrollments, nil
}
