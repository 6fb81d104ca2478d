package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/model"
)

type fakeEnrollmentRepo struct {
	enrollments map[string]*model.Enrollment // keyed by payment ID
	nextID      int
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[string]*model.Enrollment)}
}

func (f *fakeEnrollmentRepo) Create(ctx context.Context, e *model.Enrollment) error {
	if _, ok := f.enrollments[e.PaymentID]; ok {
		return apperror.Conflict("enrollment", e.PaymentID)
	}
	f.nextID++
	e.ID = fmt.Sprintf("enr-%d", f.nextID)
	e.CreatedAt = time.Now()
	copied := *e
	f.enrollments[e.PaymentID] = &copied
	return nil
}

func (f *fakeEnrollmentRepo) FindByPaymentID(ctx context.Context, paymentID string) (*model.Enrollment, error) {
	e, ok := f.enrollments[paymentID]
	if !ok {
		return nil, apperror.NotFound("enrollment", paymentID)
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	var out []model.Enrollment
	for _, e := range f.enrollments {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func newTestEnrollmentService(t *testing.T) (*EnrollmentService, *fakeEnrollmentRepo, *model.User, *model.Course) {
	t.Helper()
	enrollments := newFakeEnrollmentRepo()
	users := newFakeUserRepo()
	courses := newFakeCourseRepo()

	user := seedUser(t, users, "u1")
	course := &model.Course{Title: "Go from Scratch", Slug: "go-from-scratch"}
	if err := courses.Create(context.Background(), course); err != nil {
		t.Fatalf("seeding course: %v", err)
	}

	svc := NewEnrollmentService(enrollments, users, courses, testLogger())
	return svc, enrollments, user, course
}

func TestCreateFromWebhook_Creates(t *testing.T) {
	svc, _, user, course := newTestEnrollmentService(t)

	e, err := svc.CreateFromWebhook(context.Background(), user.ID, course.ID, "pay_123")
	if err != nil {
		t.Fatalf("CreateFromWebhook() error = %v", err)
	}
	if e.ID == "" {
		t.Error("enrollment ID not assigned")
	}
	if e.UserID != user.ID || e.CourseID != course.ID || e.PaymentID != "pay_123" {
		t.Errorf("enrollment fields = %+v", e)
	}
}

// Webhook providers redeliver: the same payment ID must resolve to the
// existing enrollment, not a duplicate or an error.
func TestCreateFromWebhook_RedeliveryIsIdempotent(t *testing.T) {
	svc, repo, user, course := newTestEnrollmentService(t)

	first, err := svc.CreateFromWebhook(context.Background(), user.ID, course.ID, "pay_123")
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	second, err := svc.CreateFromWebhook(context.Background(), user.ID, course.ID, "pay_123")
	if err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("redelivery created enrollment %q, want existing %q", second.ID, first.ID)
	}
	if len(repo.enrollments) != 1 {
		t.Errorf("stored enrollments = %d, want 1", len(repo.enrollments))
	}
}

func TestCreateFromWebhook_Validation(t *testing.T) {
	svc, _, user, course := newTestEnrollmentService(t)
	ctx := context.Background()

	cases := []struct {
		name                       string
		userID, courseID, payID    string
	}{
		{"missing user", "", course.ID, "pay_1"},
		{"missing course", user.ID, "", "pay_1"},
		{"missing payment", user.ID, course.ID, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateFromWebhook(ctx, tc.userID, tc.courseID, tc.payID)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateFromWebhook_UnknownReferences(t *testing.T) {
	svc, _, user, course := newTestEnrollmentService(t)
	ctx := context.Background()

	if _, err := svc.CreateFromWebhook(ctx, "ghost", course.ID, "pay_1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown user: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.CreateFromWebhook(ctx, user.ID, "ghost", "pay_2"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown course: error = %v, want ErrNotFound", err)
	}
}

func TestListByUser_OnlyOwnEnrollments(t *testing.T) {
	svc, _, user, course := newTestEnrollmentService(t)
	ctx := context.Background()

	if _, err := svc.CreateFromWebhook(ctx, user.ID, course.ID, "pay_1"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	mine, err := svc.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("enrollments = %d, want 1", len(mine))
	}

	others, err := svc.ListByUser(ctx, "someone-else")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(others) != 0 {
		t.Errorf("another user sees %d enrollments, want 0", len(others))
	}
}
