package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/model"
)

func TestEnrollmentCreateAndFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := upsertTestUser(t, db.Users(), 1, "buyer")
	course := createTestCourse(t, db.Courses(), "go-basics", 0)

	enrollment := &model.Enrollment{
		UserID:    user.ID,
		CourseID:  course.ID,
		PaymentID: "pay_123",
	}
	if err := db.Enrollments().Create(ctx, enrollment); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if enrollment.ID == "" {
		t.Error("Create() did not set enrollment.ID")
	}

	found, err := db.Enrollments().FindByPaymentID(ctx, "pay_123")
	if err != nil {
		t.Fatalf("FindByPaymentID() error = %v", err)
	}
	if found.UserID != user.ID || found.CourseID != course.ID {
		t.Errorf("found = %+v", found)
	}

	_, err = db.Enrollments().FindByPaymentID(ctx, "pay_unseen")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown payment: error = %v, want ErrNotFound", err)
	}
}

// The UNIQUE constraint on payment_id surfaces as a conflict, which the
// service layer relies on to catch concurrent webhook redeliveries.
func TestEnrollmentCreate_DuplicatePayment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := upsertTestUser(t, db.Users(), 1, "buyer")
	course := createTestCourse(t, db.Courses(), "go-basics", 0)

	first := &model.Enrollment{UserID: user.ID, CourseID: course.ID, PaymentID: "pay_123"}
	if err := db.Enrollments().Create(ctx, first); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	dup := &model.Enrollment{UserID: user.ID, CourseID: course.ID, PaymentID: "pay_123"}
	err := db.Enrollments().Create(ctx, dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate Create() error = %v, want ErrConflict", err)
	}
}

func TestEnrollmentListByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	buyer := upsertTestUser(t, db.Users(), 1, "buyer")
	other := upsertTestUser(t, db.Users(), 2, "other")
	course := createTestCourse(t, db.Courses(), "go-basics", 0)

	for _, payID := range []string{"pay_1", "pay_2"} {
		e := &model.Enrollment{UserID: buyer.ID, CourseID: course.ID, PaymentID: payID}
		if err := db.Enrollments().Create(ctx, e); err != nil {
			t.Fatalf("Create(%s) error = %v", payID, err)
		}
	}

	mine, err := db.Enrollments().ListByUser(ctx, buyer.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("enrollments = %d, want 2", len(mine))
	}

	theirs, err := db.Enrollments().ListByUser(ctx, other.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(theirs) != 0 {
		t.Errorf("other user's enrollments = %d, want 0", len(theirs))
	}
}
