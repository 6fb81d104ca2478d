package model

import "time"

// Course is a sellable unit of content. Courses are soft-deleted via the
// Archived flag so existing enrollments keep a valid reference, and ordered
// in the catalog by Position (dense, zero-based, unique among non-archived
// courses).
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	Position    int       `json:"position"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Lesson belongs to a course and carries its own Position ordering within it.
type Lesson struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"` // markdown body
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Enrollment records a purchased course. Created only from verified payment
// webhooks; PaymentID is the provider's payment identifier and is unique so a
// redelivered webhook cannot enroll twice.
type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	PaymentID string    `json:"paymentId"`
	CreatedAt time.Time `json:"createdAt"`
}
