package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/repository"
)

const (
	MaxTitleLength   = 200
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// CourseService handles the course catalog: routine CRUD with pagination,
// archiving instead of deletion, and drag-and-drop position reordering.
type CourseService struct {
	courses repository.CourseRepository
	lessons repository.LessonRepository
	logger  *slog.Logger
}

func NewCourseService(courses repository.CourseRepository, lessons repository.LessonRepository, logger *slog.Logger) *CourseService {
	return &CourseService{
		courses: courses,
		lessons: lessons,
		logger:  logger,
	}
}

// Create appends a new course at the end of the catalog.
func (s *CourseService) Create(ctx context.Context, title, slug, description string, priceCents int64) (*model.Course, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "course title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("course title must be %d characters or less", MaxTitleLength))
	}
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "course slug is required")
	}
	if priceCents < 0 {
		return nil, apperror.ValidationFailed("priceCents", "price must not be negative")
	}

	max, err := s.courses.MaxPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating course: %w", err)
	}

	course := &model.Course{
		Title:       title,
		Slug:        slug,
		Description: strings.TrimSpace(description),
		PriceCents:  priceCents,
		Position:    max + 1,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		s.logger.Error("failed to create course",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating course: %w", err)
	}

	s.logger.Info("course created",
		slog.String("id", course.ID),
		slog.String("slug", course.Slug),
	)
	return course, nil
}

func (s *CourseService) GetByID(ctx context.Context, id string) (*model.Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "course ID is required")
	}
	return s.courses.GetByID(ctx, id)
}

// List returns a catalog page. Limit is clamped to 1–100, default 20.
func (s *CourseService) List(ctx context.Context, limit, offset int, includeArchived bool) ([]model.Course, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	courses, err := s.courses.List(ctx, repository.ListOptions{
		Limit:           limit,
		Offset:          offset,
		IncludeArchived: includeArchived,
	})
	if err != nil {
		s.logger.Error("failed to list courses", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return courses, nil
}

// Update modifies title/description/price. Empty title means "don't change";
// position and archived state have their own operations.
func (s *CourseService) Update(ctx context.Context, id, title, description string, priceCents int64) (*model.Course, error) {
	course, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title != "" {
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("course title must be %d characters or less", MaxTitleLength))
		}
		course.Title = title
	}
	course.Description = strings.TrimSpace(description)
	if priceCents >= 0 {
		course.PriceCents = priceCents
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("updating course: %w", err)
	}

	s.logger.Info("course updated", slog.String("id", course.ID))
	return course, nil
}

// Archive soft-deletes a course and closes the position gap it leaves so the
// remaining catalog stays densely numbered. Idempotent.
func (s *CourseService) Archive(ctx context.Context, id string) error {
	course, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if course.Archived {
		return nil
	}

	max, err := s.courses.MaxPosition(ctx)
	if err != nil {
		return fmt.Errorf("archiving course: %w", err)
	}

	course.Archived = true
	if err := s.courses.Update(ctx, course); err != nil {
		return fmt.Errorf("archiving course: %w", err)
	}
	if course.Position < max {
		if err := s.courses.ShiftPositions(ctx, course.Position+1, max, -1); err != nil {
			return fmt.Errorf("archiving course: %w", err)
		}
	}

	s.logger.Info("course archived", slog.String("id", id))
	return nil
}

// Reorder moves a course to the given catalog position, shifting everything
// between the old and new slots by one. This is the backend of drag-and-drop:
// the client only sends the target index.
func (s *CourseService) Reorder(ctx context.Context, id string, newPosition int) (*model.Course, error) {
	course, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Archived {
		return nil, apperror.ValidationFailed("id", "archived courses cannot be reordered")
	}

	max, err := s.courses.MaxPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("reordering course: %w", err)
	}
	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > max {
		newPosition = max
	}

	old := course.Position
	if newPosition == old {
		return course, nil
	}

	// Open the gap at the target, close it at the source.
	if newPosition > old {
		err = s.courses.ShiftPositions(ctx, old+1, newPosition, -1)
	} else {
		err = s.courses.ShiftPositions(ctx, newPosition, old-1, +1)
	}
	if err != nil {
		return nil, fmt.Errorf("reordering course: %w", err)
	}

	course.Position = newPosition
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("reordering course: %w", err)
	}

	s.logger.Info("course reordered",
		slog.String("id", id),
		slog.Int("from", old),
		slog.Int("to", newPosition),
	)
	return course, nil
}

// CreateLesson appends a lesson at the end of a course.
func (s *CourseService) CreateLesson(ctx context.Context, courseID, title, content string) (*model.Lesson, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "lesson title is required")
	}

	// The course must exist and be live.
	course, err := s.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Archived {
		return nil, apperror.ValidationFailed("courseId", "cannot add lessons to an archived course")
	}

	max, err := s.lessons.MaxPositionByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("creating lesson: %w", err)
	}

	lesson := &model.Lesson{
		CourseID: courseID,
		Title:    title,
		Content:  content,
		Position: max + 1,
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("creating lesson: %w", err)
	}

	s.logger.Info("lesson created",
		slog.String("id", lesson.ID),
		slog.String("courseID", courseID),
	)
	return lesson, nil
}

func (s *CourseService) ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, apperror.ValidationFailed("courseId", "course ID is required")
	}
	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("listing lessons: %w", err)
	}
	return lessons, nil
}

// ReorderLesson moves a lesson within its course, same gap-shift scheme as
// course reordering.
func (s *CourseService) ReorderLesson(ctx context.Context, lessonID string, newPosition int) (*model.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	max, err := s.lessons.MaxPositionByCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("reordering lesson: %w", err)
	}
	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > max {
		newPosition = max
	}

	old := lesson.Position
	if newPosition == old {
		return lesson, nil
	}

	if newPosition > old {
		err = s.lessons.ShiftPositionsByCourse(ctx, lesson.CourseID, old+1, newPosition, -1)
	} else {
		err = s.lessons.ShiftPositionsByCourse(ctx, lesson.CourseID, newPosition, old-1, +1)
	}
	if err != nil {
		return nil, fmt.Errorf("reordering lesson: %w", err)
	}

	lesson.Position = newPosition
	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("reordering lesson: %w", err)
	}
	return lesson, nil
}
