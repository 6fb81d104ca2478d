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

var _ repository.LessonRepository = (*LessonStore)(nil)

// LessonStore implements repository.LessonRepository.
type LessonStore struct {
	conn *sql.DB
}

const lessonColumns = `id, course_id, title, content, position, created_at, updated_at`

func (s *LessonStore) Create(ctx context.Context, lesson *model.Lesson) error {
	lesson.ID = xid.New().String()
	now := time.Now()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO lessons (`+lessonColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Content,
		lesson.Position, lesson.CreatedAt, lesson.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting lesson for course %s: %w", lesson.CourseID, err)
	}
	return nil
}

func (s *LessonStore) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	var l model.Lesson
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id,
	).Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("lesson", id)
		}
		return nil, fmt.Errorf("sqlite: getting lesson %s: %w", id, err)
	}
	return &l, nil
}

func (s *LessonStore) ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE course_id = ? ORDER BY position`, courseID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lessons for course %s: %w", courseID, err)
	}
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lessons: %w", err)
	}
	return lessons, nil
}

func (s *LessonStore) Update(ctx context.Context, lesson *model.Lesson) error {
	lesson.UpdatedAt = time.Now()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE lessons SET title = ?, content = ?, position = ?, updated_at = ? WHERE id = ?`,
		lesson.Title, lesson.Content, lesson.Position, lesson.UpdatedAt, lesson.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating lesson %s: %w", lesson.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating lesson %s: %w", lesson.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("lesson", lesson.ID)
	}
	return nil
}

func (s *LessonStore) MaxPositionByCourse(ctx context.Context, courseID string) (int, error) {
	var max sql.NullInt64
	err := s.conn.QueryRowContext(ctx,
		`SELECT MAX(position) FROM lessons WHERE course_id = ?`, courseID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading max lesson position: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

func (s *LessonStore) ShiftPositionsByCourse(ctx context.Context, courseID string, from, to, delta int) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE lessons SET position = position + ?, updated_at = ?
		 WHERE course_id = ? AND position >= ? AND position <= ?`,
		delta, time.Now(), courseID, from, to,
	)
	if err != nil {
		return fmt.Errorf("sqlite: shifting lesson positions: %w", err)
	}
	return nil
}
