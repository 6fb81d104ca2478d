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

var _ repository.CourseRepository = (*CourseStore)(nil)

// CourseStore implements repository.CourseRepository.
type CourseStore struct {
	conn *sql.DB
}

const courseColumns = `id, title, slug, description, price_cents, position, archived, created_at, updated_at`

func (s *CourseStore) Create(ctx context.Context, course *model.Course) error {
	course.ID = xid.New().String()
	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO courses (`+courseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		course.ID, course.Title, course.Slug, course.Description,
		course.PriceCents, course.Position, boolToInt(course.Archived),
		course.CreatedAt, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting course %q: %w", course.Slug, err)
	}
	return nil
}

func (s *CourseStore) GetByID(ctx context.Context, id string) (*model.Course, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)

	course, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("course", id)
		}
		return nil, fmt.Errorf("sqlite: getting course %s: %w", id, err)
	}
	return course, nil
}

// List returns courses ordered by catalog position, archived ones last and
// only when requested.
func (s *CourseStore) List(ctx context.Context, opts repository.ListOptions) ([]model.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	if !opts.IncludeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY archived, position LIMIT ? OFFSET ?`

	rows, err := s.conn.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		var archived int
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Slug, &c.Description, &c.PriceCents,
			&c.Position, &archived, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning course: %w", err)
		}
		c.Archived = archived != 0
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating courses: %w", err)
	}
	return courses, nil
}

func (s *CourseStore) Update(ctx context.Context, course *model.Course) error {
	course.UpdatedAt = time.Now()

	res, err := s.conn.ExecContext(ctx,
		`UPDATE courses SET title = ?, slug = ?, description = ?, price_cents = ?,
		 position = ?, archived = ?, updated_at = ? WHERE id = ?`,
		course.Title, course.Slug, course.Description, course.PriceCents,
		course.Position, boolToInt(course.Archived), course.UpdatedAt, course.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating course %s: %w", course.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating course %s: %w", course.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("course", course.ID)
	}
	return nil
}

func (s *CourseStore) MaxPosition(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := s.conn.QueryRowContext(ctx,
		`SELECT MAX(position) FROM courses WHERE archived = 0`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading max course position: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// ShiftPositions moves every non-archived course in [from, to] by delta.
// Used by the reorder operation to open or close a gap before placing the
// moved course at its target position.
func (s *CourseStore) ShiftPositions(ctx context.Context, from, to, delta int) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE courses SET position = position + ?, updated_at = ?
		 WHERE archived = 0 AND position >= ? AND position <= ?`,
		delta, time.Now(), from, to,
	)
	if err != nil {
		return fmt.Errorf("sqlite: shifting course positions: %w", err)
	}
	return nil
}

func scanCourse(row *sql.Row) (*model.Course, error) {
	var c model.Course
	var archived int
	err := row.Scan(
		&c.ID, &c.Title, &c.Slug, &c.Description, &c.PriceCents,
		&c.Position, &archived, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Archived = archived != 0
	return &c, nil
}
