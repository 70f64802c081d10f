package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/university-library/internal/model"
)

// CourseRepo persists courses and their reading lists over the
// `courses` and `course_books` tables.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo returns a new CourseRepo bound to the given
// database.
func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

const courseColumns = `id, code, name, description, department`

func scanCourse(row interface{ Scan(...any) error }) (*model.Course, error) {
	var (
		c    model.Course
		desc sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &desc, &c.Department); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		c.Description = &d
	}
	return &c, nil
}

// GetCourse returns the course with the given id or ErrNotFound.
func (r *CourseRepo) GetCourse(ctx context.Context, id uint64) (*model.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses WHERE id = ?`
	c, err := scanCourse(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return c, err
}

// ListCourses returns every course ordered by code.
func (r *CourseRepo) ListCourses(ctx context.Context) ([]model.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses ORDER BY code`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCourse inserts a course and populates its generated id.  A
// duplicate code yields ErrDuplicate.
func (r *CourseRepo) CreateCourse(ctx context.Context, c *model.Course) error {
	const q = `INSERT INTO courses (code, name, description, department) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Code, c.Name, c.Description, c.Department)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("course code %s: %w", c.Code, ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ReadingListEntry is one row of a course reading list with the
// linked book expanded.
type ReadingListEntry struct {
	model.CourseBook
	Book model.Book `json:"book"`
}

// ReadingList returns a course's reading list ordered by priority,
// each entry joined with its catalog record.
func (r *CourseRepo) ReadingList(ctx context.Context, courseID uint64) ([]ReadingListEntry, error) {
	q := `SELECT cb.id, cb.course_id, cb.book_id, cb.added_by, cb.priority, cb.is_required,
	             ` + prefixColumns("b", bookColumns) + `
	      FROM course_books cb
	      JOIN books b ON b.id = cb.book_id
	      WHERE cb.course_id = ?
	      ORDER BY cb.priority, cb.id`
	rows, err := r.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ReadingListEntry, 0)
	for rows.Next() {
		var e ReadingListEntry
		dest := []any{&e.ID, &e.CourseID, &e.BookID, &e.AddedBy, &e.Priority, &e.IsRequired}
		b, err := scanBookAfter(rows, dest)
		if err != nil {
			return nil, err
		}
		e.Book = *b
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AddBook links a book into a course reading list.  Linking the
// same book twice yields ErrDuplicate.
func (r *CourseRepo) AddBook(ctx context.Context, cb *model.CourseBook) error {
	const q = `INSERT INTO course_books (course_id, book_id, added_by, priority, is_required)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, cb.CourseID, cb.BookID, cb.AddedBy, cb.Priority, cb.IsRequired)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("book %d already on course %d: %w", cb.BookID, cb.CourseID, ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cb.ID = uint64(id)
	return nil
}
