package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/university-library/internal/model"
)

// BookRepo provides CRUD and search over the `books` table and
// implements the lending engine's BookStore interface.  Subject
// tags are stored in a JSON column.  All timestamps are stored in
// UTC.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo returns a new BookRepo bound to the given database.
func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

const bookColumns = `id, title, author, publisher, isbn, year, edition, description,
       subjects, location, copies_total, copies_available, cover_image, added_by, added_at`

// prefixColumns qualifies a comma-separated column list with a
// table alias, for joins that pull in a full book row.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// scanBook reads one row laid out as bookColumns.
func scanBook(row interface{ Scan(...any) error }) (*model.Book, error) {
	return scanBookAfter(row, nil)
}

// scanBookAfter reads a row whose leading columns fill dest and
// whose trailing columns are a full bookColumns layout.
func scanBookAfter(row interface{ Scan(...any) error }, dest []any) (*model.Book, error) {
	var (
		b        model.Book
		edition  sql.NullString
		subjects sql.NullString
		cover    sql.NullString
		addedBy  sql.NullInt64
	)
	dest = append(dest, &b.ID, &b.Title, &b.Author, &b.Publisher, &b.ISBN, &b.Year,
		&edition, &b.Description, &subjects, &b.Location,
		&b.CopiesTotal, &b.CopiesAvailable, &cover, &addedBy, &b.AddedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if edition.Valid {
		e := edition.String
		b.Edition = &e
	}
	if cover.Valid {
		c := cover.String
		b.CoverImage = &c
	}
	if addedBy.Valid {
		id := uint64(addedBy.Int64)
		b.AddedBy = &id
	}
	if subjects.Valid && subjects.String != "" {
		if err := json.Unmarshal([]byte(subjects.String), &b.Subjects); err != nil {
			return nil, fmt.Errorf("decode subjects for book %d: %w", b.ID, err)
		}
	}
	return &b, nil
}

// GetBook returns the book with the given id or ErrNotFound.
func (r *BookRepo) GetBook(ctx context.Context, id uint64) (*model.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	b, err := scanBook(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return b, err
}

// AdjustCopies applies delta to copies_available, keeping the value
// within [0, copies_total].  The WHERE clause carries the range
// check so a concurrent writer cannot push the count out of bounds.
func (r *BookRepo) AdjustCopies(ctx context.Context, id uint64, delta int) (*model.Book, error) {
	const q = `UPDATE books
	           SET copies_available = copies_available + ?
	           WHERE id = ?
	             AND copies_available + ? >= 0
	             AND copies_available + ? <= copies_total`
	res, err := r.db.ExecContext(ctx, q, delta, id, delta, delta)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either the book is missing or the delta would leave the
		// valid range; disambiguate for the caller.
		if _, err := r.GetBook(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("book %d: copy adjustment %+d out of range", id, delta)
	}
	return r.GetBook(ctx, id)
}

// ListBooks returns a page of the catalog in insertion order.
func (r *BookRepo) ListBooks(ctx context.Context, limit, offset int) ([]model.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books ORDER BY id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

// Search returns books whose title, author or ISBN contains the
// query, case-insensitively.
func (r *BookRepo) Search(ctx context.Context, query string) ([]model.Book, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	q := `SELECT ` + bookColumns + ` FROM books
	      WHERE LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(isbn) LIKE ?
	      ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

// Create inserts a catalog entry and populates its generated id and
// added_at.  A duplicate ISBN yields ErrDuplicate.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	subjects, err := json.Marshal(b.Subjects)
	if err != nil {
		return err
	}
	const q = `INSERT INTO books
	           (title, author, publisher, isbn, year, edition, description,
	            subjects, location, copies_total, copies_available, cover_image, added_by)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.Title, b.Author, b.Publisher, b.ISBN, b.Year,
		b.Edition, b.Description, string(subjects), b.Location,
		b.CopiesTotal, b.CopiesAvailable, b.CoverImage, b.AddedBy)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("isbn %s: %w", b.ISBN, ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	created, err := r.GetBook(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = *created
	return nil
}

// Update overwrites the descriptive fields of a catalog entry.
// Copy counts are excluded: they change only through AdjustCopies
// so the lending invariants cannot be bypassed by an edit.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	subjects, err := json.Marshal(b.Subjects)
	if err != nil {
		return err
	}
	const q = `UPDATE books
	           SET title = ?, author = ?, publisher = ?, isbn = ?, year = ?,
	               edition = ?, description = ?, subjects = ?, location = ?,
	               copies_total = ?, cover_image = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, b.Title, b.Author, b.Publisher, b.ISBN, b.Year,
		b.Edition, b.Description, string(subjects), b.Location,
		b.CopiesTotal, b.CoverImage, b.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("isbn %s: %w", b.ISBN, ErrDuplicate)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetBook(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

func collectBooks(rows *sql.Rows) ([]model.Book, error) {
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
