package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/university-library/internal/model"
)

// ReviewRepo persists ratings and reviews in the `book_reviews`
// table.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given
// database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// ReviewWithAuthor is a review joined with the reviewer's display
// name.
type ReviewWithAuthor struct {
	model.BookReview
	AuthorName string `json:"author_name"`
}

// ListByBook returns a book's reviews newest first, each with the
// reviewer's name.
func (r *ReviewRepo) ListByBook(ctx context.Context, bookID uint64) ([]ReviewWithAuthor, error) {
	const q = `SELECT br.id, br.book_id, br.user_id, br.rating, br.review, br.created_at, u.name
	           FROM book_reviews br
	           JOIN users u ON u.id = br.user_id
	           WHERE br.book_id = ?
	           ORDER BY br.id DESC`
	rows, err := r.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ReviewWithAuthor, 0)
	for rows.Next() {
		var (
			rv   ReviewWithAuthor
			text sql.NullString
		)
		if err := rows.Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &text, &rv.CreatedAt, &rv.AuthorName); err != nil {
			return nil, err
		}
		if text.Valid {
			t := text.String
			rv.Review = &t
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a review and populates its generated id.  A second
// review by the same user on the same book yields ErrDuplicate.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.BookReview) error {
	const q = `INSERT INTO book_reviews (book_id, user_id, rating, review, created_at)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rv.BookID, rv.UserID, rv.Rating, rv.Review, rv.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("user %d already reviewed book %d: %w", rv.UserID, rv.BookID, ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// AverageRating returns the mean rating and review count for a
// book.  A book with no reviews reports zero.
func (r *ReviewRepo) AverageRating(ctx context.Context, bookID uint64) (float64, int, error) {
	const q = `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM book_reviews WHERE book_id = ?`
	var (
		avg   float64
		count int
	)
	if err := r.db.QueryRowContext(ctx, q, bookID).Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
