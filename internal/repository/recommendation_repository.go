package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/university-library/internal/model"
)

// RecommendationRepo persists per-user book suggestions in the
// `recommendations` table.
type RecommendationRepo struct {
	db *sql.DB
}

// NewRecommendationRepo returns a new RecommendationRepo bound to
// the given database.
func NewRecommendationRepo(db *sql.DB) *RecommendationRepo {
	return &RecommendationRepo{db: db}
}

// RecommendationWithBook is a suggestion joined with its catalog
// record.
type RecommendationWithBook struct {
	model.Recommendation
	Book model.Book `json:"book"`
}

// ListByUser returns a user's suggestions newest first, each with
// the recommended book expanded.
func (r *RecommendationRepo) ListByUser(ctx context.Context, userID uint64) ([]RecommendationWithBook, error) {
	q := `SELECT rc.id, rc.user_id, rc.book_id, rc.reason, rc.created_at, rc.viewed,
	             ` + prefixColumns("b", bookColumns) + `
	      FROM recommendations rc
	      JOIN books b ON b.id = rc.book_id
	      WHERE rc.user_id = ?
	      ORDER BY rc.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RecommendationWithBook, 0)
	for rows.Next() {
		var rec RecommendationWithBook
		dest := []any{&rec.ID, &rec.UserID, &rec.BookID, &rec.Reason, &rec.CreatedAt, &rec.Viewed}
		b, err := scanBookAfter(rows, dest)
		if err != nil {
			return nil, err
		}
		rec.Book = *b
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a suggestion and populates its generated id.
func (r *RecommendationRepo) Create(ctx context.Context, rec *model.Recommendation) error {
	const q = `INSERT INTO recommendations (user_id, book_id, reason, created_at, viewed)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rec.UserID, rec.BookID, rec.Reason, rec.CreatedAt, rec.Viewed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// SubjectsBorrowedBy returns the distinct subject tags across the
// books a user has borrowed.  The recommendation builder seeds its
// candidate set from these.
func (r *RecommendationRepo) SubjectsBorrowedBy(ctx context.Context, userID uint64) ([]string, error) {
	// Subjects live in a JSON column, so the set is assembled in Go
	// from the borrowed books' decoded rows.
	q := `SELECT DISTINCT ` + prefixColumns("b", bookColumns) + `
	      FROM book_transactions t
	      JOIN books b ON b.id = t.book_id
	      WHERE t.user_id = ?`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	var out []string
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		for _, subject := range b.Subjects {
			if _, ok := seen[subject]; ok || subject == "" {
				continue
			}
			seen[subject] = struct{}{}
			out = append(out, subject)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
