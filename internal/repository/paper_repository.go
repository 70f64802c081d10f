package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/university-library/internal/model"
)

// PaperRepo persists research papers in the `research_papers`
// table.
type PaperRepo struct {
	db *sql.DB
}

// NewPaperRepo returns a new PaperRepo bound to the given database.
func NewPaperRepo(db *sql.DB) *PaperRepo { return &PaperRepo{db: db} }

const paperColumns = `id, title, author, journal, publish_date, subject, abstract, file_path, uploaded_by, uploaded_at`

func scanPaper(row interface{ Scan(...any) error }) (*model.ResearchPaper, error) {
	var (
		p        model.ResearchPaper
		journal  sql.NullString
		abstract sql.NullString
	)
	err := row.Scan(&p.ID, &p.Title, &p.Author, &journal, &p.PublishDate,
		&p.Subject, &abstract, &p.FilePath, &p.UploadedBy, &p.UploadedAt)
	if err != nil {
		return nil, err
	}
	if journal.Valid {
		j := journal.String
		p.Journal = &j
	}
	if abstract.Valid {
		a := abstract.String
		p.Abstract = &a
	}
	return &p, nil
}

// GetPaper returns the paper with the given id or ErrNotFound.
func (r *PaperRepo) GetPaper(ctx context.Context, id uint64) (*model.ResearchPaper, error) {
	q := `SELECT ` + paperColumns + ` FROM research_papers WHERE id = ?`
	p, err := scanPaper(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("paper %d: %w", id, ErrNotFound)
	}
	return p, err
}

// ListPapers returns papers newest first, optionally filtered by a
// case-insensitive match on title, author or subject.
func (r *PaperRepo) ListPapers(ctx context.Context, query string) ([]model.ResearchPaper, error) {
	q := `SELECT ` + paperColumns + ` FROM research_papers`
	var args []any
	if query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q += ` WHERE LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(subject) LIKE ?`
		args = append(args, pattern, pattern, pattern)
	}
	q += ` ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ResearchPaper, 0)
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePaper inserts a paper and populates its generated id.
func (r *PaperRepo) CreatePaper(ctx context.Context, p *model.ResearchPaper) error {
	const q = `INSERT INTO research_papers
	           (title, author, journal, publish_date, subject, abstract, file_path, uploaded_by, uploaded_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Title, p.Author, p.Journal, p.PublishDate,
		p.Subject, p.Abstract, p.FilePath, p.UploadedBy, p.UploadedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}
