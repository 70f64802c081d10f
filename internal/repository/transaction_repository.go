package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/university-library/internal/model"
)

// TransactionRepo persists loans in the `book_transactions` table
// and implements the lending engine's TransactionStore interface.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo returns a new TransactionRepo bound to the
// given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = `id, book_id, user_id, issue_date, due_date, return_date, fine_amount, fine_paid, status`

func scanTransaction(row interface{ Scan(...any) error }) (*model.BookTransaction, error) {
	var (
		t        model.BookTransaction
		returned sql.NullTime
	)
	err := row.Scan(&t.ID, &t.BookID, &t.UserID, &t.IssueDate, &t.DueDate,
		&returned, &t.FineAmount, &t.FinePaid, &t.Status)
	if err != nil {
		return nil, err
	}
	if returned.Valid {
		rt := returned.Time
		t.ReturnDate = &rt
	}
	return &t, nil
}

// GetTransaction returns the loan with the given id or ErrNotFound.
func (r *TransactionRepo) GetTransaction(ctx context.Context, id uint64) (*model.BookTransaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM book_transactions WHERE id = ?`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return t, err
}

// CreateTransaction inserts a loan and populates its generated id.
func (r *TransactionRepo) CreateTransaction(ctx context.Context, t *model.BookTransaction) error {
	const q = `INSERT INTO book_transactions
	           (book_id, user_id, issue_date, due_date, return_date, fine_amount, fine_paid, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.BookID, t.UserID, t.IssueDate, t.DueDate,
		t.ReturnDate, t.FineAmount, t.FinePaid, t.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// UpdateTransaction overwrites the mutable loan fields.
func (r *TransactionRepo) UpdateTransaction(ctx context.Context, t *model.BookTransaction) error {
	const q = `UPDATE book_transactions
	           SET due_date = ?, return_date = ?, fine_amount = ?, fine_paid = ?, status = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.DueDate, t.ReturnDate, t.FineAmount, t.FinePaid, t.Status, t.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetTransaction(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListTransactionsByUser returns a user's loans, newest first.
func (r *TransactionRepo) ListTransactionsByUser(ctx context.Context, userID uint64) ([]model.BookTransaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM book_transactions WHERE user_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListActiveDueBetween returns active loans whose due date falls in
// [from, to].  The reminder sweep runs over this set.
func (r *TransactionRepo) ListActiveDueBetween(ctx context.Context, from, to time.Time) ([]model.BookTransaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM book_transactions
	      WHERE status = ? AND due_date BETWEEN ? AND ?
	      ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, model.TransactionActive, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]model.BookTransaction, error) {
	out := make([]model.BookTransaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
