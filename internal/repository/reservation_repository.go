package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/university-library/internal/model"
)

// ReservationRepo persists hold requests in the `book_reservations`
// table and implements the lending engine's ReservationStore
// interface.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the
// given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, book_id, user_id, reservation_date, expiry_date, status, notified_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.BookReservation, error) {
	var (
		rsv      model.BookReservation
		notified sql.NullTime
	)
	err := row.Scan(&rsv.ID, &rsv.BookID, &rsv.UserID, &rsv.ReservationDate,
		&rsv.ExpiryDate, &rsv.Status, &notified)
	if err != nil {
		return nil, err
	}
	if notified.Valid {
		n := notified.Time
		rsv.NotifiedAt = &n
	}
	return &rsv, nil
}

// GetReservation returns the reservation with the given id or
// ErrNotFound.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (*model.BookReservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM book_reservations WHERE id = ?`
	rsv, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	return rsv, err
}

// CreateReservation inserts a hold request and populates its
// generated id.
func (r *ReservationRepo) CreateReservation(ctx context.Context, rsv *model.BookReservation) error {
	const q = `INSERT INTO book_reservations
	           (book_id, user_id, reservation_date, expiry_date, status, notified_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rsv.BookID, rsv.UserID, rsv.ReservationDate,
		rsv.ExpiryDate, rsv.Status, rsv.NotifiedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rsv.ID = uint64(id)
	return nil
}

// UpdateReservation overwrites the mutable reservation fields.
func (r *ReservationRepo) UpdateReservation(ctx context.Context, rsv *model.BookReservation) error {
	const q = `UPDATE book_reservations
	           SET expiry_date = ?, status = ?, notified_at = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rsv.ExpiryDate, rsv.Status, rsv.NotifiedAt, rsv.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetReservation(ctx, rsv.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListReservationsByUser returns a user's reservations, newest
// first.
func (r *ReservationRepo) ListReservationsByUser(ctx context.Context, userID uint64) ([]model.BookReservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM book_reservations WHERE user_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ActiveReservationForUser returns the user's pending or ready
// reservation on the book, or ErrNotFound when none exists.
func (r *ReservationRepo) ActiveReservationForUser(ctx context.Context, bookID, userID uint64) (*model.BookReservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM book_reservations
	      WHERE book_id = ? AND user_id = ? AND status IN (?, ?)
	      ORDER BY id LIMIT 1`
	rsv, err := scanReservation(r.db.QueryRowContext(ctx, q, bookID, userID,
		model.ReservationPending, model.ReservationReady))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation for book %d user %d: %w", bookID, userID, ErrNotFound)
	}
	return rsv, err
}

// OldestPending returns the head of the book's hold queue: the
// earliest reservation date, ties broken by the lower id.
func (r *ReservationRepo) OldestPending(ctx context.Context, bookID uint64) (*model.BookReservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM book_reservations
	      WHERE book_id = ? AND status = ?
	      ORDER BY reservation_date, id LIMIT 1`
	rsv, err := scanReservation(r.db.QueryRowContext(ctx, q, bookID, model.ReservationPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending reservation for book %d: %w", bookID, ErrNotFound)
	}
	return rsv, err
}

// ListExpiredReady returns ready reservations whose pickup deadline
// is at or before the cutoff.
func (r *ReservationRepo) ListExpiredReady(ctx context.Context, cutoff time.Time) ([]model.BookReservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM book_reservations
	      WHERE status = ? AND expiry_date <= ?
	      ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, model.ReservationReady, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]model.BookReservation, error) {
	out := make([]model.BookReservation, 0)
	for rows.Next() {
		rsv, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rsv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
