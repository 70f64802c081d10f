package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/university-library/internal/model"
)

// NotificationRepo persists in-app notifications in the
// `notifications` table and implements the lending engine's
// NotificationStore interface.  Related entity ids ride in a JSON
// column.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the
// given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationColumns = `id, user_id, title, message, type, related_data, is_read, created_at`

func scanNotification(row interface{ Scan(...any) error }) (*model.Notification, error) {
	var (
		n       model.Notification
		related sql.NullString
	)
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
		&related, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if related.Valid && related.String != "" {
		if err := json.Unmarshal([]byte(related.String), &n.RelatedData); err != nil {
			return nil, fmt.Errorf("decode related data for notification %d: %w", n.ID, err)
		}
	}
	return &n, nil
}

// CreateNotification inserts a notification and populates its
// generated id.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	var related any
	if len(n.RelatedData) > 0 {
		b, err := json.Marshal(n.RelatedData)
		if err != nil {
			return err
		}
		related = string(b)
	}
	const q = `INSERT INTO notifications
	           (user_id, title, message, type, related_data, is_read, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, n.UserID, n.Title, n.Message, n.Type,
		related, n.Read, n.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// DueReminderSent reports whether a due-date reminder already exists
// for the transaction.  Reminders are distinguished from the borrow
// confirmation by the "reminder" marker in their related data.
func (r *NotificationRepo) DueReminderSent(ctx context.Context, transactionID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM notifications
	           WHERE type = ?
	             AND JSON_EXTRACT(related_data, '$.transaction_id') = ?
	             AND JSON_EXTRACT(related_data, '$.reminder') = 1`
	var count int
	if err := r.db.QueryRowContext(ctx, q, model.NotificationDueDate, transactionID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flags one of the user's notifications as read.  The
// user id in the WHERE clause keeps users off each other's rows.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Re-read to distinguish "already read" from "not yours".
		var read bool
		err := r.db.QueryRowContext(ctx,
			`SELECT is_read FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&read)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("notification %d: %w", id, ErrNotFound)
		}
		return err
	}
	return nil
}
