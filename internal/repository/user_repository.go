package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/university-library/internal/model"
)

// UserRepo provides account persistence over the `users` table and
// implements the lending engine's UserStore interface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, password_hash, name, email, role, max_books, borrowed_count, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email,
		&role, &u.MaxBooks, &u.BorrowedCount, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.ParseRole(role)
	return &u, nil
}

// GetUser returns the user with the given id or ErrNotFound.
func (r *UserRepo) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

// GetByUsername returns the user with the given username or
// ErrNotFound.  Used by the login flow.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return u, err
}

// Create inserts an account and populates its generated id and
// created_at.  A duplicate username or email yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users
	           (username, password_hash, name, email, role, max_books, borrowed_count)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, u.Username, u.PasswordHash, u.Name, u.Email,
		string(u.Role), u.MaxBooks, u.BorrowedCount)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("username or email taken: %w", ErrDuplicate)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	created, err := r.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

// AdjustBorrowedCount applies delta to borrowed_count, flooring the
// result at zero.
func (r *UserRepo) AdjustBorrowedCount(ctx context.Context, id uint64, delta int) error {
	const q = `UPDATE users
	           SET borrowed_count = GREATEST(0, borrowed_count + ?)
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, delta, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// A zero-row update can also mean the value was already at
		// its floor; only report missing accounts.
		if _, err := r.GetUser(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProfile changes the mutable account fields.  Role and
// borrowing cap edits are an administrative action; the handler
// enforces that before calling here.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	const q = `UPDATE users SET name = ?, email = ?, role = ?, max_books = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, u.Name, u.Email, string(u.Role), u.MaxBooks, u.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("email taken: %w", ErrDuplicate)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetUser(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}
