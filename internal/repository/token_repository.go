package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenRepo persists hashed refresh tokens in the `refresh_tokens`
// table.  Only the SHA-256 hash of a token is stored; the raw value
// never touches the database.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a new TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// Store records a refresh token hash for the user with its expiry.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, expiresAt)
	return err
}

// Lookup returns the owning user id for an unexpired token hash, or
// ErrNotFound when the token is unknown or past its expiry.
func (r *TokenRepo) Lookup(ctx context.Context, tokenHash string) (uint64, error) {
	const q = `SELECT user_id FROM refresh_tokens WHERE token_hash = ? AND expires_at > ?`
	var userID uint64
	err := r.db.QueryRowContext(ctx, q, tokenHash, time.Now().UTC()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("refresh token: %w", ErrNotFound)
	}
	return userID, err
}

// Delete removes a single token hash.  Used on rotation and logout.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	const q = `DELETE FROM refresh_tokens WHERE token_hash = ?`
	_, err := r.db.ExecContext(ctx, q, tokenHash)
	return err
}

// DeleteForUser removes every token the user holds, ending all of
// their sessions.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}

// DeleteExpired prunes tokens past their expiry and returns the
// number removed.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expires_at <= ?`
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
