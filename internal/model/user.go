package model

import "time"

// User represents a library patron or staff account.  Every user
// carries a borrowing cap (MaxBooks) and a live count of active
// loans (BorrowedCount).  The count is maintained by the lending
// engine: it equals the number of the user's transactions with
// status "active" and is never allowed to exceed MaxBooks at
// borrow time.  This struct corresponds to a row in the `users`
// table.
//
// Fields:
//  ID            – primary key identifier.
//  Username      – unique login name.
//  PasswordHash  – bcrypt hash of the password.
//  Name          – display name.
//  Email         – unique email address used for notifications.
//  Role          – account role (student, faculty, admin).
//  MaxBooks      – maximum number of concurrently borrowed books.
//  BorrowedCount – current number of active loans.
//  CreatedAt     – timestamp when the account was created.
type User struct {
	ID            uint64    `json:"id"`             // users.id
	Username      string    `json:"username"`       // users.username
	PasswordHash  string    `json:"-"`              // users.password_hash (never serialized)
	Name          string    `json:"name"`           // users.name
	Email         string    `json:"email"`          // users.email
	Role          Role      `json:"role"`           // users.role
	MaxBooks      int       `json:"max_books"`      // users.max_books
	BorrowedCount int       `json:"borrowed_count"` // users.borrowed_count
	CreatedAt     time.Time `json:"created_at"`     // users.created_at
}

// DefaultMaxBooks is the borrowing cap assigned to newly registered
// users when none is specified.
const DefaultMaxBooks = 4
