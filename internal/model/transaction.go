package model

import "time"

// Transaction status values.  "overdue" exists in the enum for API
// compatibility but is never stored: overdue-ness is derived as
// dueDate < now while the transaction is still active.
const (
	TransactionActive   = "active"
	TransactionReturned = "returned"
	TransactionOverdue  = "overdue"
)

// BookTransaction records one loan of one copy of a book to one
// user.  It is created by Borrow with status "active" and reaches
// its terminal state through Return, which sets ReturnDate and any
// accrued fine.  A returned transaction never becomes active again.
// This struct corresponds to a row in the `book_transactions` table.
//
// Fields:
//  ID         – primary key identifier.
//  BookID     – borrowed book.
//  UserID     – borrowing user.
//  IssueDate  – when the loan started.
//  DueDate    – IssueDate + loan period (14 days).
//  ReturnDate – when the copy came back (nil while active).
//  FineAmount – fine computed at return time, 0.50 per overdue day.
//  FinePaid   – whether the fine has been settled.
//  Status     – "active" or "returned".
type BookTransaction struct {
	ID         uint64     `json:"id"`                    // book_transactions.id
	BookID     uint64     `json:"book_id"`               // book_transactions.book_id
	UserID     uint64     `json:"user_id"`               // book_transactions.user_id
	IssueDate  time.Time  `json:"issue_date"`            // book_transactions.issue_date
	DueDate    time.Time  `json:"due_date"`              // book_transactions.due_date
	ReturnDate *time.Time `json:"return_date,omitempty"` // book_transactions.return_date (nullable)
	FineAmount float64    `json:"fine_amount"`           // book_transactions.fine_amount
	FinePaid   bool       `json:"fine_paid"`             // book_transactions.fine_paid
	Status     string     `json:"status"`                // book_transactions.status
}

// Overdue reports whether the loan is past due and still out.
func (t *BookTransaction) Overdue(now time.Time) bool {
	return t.Status == TransactionActive && t.DueDate.Before(now)
}
