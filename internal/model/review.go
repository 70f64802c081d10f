package model

import "time"

// BookReview is a patron rating of a catalog entry.  Rating is
// constrained to 1..5 by the handler.  This struct corresponds to a
// row in the `book_reviews` table.
type BookReview struct {
	ID        uint64    `json:"id"`               // book_reviews.id
	BookID    uint64    `json:"book_id"`          // book_reviews.book_id
	UserID    uint64    `json:"user_id"`          // book_reviews.user_id
	Rating    int       `json:"rating"`           // book_reviews.rating
	Review    *string   `json:"review,omitempty"` // book_reviews.review (nullable)
	CreatedAt time.Time `json:"created_at"`       // book_reviews.created_at
}
