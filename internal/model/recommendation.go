package model

import "time"

// Recommendation is a per-user suggested title with a short reason.
// Rows are written by an external recommendation job; this service
// only stores and lists them.  This struct corresponds to a row in
// the `recommendations` table.
type Recommendation struct {
	ID        uint64    `json:"id"`         // recommendations.id
	UserID    uint64    `json:"user_id"`    // recommendations.user_id
	BookID    uint64    `json:"book_id"`    // recommendations.book_id
	Reason    string    `json:"reason"`     // recommendations.reason
	CreatedAt time.Time `json:"created_at"` // recommendations.created_at
	Viewed    bool      `json:"viewed"`     // recommendations.viewed
}
