package lending

import (
	"math"
	"time"
)

// FinePerDay is the charge per overdue day in currency units.
const FinePerDay = 0.5

// Fine computes the overdue fine for a loan returned at returnedAt.
// On-time returns cost nothing; late returns cost FinePerDay per
// started day, partial days rounding up.  There is no cap: a book
// kept long enough accrues an arbitrarily large fine.
func Fine(dueDate, returnedAt time.Time) float64 {
	if !returnedAt.After(dueDate) {
		return 0
	}
	overdueDays := math.Ceil(returnedAt.Sub(dueDate).Hours() / 24)
	return overdueDays * FinePerDay
}
