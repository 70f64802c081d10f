package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFine(t *testing.T) {
	due := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		returned time.Time
		want     float64
	}{
		{"early", due.Add(-48 * time.Hour), 0},
		{"exactly on time", due, 0},
		{"one second late rounds to a day", due.Add(time.Second), 0.5},
		{"half a day late rounds up", due.Add(12 * time.Hour), 0.5},
		{"exactly one day late", due.Add(24 * time.Hour), 0.5},
		{"five days late", due.Add(5 * 24 * time.Hour), 2.5},
		{"uncapped after a year", due.Add(365 * 24 * time.Hour), 182.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fine(due, tc.returned))
		})
	}
}
