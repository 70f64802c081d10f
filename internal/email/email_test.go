package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-library/internal/queue"
)

func TestRenderBookAvailable(t *testing.T) {
	msg, err := Render(queue.NotificationEvent{
		Kind:         queue.KindBookAvailable,
		Email:        "bea@uni.edu",
		UserName:     "Bea",
		BookTitle:    "SICP",
		BookAuthor:   "Abelson & Sussman",
		BookLocation: "Shelf 3B",
		ExpiryDate:   "2026-03-04T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "bea@uni.edu", msg.To)
	assert.Contains(t, msg.Subject, "SICP")
	assert.Contains(t, msg.Body, "Dear Bea")
	assert.Contains(t, msg.Body, "Shelf 3B")
	assert.Contains(t, msg.Body, "March 4, 2026")
}

func TestRenderDueReminder(t *testing.T) {
	msg, err := Render(queue.NotificationEvent{
		Kind:       queue.KindDueReminder,
		Email:      "ada@uni.edu",
		UserName:   "Ada",
		BookTitle:  "Clean Architecture",
		BookAuthor: "Robert Martin",
		DueDate:    "2026-03-15T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "March 15, 2026")
	assert.Contains(t, msg.Body, "Clean Architecture")
	assert.Contains(t, msg.Body, "avoid late fees")
}

func TestRenderPaperShared(t *testing.T) {
	msg, err := Render(queue.NotificationEvent{
		Kind:         queue.KindPaperShared,
		Email:        "cal@uni.edu",
		UserName:     "Cal",
		PaperTitle:   "Consensus in Practice",
		PaperAuthor:  "D. Ongaro",
		DownloadLink: "http://localhost:8080/api/v1/papers/7",
	})
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "Consensus in Practice")
	assert.Contains(t, msg.Body, "http://localhost:8080/api/v1/papers/7")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := Render(queue.NotificationEvent{Kind: "bogus"})
	assert.Error(t, err)
}

func TestRenderPassesThroughUnparsableDates(t *testing.T) {
	msg, err := Render(queue.NotificationEvent{
		Kind:      queue.KindDueReminder,
		Email:     "ada@uni.edu",
		UserName:  "Ada",
		BookTitle: "SICP",
		DueDate:   "soon",
	})
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "soon")
}
