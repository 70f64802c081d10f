// Package queue defines the message payloads exchanged over the
// broker and the background consumer that turns them into email
// deliveries.
package queue

// Event kinds carried on the library.notifications queue.
const (
	KindBookAvailable = "book_available"
	KindDueReminder   = "due_reminder"
	KindPaperShared   = "paper_shared"
)

// NotificationEvent is published whenever a lending transition wants
// an email sent.  It carries everything the consumer needs to render
// and address the message without querying the primary database.
// Fields that do not apply to a given kind are left empty.
type NotificationEvent struct {
	Kind       string `json:"kind"`
	Email      string `json:"email"`
	UserName   string `json:"user_name,omitempty"`
	OccurredAt string `json:"occurred_at"`

	// Lending fields (book_available, due_reminder).
	BookTitle    string `json:"book_title,omitempty"`
	BookAuthor   string `json:"book_author,omitempty"`
	BookLocation string `json:"book_location,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	ExpiryDate   string `json:"expiry_date,omitempty"`

	// Research paper fields (paper_shared).
	PaperTitle   string `json:"paper_title,omitempty"`
	PaperAuthor  string `json:"paper_author,omitempty"`
	DownloadLink string `json:"download_link,omitempty"`
}
