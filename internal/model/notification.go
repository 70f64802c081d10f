package model

import "time"

// Notification types mirror the reasons the lending engine emits
// in-app notices.
const (
	NotificationDueDate     = "due_date"
	NotificationReservation = "reservation"
	NotificationFine        = "fine"
	NotificationSystem      = "system"
)

// Notification is an in-app notice created by the lending engine as
// a side effect of a state transition.  The row is the
// authoritative delivery record; email delivery is best-effort on
// top of it.  Read state is mutated only by an explicit
// acknowledgment.  This struct corresponds to a row in the
// `notifications` table.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – recipient.
//  Title       – short headline.
//  Message     – human-readable body.
//  Type        – due_date, reservation, fine or system.
//  Read        – whether the user acknowledged the notice.
//  CreatedAt   – creation timestamp.
//  RelatedData – opaque payload linking back to the triggering
//                entity (e.g. {"reservation_id": 7}).
type Notification struct {
	ID          uint64            `json:"id"`                     // notifications.id
	UserID      uint64            `json:"user_id"`                // notifications.user_id
	Title       string            `json:"title"`                  // notifications.title
	Message     string            `json:"message"`                // notifications.message
	Type        string            `json:"type"`                   // notifications.type
	Read        bool              `json:"read"`                   // notifications.read
	CreatedAt   time.Time         `json:"created_at"`             // notifications.created_at
	RelatedData map[string]uint64 `json:"related_data,omitempty"` // notifications.related_data (JSON)
}
