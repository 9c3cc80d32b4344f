package models

// NotificationKind categorizes a notification for rendering.
type NotificationKind string

const (
	NotifyPayment NotificationKind = "PAYMENT"
	NotifyAlert   NotificationKind = "ALERT"
	NotifyInfo    NotificationKind = "INFO"
)

// Notification is a per-user message produced by the engine (payment
// reminders, late alerts, turn announcements).
type Notification struct {
	// ID is the unique identifier for the notification (UUID format).
	ID string `json:"id"`

	// UserID is the recipient.
	UserID string `json:"user_id"`

	// Kind categorizes the notification.
	Kind NotificationKind `json:"kind"`

	// Message is the human-readable body.
	Message string `json:"message"`

	// CreatedAt is the Unix timestamp when the notification was produced.
	CreatedAt int64 `json:"created_at"`

	// Read marks whether the recipient has seen the notification.
	Read bool `json:"read"`
}
