package models

// MessageKind is the payload type of a group chat message.
type MessageKind string

const (
	MessageText  MessageKind = "TEXT"
	MessageAudio MessageKind = "AUDIO"
	MessageImage MessageKind = "IMAGE"
)

// SystemUserID is the author of engine-emitted chat messages (group started,
// payment confirmed, cycle advanced).
const SystemUserID = "system"

// GroupMessage is one chat message inside a group.
type GroupMessage struct {
	// ID is the unique identifier for the message (UUID format).
	ID string `json:"id"`

	// GroupID is the group whose chat the message belongs to.
	GroupID string `json:"group_id"`

	// UserID is the author; SystemUserID for engine-emitted messages.
	UserID string `json:"user_id"`

	// UserName is the author's display name, denormalized for rendering.
	UserName string `json:"user_name"`

	// Text is the message body.
	Text string `json:"text"`

	// Kind is the payload type; media messages carry a MediaURL.
	Kind MessageKind `json:"kind"`

	// MediaURL is an opaque reference to audio/image content.
	MediaURL string `json:"media_url,omitempty"`

	// IsSystem marks engine-emitted messages.
	IsSystem bool `json:"is_system"`

	// Timestamp is the Unix timestamp when the message was sent.
	Timestamp int64 `json:"timestamp"`
}
