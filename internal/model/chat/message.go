package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single transcript entry. Identity and timestamp are assigned
// at creation; Content is mutable only while the message is the active
// streaming placeholder, after which the message is immutable.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
	// Image holds an optional data-URI encoded attachment on user messages.
	Image string `json:"image,omitempty"`
}

// NewUserMessage builds a fully formed user submission.
func NewUserMessage(content, image string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		IsUser:    true,
		Timestamp: time.Now().UTC(),
		Image:     image,
	}
}

// NewAssistantPlaceholder builds the empty assistant entry a streaming
// session fills chunk by chunk.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		IsUser:    false,
		Timestamp: time.Now().UTC(),
	}
}
