package chat

import (
	"time"

	"github.com/google/uuid"
)

// Chatroom wraps one conversation transcript together with the cached
// last-message fields the dashboard list displays. LastMessage and
// LastMessageTime always mirror the final transcript entry.
type Chatroom struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Messages        []Message `json:"messages"`
	LastMessage     string    `json:"lastMessage,omitempty"`
	LastMessageTime time.Time `json:"lastMessageTime"`
}

// NewChatroom provisions an empty conversation.
func NewChatroom(title string) Chatroom {
	return Chatroom{
		ID:       uuid.NewString(),
		Title:    title,
		Messages: make([]Message, 0, 16),
	}
}
