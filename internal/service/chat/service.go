package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
	"github.com/nebulachat/backend/internal/metrics"
	"github.com/nebulachat/backend/internal/model/chat"
	"github.com/nebulachat/backend/internal/store"
)

var (
	ErrTitleRequired    = errors.New("chatroom title is required")
	ErrChatroomNotFound = errors.New("chatroom not found")
	ErrMessageNotFound  = errors.New("message not found")
)

// olderBatchSize is how many synthetic messages LoadOlderMessages prepends.
const olderBatchSize = 10

// State is the persisted chat aggregate: every chatroom with its transcript
// plus the current selection and streaming status.
type State struct {
	Chatrooms          []chat.Chatroom `json:"chatrooms"`
	Selected           string          `json:"currentChatroom,omitempty"`
	IsTyping           bool            `json:"isTyping"`
	StreamingMessageID string          `json:"streamingMessageId,omitempty"`
}

// Service owns the chatroom registry, every transcript, and the global
// session status. All mutations go through it and are written through to
// the durable store before returning.
type Service struct {
	mu    sync.RWMutex
	state State
	// streamingChatroom tracks which room owns the live placeholder so
	// deletion can cascade into the streaming status. Derivable, so not
	// persisted.
	streamingChatroom string
	store             store.Store
}

// NewService loads the chat aggregate from the store. A crash mid-stream
// must not resurrect a live placeholder, so the streaming status always
// starts cleared.
func NewService(st store.Store) (*Service, error) {
	svc := &Service{store: st}
	if st != nil {
		if _, err := st.Load(store.KeyChat, &svc.state); err != nil {
			return nil, fmt.Errorf("load chat state: %w", err)
		}
	}
	svc.state.IsTyping = false
	svc.state.StreamingMessageID = ""
	return svc, nil
}

// persist writes the aggregate through to the store. Callers hold the lock.
func (s *Service) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(store.KeyChat, s.state); err != nil {
		logger.Log.Error("persist_chat_state_failed", zap.Error(err))
	}
}

// find returns the index of the chatroom or -1. Callers hold the lock.
func (s *Service) find(id string) int {
	for i := range s.state.Chatrooms {
		if s.state.Chatrooms[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateChatroom provisions an empty conversation.
func (s *Service) CreateChatroom(title string) (chat.Chatroom, error) {
	if strings.TrimSpace(title) == "" {
		return chat.Chatroom{}, ErrTitleRequired
	}

	room := chat.NewChatroom(title)

	s.mu.Lock()
	s.state.Chatrooms = append(s.state.Chatrooms, room)
	s.persist()
	s.mu.Unlock()

	metrics.ChatroomsCreated.Inc()
	logger.Log.Info("chatroom_created", zap.String("chatroom", room.ID), zap.String("title", title))
	return copyChatroom(room), nil
}

// DeleteChatroom removes the conversation and everything it contains. If it
// was selected or owned the live streaming placeholder, that state clears
// with it.
func (s *Service) DeleteChatroom(id string) error {
	s.mu.Lock()
	idx := s.find(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrChatroomNotFound
	}

	s.state.Chatrooms = append(s.state.Chatrooms[:idx], s.state.Chatrooms[idx+1:]...)
	if s.state.Selected == id {
		s.state.Selected = ""
	}
	if s.streamingChatroom == id {
		s.state.IsTyping = false
		s.state.StreamingMessageID = ""
		s.streamingChatroom = ""
	}
	s.persist()
	s.mu.Unlock()

	metrics.ChatroomsDeleted.Inc()
	logger.Log.Info("chatroom_deleted", zap.String("chatroom", id))
	return nil
}

// SelectChatroom sets the currently focused conversation; an empty id
// clears the selection.
func (s *Service) SelectChatroom(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.find(id) < 0 {
		return ErrChatroomNotFound
	}
	s.state.Selected = id
	s.persist()
	return nil
}

// Selected returns the id of the focused conversation, or empty.
func (s *Service) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Selected
}

// ListChatrooms returns copies of every chatroom in creation order.
func (s *Service) ListChatrooms() []chat.Chatroom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]chat.Chatroom, 0, len(s.state.Chatrooms))
	for _, room := range s.state.Chatrooms {
		rooms = append(rooms, copyChatroom(room))
	}
	return rooms
}

// GetChatroom returns a copy of the chatroom and its transcript.
func (s *Service) GetChatroom(id string) (chat.Chatroom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.find(id)
	if idx < 0 {
		return chat.Chatroom{}, ErrChatroomNotFound
	}
	return copyChatroom(s.state.Chatrooms[idx]), nil
}

// AppendMessage adds the message to the end of the transcript and refreshes
// the cached last-message fields.
func (s *Service) AppendMessage(chatroomID string, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.find(chatroomID)
	if idx < 0 {
		return ErrChatroomNotFound
	}

	room := &s.state.Chatrooms[idx]
	room.Messages = append(room.Messages, msg)
	room.LastMessage = msg.Content
	room.LastMessageTime = msg.Timestamp
	s.persist()

	role := "assistant"
	if msg.IsUser {
		role = "user"
	}
	metrics.MessagesAppended.WithLabelValues(role).Inc()
	return nil
}

// UpdateMessageContent replaces the content of an existing message in place
// and refreshes the cached last-message fields. The supplied content is the
// cumulative text, so repeated application of the same value is idempotent.
func (s *Service) UpdateMessageContent(chatroomID, messageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.find(chatroomID)
	if idx < 0 {
		return ErrChatroomNotFound
	}

	room := &s.state.Chatrooms[idx]
	// The streaming placeholder lives at the tail, so scan backwards.
	for i := len(room.Messages) - 1; i >= 0; i-- {
		if room.Messages[i].ID != messageID {
			continue
		}
		room.Messages[i].Content = content
		room.LastMessage = content
		room.LastMessageTime = time.Now().UTC()
		s.persist()
		return nil
	}
	return ErrMessageNotFound
}

// Window returns a copy of the transcript slice counted back from the end:
// fromEnd=12, toEnd=2 yields the 10 entries preceding the last two.
// Out-of-range bounds clamp rather than fail.
func (s *Service) Window(chatroomID string, fromEnd, toEnd int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.find(chatroomID)
	if idx < 0 {
		return nil, ErrChatroomNotFound
	}

	messages := s.state.Chatrooms[idx].Messages
	start := clamp(len(messages)-fromEnd, len(messages))
	end := clamp(len(messages)-toEnd, len(messages))
	if end < start {
		end = start
	}

	out := make([]chat.Message, end-start)
	copy(out, messages[start:end])
	return out, nil
}

// LoadOlderMessages prepends a deterministic batch of synthetic historical
// messages, simulating pagination against a server that does not exist.
func (s *Service) LoadOlderMessages(chatroomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.find(chatroomID)
	if idx < 0 {
		return ErrChatroomNotFound
	}

	room := &s.state.Chatrooms[idx]
	base := time.Now().UTC()
	if len(room.Messages) > 0 {
		base = room.Messages[0].Timestamp
	}

	batch := make([]chat.Message, 0, olderBatchSize)
	for i := 0; i < olderBatchSize; i++ {
		msg := chat.Message{
			ID:        fmt.Sprintf("%s-older-%d-%d", room.ID, len(room.Messages), i),
			Content:   fmt.Sprintf("Older message %d", i+1),
			IsUser:    i%2 == 0,
			Timestamp: base.Add(-time.Duration(olderBatchSize-i) * time.Hour),
		}
		batch = append(batch, msg)
	}

	room.Messages = append(batch, room.Messages...)
	s.persist()
	return nil
}

// SetStreaming marks the placeholder as the single live streaming target.
func (s *Service) SetStreaming(chatroomID, messageID string) {
	s.mu.Lock()
	s.state.IsTyping = true
	s.state.StreamingMessageID = messageID
	s.streamingChatroom = chatroomID
	s.persist()
	s.mu.Unlock()
}

// ClearStreaming resets the session status. Safe to call when already clear.
func (s *Service) ClearStreaming() {
	s.mu.Lock()
	s.state.IsTyping = false
	s.state.StreamingMessageID = ""
	s.streamingChatroom = ""
	s.persist()
	s.mu.Unlock()
}

// Status reports the session status pair. IsTyping is true iff a streaming
// message id is set.
func (s *Service) Status() (isTyping bool, streamingMessageID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsTyping, s.state.StreamingMessageID
}

// clamp bounds v into [0, max].
func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func copyChatroom(room chat.Chatroom) chat.Chatroom {
	out := room
	out.Messages = make([]chat.Message, len(room.Messages))
	copy(out.Messages, room.Messages)
	return out
}
