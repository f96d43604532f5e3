package chat_test

import (
	"testing"

	chatmodel "github.com/nebulachat/backend/internal/model/chat"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
	"github.com/nebulachat/backend/internal/store"
)

func newService(t *testing.T) *chatservice.Service {
	t.Helper()
	svc, err := chatservice.NewService(store.NewMemory())
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	return svc
}

func TestCreateAndGetChatroom(t *testing.T) {
	svc := newService(t)

	room, err := svc.CreateChatroom("Trip planning")
	if err != nil {
		t.Fatalf("CreateChatroom err: %v", err)
	}

	got, err := svc.GetChatroom(room.ID)
	if err != nil {
		t.Fatalf("GetChatroom err: %v", err)
	}
	if got.Title != "Trip planning" {
		t.Fatalf("unexpected title: %q", got.Title)
	}
	if len(got.Messages) != 0 {
		t.Fatalf("expected empty transcript, got %d messages", len(got.Messages))
	}
}

func TestCreateChatroomRequiresTitle(t *testing.T) {
	svc := newService(t)
	if _, err := svc.CreateChatroom(""); err != chatservice.ErrTitleRequired {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestAppendUpdatesCachedLastMessage(t *testing.T) {
	svc := newService(t)
	room, _ := svc.CreateChatroom("General")

	msg := chatmodel.NewUserMessage("Hello", "")
	if err := svc.AppendMessage(room.ID, msg); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	got, _ := svc.GetChatroom(room.ID)
	if got.LastMessage != "Hello" {
		t.Fatalf("LastMessage = %q, want %q", got.LastMessage, "Hello")
	}
	if !got.LastMessageTime.Equal(msg.Timestamp) {
		t.Fatalf("LastMessageTime = %v, want %v", got.LastMessageTime, msg.Timestamp)
	}
}

func TestAppendToMissingChatroom(t *testing.T) {
	svc := newService(t)
	err := svc.AppendMessage("missing", chatmodel.NewUserMessage("hi", ""))
	if err != chatservice.ErrChatroomNotFound {
		t.Fatalf("expected ErrChatroomNotFound, got %v", err)
	}
}

func TestUpdateMessageContentIsIdempotent(t *testing.T) {
	svc := newService(t)
	room, _ := svc.CreateChatroom("General")

	placeholder := chatmodel.NewAssistantPlaceholder()
	if err := svc.AppendMessage(room.ID, placeholder); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.UpdateMessageContent(room.ID, placeholder.ID, "Hi there"); err != nil {
			t.Fatalf("UpdateMessageContent err: %v", err)
		}
	}

	got, _ := svc.GetChatroom(room.ID)
	if got.Messages[0].Content != "Hi there" {
		t.Fatalf("content = %q, want %q", got.Messages[0].Content, "Hi there")
	}
	if got.LastMessage != "Hi there" {
		t.Fatalf("LastMessage = %q, want %q", got.LastMessage, "Hi there")
	}
}

func TestUpdateMissingMessage(t *testing.T) {
	svc := newService(t)
	room, _ := svc.CreateChatroom("General")

	if err := svc.UpdateMessageContent(room.ID, "nope", "x"); err != chatservice.ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestWindowClampsBounds(t *testing.T) {
	svc := newService(t)
	room, _ := svc.CreateChatroom("General")
	for i := 0; i < 5; i++ {
		if err := svc.AppendMessage(room.ID, chatmodel.NewUserMessage("m", "")); err != nil {
			t.Fatalf("AppendMessage err: %v", err)
		}
	}

	// Far larger than the transcript: clamps to everything before the
	// last two entries.
	window, err := svc.Window(room.ID, 100, 2)
	if err != nil {
		t.Fatalf("Window err: %v", err)
	}
	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}

	// Inverted bounds collapse to empty.
	window, err = svc.Window(room.ID, 1, 4)
	if err != nil {
		t.Fatalf("Window err: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("window length = %d, want 0", len(window))
	}

	// Negative fromEnd collapses to empty instead of slicing past the end.
	window, err = svc.Window(room.ID, -100, 0)
	if err != nil {
		t.Fatalf("Window err: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("window length = %d, want 0", len(window))
	}

	// Negative toEnd clamps to the end of the transcript.
	window, err = svc.Window(room.ID, 2, -5)
	if err != nil {
		t.Fatalf("Window err: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("window length = %d, want 2", len(window))
	}
}

func TestDeleteChatroomClearsSelectionAndStreaming(t *testing.T) {
	svc := newService(t)
	room, _ := svc.CreateChatroom("General")

	if err := svc.SelectChatroom(room.ID); err != nil {
		t.Fatalf("SelectChatroom err: %v", err)
	}
	placeholder := chatmodel.NewAssistantPlaceholder()
	if err := svc.AppendMessage(room.ID, placeholder); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}
	svc.SetStreaming(room.ID, placeholder.ID)

	if err := svc.DeleteChatroom(room.ID); err != nil {
		t.Fatalf("DeleteChatroom err: %v", err)
	}

	if svc.Selected() != "" {
		t.Fatalf("selection not cleared: %q", svc.Selected())
	}
	isTyping, streamingID := svc.Status()
	if isTyping || streamingID != "" {
		t.Fatalf("streaming status not cleared: %v %q", isTyping, streamingID)
	}
	if _, err := svc.GetChatroom(room.ID); err != chatservice.ErrChatroomNotFound {
		t.Fatalf("expected ErrChatroomNotFound, got %v", err)
	}
}

func TestDeleteOtherChatroomKeepsStreaming(t *testing.T) {
	svc := newService(t)
	streaming, _ := svc.CreateChatroom("Streaming")
	other, _ := svc.CreateChatroom("Other")

	placeholder := chatmodel.NewAssistantPlaceholder()
	if err := svc.AppendMessage(streaming.ID, placeholder); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}
	svc.SetStreaming(streaming.ID, placeholder.ID)

	if err := svc.DeleteChatroom(other.ID); err != nil {
		t.Fatalf("DeleteChatroom err: %v", err)
	}

	isTyping, streamingID := svc.Status()
	if !isTyping || streamingID != placeholder.ID {
		t.Fatalf("streaming status lost: %v %q", isTyping, streamingID)
	}
}

func TestLoadOlderMessagesPrepends(t *testing.T) {
	svc := newService(t)
	room, _ := svc.CreateChatroom("General")

	existing := chatmodel.NewUserMessage("current", "")
	if err := svc.AppendMessage(room.ID, existing); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	if err := svc.LoadOlderMessages(room.ID); err != nil {
		t.Fatalf("LoadOlderMessages err: %v", err)
	}

	got, _ := svc.GetChatroom(room.ID)
	if len(got.Messages) != 11 {
		t.Fatalf("message count = %d, want 11", len(got.Messages))
	}
	if got.Messages[len(got.Messages)-1].ID != existing.ID {
		t.Fatal("existing message no longer last")
	}
	for i := 0; i < 10; i++ {
		if !got.Messages[i].Timestamp.Before(existing.Timestamp) {
			t.Fatalf("prepended message %d is not older than the existing one", i)
		}
	}
	// Cached last-message fields still mirror the final entry.
	if got.LastMessage != "current" {
		t.Fatalf("LastMessage = %q, want %q", got.LastMessage, "current")
	}
}

func TestStateSurvivesReload(t *testing.T) {
	st := store.NewMemory()
	svc, err := chatservice.NewService(st)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	room, _ := svc.CreateChatroom("Persisted")
	if err := svc.AppendMessage(room.ID, chatmodel.NewUserMessage("Hello", "")); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}
	placeholder := chatmodel.NewAssistantPlaceholder()
	if err := svc.AppendMessage(room.ID, placeholder); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}
	svc.SetStreaming(room.ID, placeholder.ID)

	reloaded, err := chatservice.NewService(st)
	if err != nil {
		t.Fatalf("NewService reload err: %v", err)
	}

	got, err := reloaded.GetChatroom(room.ID)
	if err != nil {
		t.Fatalf("GetChatroom after reload err: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("message count after reload = %d, want 2", len(got.Messages))
	}
	// A live placeholder must not survive a restart.
	isTyping, streamingID := reloaded.Status()
	if isTyping || streamingID != "" {
		t.Fatalf("streaming status resurrected after reload: %v %q", isTyping, streamingID)
	}
}
