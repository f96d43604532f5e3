package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	wshandler "github.com/nebulachat/backend/internal/handler/ws"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
	"github.com/nebulachat/backend/internal/service/session"
	"github.com/nebulachat/backend/internal/store"
)

type scriptedGenerator struct {
	fragments []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt, image string, history []*schema.Message) (string, error) {
	return strings.Join(g.fragments, ""), nil
}

func (g *scriptedGenerator) StreamGenerate(ctx context.Context, prompt, image string, history []*schema.Message, onChunk func(string)) (string, error) {
	var full strings.Builder
	for _, fragment := range g.fragments {
		full.WriteString(fragment)
		onChunk(fragment)
	}
	return full.String(), nil
}

type frame struct {
	Type       string `json:"type"`
	ChatroomID string `json:"chatroomId"`
	MessageID  string `json:"messageId"`
	Content    string `json:"content"`
	Error      string `json:"error"`
	Timestamp  int64  `json:"timestamp"`
}

func dial(t *testing.T, server *httptest.Server, chatroomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + chatroomID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func setupServer(t *testing.T, gen *scriptedGenerator) (*httptest.Server, *chatservice.Service) {
	t.Helper()

	chatSvc, err := chatservice.NewService(store.NewMemory())
	if err != nil {
		t.Fatalf("chat service err: %v", err)
	}
	controller := session.NewController(chatSvc, gen)

	r := chi.NewRouter()
	wshandler.New(chatSvc, controller).RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, chatSvc
}

func TestWebSocketSendCycle(t *testing.T) {
	server, chatSvc := setupServer(t, &scriptedGenerator{fragments: []string{"Hi", " there"}})
	room, _ := chatSvc.CreateChatroom("General")

	conn := dial(t, server, room.ID)
	if err := conn.WriteJSON(map[string]any{
		"type": "message",
		"data": map[string]string{"content": "Hello"},
	}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	if f := readFrame(t, conn); f.Type != "start" || f.ChatroomID != room.ID {
		t.Fatalf("first frame = %+v, want start", f)
	}

	var streamed strings.Builder
	var final frame
	for {
		f := readFrame(t, conn)
		switch f.Type {
		case "delta":
			streamed.WriteString(f.Content)
		case "message":
			final = f
		case "end":
			if streamed.String() != "Hi there" {
				t.Fatalf("streamed = %q, want %q", streamed.String(), "Hi there")
			}
			if final.Content != "Hi there" || final.MessageID == "" {
				t.Fatalf("final frame = %+v", final)
			}
			if f.Timestamp == 0 {
				t.Fatal("end frame missing timestamp")
			}

			got, _ := chatSvc.GetChatroom(room.ID)
			if len(got.Messages) != 2 || got.Messages[1].Content != "Hi there" {
				t.Fatalf("transcript = %+v", got.Messages)
			}
			return
		default:
			t.Fatalf("unexpected frame %+v", f)
		}
	}
}

func TestWebSocketRejectsEmptySend(t *testing.T) {
	server, chatSvc := setupServer(t, &scriptedGenerator{})
	room, _ := chatSvc.CreateChatroom("General")

	conn := dial(t, server, room.ID)
	if err := conn.WriteJSON(map[string]any{
		"type": "message",
		"data": map[string]string{"content": "   "},
	}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	if f := readFrame(t, conn); f.Type != "start" {
		t.Fatalf("first frame = %+v, want start", f)
	}
	f := readFrame(t, conn)
	if f.Type != "error" || f.Error != session.ErrEmptySubmission.Error() {
		t.Fatalf("frame = %+v, want empty-submission error", f)
	}

	got, _ := chatSvc.GetChatroom(room.ID)
	if len(got.Messages) != 0 {
		t.Fatalf("transcript mutated: %+v", got.Messages)
	}
}

func TestWebSocketUnknownFrameType(t *testing.T) {
	server, chatSvc := setupServer(t, &scriptedGenerator{})
	room, _ := chatSvc.CreateChatroom("General")

	conn := dial(t, server, room.ID)
	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if f := readFrame(t, conn); f.Type != "error" || f.Error != "unknown frame type" {
		t.Fatalf("frame = %+v", f)
	}
}

func TestWebSocketUnknownChatroom(t *testing.T) {
	server, _ := setupServer(t, &scriptedGenerator{})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial to a missing chatroom succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response = %+v", resp)
	}
}
