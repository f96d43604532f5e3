package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
	"github.com/nebulachat/backend/internal/service/session"
)

// Handler provides the WebSocket transport for streaming chat: one
// connection per chatroom, sends submitted as frames, reply fragments
// pushed back as they apply to the transcript.
type Handler struct {
	chatSvc    *chatservice.Service
	controller *session.Controller
	upgrader   websocket.Upgrader
}

// New creates the WebSocket handler.
func New(chatSvc *chatservice.Service, controller *session.Controller) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		controller: controller,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{chatroomID}", h.handleWebSocket)
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sendPayload struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

type outgoingFrame struct {
	Type       string `json:"type"`
	ChatroomID string `json:"chatroomId,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	chatroomID := chi.URLParam(r, "chatroomID")
	if _, err := h.chatSvc.GetChatroom(chatroomID); err != nil {
		http.Error(w, "chatroom not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket_upgrade_failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Log.Info("websocket_opened", zap.String("chatroom", chatroomID))

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warn("websocket_read_failed", zap.Error(err))
			}
			return
		}

		switch frame.Type {
		case "message":
			var payload sendPayload
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				h.write(conn, outgoingFrame{Type: "error", ChatroomID: chatroomID, Error: "invalid message payload"})
				continue
			}
			h.runSend(r, conn, chatroomID, payload)
		default:
			h.write(conn, outgoingFrame{Type: "error", ChatroomID: chatroomID, Error: "unknown frame type"})
		}
	}
}

// runSend executes one send cycle; all frames are written from this
// goroutine, so no write serialization is needed.
func (h *Handler) runSend(r *http.Request, conn *websocket.Conn, chatroomID string, payload sendPayload) {
	h.write(conn, outgoingFrame{Type: "start", ChatroomID: chatroomID})

	res, err := h.controller.Send(r.Context(), chatroomID, payload.Content, payload.Image, func(fragment string) {
		h.write(conn, outgoingFrame{
			Type:       "delta",
			ChatroomID: chatroomID,
			Content:    fragment,
		})
	})
	if err != nil {
		msg := "send rejected"
		switch {
		case errors.Is(err, session.ErrEmptySubmission),
			errors.Is(err, session.ErrStreamInFlight),
			errors.Is(err, chatservice.ErrChatroomNotFound):
			msg = err.Error()
		}
		h.write(conn, outgoingFrame{Type: "error", ChatroomID: chatroomID, Error: msg})
		return
	}

	if res.Err != nil {
		h.write(conn, outgoingFrame{
			Type:       "error",
			ChatroomID: chatroomID,
			MessageID:  res.MessageID,
			Error:      res.Err.Message,
		})
	} else {
		h.write(conn, outgoingFrame{
			Type:       "message",
			ChatroomID: chatroomID,
			MessageID:  res.MessageID,
			Content:    res.Content,
		})
	}
	h.write(conn, outgoingFrame{Type: "end", ChatroomID: chatroomID})
}

func (h *Handler) write(conn *websocket.Conn, frame outgoingFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(frame); err != nil {
		logger.Log.Warn("websocket_write_failed", zap.Error(err))
	}
}
