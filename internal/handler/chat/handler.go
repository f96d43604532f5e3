package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
	"github.com/nebulachat/backend/internal/service/session"
	"github.com/nebulachat/backend/pkg/utils"
)

// Handler exposes the chatroom registry and the send operation over REST.
type Handler struct {
	chatSvc    *chatservice.Service
	controller *session.Controller
}

// New creates the chat handler. controller may be nil when the AI backend
// is not configured; sends then answer 503.
func New(chatSvc *chatservice.Service, controller *session.Controller) *Handler {
	return &Handler{chatSvc: chatSvc, controller: controller}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chatrooms", h.handleCreate)
	r.Get("/chatrooms", h.handleList)
	r.Get("/chatrooms/selected", h.handleGetSelected)
	r.Put("/chatrooms/selected", h.handleSelect)
	r.Delete("/chatrooms/{chatroomID}", h.handleDelete)
	r.Get("/chatrooms/{chatroomID}/messages", h.handleMessages)
	r.Post("/chatrooms/{chatroomID}/messages", h.handleSend)
	r.Post("/chatrooms/{chatroomID}/older", h.handleLoadOlder)
	r.Get("/status", h.handleStatus)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.chatSvc.CreateChatroom(payload.Title)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, room)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.ListChatrooms())
}

func (h *Handler) handleGetSelected(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"id": h.chatSvc.Selected()})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chatSvc.SelectChatroom(payload.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"id": payload.ID})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	chatroomID := chi.URLParam(r, "chatroomID")

	// A stream writing into this chatroom must stop before the transcript
	// disappears underneath it.
	if h.controller != nil {
		h.controller.CancelIfStreaming(chatroomID)
	}
	if err := h.chatSvc.DeleteChatroom(chatroomID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	room, err := h.chatSvc.GetChatroom(chi.URLParam(r, "chatroomID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, room.Messages)
}

// handleSend is the fire-and-forget send: rejections answer synchronously,
// generation outcomes land in the transcript.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	if h.controller == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai backend unavailable")
		return
	}

	chatroomID := chi.URLParam(r, "chatroomID")
	var payload struct {
		Content string `json:"content"`
		Image   string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Content == "" && payload.Image == "" {
		utils.RespondError(w, http.StatusBadRequest, session.ErrEmptySubmission.Error())
		return
	}
	if _, err := h.chatSvc.GetChatroom(chatroomID); err != nil {
		respondServiceError(w, err)
		return
	}
	if typing, _ := h.controller.Status(); typing {
		utils.RespondError(w, http.StatusConflict, session.ErrStreamInFlight.Error())
		return
	}

	// Detach from the request context: the stream outlives this response.
	go func() {
		if _, err := h.controller.Send(context.Background(), chatroomID, payload.Content, payload.Image, nil); err != nil {
			logger.Log.Warn("background_send_rejected",
				zap.String("chatroom", chatroomID),
				zap.Error(err),
			)
		}
	}()

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) handleLoadOlder(w http.ResponseWriter, r *http.Request) {
	chatroomID := chi.URLParam(r, "chatroomID")
	if err := h.chatSvc.LoadOlderMessages(chatroomID); err != nil {
		respondServiceError(w, err)
		return
	}

	room, err := h.chatSvc.GetChatroom(chatroomID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, room.Messages)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	isTyping, streamingID := h.chatSvc.Status()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"isTyping":           isTyping,
		"streamingMessageId": streamingID,
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chatservice.ErrChatroomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chatservice.ErrTitleRequired):
		status = http.StatusBadRequest
	}
	utils.RespondError(w, status, err.Error())
}
