package stream

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
	"github.com/nebulachat/backend/internal/service/session"
	"github.com/nebulachat/backend/pkg/utils"
)

// Handler streams one send cycle to the client over Server-Sent Events
// while the controller materializes the same chunks into the transcript.
type Handler struct {
	controller *session.Controller
}

// New creates a stream handler.
func New(controller *session.Controller) *Handler {
	return &Handler{controller: controller}
}

// Response is one SSE event frame.
type Response struct {
	Event      string `json:"event"`
	Content    string `json:"content,omitempty"`
	ChatroomID string `json:"chatroomId,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
	Finished   bool   `json:"finished,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HandleStreamRequest runs a full send cycle, emitting start, delta,
// message and end events. Generation failures surface as an error event;
// by then the failure text is already in the transcript.
func (h *Handler) HandleStreamRequest(w http.ResponseWriter, r *http.Request, chatroomID, content, image string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	h.send(w, flusher, Response{Event: "start", ChatroomID: chatroomID})

	res, err := h.controller.Send(r.Context(), chatroomID, content, image, func(fragment string) {
		h.send(w, flusher, Response{
			Event:      "delta",
			ChatroomID: chatroomID,
			Content:    fragment,
		})
	})
	if err != nil {
		h.sendError(w, flusher, chatroomID, err)
		return
	}

	if res.Err != nil {
		h.send(w, flusher, Response{
			Event:      "error",
			ChatroomID: chatroomID,
			MessageID:  res.MessageID,
			Error:      res.Err.Message,
		})
	} else {
		h.send(w, flusher, Response{
			Event:      "message",
			ChatroomID: chatroomID,
			MessageID:  res.MessageID,
			Content:    res.Content,
		})
	}

	h.send(w, flusher, Response{Event: "end", ChatroomID: chatroomID, Finished: true})
	logger.Log.Info("stream_request_completed",
		zap.String("chatroom", chatroomID),
		zap.Bool("failed", res.Err != nil),
	)
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, resp Response) {
	utils.SendSSEChunk(w, flusher, resp)
}

// sendError reports a synchronous rejection on the already-open stream.
func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, chatroomID string, err error) {
	msg := "streaming failed"
	switch {
	case errors.Is(err, session.ErrEmptySubmission),
		errors.Is(err, session.ErrStreamInFlight),
		errors.Is(err, chatservice.ErrChatroomNotFound):
		msg = err.Error()
	}
	h.send(w, flusher, Response{Event: "error", ChatroomID: chatroomID, Error: msg})
	h.send(w, flusher, Response{Event: "end", ChatroomID: chatroomID, Finished: true})
}
