package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
	"github.com/nebulachat/backend/internal/metrics"
	chatmodel "github.com/nebulachat/backend/internal/model/chat"
	"github.com/nebulachat/backend/internal/service/ai"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
)

var (
	// ErrEmptySubmission rejects a send with neither text nor image, before
	// any transcript mutation.
	ErrEmptySubmission = errors.New("message must contain text or an image")
	// ErrStreamInFlight rejects a send while another response is streaming.
	// One streaming session at a time is a product constraint, not a UI
	// nicety; the controller enforces it.
	ErrStreamInFlight = errors.New("another response is still streaming")
)

// Result describes the terminal state of one send cycle. Err is informative
// only: the failure text is already in the transcript.
type Result struct {
	MessageID string
	Content   string
	Err       *ai.GenerationError
}

// Controller orchestrates one user-send, generation, finalize-or-fail cycle
// and owns the lifecycle of the assistant placeholder.
type Controller struct {
	chats *chatservice.Service
	gen   ai.Generator

	mu           sync.Mutex
	cancel       context.CancelFunc
	liveChatroom string
	liveMessage  string
}

func NewController(chats *chatservice.Service, gen ai.Generator) *Controller {
	return &Controller{chats: chats, gen: gen}
}

// Send appends the user message, creates the assistant placeholder, streams
// the reply into it chunk by chunk, and finalizes. It returns synchronously
// only for rejections (empty submission, unknown chatroom, stream already in
// flight); once the user message is accepted, generation failures become
// transcript content and never an error return. onDelta, when non-nil,
// observes each applied fragment.
func (c *Controller) Send(ctx context.Context, chatroomID, content, image string, onDelta func(fragment string)) (Result, error) {
	if strings.TrimSpace(content) == "" && image == "" {
		return Result{}, ErrEmptySubmission
	}

	c.mu.Lock()
	if typing, _ := c.chats.Status(); typing {
		c.mu.Unlock()
		return Result{}, ErrStreamInFlight
	}

	userMsg := chatmodel.NewUserMessage(content, image)
	if err := c.chats.AppendMessage(chatroomID, userMsg); err != nil {
		c.mu.Unlock()
		return Result{}, err
	}

	// The placeholder follows its triggering user message immediately and
	// becomes the single live streaming target system-wide.
	placeholder := chatmodel.NewAssistantPlaceholder()
	if err := c.chats.AppendMessage(chatroomID, placeholder); err != nil {
		c.mu.Unlock()
		return Result{}, err
	}
	c.chats.SetStreaming(chatroomID, placeholder.ID)

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.liveChatroom = chatroomID
	c.liveMessage = placeholder.ID
	c.mu.Unlock()
	defer cancel()

	history := c.buildHistory(chatroomID)

	start := time.Now()
	var full strings.Builder
	_, genErr := c.gen.StreamGenerate(streamCtx, content, image, history, func(fragment string) {
		full.WriteString(fragment)
		if c.applyChunk(chatroomID, placeholder.ID, full.String()) && onDelta != nil {
			onDelta(fragment)
		}
	})
	metrics.StreamDuration.Observe(time.Since(start).Seconds())

	return c.finalize(chatroomID, placeholder.ID, full.String(), genErr), nil
}

// CancelIfStreaming aborts the in-flight stream owned by the chatroom, if
// any. Callers use it before deleting a chatroom mid-stream.
func (c *Controller) CancelIfStreaming(chatroomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil && c.liveChatroom == chatroomID {
		c.cancel()
	}
}

// Status exposes the session status pair for UI polling.
func (c *Controller) Status() (isTyping bool, streamingMessageID string) {
	return c.chats.Status()
}

// buildHistory windows the transcript as it stood before the user message
// and placeholder were appended.
func (c *Controller) buildHistory(chatroomID string) []*schema.Message {
	fromEnd, toEnd := ai.HistoryWindowBounds()
	window, err := c.chats.Window(chatroomID, fromEnd, toEnd)
	if err != nil {
		return nil
	}
	return ai.ToExchangeHistory(window)
}

// applyChunk writes the cumulative text into the placeholder unless the
// stream has been detached (chatroom deleted or session cancelled) since
// the last chunk. A detached stream must not mutate any transcript.
func (c *Controller) applyChunk(chatroomID, messageID, cumulative string) bool {
	typing, live := c.chats.Status()
	if !typing || live != messageID {
		return false
	}
	return c.chats.UpdateMessageContent(chatroomID, messageID, cumulative) == nil
}

// finalize clears the session status and guarantees the placeholder ends in
// a terminal, readable state: the streamed text on success, the
// human-readable failure message otherwise.
func (c *Controller) finalize(chatroomID, messageID, full string, err error) Result {
	c.mu.Lock()
	c.cancel = nil
	c.liveChatroom = ""
	c.liveMessage = ""
	c.mu.Unlock()

	typing, live := c.chats.Status()
	detached := !typing || live != messageID
	// A detached session no longer owns the status: its chatroom was
	// deleted and the gate re-opened, so another stream may already be
	// live. Only the owner may clear.
	if !detached {
		c.chats.ClearStreaming()
	}

	if err == nil && full == "" {
		// A successful stream that produced nothing still may not leave an
		// empty placeholder behind.
		err = ai.NewGenerationError(ai.ReasonUnclassified,
			"Failed to generate response. Please try again.", nil)
	}

	if err == nil {
		// The last chunk application already wrote the final content.
		logger.Log.Info("stream_finalized",
			zap.String("chatroom", chatroomID),
			zap.String("message", messageID),
			zap.Int("length", len(full)),
		)
		return Result{MessageID: messageID, Content: full}
	}

	genErr := ai.Classify(err)
	metrics.GenerationFailures.WithLabelValues(string(genErr.Reason)).Inc()
	logger.Log.Warn("stream_failed",
		zap.String("chatroom", chatroomID),
		zap.String("message", messageID),
		zap.String("reason", string(genErr.Reason)),
		zap.Error(genErr),
	)

	if !detached {
		if updateErr := c.chats.UpdateMessageContent(chatroomID, messageID, genErr.Message); updateErr != nil {
			logger.Log.Warn("stream_failure_write_skipped", zap.Error(updateErr))
		}
	}
	return Result{MessageID: messageID, Content: genErr.Message, Err: genErr}
}
