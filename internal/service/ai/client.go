package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/config"
	"github.com/nebulachat/backend/internal/logger"
)

// Generator is the narrow capability the session controller consumes.
// Implementations deliver fragments in arrival order; fragments applied
// before a mid-stream failure are not rolled back.
type Generator interface {
	Generate(ctx context.Context, prompt, image string, history []*schema.Message) (string, error)
	StreamGenerate(ctx context.Context, prompt, image string, history []*schema.Message, onChunk func(fragment string)) (string, error)
}

// Client implements Generator against the configured chat model backend.
type Client struct {
	chatModel model.ChatModel
	stream    bool
}

// NewClient builds the generation client from configuration.
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &Client{chatModel: chatModel, stream: cfg.StreamResponse}, nil
}

// Generate performs a single-shot completion and returns the full text.
func (c *Client) Generate(ctx context.Context, prompt, image string, history []*schema.Message) (string, error) {
	resp, err := c.chatModel.Generate(ctx, buildRequest(prompt, image, history))
	if err != nil {
		return "", Classify(err)
	}
	return resp.Content, nil
}

// StreamGenerate invokes onChunk for each received fragment, in order, and
// returns the concatenated text. The returned text may be partial when the
// stream fails midway.
func (c *Client) StreamGenerate(ctx context.Context, prompt, image string, history []*schema.Message, onChunk func(fragment string)) (string, error) {
	if !c.stream {
		// Streaming disabled by configuration: one-shot completion delivered
		// as a single fragment.
		full, err := c.Generate(ctx, prompt, image, history)
		if err != nil {
			return "", err
		}
		if onChunk != nil && full != "" {
			onChunk(full)
		}
		return full, nil
	}

	stream, err := c.chatModel.Stream(ctx, buildRequest(prompt, image, history))
	if err != nil {
		return "", Classify(err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			genErr := Classify(recvErr)
			logger.Log.Warn("stream_recv_failed",
				zap.String("reason", string(genErr.Reason)),
				zap.Error(recvErr),
			)
			return full.String(), genErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		full.WriteString(chunk.Content)
		if onChunk != nil {
			onChunk(chunk.Content)
		}
	}

	return full.String(), nil
}

// buildRequest appends the current user turn to the prior exchange history.
func buildRequest(prompt, image string, history []*schema.Message) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, userTurn(prompt, image))
	return msgs
}
