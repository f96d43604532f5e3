package ai

import (
	"github.com/cloudwego/eino/schema"

	"github.com/nebulachat/backend/internal/model/chat"
)

const (
	historyLimit = 10
	// The just-appended user message and the not-yet-filled assistant
	// placeholder must never feed back into the request context.
	historyTailExcluded = 2
)

// HistoryWindowBounds returns the fromEnd/toEnd pair for windowing a
// transcript into exchange history: drop the two most recent entries, keep
// at most the ten preceding them.
func HistoryWindowBounds() (fromEnd, toEnd int) {
	return historyLimit + historyTailExcluded, historyTailExcluded
}

// ToExchangeHistory maps one message to one role-tagged turn. Image parts
// attach only to user-authored turns. A message with neither text nor image
// still contributes an empty turn to preserve turn parity.
func ToExchangeHistory(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.IsUser {
			history = append(history, userTurn(msg.Content, msg.Image))
			continue
		}
		history = append(history, schema.AssistantMessage(msg.Content, nil))
	}
	return history
}

// userTurn builds a user exchange turn, multimodal when an image is present.
func userTurn(content, image string) *schema.Message {
	if image == "" {
		return schema.UserMessage(content)
	}

	parts := make([]schema.ChatMessagePart, 0, 2)
	if content != "" {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: content,
		})
	}

	mime, payload := ParseImageData(image)
	parts = append(parts, schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeImageURL,
		ImageURL: &schema.ChatMessageImageURL{
			URL:      "data:" + mime + ";base64," + payload,
			MIMEType: mime,
		},
	})

	return &schema.Message{Role: schema.User, MultiContent: parts}
}
