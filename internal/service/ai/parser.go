package ai

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// ParseText returns the plain text of a model response.
func ParseText(msg *schema.Message) (string, error) {
	if msg == nil {
		return "", ErrNoText
	}
	if msg.Content != "" {
		return msg.Content, nil
	}
	var sb strings.Builder
	for _, part := range msg.MultiContent {
		if part.Type == schema.ChatMessagePartTypeText {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoText
	}
	return sb.String(), nil
}
