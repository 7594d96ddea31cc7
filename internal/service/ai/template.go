package ai

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"genaiapps/internal/models"
)

// Input maps placeholder names to caller supplied values.
type Input map[string]string

func (in Input) values() map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MessageTemplate is one (role, text) entry of a prompt template.
type MessageTemplate struct {
	Role models.Role
	Text string
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template renders a fixed message skeleton with {name} placeholders.
type Template struct {
	chat      *prompt.DefaultChatTemplate
	variables []string
}

// NewTemplate builds a template from system/user messages.
func NewTemplate(messages ...MessageTemplate) (*Template, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("template needs at least one message")
	}
	seen := make(map[string]struct{})
	var variables []string
	parts := make([]schema.MessagesTemplate, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			parts = append(parts, schema.SystemMessage(m.Text))
		case models.RoleUser:
			parts = append(parts, schema.UserMessage(m.Text))
		default:
			return nil, fmt.Errorf("unsupported template role %q", m.Role)
		}
		// doubled braces are literal in f-string formatting
		text := strings.NewReplacer("{{", "", "}}", "").Replace(m.Text)
		for _, match := range placeholderRe.FindAllStringSubmatch(text, -1) {
			if _, ok := seen[match[1]]; ok {
				continue
			}
			seen[match[1]] = struct{}{}
			variables = append(variables, match[1])
		}
	}
	sort.Strings(variables)
	return &Template{
		chat:      prompt.FromMessages(schema.FString, parts...),
		variables: variables,
	}, nil
}

// Variables lists the placeholder names the template requires.
func (t *Template) Variables() []string {
	out := make([]string, len(t.variables))
	copy(out, t.variables)
	return out
}

// Check reports the first placeholder missing from in.
func (t *Template) Check(in Input) error {
	for _, name := range t.variables {
		if _, ok := in[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingPlaceholder, name)
		}
	}
	return nil
}

// Render formats the template for in.
func (t *Template) Render(ctx context.Context, in Input) ([]*schema.Message, error) {
	return t.Format(ctx, in.values())
}

// Format implements prompt.ChatTemplate so the template can sit in a chain.
func (t *Template) Format(ctx context.Context, vs map[string]any, opts ...prompt.Option) ([]*schema.Message, error) {
	for _, name := range t.variables {
		if _, ok := vs[name]; !ok {
			return nil, failStage(ctx, fmt.Errorf("%w: %s", ErrMissingPlaceholder, name))
		}
	}
	msgs, err := t.chat.Format(ctx, vs, opts...)
	if err != nil {
		return nil, failStage(ctx, fmt.Errorf("format prompt: %w", err))
	}
	return msgs, nil
}

func (t *Template) GetType() string {
	return "FString"
}

// IsCallbacksEnabled defers to the wrapped template, which reports its own
// callbacks.
func (t *Template) IsCallbacksEnabled() bool {
	return components.IsCallbacksEnabled(t.chat)
}
