package ai

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/cloudwego/eino/schema"

	"genaiapps/internal/models"
)

func TestTemplateVariables(t *testing.T) {
	tpl, err := NewTemplate(
		MessageTemplate{Role: models.RoleSystem, Text: "Translate the following into: {language}. Use {{braces}} literally."},
		MessageTemplate{Role: models.RoleUser, Text: "{text} ({language})"},
	)
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	if got, want := tpl.Variables(), []string{"language", "text"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("variables = %v, want %v", got, want)
	}
}

func TestTemplateRender(t *testing.T) {
	tpl, err := NewTemplate(
		MessageTemplate{Role: models.RoleSystem, Text: "You are a helpful assistant please respond the question asked ."},
		MessageTemplate{Role: models.RoleUser, Text: "Question: {question}"},
	)
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	msgs, err := tpl.Render(context.Background(), Input{"question": "2+2"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.System || msgs[1].Role != schema.User {
		t.Fatalf("unexpected roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != "Question: 2+2" {
		t.Fatalf("unexpected user content %q", msgs[1].Content)
	}
}

func TestTemplateMissingValue(t *testing.T) {
	tpl, err := NewTemplate(MessageTemplate{Role: models.RoleUser, Text: "Question: {question}"})
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	if err := tpl.Check(Input{"other": "x"}); !errors.Is(err, ErrMissingPlaceholder) {
		t.Fatalf("Check: expected ErrMissingPlaceholder, got %v", err)
	}
	if _, err := tpl.Render(context.Background(), Input{}); !errors.Is(err, ErrMissingPlaceholder) {
		t.Fatalf("Render: expected ErrMissingPlaceholder, got %v", err)
	}
}

func TestTemplateRejectsBadInput(t *testing.T) {
	if _, err := NewTemplate(); err == nil {
		t.Fatalf("expected error for empty template")
	}
	if _, err := NewTemplate(MessageTemplate{Role: models.RoleAssistant, Text: "hi"}); err == nil {
		t.Fatalf("expected error for assistant role")
	}
}

func TestParseText(t *testing.T) {
	got, err := ParseText(schema.AssistantMessage("Bonjour", nil))
	if err != nil || got != "Bonjour" {
		t.Fatalf("ParseText = %q, %v", got, err)
	}

	multi := &schema.Message{
		Role: schema.Assistant,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: "Bon"},
			{Type: schema.ChatMessagePartTypeImageURL},
			{Type: schema.ChatMessagePartTypeText, Text: "jour"},
		},
	}
	if got, err := ParseText(multi); err != nil || got != "Bonjour" {
		t.Fatalf("ParseText multi = %q, %v", got, err)
	}

	if _, err := ParseText(nil); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText for nil, got %v", err)
	}
	if _, err := ParseText(&schema.Message{Role: schema.Assistant}); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText for empty, got %v", err)
	}
}
