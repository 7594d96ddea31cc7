package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"genaiapps/internal/service/ai"
)

type echoModel struct {
	err error
}

func (m *echoModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	lines := make([]string, 0, len(input))
	for _, msg := range input {
		lines = append(lines, string(msg.Role)+": "+msg.Content)
	}
	return schema.AssistantMessage(strings.Join(lines, "\n"), nil), nil
}

func (m *echoModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestAskEchoesQuestion(t *testing.T) {
	svc, err := NewAskService(context.Background(), &echoModel{}, nil)
	if err != nil {
		t.Fatalf("NewAskService: %v", err)
	}
	out, err := svc.Ask(context.Background(), AskInput{Question: "2+2"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(out, "user: Question: 2+2") {
		t.Fatalf("expected echoed question, got %q", out)
	}
	if !strings.Contains(out, "system: "+askSystemPrompt) {
		t.Fatalf("expected system prompt, got %q", out)
	}
}

func TestTranslateRendersPrompt(t *testing.T) {
	svc, err := NewTranslateService(context.Background(), &echoModel{}, nil)
	if err != nil {
		t.Fatalf("NewTranslateService: %v", err)
	}
	out, err := svc.Translate(context.Background(), TranslateInput{Language: "French", Text: "hello"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "system: Translate the following into: French.\nuser: hello" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTranslateBackendError(t *testing.T) {
	svc, err := NewTranslateService(context.Background(), &echoModel{err: errors.New("401 invalid api key")}, nil)
	if err != nil {
		t.Fatalf("NewTranslateService: %v", err)
	}
	if _, err := svc.Translate(context.Background(), TranslateInput{Language: "French", Text: "hello"}); !errors.Is(err, ai.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}
