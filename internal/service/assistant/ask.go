package assistant

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"genaiapps/internal/models"
	"genaiapps/internal/service/ai"
	"genaiapps/internal/trace"
)

const (
	AskPipelineName = "ask"
	askSystemPrompt = "You are a helpful assistant please respond the question asked ."
	askUserPrompt   = "Question: {question}"
)

// AskInput is the single form field of the ask app.
type AskInput struct {
	Question string
}

// AskService answers free-form questions through a local model.
type AskService struct {
	pipeline *ai.Pipeline
}

// NewAskService builds the question pipeline around chatModel.
func NewAskService(ctx context.Context, chatModel model.BaseChatModel, tracer *trace.Tracer) (*AskService, error) {
	tpl, err := ai.NewTemplate(
		ai.MessageTemplate{Role: models.RoleSystem, Text: askSystemPrompt},
		ai.MessageTemplate{Role: models.RoleUser, Text: askUserPrompt},
	)
	if err != nil {
		return nil, err
	}
	p, err := ai.NewPipeline(ctx, AskPipelineName, tpl, chatModel, tracer)
	if err != nil {
		return nil, err
	}
	return &AskService{pipeline: p}, nil
}

// Ask returns the model's answer to in.Question.
func (s *AskService) Ask(ctx context.Context, in AskInput) (string, error) {
	return s.pipeline.Invoke(ctx, ai.Input{"question": in.Question})
}
