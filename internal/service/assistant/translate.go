package assistant

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"genaiapps/internal/models"
	"genaiapps/internal/service/ai"
	"genaiapps/internal/trace"
)

const (
	TranslatePipelineName = "translate"
	translateSystemPrompt = "Translate the following into: {language}."
	translateUserPrompt   = "{text}"
)

// TranslateInput mirrors the JSON body of the translate route.
type TranslateInput struct {
	Language string
	Text     string
}

// TranslateService translates text through a hosted model.
type TranslateService struct {
	pipeline *ai.Pipeline
}

func NewTranslateService(ctx context.Context, chatModel model.BaseChatModel, tracer *trace.Tracer) (*TranslateService, error) {
	tpl, err := ai.NewTemplate(
		ai.MessageTemplate{Role: models.RoleSystem, Text: translateSystemPrompt},
		ai.MessageTemplate{Role: models.RoleUser, Text: translateUserPrompt},
	)
	if err != nil {
		return nil, err
	}
	p, err := ai.NewPipeline(ctx, TranslatePipelineName, tpl, chatModel, tracer)
	if err != nil {
		return nil, err
	}
	return &TranslateService{pipeline: p}, nil
}

func (s *TranslateService) Translate(ctx context.Context, in TranslateInput) (string, error) {
	return s.pipeline.Invoke(ctx, ai.Input{"language": in.Language, "text": in.Text})
}
