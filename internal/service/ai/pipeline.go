package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"genaiapps/internal/trace"
)

// Pipeline runs template -> model -> parser for one invocation at a time. It
// keeps no state between calls and is safe for concurrent use.
type Pipeline struct {
	name     string
	template *Template
	runnable compose.Runnable[map[string]any, string]
	tracer   *trace.Tracer
}

// NewPipeline compiles the chain. tracer may be nil.
func NewPipeline(ctx context.Context, name string, tpl *Template, chatModel model.BaseChatModel, tracer *trace.Tracer) (*Pipeline, error) {
	if tpl == nil {
		return nil, errors.New("template cannot be nil")
	}
	if chatModel == nil {
		return nil, errors.New("chat model cannot be nil")
	}
	chain := compose.NewChain[map[string]any, string]()
	chain.
		AppendChatTemplate(tpl).
		AppendChatModel(&invoker{inner: chatModel}).
		AppendLambda(compose.InvokableLambda(parseOutput))

	runnable, err := chain.Compile(ctx, compose.WithGraphName(name))
	if err != nil {
		return nil, fmt.Errorf("compile %s pipeline: %w", name, err)
	}
	return &Pipeline{
		name:     name,
		template: tpl,
		runnable: runnable,
		tracer:   tracer,
	}, nil
}

// Name identifies the pipeline in traces.
func (p *Pipeline) Name() string {
	return p.name
}

// Invoke renders in, calls the model once and returns its text. Missing
// placeholders fail before the backend is contacted.
func (p *Pipeline) Invoke(ctx context.Context, in Input) (string, error) {
	run := p.tracer.Start(ctx, p.name, in)
	if err := p.template.Check(in); err != nil {
		run.Finish(ctx, "", err)
		return "", err
	}

	ctx, stage := withStage(ctx)
	var opts []compose.Option
	if run != nil {
		opts = append(opts, compose.WithCallbacks(run.Handler()))
	}
	out, err := p.runnable.Invoke(ctx, in.values(), opts...)
	if err != nil {
		if stage.err != nil {
			err = stage.err
		} else {
			err = fmt.Errorf("run %s pipeline: %w", p.name, err)
		}
		out = ""
	}
	run.Finish(ctx, out, err)
	return out, err
}

func parseOutput(ctx context.Context, msg *schema.Message) (string, error) {
	text, err := ParseText(msg)
	if err != nil {
		return "", failStage(ctx, err)
	}
	return text, nil
}

// invoker tags backend failures with ErrBackend.
type invoker struct {
	inner model.BaseChatModel
}

func (m *invoker) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	out, err := m.inner.Generate(ctx, input, opts...)
	if err != nil {
		return nil, failStage(ctx, fmt.Errorf("%w: %w", ErrBackend, err))
	}
	return out, nil
}

func (m *invoker) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming is not supported")
}

func (m *invoker) GetType() string {
	if typ, ok := components.GetType(m.inner); ok {
		return typ
	}
	return "Invoker"
}

func (m *invoker) IsCallbacksEnabled() bool {
	return components.IsCallbacksEnabled(m.inner)
}
