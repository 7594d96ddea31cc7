package trace

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"genaiapps/internal/models"
)

const sinkWriteTimeout = 5 * time.Second

type runIDKey struct{}

// ContextWithRunID pins the id used for the next run started with ctx.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the id pinned by ContextWithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// Tracer records pipeline runs for one project.
type Tracer struct {
	project string
	sink    Sink
	now     func() time.Time

	async   bool
	pending sync.WaitGroup
}

// New returns a tracer writing to sink. A nil sink yields a nil tracer, which
// is valid and records nothing.
func New(project string, sink Sink) *Tracer {
	if sink == nil {
		return nil
	}
	return &Tracer{project: project, sink: sink, now: time.Now}
}

// Async makes Finish hand records to the sink in the background so a slow
// sink never delays the caller. Call Wait before closing the sink.
func (t *Tracer) Async() *Tracer {
	if t != nil {
		t.async = true
	}
	return t
}

// Wait blocks until every background write has returned.
func (t *Tracer) Wait() {
	if t == nil {
		return
	}
	t.pending.Wait()
}

// Project reports the project runs are filed under.
func (t *Tracer) Project() string {
	if t == nil {
		return ""
	}
	return t.project
}

// Start opens a run record for pipeline.
func (t *Tracer) Start(ctx context.Context, pipeline string, inputs map[string]string) *Run {
	if t == nil {
		return nil
	}
	id, ok := RunIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
	}
	copied := make(map[string]string, len(inputs))
	for k, v := range inputs {
		copied[k] = v
	}
	return &Run{
		tracer: t,
		record: &models.RunRecord{
			ID:        id,
			Project:   t.project,
			Pipeline:  pipeline,
			Inputs:    copied,
			StartedAt: t.now().UTC(),
		},
	}
}

// Run collects the details of one in-flight invocation.
type Run struct {
	tracer *Tracer
	mu     sync.Mutex
	record *models.RunRecord
}

// ID returns the run id, or "" for a nil run.
func (r *Run) ID() string {
	if r == nil {
		return ""
	}
	return r.record.ID
}

// Handler returns eino callbacks that capture the rendered prompt and token
// usage of this run.
func (r *Run) Handler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if r == nil || info == nil {
				return ctx
			}
			switch info.Component {
			case components.ComponentOfPrompt:
				if out := prompt.ConvCallbackOutput(output); out != nil {
					r.setPrompt(out.Result)
				}
			case components.ComponentOfChatModel:
				if out := model.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
					r.setUsage(out.TokenUsage.PromptTokens, out.TokenUsage.CompletionTokens)
				}
			}
			return ctx
		}).
		Build()
}

func (r *Run) setPrompt(msgs []*schema.Message) {
	converted := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		converted = append(converted, models.Message{Role: models.Role(m.Role), Content: m.Content})
	}
	r.mu.Lock()
	r.record.Prompt = converted
	r.mu.Unlock()
}

func (r *Run) setUsage(promptTokens, completionTokens int) {
	r.mu.Lock()
	r.record.PromptTokens = promptTokens
	r.record.CompletionTokens = completionTokens
	r.mu.Unlock()
}

// Finish closes the run and hands the record to the sink, in the background
// when the tracer is async. Sink failures are logged and never reach the
// caller.
func (r *Run) Finish(ctx context.Context, output string, runErr error) *models.RunRecord {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	r.record.EndedAt = r.tracer.now().UTC()
	r.record.Output = output
	if runErr != nil {
		r.record.Error = runErr.Error()
	}
	rec := *r.record
	r.mu.Unlock()

	if r.tracer.async {
		queued := rec
		r.tracer.pending.Add(1)
		go func() {
			defer r.tracer.pending.Done()
			r.tracer.write(ctx, &queued)
		}()
		return &rec
	}
	r.tracer.write(ctx, &rec)
	return &rec
}

func (t *Tracer) write(ctx context.Context, rec *models.RunRecord) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkWriteTimeout)
	defer cancel()
	if err := t.sink.Write(writeCtx, rec); err != nil {
		log.Printf("trace: write run %s: %v", rec.ID, err)
	}
}
