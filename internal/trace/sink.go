package trace

import (
	"context"
	"errors"
	"log"

	"genaiapps/internal/models"
)

// Sink persists finished run records.
type Sink interface {
	Write(ctx context.Context, rec *models.RunRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec *models.RunRecord) error

func (f SinkFunc) Write(ctx context.Context, rec *models.RunRecord) error {
	return f(ctx, rec)
}

// MultiSink fans a record out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, rec *models.RunRecord) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink prints a one-line summary per run.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink logs through l, or the standard logger when l is nil.
func NewLogSink(l *log.Logger) *LogSink {
	if l == nil {
		l = log.Default()
	}
	return &LogSink{logger: l}
}

func (s *LogSink) Write(_ context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return nil
	}
	status := "ok"
	if rec.Failed() {
		status = "error: " + rec.Error
	}
	s.logger.Printf("[trace] project=%s pipeline=%s run=%s latency=%s tokens=%d/%d %s",
		rec.Project, rec.Pipeline, rec.ID, rec.Latency(), rec.PromptTokens, rec.CompletionTokens, status)
	return nil
}
