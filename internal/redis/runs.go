package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"genaiapps/internal/models"
)

const (
	DefaultMaxRuns = 1000
	runsTTL        = 7 * 24 * time.Hour
)

// RunSink keeps the newest runs of each project in a capped list.
type RunSink struct {
	client  *Client
	maxRuns int64
}

// NewRunSink returns a sink that retains at most maxRuns entries per project.
func NewRunSink(client *Client, maxRuns int64) (*RunSink, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &RunSink{client: client, maxRuns: maxRuns}, nil
}

func runsKey(project string) string {
	return "runs:" + project
}

func (s *RunSink) Write(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := s.client.PushCapped(ctx, runsKey(rec.Project), payload, s.maxRuns, runsTTL); err != nil {
		return fmt.Errorf("push run %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit runs of project, newest first.
func (s *RunSink) Recent(ctx context.Context, project string, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	raw, err := s.client.Range(ctx, runsKey(project), -int64(limit), -1)
	if err != nil {
		return nil, err
	}
	out := make([]*models.RunRecord, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var rec models.RunRecord
		if err := json.Unmarshal([]byte(raw[i]), &rec); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
