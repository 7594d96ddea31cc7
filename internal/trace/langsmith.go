package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"genaiapps/internal/models"
)

const langSmithTimeout = 10 * time.Second

// LangSmithSink posts runs to a LangSmith-compatible /runs endpoint.
type LangSmithSink struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewLangSmithSink returns a sink for endpoint. A nil client gets a default
// one with a short timeout.
func NewLangSmithSink(endpoint, apiKey string, client *http.Client) (*LangSmithSink, error) {
	if apiKey == "" {
		return nil, errors.New("langsmith: api key required")
	}
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("langsmith: endpoint required")
	}
	if client == nil {
		client = &http.Client{Timeout: langSmithTimeout}
	}
	return &LangSmithSink{endpoint: endpoint, apiKey: apiKey, client: client}, nil
}

type langSmithRun struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	RunType     string         `json:"run_type"`
	SessionName string         `json:"session_name"`
	Inputs      map[string]any `json:"inputs"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartTime   string         `json:"start_time"`
	EndTime     string         `json:"end_time"`
	Extra       map[string]any `json:"extra,omitempty"`
}

func (s *LangSmithSink) Write(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return nil
	}
	inputs := make(map[string]any, len(rec.Inputs))
	for k, v := range rec.Inputs {
		inputs[k] = v
	}
	payload := langSmithRun{
		ID:          rec.ID,
		Name:        rec.Pipeline,
		RunType:     "chain",
		SessionName: rec.Project,
		Inputs:      inputs,
		Error:       rec.Error,
		StartTime:   rec.StartedAt.Format(time.RFC3339Nano),
		EndTime:     rec.EndedAt.Format(time.RFC3339Nano),
	}
	if !rec.Failed() {
		payload.Outputs = map[string]any{"output": rec.Output}
	}
	if len(rec.Prompt) > 0 || rec.PromptTokens > 0 {
		payload.Extra = map[string]any{
			"prompt":            rec.Prompt,
			"prompt_tokens":     rec.PromptTokens,
			"completion_tokens": rec.CompletionTokens,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("langsmith: marshal run: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/runs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("langsmith: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("langsmith: %s", resp.Status)
	}
	return nil
}
