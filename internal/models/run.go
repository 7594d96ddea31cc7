package models

import "time"

// RunRecord captures a single pipeline invocation for tracing.
type RunRecord struct {
	ID               string            `json:"id"`
	Project          string            `json:"project"`
	Pipeline         string            `json:"pipeline"`
	Inputs           map[string]string `json:"inputs"`
	Prompt           []Message         `json:"prompt,omitempty"`
	Output           string            `json:"output,omitempty"`
	Error            string            `json:"error,omitempty"`
	PromptTokens     int               `json:"prompt_tokens"`
	CompletionTokens int               `json:"completion_tokens"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          time.Time         `json:"ended_at"`
}

// Latency reports how long the run took.
func (r *RunRecord) Latency() time.Duration {
	if r == nil || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Failed reports whether the run ended with an error.
func (r *RunRecord) Failed() bool {
	return r != nil && r.Error != ""
}
