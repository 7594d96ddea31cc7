package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"genaiapps/internal/models"
)

// RunStore writes trace records into the runs table.
type RunStore struct {
	db       *sql.DB
	postgres bool
}

// NewRunStore wraps an opened and migrated database.
func NewRunStore(db *sql.DB, driver string) (*RunStore, error) {
	if db == nil {
		return nil, errors.New("database required")
	}
	d := strings.ToLower(driver)
	return &RunStore{db: db, postgres: d == "postgres" || d == "pgx"}, nil
}

// Write inserts rec.
func (s *RunStore) Write(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return nil
	}
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	prompt := rec.Prompt
	if prompt == nil {
		prompt = []models.Message{}
	}
	promptJSON, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("marshal prompt: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO runs (id, project, pipeline, inputs, prompt, output, error, prompt_tokens, completion_tokens, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Project, rec.Pipeline, string(inputs), string(promptJSON), rec.Output, rec.Error,
		rec.PromptTokens, rec.CompletionTokens, rec.StartedAt.UTC(), rec.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent lists the newest runs of project, newest first.
func (s *RunStore) Recent(ctx context.Context, project string, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, project, pipeline, inputs, prompt, output, error, prompt_tokens, completion_tokens, started_at, ended_at
		FROM runs WHERE project = ? ORDER BY started_at DESC LIMIT ?`),
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*models.RunRecord
	for rows.Next() {
		var (
			rec            models.RunRecord
			inputs, prompt string
		)
		if err := rows.Scan(&rec.ID, &rec.Project, &rec.Pipeline, &inputs, &prompt, &rec.Output, &rec.Error,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.StartedAt, &rec.EndedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(inputs), &rec.Inputs); err != nil {
			return nil, fmt.Errorf("decode inputs of run %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(prompt), &rec.Prompt); err != nil {
			return nil, fmt.Errorf("decode prompt of run %s: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *RunStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
