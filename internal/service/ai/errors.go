package ai

import (
	"context"
	"errors"
)

var (
	// ErrMissingPlaceholder is returned before any backend call when the
	// input mapping lacks a template variable.
	ErrMissingPlaceholder = errors.New("missing placeholder value")
	// ErrBackend wraps failures reported by the language-model backend.
	ErrBackend = errors.New("model backend failed")
	// ErrNoText is returned when a model response carries no text.
	ErrNoText = errors.New("model response has no text")
)

type stageKey struct{}

// stageState remembers the first classified failure of a run so the caller
// sees it even after the chain runtime wraps the error.
type stageState struct {
	err error
}

func withStage(ctx context.Context) (context.Context, *stageState) {
	st := &stageState{}
	return context.WithValue(ctx, stageKey{}, st), st
}

func failStage(ctx context.Context, err error) error {
	if st, ok := ctx.Value(stageKey{}).(*stageState); ok && st.err == nil {
		st.err = err
	}
	return err
}
