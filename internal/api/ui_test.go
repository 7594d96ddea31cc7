package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"genaiapps/internal/service/ai"
	"genaiapps/internal/service/assistant"
)

type failingAsker struct{}

func (failingAsker) Ask(context.Context, assistant.AskInput) (string, error) {
	return "", errors.Join(ai.ErrBackend, errors.New("connection refused on 11434"))
}

func newAskServer(t *testing.T, asker Asker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewAskHandler(asker).RegisterRoutes(router)
	return router
}

func TestAskPageShowsEchoedAnswer(t *testing.T) {
	backend := &echoModel{}
	svc, err := assistant.NewAskService(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("ask service: %v", err)
	}
	router := newAskServer(t, svc)

	resp := doJSONRequest(t, router, http.MethodGet, "/?question=2%2B2", nil)
	assertStatus(t, resp, http.StatusOK)
	page := pageText(resp)
	if !strings.Contains(page, "Answer:") || !strings.Contains(page, "Question: 2+2") {
		t.Fatalf("page does not contain the echoed prompt: %s", page)
	}
	if !strings.Contains(page, askTitle) {
		t.Fatalf("page title missing")
	}
	if !strings.Contains(page, `onchange="this.form.submit()"`) {
		t.Fatalf("input should submit on change")
	}
	if backend.calls != 1 {
		t.Fatalf("expected one backend call, got %d", backend.calls)
	}
}

func TestAskPageWithoutQuestion(t *testing.T) {
	backend := &echoModel{}
	svc, err := assistant.NewAskService(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("ask service: %v", err)
	}
	router := newAskServer(t, svc)

	resp := doJSONRequest(t, router, http.MethodGet, "/", nil)
	assertStatus(t, resp, http.StatusOK)
	if strings.Contains(pageText(resp), "Answer:") {
		t.Fatalf("no answer expected without a question")
	}
	if backend.calls != 0 {
		t.Fatalf("backend must not run without a question")
	}
}

func TestAskPageRunsWhitespaceQuestion(t *testing.T) {
	backend := &echoModel{}
	svc, err := assistant.NewAskService(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("ask service: %v", err)
	}
	router := newAskServer(t, svc)

	resp := doJSONRequest(t, router, http.MethodGet, "/?question=%20%20", nil)
	assertStatus(t, resp, http.StatusOK)
	if backend.calls != 1 {
		t.Fatalf("a non-empty question must reach the backend, calls=%d", backend.calls)
	}
	if !strings.Contains(pageText(resp), "Answer:") {
		t.Fatalf("expected an answer block")
	}
}

func TestAskPageBackendFailure(t *testing.T) {
	router := newAskServer(t, failingAsker{})

	resp := doJSONRequest(t, router, http.MethodGet, "/?question=hi", nil)
	assertStatus(t, resp, http.StatusInternalServerError)
	page := pageText(resp)
	if strings.Contains(page, "11434") {
		t.Fatalf("backend detail leaked: %s", page)
	}
	if !strings.Contains(page, "Something went wrong") {
		t.Fatalf("expected generic error block: %s", page)
	}
}
