package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humagin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"genaiapps/internal/models"
	"genaiapps/internal/service/ai"
	"genaiapps/internal/service/assistant"
	"genaiapps/internal/trace"
)

// Translator runs the translate pipeline.
type Translator interface {
	Translate(ctx context.Context, in assistant.TranslateInput) (string, error)
}

// RunLister reads back recorded runs from a trace sink.
type RunLister interface {
	Recent(ctx context.Context, project string, limit int) ([]*models.RunRecord, error)
}

// TranslateHandler exposes the translate pipeline over HTTP.
type TranslateHandler struct {
	translator Translator
	runs       RunLister
	project    string
}

// NewTranslateHandler constructs a TranslateHandler instance.
func NewTranslateHandler(translator Translator) *TranslateHandler {
	return &TranslateHandler{translator: translator}
}

// WithRuns enables GET /runs backed by lister.
func (h *TranslateHandler) WithRuns(project string, lister RunLister) *TranslateHandler {
	h.runs = lister
	h.project = project
	return h
}

type translateFields struct {
	Language string `json:"language" doc:"Target language" example:"French"`
	Text     string `json:"text" doc:"Text to translate" example:"hello"`
}

func (f translateFields) input() assistant.TranslateInput {
	return assistant.TranslateInput{Language: f.Language, Text: f.Text}
}

type chainRequest struct {
	Body translateFields
}

type chainResponse struct {
	Body struct {
		Output string `json:"output"`
	}
}

// Envelopes accept the config and kwargs members LangServe clients send
// alongside the input. Both are ignored.
type invokeRequest struct {
	Body struct {
		Input  translateFields `json:"input"`
		Config map[string]any  `json:"config,omitempty"`
		Kwargs map[string]any  `json:"kwargs,omitempty"`
	}
}

type invokeResponse struct {
	Body struct {
		Output   string `json:"output"`
		Metadata struct {
			RunID string `json:"run_id"`
		} `json:"metadata"`
	}
}

type batchRequest struct {
	Body struct {
		Inputs []translateFields `json:"inputs"`
		Config any               `json:"config,omitempty" doc:"One config or one per input"`
		Kwargs map[string]any    `json:"kwargs,omitempty"`
	}
}

type batchResponse struct {
	Body struct {
		Outputs []string `json:"outputs"`
	}
}

type healthResponse struct {
	Body struct {
		Status string `json:"status"`
	}
}

type runsRequest struct {
	Limit int `query:"limit" minimum:"0" maximum:"200" default:"20"`
}

type runsResponse struct {
	Body struct {
		Runs []*models.RunRecord `json:"runs"`
	}
}

// RegisterRoutes attaches the translate routes and the OpenAPI docs to router.
func (h *TranslateHandler) RegisterRoutes(router *gin.Engine) huma.API {
	api := humagin.New(router, huma.DefaultConfig("Translate API", "1.0.0"))

	huma.Register(api, huma.Operation{
		OperationID:   "postChain",
		Method:        http.MethodPost,
		Path:          "/chain",
		Summary:       "Translate text",
		Tags:          []string{"chain"},
		DefaultStatus: http.StatusOK,
	}, h.chain)
	huma.Register(api, huma.Operation{
		OperationID:   "invokeChain",
		Method:        http.MethodPost,
		Path:          "/chain/invoke",
		Summary:       "Translate text inside an input envelope",
		Tags:          []string{"chain"},
		DefaultStatus: http.StatusOK,
	}, h.invoke)
	huma.Register(api, huma.Operation{
		OperationID:   "batchChain",
		Method:        http.MethodPost,
		Path:          "/chain/batch",
		Summary:       "Translate several inputs in order",
		Tags:          []string{"chain"},
		DefaultStatus: http.StatusOK,
	}, h.batch)
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness check",
		Tags:        []string{"health"},
	}, h.health)
	if h.runs != nil {
		huma.Register(api, huma.Operation{
			OperationID: "getRuns",
			Method:      http.MethodGet,
			Path:        "/runs",
			Summary:     "List recent traced runs",
			Tags:        []string{"runs"},
		}, h.listRuns)
	}
	return api
}

func (h *TranslateHandler) chain(ctx context.Context, req *chainRequest) (*chainResponse, error) {
	out, err := h.translator.Translate(ctx, req.Body.input())
	if err != nil {
		return nil, chainError(err)
	}
	resp := &chainResponse{}
	resp.Body.Output = out
	return resp, nil
}

func (h *TranslateHandler) invoke(ctx context.Context, req *invokeRequest) (*invokeResponse, error) {
	runID := uuid.NewString()
	out, err := h.translator.Translate(trace.ContextWithRunID(ctx, runID), req.Body.Input.input())
	if err != nil {
		return nil, chainError(err)
	}
	resp := &invokeResponse{}
	resp.Body.Output = out
	resp.Body.Metadata.RunID = runID
	return resp, nil
}

func (h *TranslateHandler) batch(ctx context.Context, req *batchRequest) (*batchResponse, error) {
	outputs := make([]string, 0, len(req.Body.Inputs))
	for _, in := range req.Body.Inputs {
		out, err := h.translator.Translate(ctx, in.input())
		if err != nil {
			return nil, chainError(err)
		}
		outputs = append(outputs, out)
	}
	resp := &batchResponse{}
	resp.Body.Outputs = outputs
	return resp, nil
}

func (h *TranslateHandler) health(context.Context, *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	return resp, nil
}

func (h *TranslateHandler) listRuns(ctx context.Context, req *runsRequest) (*runsResponse, error) {
	runs, err := h.runs.Recent(ctx, h.project, req.Limit)
	if err != nil {
		log.Printf("list runs: %v", err)
		return nil, huma.Error500InternalServerError("failed to list runs")
	}
	resp := &runsResponse{}
	resp.Body.Runs = runs
	if resp.Body.Runs == nil {
		resp.Body.Runs = []*models.RunRecord{}
	}
	return resp, nil
}

// chainError maps pipeline failures onto HTTP errors.
func chainError(err error) error {
	if errors.Is(err, ai.ErrMissingPlaceholder) {
		return huma.Error400BadRequest(err.Error())
	}
	log.Printf("translate failed: %v", err)
	return huma.Error500InternalServerError("translation failed")
}
