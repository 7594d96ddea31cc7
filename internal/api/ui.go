package api

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"genaiapps/internal/service/assistant"
)

const askTitle = "GenAI App using Ollama and Eino"

//go:embed templates/*.html
var templatesFS embed.FS

// Asker runs the question-answering pipeline.
type Asker interface {
	Ask(ctx context.Context, in assistant.AskInput) (string, error)
}

// AskHandler serves the single-page question form.
type AskHandler struct {
	asker Asker
}

func NewAskHandler(asker Asker) *AskHandler {
	return &AskHandler{asker: asker}
}

// RegisterRoutes attaches the form page to router.
func (h *AskHandler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	router.GET("/", h.page)
}

func (h *AskHandler) page(c *gin.Context) {
	question := c.Query("question")
	data := gin.H{"Title": askTitle, "Question": question}
	if question == "" {
		c.HTML(http.StatusOK, "ask.html", data)
		return
	}
	answer, err := h.asker.Ask(c.Request.Context(), assistant.AskInput{Question: question})
	if err != nil {
		log.Printf("ask failed: %v", err)
		data["Error"] = "Something went wrong while answering your question."
		c.HTML(http.StatusInternalServerError, "ask.html", data)
		return
	}
	data["Asked"] = true
	data["Answer"] = answer
	c.HTML(http.StatusOK, "ask.html", data)
}
