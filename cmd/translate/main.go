package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"genaiapps/internal/api"
	"genaiapps/internal/app"
	"genaiapps/internal/service/ai"
	"genaiapps/internal/service/assistant"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	provider := cfg.BasicConfig.TranslateProvider
	log.Printf("translate provider: %s", provider)
	chatModel, err := ai.NewChatModel(ctx, provider, cfg.Providers[provider])
	if err != nil {
		log.Fatalf("init chat model: %v", err)
	}

	tracing, err := app.NewTracing(ctx, cfg)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer tracing.Close()

	translateService, err := assistant.NewTranslateService(ctx, chatModel, tracing.Tracer)
	if err != nil {
		log.Fatalf("init translate service: %v", err)
	}

	handler := api.NewTranslateHandler(translateService)
	if tracing.Runs != nil {
		handler.WithRuns(cfg.Tracing.Project, tracing.Runs)
	}

	router := gin.Default()
	handler.RegisterRoutes(router)

	if err := app.Serve(ctx, app.ServerAddress(cfg, "127.0.0.1:8000"), router); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
