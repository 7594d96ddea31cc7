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

	provider := cfg.BasicConfig.AskProvider
	log.Printf("ask provider: %s", provider)
	chatModel, err := ai.NewChatModel(ctx, provider, cfg.Providers[provider])
	if err != nil {
		log.Fatalf("init chat model: %v", err)
	}

	tracing, err := app.NewTracing(ctx, cfg)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer tracing.Close()

	askService, err := assistant.NewAskService(ctx, chatModel, tracing.Tracer)
	if err != nil {
		log.Fatalf("init ask service: %v", err)
	}

	router := gin.Default()
	api.NewAskHandler(askService).RegisterRoutes(router)

	if err := app.Serve(ctx, app.ServerAddress(cfg, "127.0.0.1:8501"), router); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
