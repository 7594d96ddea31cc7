package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"genaiapps/internal/config"
)

const (
	ProviderOllama = "ollama"
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"

	groqBaseURL     = "https://api.groq.com/openai/v1"
	claudeMaxTokens = 3000
)

// NewChatModel builds the backend for provider from its configuration.
func NewChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig) (model.BaseChatModel, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provCfg.Model == "" {
		return nil, fmt.Errorf("provider %s: model is required", provider)
	}
	if t := provCfg.Temperature; t != nil && (*t < 0 || *t > 1) {
		return nil, fmt.Errorf("provider %s: temperature %.2f out of range [0,1]", provider, *t)
	}
	if provider != ProviderOllama && provCfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: api key is required", provider)
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case ProviderOllama:
		if provCfg.Temperature != nil {
			log.Printf("provider ollama: temperature is left to the runtime defaults")
		}
		chatModel, err = ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
		})
	case ProviderGroq, ProviderOpenAI:
		baseURL := provCfg.BaseURL
		if baseURL == "" && provider == ProviderGroq {
			baseURL = groqBaseURL
		}
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     baseURL,
			Model:       provCfg.Model,
			APIKey:      provCfg.APIKey,
			Temperature: provCfg.Temperature,
		})
	case ProviderGemini:
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("new gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       provCfg.Model,
			Temperature: provCfg.Temperature,
		})
	case ProviderClaude:
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:      provCfg.APIKey,
			Model:       provCfg.Model,
			BaseURL:     baseURLPtr,
			MaxTokens:   claudeMaxTokens,
			Temperature: provCfg.Temperature,
		})
	case "":
		return nil, errors.New("provider is required")
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s model: %w", provider, err)
	}
	return chatModel, nil
}
