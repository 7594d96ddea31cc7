package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{
		"GROQ_API_KEY":         "gsk-test",
		"GROQ_TEMPERATURE":     "0",
		"OLLAMA_MODEL":         "llama3",
		"LANGCHAIN_TRACING_V2": "true",
		"LANGCHAIN_API_KEY":    "ls-key",
		"LANGCHAIN_PROJECT":    "LangchainFramework",
		"TRACE_SINK":           "log, sql",
		"REDIS_ADDR":           "10.0.0.1:6380",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if got := cfg.Providers["groq"].APIKey; got != "gsk-test" {
		t.Fatalf("groq key = %q", got)
	}
	if temp := cfg.Providers["groq"].Temperature; temp == nil || *temp != 0 {
		t.Fatalf("groq temperature = %v", temp)
	}
	if got := cfg.Providers["ollama"].Model; got != "llama3" {
		t.Fatalf("ollama model = %q", got)
	}
	if got := cfg.Providers["ollama"].BaseURL; got != "http://localhost:11434" {
		t.Fatalf("ollama base url lost: %q", got)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Project != "LangchainFramework" {
		t.Fatalf("tracing not applied: %+v", cfg.Tracing)
	}
	if len(cfg.Tracing.Sinks) != 2 || cfg.Tracing.Sinks[1] != "sql" {
		t.Fatalf("sinks = %v", cfg.Tracing.Sinks)
	}
	if cfg.Redis.Host != "10.0.0.1" || cfg.Redis.Port != 6380 {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
}

func TestApplyEnvLegacyProjectName(t *testing.T) {
	cfg := Default()
	if err := cfg.applyEnv(envFrom(map[string]string{"LANGCHAIN_PROJECT_NAME": "legacy"})); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Tracing.Project != "legacy" {
		t.Fatalf("project = %q", cfg.Tracing.Project)
	}
}

func TestApplyEnvRejectsBadFlag(t *testing.T) {
	cfg := Default()
	if err := cfg.applyEnv(envFrom(map[string]string{"LANGCHAIN_TRACING_V2": "maybe"})); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateDisablesTracingWithoutKey(t *testing.T) {
	cfg := Default()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Sinks = []string{SinkLangSmith}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Tracing.Enabled {
		t.Fatalf("expected tracing disabled when api key missing")
	}
}

func TestValidateKeepsOtherSinksWithoutKey(t *testing.T) {
	cfg := Default()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Sinks = []string{SinkLangSmith, SinkLog}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !cfg.Tracing.Enabled || len(cfg.Tracing.Sinks) != 1 || cfg.Tracing.Sinks[0] != SinkLog {
		t.Fatalf("unexpected tracing config: %+v", cfg.Tracing)
	}
}

func TestValidateRejectsTemperatureOutOfRange(t *testing.T) {
	cfg := Default()
	temp := float32(1.5)
	cfg.Providers["groq"] = ProviderConfig{Model: "m", Temperature: &temp}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected temperature error")
	}
}

func TestValidateUnknownSink(t *testing.T) {
	cfg := Default()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Sinks = []string{"kafka"}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected unknown sink error")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"server_address": "127.0.0.1:9000", "ask_provider": "ollama", "translate_provider": "groq"},
		"providers": {"groq": {"base_url": "https://api.groq.com/openai/v1", "model": "llama-3.1-8b-instant", "api_key": "file-key"}},
		"tracing": {"enabled": false, "project": "from-file"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != "127.0.0.1:9000" && os.Getenv("SERVER_ADDRESS") == "" {
		t.Fatalf("server address = %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.Providers["groq"].Model == "" {
		t.Fatalf("groq model missing")
	}
	if _, ok := cfg.Providers["ollama"]; !ok {
		t.Fatalf("default ollama provider dropped")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetParameter(_ context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", errors.New("parameter not found")
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	cfg := Default()
	groq := cfg.Providers["groq"]
	groq.APIKey = "ssm:/genai/groq"
	cfg.Providers["groq"] = groq
	cfg.Tracing.APIKey = "plain-key"

	if !cfg.HasSecretRefs() {
		t.Fatalf("expected secret refs")
	}
	if err := cfg.ResolveSecrets(context.Background(), fakeSecrets{"/genai/groq": "gsk-resolved"}); err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if got := cfg.Providers["groq"].APIKey; got != "gsk-resolved" {
		t.Fatalf("groq key = %q", got)
	}
	if cfg.Tracing.APIKey != "plain-key" {
		t.Fatalf("plain value changed: %q", cfg.Tracing.APIKey)
	}
	if cfg.HasSecretRefs() {
		t.Fatalf("refs left after resolve")
	}
}

func TestResolveSecretsError(t *testing.T) {
	cfg := Default()
	cfg.Tracing.APIKey = "ssm:/missing"
	if err := cfg.ResolveSecrets(context.Background(), fakeSecrets{}); err == nil {
		t.Fatalf("expected resolve error")
	}
}
