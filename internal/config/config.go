package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// SecretPrefix marks a value that must be fetched from the parameter store.
	SecretPrefix = "ssm:"

	SinkLog       = "log"
	SinkLangSmith = "langsmith"
	SinkRedis     = "redis"
	SinkSQL       = "sql"
	SinkDynamoDB  = "dynamodb"

	defaultProject           = "default"
	defaultLangSmithEndpoint = "https://api.smith.langchain.com"
)

// Config represents runtime configuration for both apps.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Tracing     TracingConfig             `json:"tracing"`
}

type ProviderConfig struct {
	BaseURL     string   `json:"base_url"`
	Model       string   `json:"model"`
	APIKey      string   `json:"api_key"`
	Temperature *float32 `json:"temperature,omitempty"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	AskProvider       string `json:"ask_provider"`
	TranslateProvider string `json:"translate_provider"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// TracingConfig controls where pipeline runs are recorded.
type TracingConfig struct {
	Enabled      bool     `json:"enabled"`
	APIKey       string   `json:"api_key"`
	Project      string   `json:"project"`
	Endpoint     string   `json:"endpoint"`
	Sinks        []string `json:"sinks"`
	Database     string   `json:"database"`
	DynamoTable  string   `json:"dynamo_table"`
	RedisMaxRuns int64    `json:"redis_max_runs"`
}

// SecretGetter resolves parameter store references.
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Default returns the built-in provider setup: a local Ollama runtime for the
// ask app and Groq for the translate server.
func Default() *Config {
	temp := float32(0.7)
	return &Config{
		BasicConfig: BasicConfig{
			AskProvider:       "ollama",
			TranslateProvider: "groq",
		},
		Providers: map[string]ProviderConfig{
			"ollama": {BaseURL: "http://localhost:11434", Model: "llama2"},
			"groq": {
				BaseURL:     "https://api.groq.com/openai/v1",
				Model:       "llama-3.3-70b-versatile",
				Temperature: &temp,
			},
		},
		Databases: map[string]DatabaseConfig{
			"sqlite3": {DSN: "runs.db"},
		},
		Tracing: TracingConfig{
			Project:  defaultProject,
			Endpoint: defaultLangSmithEndpoint,
			Sinks:    []string{SinkLangSmith},
			Database: "sqlite3",
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error and existing variables are never overwritten.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the provided path (defaults to config.json when
// present), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "config.json"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}

	if v, ok := get("SERVER_ADDRESS"); ok {
		c.BasicConfig.ServerAddress = v
	}
	if v, ok := get("ASK_PROVIDER"); ok {
		c.BasicConfig.AskProvider = v
	}
	if v, ok := get("TRANSLATE_PROVIDER"); ok {
		c.BasicConfig.TranslateProvider = v
	}

	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	ollama := c.Providers["ollama"]
	if v, ok := get("OLLAMA_BASE_URL"); ok {
		ollama.BaseURL = v
	}
	if v, ok := get("OLLAMA_MODEL"); ok {
		ollama.Model = v
	}
	c.Providers["ollama"] = ollama

	groq := c.Providers["groq"]
	if v, ok := get("GROQ_API_KEY"); ok {
		groq.APIKey = v
	}
	if v, ok := get("GROQ_MODEL"); ok {
		groq.Model = v
	}
	if v, ok := get("GROQ_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("parse GROQ_TEMPERATURE: %w", err)
		}
		temp := float32(f)
		groq.Temperature = &temp
	}
	c.Providers["groq"] = groq

	for name, key := range map[string]string{"openai": "OPENAI_API_KEY", "claude": "ANTHROPIC_API_KEY", "gemini": "GEMINI_API_KEY"} {
		if v, ok := get(key); ok {
			p := c.Providers[name]
			p.APIKey = v
			c.Providers[name] = p
		}
	}

	if v, ok := get("LANGCHAIN_TRACING_V2"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse LANGCHAIN_TRACING_V2: %w", err)
		}
		c.Tracing.Enabled = enabled
	}
	if v, ok := get("LANGCHAIN_API_KEY"); ok {
		c.Tracing.APIKey = v
	}
	if v, ok := get("LANGCHAIN_PROJECT", "LANGCHAIN_PROJECT_NAME"); ok {
		c.Tracing.Project = v
	}
	if v, ok := get("LANGCHAIN_ENDPOINT"); ok {
		c.Tracing.Endpoint = v
	}
	if v, ok := get("TRACE_SINK"); ok {
		c.Tracing.Sinks = splitList(v)
	}
	if v, ok := get("TRACE_DATABASE"); ok {
		c.Tracing.Database = v
	}
	if v, ok := get("TRACE_DYNAMO_TABLE"); ok {
		c.Tracing.DynamoTable = v
	}

	if v, ok := get("REDIS_ADDR"); ok {
		host, port, found := strings.Cut(v, ":")
		c.Redis.Host = host
		if found {
			n, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("parse REDIS_ADDR port: %w", err)
			}
			c.Redis.Port = n
		}
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	return nil
}

// validate normalizes tracing settings. Tracing without a usable API key is
// switched off instead of failing startup.
func (c *Config) validate() error {
	for name, p := range c.Providers {
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 1) {
			return fmt.Errorf("provider %s: temperature %.2f out of range [0,1]", name, *p.Temperature)
		}
	}
	if c.Tracing.Project == "" {
		c.Tracing.Project = defaultProject
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = defaultLangSmithEndpoint
	}
	if !c.Tracing.Enabled {
		return nil
	}
	if len(c.Tracing.Sinks) == 0 {
		c.Tracing.Sinks = []string{SinkLog}
	}
	sinks := make([]string, 0, len(c.Tracing.Sinks))
	for _, s := range c.Tracing.Sinks {
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case SinkLangSmith:
			if c.Tracing.APIKey == "" {
				log.Printf("tracing: LANGCHAIN_API_KEY not set, langsmith sink disabled")
				continue
			}
		case SinkLog, SinkRedis, SinkSQL:
		case SinkDynamoDB:
			if c.Tracing.DynamoTable == "" {
				return errors.New("tracing: dynamodb sink requires a table name")
			}
		default:
			return fmt.Errorf("tracing: unknown sink %q", s)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		log.Printf("tracing: no usable sink configured, tracing disabled")
		c.Tracing.Enabled = false
	}
	c.Tracing.Sinks = sinks
	return nil
}

// HasSecretRefs reports whether any value still references the parameter store.
func (c *Config) HasSecretRefs() bool {
	found := false
	c.walkSecrets(func(v *string) {
		if strings.HasPrefix(*v, SecretPrefix) {
			found = true
		}
	})
	return found
}

// ResolveSecrets replaces every "ssm:<name>" value with the stored parameter.
func (c *Config) ResolveSecrets(ctx context.Context, getter SecretGetter) error {
	if getter == nil {
		return errors.New("secret getter required")
	}
	var firstErr error
	c.walkSecrets(func(v *string) {
		if firstErr != nil || !strings.HasPrefix(*v, SecretPrefix) {
			return
		}
		name := strings.TrimPrefix(*v, SecretPrefix)
		resolved, err := getter.GetParameter(ctx, name)
		if err != nil {
			firstErr = fmt.Errorf("resolve secret %s: %w", name, err)
			return
		}
		*v = resolved
	})
	return firstErr
}

func (c *Config) walkSecrets(fn func(*string)) {
	for name, p := range c.Providers {
		key := p.APIKey
		fn(&key)
		p.APIKey = key
		c.Providers[name] = p
	}
	for name, d := range c.Databases {
		pass, dsn := d.Password, d.DSN
		fn(&pass)
		fn(&dsn)
		d.Password, d.DSN = pass, dsn
		c.Databases[name] = d
	}
	fn(&c.Redis.Password)
	fn(&c.Tracing.APIKey)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
