package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	LLM      LLMConfig      `yaml:"llm"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Matching MatchingConfig `yaml:"matching"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig selects the provider and the guard's retry policy
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai, github_models or azure
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     Duration      `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase Duration      `yaml:"backoff_base"`
	BackoffMax  Duration      `yaml:"backoff_max"`
	Azure       AzureConfig   `yaml:"azure"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

type AzureConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Deployment string `yaml:"deployment"`
}

type BreakerConfig struct {
	Enabled          bool     `yaml:"enabled"`
	MaxRequests      uint32   `yaml:"max_requests"`
	Interval         Duration `yaml:"interval"`
	Timeout          Duration `yaml:"timeout"`
	FailureThreshold float64  `yaml:"failure_threshold"`
	MinRequests      uint32   `yaml:"min_requests"`
}

type CatalogConfig struct {
	TTL          Duration    `yaml:"ttl"`
	FetchTimeout Duration    `yaml:"fetch_timeout"`
	RetryAfter   Duration    `yaml:"retry_after"`
	Redis        RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Address  string   `yaml:"address"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	Key      string   `yaml:"key"`
	TTL      Duration `yaml:"ttl"`
}

// MatchingConfig holds the fuzzy-match threshold and score weights
type MatchingConfig struct {
	Threshold         float64 `yaml:"threshold"`
	ItemContainsQuery float64 `yaml:"item_contains_query"`
	QueryContainsItem float64 `yaml:"query_contains_item"`
	AllItemTokens     float64 `yaml:"all_item_tokens"`
	AllQueryTokens    float64 `yaml:"all_query_tokens"`
	PartialTokens     float64 `yaml:"partial_tokens"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
	Seed   bool   `yaml:"seed"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type DispatchConfig struct {
	HistoryWindow int `yaml:"history_window"`
}

// Duration decodes YAML strings like "30s" into a time.Duration
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "console"},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.5,
			MaxTokens:   512,
			Timeout:     Duration{20 * time.Second},
			MaxAttempts: 3,
			BackoffBase: Duration{500 * time.Millisecond},
			BackoffMax:  Duration{5 * time.Second},
			Breaker: BreakerConfig{
				MaxRequests:      5,
				Interval:         Duration{30 * time.Second},
				Timeout:          Duration{60 * time.Second},
				FailureThreshold: 0.8,
				MinRequests:      5,
			},
		},
		Catalog: CatalogConfig{
			TTL:          Duration{time.Hour},
			FetchTimeout: Duration{10 * time.Second},
			RetryAfter:   Duration{30 * time.Second},
			Redis: RedisConfig{
				Key: "shackbot:catalog",
				TTL: Duration{time.Hour},
			},
		},
		Matching: MatchingConfig{
			Threshold:         60,
			ItemContainsQuery: 80,
			QueryContainsItem: 70,
			AllItemTokens:     60,
			AllQueryTokens:    50,
			PartialTokens:     40,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "shakeshack.db",
			Seed:   true,
		},
		Dispatch: DispatchConfig{HistoryWindow: 6},
	}
}

// Load reads the YAML file at path over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&c.LLM.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	setString(&c.LLM.Azure.Deployment, "AZURE_OPENAI_DEPLOYMENT_NAME")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Catalog.Redis.Address, "REDIS_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	if v, ok := lookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if c.LLM.Provider == "github_models" && c.LLM.APIKey == "" {
		setString(&c.LLM.APIKey, "GITHUB_TOKEN")
	}
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1")
	}
	if c.LLM.Timeout.Duration <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.Catalog.TTL.Duration <= 0 {
		return fmt.Errorf("catalog.ttl must be positive")
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 100 {
		return fmt.Errorf("matching.threshold must be within [0, 100]")
	}
	if c.Dispatch.HistoryWindow < 0 {
		return fmt.Errorf("dispatch.history_window must be non-negative")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "openai", "github_models", "azure":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

// lookupEnv reads an environment variable, treating empty values as unset.
func lookupEnv(key string) (string, bool) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, true
	}
	return "", false
}
