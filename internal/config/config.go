// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigin     string        `yaml:"cors_origin"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey       string            `yaml:"openai_key"`
	BaseURL         string            `yaml:"base_url"`
	Assistants      map[string]string `yaml:"assistants"` // analysis type -> assistant id
	PollInterval    time.Duration     `yaml:"poll_interval"`
	JobTimeout      time.Duration     `yaml:"job_timeout"`
	MaxPolls        int               `yaml:"max_polls"`        // 0 = bounded by job_timeout only
	ConcurrentLimit int               `yaml:"concurrent_limit"` // max concurrent upstream calls
	HTTPTimeout     time.Duration     `yaml:"http_timeout"`
}

type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	IdentityURL        string        `yaml:"identity_url"`
	RandomParam        string        `yaml:"random_param"`
	SubscriptionAPIKey string        `yaml:"subscription_api_key"`
}

type QuotaConfig struct {
	ResetPeriod        time.Duration `yaml:"reset_period"`
	ResetCheckInterval time.Duration `yaml:"reset_check_interval"`
}

type WorkersConfig struct {
	RecordWorkers int `yaml:"record_workers"` // async audit writers
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Auth     AuthConfig     `yaml:"auth"`
	Quota    QuotaConfig    `yaml:"quota"`
	Workers  WorkersConfig  `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies env overrides for secrets,
// fills defaults and validates required keys.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.AI.OpenAIKey == "" {
		return nil, errors.New("ai.openai_key is required")
	}
	if len(cfg.AI.Assistants) == 0 {
		return nil, errors.New("ai.assistants must configure at least one analysis type")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	// analysis types are matched case-insensitively
	normalized := make(map[string]string, len(cfg.AI.Assistants))
	for k, v := range cfg.AI.Assistants {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("ai.assistants: empty type or assistant id (%q)", k)
		}
		if _, dup := normalized[key]; dup {
			return nil, fmt.Errorf("ai.assistants: duplicate type %q", key)
		}
		normalized[key] = strings.TrimSpace(v)
	}
	cfg.AI.Assistants = normalized

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// AnalysisTypes returns the configured analysis types in stable order.
func (c *AIConfig) AnalysisTypes() []string {
	out := make([]string, 0, len(c.Assistants))
	for k := range c.Assistants {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Auth.SubscriptionAPIKey, "SUBSCRIPTION_API_KEY")
	override(&cfg.Auth.RandomParam, "RANDOM_PARAM")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = "*"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.AI.PollInterval <= 0 {
		cfg.AI.PollInterval = time.Second
	}
	if cfg.AI.JobTimeout <= 0 {
		cfg.AI.JobTimeout = 2 * time.Minute
	}
	if cfg.AI.MaxPolls < 0 {
		cfg.AI.MaxPolls = 0
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.HTTPTimeout <= 0 {
		cfg.AI.HTTPTimeout = 30 * time.Second
	}

	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}

	if cfg.Quota.ResetPeriod <= 0 {
		cfg.Quota.ResetPeriod = 30 * 24 * time.Hour
	}
	if cfg.Quota.ResetCheckInterval <= 0 {
		cfg.Quota.ResetCheckInterval = time.Hour
	}
	if cfg.Workers.RecordWorkers <= 0 {
		cfg.Workers.RecordWorkers = 2
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
