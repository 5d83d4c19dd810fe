// Package config loads the resonate core configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for all core handlers.
type Config struct {
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Vector    VectorConfig    `yaml:"vector"`
	LLM       LLMConfig       `yaml:"llm"`
	Rebuild   RebuildConfig   `yaml:"rebuild"`
	Feed      FeedConfig      `yaml:"feed"`
	Health    HealthConfig    `yaml:"health"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Ops       OpsConfig       `yaml:"ops"`
}

// PostgresConfig holds relational store settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	TimeoutMS    int    `yaml:"timeout_ms"` // per-query deadline
}

// RedisConfig holds cache store settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// VectorConfig holds the vector index endpoint settings.
type VectorConfig struct {
	Host      string `yaml:"host"`        // index host, e.g. https://resonate-xxxx.svc.pinecone.io
	APIKeyEnv string `yaml:"api_key_env"` // env var carrying the key
	Namespace string `yaml:"namespace"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// LLMConfig holds embedding/completion provider settings. Keys come from env.
type LLMConfig struct {
	EmbeddingModel   string  `yaml:"embedding_model"`
	EmbeddingKeyEnv  string  `yaml:"embedding_key_env"`
	CompletionModel  string  `yaml:"completion_model"`
	CompletionKeyEnv string  `yaml:"completion_key_env"`
	WindowSeconds    int     `yaml:"window_seconds"` // sliding rate window
	WindowCalls      int     `yaml:"window_calls"`   // calls allowed per window
	Temperature      float64 `yaml:"temperature"`
	MaxOutputTokens  int     `yaml:"max_output_tokens"`
}

// RebuildConfig tunes the profile rebuild passes.
type RebuildConfig struct {
	StaleAfterHours  int    `yaml:"stale_after_hours"`  // daily pass skips fresher profiles
	ActiveWithinDays int    `yaml:"active_within_days"` // user considered active
	ModelVersion     string `yaml:"model_version"`
	VoiceRetries     int    `yaml:"voice_retries"`
	DailyRetries     int    `yaml:"daily_retries"`
}

// FeedConfig tunes the ranking pipeline.
type FeedConfig struct {
	RetrievalTopK    int `yaml:"retrieval_top_k"`
	PageSize         int `yaml:"page_size"`
	PageTTLSeconds   int `yaml:"page_ttl_seconds"`
	ScoreConcurrency int `yaml:"score_concurrency"` // bounded ERS fan-out
}

// HealthConfig tunes the conversation health sweep.
type HealthConfig struct {
	SweepWindowDays int `yaml:"sweep_window_days"`
	SweepRetries    int `yaml:"sweep_retries"`
}

// SchedulerConfig lists registered jobs.
type SchedulerConfig struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig defines one scheduled or event-triggered job.
type JobConfig struct {
	ID      string `yaml:"id"`
	Cron    string `yaml:"cron,omitempty"`  // 5-field cron, empty for event-only
	Event   string `yaml:"event,omitempty"` // trigger name, empty for cron-only
	Enabled bool   `yaml:"enabled"`
	Retries int    `yaml:"retries"`
}

// OpsConfig holds the metrics/health listener settings.
type OpsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the baseline configuration. Load overlays YAML on top.
func Default() *Config {
	return &Config{
		Postgres: PostgresConfig{MaxOpenConns: 20, MaxIdleConns: 5, TimeoutMS: 5000},
		Redis:    RedisConfig{Addr: "localhost:6379", PoolSize: 10},
		Vector:   VectorConfig{Namespace: "resonate", TimeoutMS: 4000, APIKeyEnv: "VECTOR_API_KEY"},
		LLM: LLMConfig{
			EmbeddingModel:   "text-embedding-3-small",
			EmbeddingKeyEnv:  "OPENAI_API_KEY",
			CompletionModel:  "claude-3-5-haiku-latest",
			CompletionKeyEnv: "ANTHROPIC_API_KEY",
			WindowSeconds:    60,
			WindowCalls:      3000,
			Temperature:      0.7,
			MaxOutputTokens:  500,
		},
		Rebuild: RebuildConfig{
			StaleAfterHours:  48,
			ActiveWithinDays: 7,
			ModelVersion:     "rpb-v1",
			VoiceRetries:     3,
			DailyRetries:     2,
		},
		Feed: FeedConfig{
			RetrievalTopK:    500,
			PageSize:         30,
			PageTTLSeconds:   180,
			ScoreConcurrency: 8,
		},
		Health: HealthConfig{SweepWindowDays: 7, SweepRetries: 2},
		Scheduler: SchedulerConfig{Jobs: []JobConfig{
			{ID: "profile-rebuild-daily", Cron: "0 3 * * *", Enabled: true, Retries: 2},
			{ID: "conversation-health-sweep", Cron: "0 */4 * * *", Enabled: true, Retries: 2},
			{ID: "profile-rebuild-voice", Event: "resonate/voice-note-uploaded", Enabled: true, Retries: 3},
			{ID: "account-cleanup", Event: "resonate/account-deleted", Enabled: true, Retries: 1},
		}},
		Ops: OpsConfig{ListenAddr: ":9108"},
	}
}

// Validate checks ranges that would otherwise fail deep inside a handler.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.Feed.PageSize < 1 || c.Feed.PageSize > 50 {
		return fmt.Errorf("feed.page_size must be in [1,50], got %d", c.Feed.PageSize)
	}
	if c.Feed.RetrievalTopK <= 0 {
		return fmt.Errorf("feed.retrieval_top_k must be positive")
	}
	if c.LLM.WindowSeconds <= 0 || c.LLM.WindowCalls <= 0 {
		return fmt.Errorf("llm rate window must be positive")
	}
	for _, j := range c.Scheduler.Jobs {
		if j.ID == "" {
			return fmt.Errorf("scheduler job missing id")
		}
		if j.Cron == "" && j.Event == "" {
			return fmt.Errorf("scheduler job %s needs a cron schedule or an event trigger", j.ID)
		}
	}
	return nil
}

// QueryTimeout returns the per-query deadline as a duration.
func (c *PostgresConfig) QueryTimeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
