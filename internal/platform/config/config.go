// Package config loads service configuration from the environment, with an
// optional config file named by ROSTERSYNC_CONFIG.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server       Server
	Postgres     PostgresConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	LLM          LLMConfig
	Embedding    EmbeddingConfig
	Matching     MatchingConfig
	Notification NotificationConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	AdminToken string
	LogLevel   string
}

type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers   []string
	PushTopic string
}

// LLMConfig points at an OpenAI-compatible chat completions API.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	VisionModel    string
	NormalizeModel string
	CopyModel      string
	Timeout        time.Duration
}

type EmbeddingConfig struct {
	Provider    string
	Model       string
	GenAIAPIKey string
	Concurrency int
	CacheTTL    time.Duration
}

type MatchingConfig struct {
	Threshold      float64
	VersionRetries int
}

type NotificationConfig struct {
	Window        time.Duration
	SweepInterval time.Duration
	MailRelayURL  string
	Timezone      string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rostersync_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", 30*time.Minute)
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 2)
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)
	v.SetDefault("kafka_push_topic", "rostersync.push")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm_vision_model", "gpt-4o")
	v.SetDefault("llm_normalize_model", "gpt-4o")
	v.SetDefault("llm_copy_model", "gpt-4o-mini")
	v.SetDefault("llm_timeout", 60*time.Second)
	v.SetDefault("embedding_provider", "openai")
	v.SetDefault("embedding_model", "text-embedding-3-large")
	v.SetDefault("embedding_concurrency", 4)
	v.SetDefault("embedding_cache_ttl", 24*time.Hour)
	v.SetDefault("vector_sim_threshold", 0.83)
	v.SetDefault("version_allocation_retries", 3)
	v.SetDefault("notify_window", 10*time.Minute)
	v.SetDefault("notify_sweep_interval", 5*time.Minute)
	v.SetDefault("notify_timezone", "Australia/Sydney")
}

// Load reads configuration from the environment. Keys map to upper-case
// environment variables (vector_sim_threshold reads VECTOR_SIM_THRESHOLD).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("rostersync_config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: Server{
			Addr:       v.GetString("rostersync_addr"),
			AdminToken: v.GetString("admin_token"),
			LogLevel:   v.GetString("log_level"),
		},
		Postgres: PostgresConfig{
			URL:             v.GetString("database_url"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis_url"),
			PoolSize:     v.GetInt("redis_pool_size"),
			MinIdleConns: v.GetInt("redis_min_idle_conns"),
			DialTimeout:  v.GetDuration("redis_dial_timeout"),
			ReadTimeout:  v.GetDuration("redis_read_timeout"),
			WriteTimeout: v.GetDuration("redis_write_timeout"),
		},
		Kafka: KafkaConfig{
			Brokers:   splitList(v.GetString("kafka_brokers")),
			PushTopic: v.GetString("kafka_push_topic"),
		},
		LLM: LLMConfig{
			APIKey:         v.GetString("openai_api_key"),
			BaseURL:        v.GetString("openai_base_url"),
			VisionModel:    v.GetString("llm_vision_model"),
			NormalizeModel: v.GetString("llm_normalize_model"),
			CopyModel:      v.GetString("llm_copy_model"),
			Timeout:        v.GetDuration("llm_timeout"),
		},
		Embedding: EmbeddingConfig{
			Provider:    strings.ToLower(v.GetString("embedding_provider")),
			Model:       v.GetString("embedding_model"),
			GenAIAPIKey: v.GetString("genai_api_key"),
			Concurrency: v.GetInt("embedding_concurrency"),
			CacheTTL:    v.GetDuration("embedding_cache_ttl"),
		},
		Matching: MatchingConfig{
			Threshold:      v.GetFloat64("vector_sim_threshold"),
			VersionRetries: v.GetInt("version_allocation_retries"),
		},
		Notification: NotificationConfig{
			Window:        v.GetDuration("notify_window"),
			SweepInterval: v.GetDuration("notify_sweep_interval"),
			MailRelayURL:  v.GetString("mail_relay_url"),
			Timezone:      v.GetString("notify_timezone"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the service relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 1 {
		errs = append(errs, fmt.Errorf("VECTOR_SIM_THRESHOLD must be in (0,1], got %v", c.Matching.Threshold))
	}
	if c.Matching.VersionRetries < 1 {
		errs = append(errs, fmt.Errorf("VERSION_ALLOCATION_RETRIES must be at least 1"))
	}
	if c.Embedding.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("EMBEDDING_CONCURRENCY must be at least 1"))
	}
	if c.Embedding.Provider != "openai" && c.Embedding.Provider != "genai" {
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be openai or genai, got %q", c.Embedding.Provider))
	}
	if c.Notification.Window <= 0 {
		errs = append(errs, fmt.Errorf("NOTIFY_WINDOW must be positive"))
	}
	if _, err := time.LoadLocation(c.Notification.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
