package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 0.83, cfg.Matching.Threshold)
	assert.Equal(t, 3, cfg.Matching.VersionRetries)
	assert.Equal(t, 4, cfg.Embedding.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Notification.Window)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.CopyModel)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VECTOR_SIM_THRESHOLD", "0.9")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("NOTIFY_WINDOW", "15m")
	t.Setenv("EMBEDDING_PROVIDER", "GenAI")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Matching.Threshold)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.Notification.Window)
	assert.Equal(t, "genai", cfg.Embedding.Provider)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rostersync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding_concurrency: 8\nnotify_timezone: UTC\n"), 0o600))
	t.Setenv("ROSTERSYNC_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Embedding.Concurrency)
	assert.Equal(t, "UTC", cfg.Notification.Timezone)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "threshold above one", env: map[string]string{"VECTOR_SIM_THRESHOLD": "1.5"}},
		{name: "zero threshold", env: map[string]string{"VECTOR_SIM_THRESHOLD": "0"}},
		{name: "zero concurrency", env: map[string]string{"EMBEDDING_CONCURRENCY": "0"}},
		{name: "unknown provider", env: map[string]string{"EMBEDDING_PROVIDER": "bert"}},
		{name: "unknown timezone", env: map[string]string{"NOTIFY_TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
