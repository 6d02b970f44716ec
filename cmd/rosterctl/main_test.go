package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostersync/internal/platform/config"
)

func memoryConfig() (*config.Config, error) {
	return &config.Config{
		LLM: config.LLMConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Embedding: config.EmbeddingConfig{
			Provider:    "openai",
			Concurrency: 1,
		},
		Matching:     config.MatchingConfig{Threshold: 0.83, VersionRetries: 3},
		Notification: config.NotificationConfig{Window: 10 * time.Minute, Timezone: "UTC"},
	}, nil
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	ctx := &commandContext{load: memoryConfig}
	t.Cleanup(ctx.close)

	cmd := newRootCommandWith(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersions(t *testing.T) {
	venue := uuid.NewString()

	t.Run("empty week", func(t *testing.T) {
		out, _, err := runCLI(t, "versions", "--venue", venue, "--week", "2024-01-03")
		require.NoError(t, err)
		assert.Contains(t, out, "No versions stored for that week")
	})

	t.Run("json output", func(t *testing.T) {
		out, _, err := runCLI(t, "--json", "versions", "--venue", venue, "--week", "2024-01-03")
		require.NoError(t, err)
		assert.Equal(t, "[]", strings.TrimSpace(out))
	})

	t.Run("rejects a bad venue", func(t *testing.T) {
		_, _, err := runCLI(t, "versions", "--venue", "nope", "--week", "2024-01-03")
		assert.EqualError(t, err, "--venue must be a UUID")
	})
}

func TestMigrateNeedsDatabase(t *testing.T) {
	_, _, err := runCLI(t, "migrate")
	assert.ErrorContains(t, err, "DATABASE_URL is not set")
}

func TestIngestValidatesFlags(t *testing.T) {
	_, _, err := runCLI(t, "ingest", "--venue", uuid.NewString())
	assert.EqualError(t, err, "--file is required")

	_, _, err = runCLI(t, "ingest", "--venue", uuid.NewString(), "--file", "https://f/r.jpg", "--week", "Monday")
	assert.ErrorContains(t, err, "--week")
}

func TestIngestRequest(t *testing.T) {
	venue := uuid.New()
	req, err := ingestRequest(venue.String(), " https://f/r.jpg ", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, venue, req.VenueID)
	assert.Equal(t, "https://f/r.jpg", req.FileURL)
	require.NotNil(t, req.WeekHint)
	assert.Equal(t, "2024-01-03", req.WeekHint.String())
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"Ana", "2"}, {"Ben"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Ben")
	assert.Empty(t, renderTable(nil, nil, nil))
}
