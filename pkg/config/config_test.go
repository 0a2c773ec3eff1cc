package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOURCES_FILE_PATH", filepath.Join(t.TempDir(), "missing.json"))

	cfg := Load()

	assert.Equal(t, "8090", cfg.ServerPort)
	assert.Equal(t, "IN", cfg.TMDBRegion)
	assert.Equal(t, []string{"hyderabad"}, cfg.ListingsCities)
	assert.Equal(t, 15*time.Minute, cfg.DiscoverySessionTTL)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "rss", cfg.Sources[0].Transformer)
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name":"paged","url":"http://news.local/articles","transformer":"newsjson","page_param":"page","max_pages":3}
	]`), 0o600))

	t.Setenv("SOURCES_FILE_PATH", path)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("POLL_INTERVAL", "90")
	t.Setenv("DISCOVERY_SESSION_TTL", "2m")
	t.Setenv("BATCH_SIZE", "not-a-number")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.DiscoverySessionTTL)
	assert.Equal(t, 20, cfg.BatchSize)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "page", cfg.Sources[0].PageParam)
	assert.Equal(t, 3, cfg.Sources[0].MaxPages)
}

func TestLoad_BadSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	t.Setenv("SOURCES_FILE_PATH", path)

	assert.Nil(t, Load().Sources)
}
