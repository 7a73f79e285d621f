package hybrid

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/filmrec/core"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filmrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
alpha: 0.6
neighbors: 41
source_timeout: 250ms
aggregation: max
content:
  stop_words: en
dataset:
  source: redis
  redis:
    addr: redis:6379
`), 0o600))

	t.Setenv("FILMREC_BETA", "0.3")
	t.Setenv("FILMREC_CONTENT__EXTRA_STOP_WORDS", "movie, story")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Alpha)
	assert.Equal(t, 0.3, cfg.Beta)
	assert.Equal(t, 41, cfg.Neighbors)
	assert.Equal(t, 250*time.Millisecond, cfg.SourceTimeout)
	assert.Equal(t, "max", cfg.Aggregation)
	assert.Equal(t, "en", cfg.Content.StopWords)
	assert.Equal(t, []string{"movie", "story"}, cfg.Content.ExtraStopWords)
	assert.Equal(t, "redis", cfg.Dataset.Source)
	assert.Equal(t, "redis:6379", cfg.Dataset.Redis.Addr)
	assert.Equal(t, core.DefaultTopN, cfg.TopN)
}

func TestLoadConfig_MissingFileIgnored(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultAlpha, cfg.Alpha)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "alpha above one", mutate: func(c *Config) { c.Alpha = 1.5 }},
		{name: "negative beta", mutate: func(c *Config) { c.Beta = -0.1 }},
		{name: "zero pool", mutate: func(c *Config) { c.CandidatePool = 0 }},
		{name: "unknown aggregation", mutate: func(c *Config) { c.Aggregation = "avg" }},
		{name: "unknown stop words", mutate: func(c *Config) { c.Content.StopWords = "de" }},
		{name: "csv without path", mutate: func(c *Config) { c.Dataset.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
		})
	}

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}
