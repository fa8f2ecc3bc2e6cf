package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFormat(t *testing.T) {
	assert.True(t, FormatCSV.IncludesCSV())
	assert.False(t, FormatCSV.IncludesJSON())
	assert.True(t, FormatBoth.IncludesCSV())
	assert.True(t, FormatBoth.IncludesJSON())
	assert.False(t, FormatBoth.IncludesHTML())
	assert.True(t, FormatAll.IncludesCSV())
	assert.True(t, FormatAll.IncludesJSON())
	assert.True(t, FormatAll.IncludesHTML())

	assert.True(t, FormatHTML.Valid())
	assert.False(t, SaveFormat("xml").Valid())
	assert.False(t, SaveFormat("").Valid())
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Download.BatchSize)
	assert.Equal(t, FormatAll, cfg.Download.Format)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Download.BatchSize = 0
	cfg.Download.Format = "xml"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch size")
	assert.Contains(t, err.Error(), "save format")
	assert.Contains(t, err.Error(), "log level")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TGARCHIVE_API_TOKEN", "env-token")
	t.Setenv("TGARCHIVE_FORMAT", "CSV")
	t.Setenv("TGARCHIVE_BATCH_SIZE", "50")
	t.Setenv("TGARCHIVE_MAX_MESSAGES", "1000")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-token", cfg.Telegram.APIToken)
	assert.Equal(t, FormatCSV, cfg.Download.Format)
	assert.Equal(t, 50, cfg.Download.BatchSize)
	assert.Equal(t, 1000, cfg.Download.MaxMessages)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("TGARCHIVE_BATCH_SIZE", "many")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 100, cfg.Download.BatchSize, "unparseable values keep the default")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tgarchive.yaml")
	content := `
telegram:
  api_token: "file-token"
download:
  format: "json"
  batch_size: 75
  download_timeout: 90s
rate_limit:
  requests_per_minute: 30
  batch_delay: 500ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "file-token", cfg.Telegram.APIToken)
	assert.Equal(t, FormatJSON, cfg.Download.Format)
	assert.Equal(t, 75, cfg.Download.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.Download.DownloadTimeout)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.BatchDelay)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicitly named missing file is an error")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":            "/tmp/archives",
		"format":            "HTML",
		"batch-size":        10,
		"media-immediately": true,
	})

	assert.Equal(t, "/tmp/archives", cfg.Output.Directory)
	assert.Equal(t, FormatHTML, cfg.Download.Format)
	assert.Equal(t, 10, cfg.Download.BatchSize)
	assert.True(t, cfg.Download.MediaImmediately)
}

func TestPrecedenceFlagsOverEnv(t *testing.T) {
	t.Setenv("TGARCHIVE_BATCH_SIZE", "50")
	t.Setenv("HOME", t.TempDir()) // keep user config files out of the test

	cfg, err := Load("", map[string]interface{}{"batch-size": 10})
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Download.BatchSize, "flags beat environment")
}

func TestConfigSaveRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Download.BatchSize = 42
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 42, loaded.Download.BatchSize)
}
