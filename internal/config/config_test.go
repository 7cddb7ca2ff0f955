package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docchunk/internal/chunker"
)

var envKeys = []string{
	"PORT", "DOCCHUNK_API_KEY", "DB_PATH", "WORKER_COUNT", "MAX_QUEUE_SIZE",
	"MAX_UPLOAD_BYTES", "JOB_TTL", "PDF_FALLBACK_PDFTOTEXT", "RESULT_CACHE_SIZE",
	"MIN_TOKENS", "MAX_TOKENS", "TARGET_TOKENS", "OVERLAP_TOKENS",
	"RESPECT_SECTION_BOUNDARIES", "HEADING_MIN_LENGTH", "HEADING_MAX_LENGTH",
	"DOCCHUNK_CONFIG",
}

// clearEnv blanks every key Load reads. Empty values fall back to defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "docchunk.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, int64(52428800), cfg.MaxUploadBytes)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.True(t, cfg.PDFFallbackPdftotext)
	assert.Equal(t, 128, cfg.ResultCacheSize)
	assert.Equal(t, chunker.DefaultConfig(), cfg.Chunking)
	assert.Equal(t, 3, cfg.HeadingMinLength)
	assert.Equal(t, 100, cfg.HeadingMaxLength)

	require.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateServer(), "server needs an API key")
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCCHUNK_API_KEY", "secret")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("JOB_TTL", "30m")
	t.Setenv("MIN_TOKENS", "100")
	t.Setenv("RESPECT_SECTION_BOUNDARIES", "false")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "0")
	t.Setenv("MAX_QUEUE_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 30*time.Minute, cfg.JobTTL)
	assert.Equal(t, 100, cfg.Chunking.MinTokens)
	assert.False(t, cfg.Chunking.RespectSectionBoundaries)
	assert.False(t, cfg.PDFFallbackPdftotext)
	assert.Equal(t, 100, cfg.MaxQueueSize, "unparseable values fall back")
	require.NoError(t, cfg.ValidateServer())
}

func TestLoad_NonPositiveValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("JOB_TTL", "-5s")
	t.Setenv("RESULT_CACHE_SIZE", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, 0, cfg.ResultCacheSize)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docchunk.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("DOCCHUNK_CONFIG", writeConfig(t, `
port = "9100"
db_path = "/var/lib/docchunk/chunks.db"
job_ttl = "2h"
result_cache_size = 16

[chunking]
min_tokens = 50
max_tokens = 400
target_tokens = 200
overlap_tokens = 20

[headings]
max_length = 80
`))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 2, cfg.WorkerCount, "keys absent from the file keep the env value")
	assert.Equal(t, "/var/lib/docchunk/chunks.db", cfg.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.JobTTL)
	assert.Equal(t, 16, cfg.ResultCacheSize)
	assert.Equal(t, chunker.Config{
		MinTokens: 50, MaxTokens: 400, TargetTokens: 200, OverlapTokens: 20,
		RespectSectionBoundaries: true,
	}, cfg.Chunking)
	assert.Equal(t, 3, cfg.HeadingMinLength)
	assert.Equal(t, 80, cfg.HeadingMaxLength)
}

func TestLoad_FileErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":  "colour = \"blue\"\n",
		"bad duration": "job_ttl = \"soon\"\n",
		"bad syntax":   "port = \n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DOCCHUNK_CONFIG", writeConfig(t, content))
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DOCCHUNK_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load()
	require.NoError(t, err)

	bad := base
	bad.Chunking.OverlapTokens = bad.Chunking.TargetTokens
	assert.ErrorIs(t, bad.Validate(), chunker.ErrInvalidConfig)

	bad = base
	bad.HeadingMinLength, bad.HeadingMaxLength = 10, 5
	assert.Error(t, bad.Validate())
}
