package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts := cfg.Options()
	require.NoError(t, opts.Validate())
	assert.Equal(t, "eng", opts.Language)
	assert.Equal(t, 50, opts.Threshold)
	assert.Equal(t, model.ModeText, opts.Mode)
	assert.Equal(t, 300, opts.DPI)
	assert.Equal(t, 5*time.Minute, opts.Timeout)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ocr:
  default_language: fra
  confidence_threshold: 70
processing:
  max_workers: 8
  timeout: 90s
tables:
  backend: remote
  remote_url: http://vision:8080
  tie_break: area
cache:
  ttl: 10m
`), 0o644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "fra", cfg.OCR.DefaultLanguage)
	assert.Equal(t, 70, cfg.OCR.ConfidenceThreshold)
	assert.Equal(t, 8, cfg.Processing.MaxWorkers)
	assert.Equal(t, 90*time.Second, cfg.Processing.Timeout)
	assert.Equal(t, TableBackendRemote, cfg.Tables.Backend)
	assert.Equal(t, "area", cfg.Tables.TieBreak)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	// untouched sections keep defaults
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, "pdfocr", cfg.Queue.Name)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ocr": {"dpi": 150}, "queue": {"concurrency": 5}}`), 0o644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, 5, cfg.Queue.Concurrency)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing:\n  max_workers: 8\n"), 0o644))

	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("DEFAULT_LANGUAGE", "deu")
	t.Setenv("SUPPORTED_LANGUAGES", "eng, deu")
	t.Setenv("PROCESSING_TIMEOUT", "120000")
	t.Setenv("REDIS_URL", "redis://queue:6379/1")
	t.Setenv("CACHE_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Processing.MaxWorkers)
	assert.Equal(t, "deu", cfg.OCR.DefaultLanguage)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCR.SupportedLanguages)
	assert.Equal(t, 2*time.Minute, cfg.Processing.Timeout)
	assert.Equal(t, "redis://queue:6379/1", cfg.Queue.RedisURL)
	assert.Equal(t, "redis://cache:6379/2", cfg.Cache.RedisURL)
	assert.Equal(t, "debug", cfg.LoggingOptions().Level)
}

func TestDurationEnvAcceptsGoSyntax(t *testing.T) {
	t.Setenv("PROCESSING_TIMEOUT", "45s")
	cfg, err := LoadConfigFrom("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Processing.Timeout)

	t.Setenv("PROCESSING_TIMEOUT", "soon")
	_, err = LoadConfigFrom("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold too high", func(c *Config) { c.OCR.ConfidenceThreshold = 101 }},
		{"threshold negative", func(c *Config) { c.OCR.ConfidenceThreshold = -1 }},
		{"dpi too low", func(c *Config) { c.OCR.DPI = 10 }},
		{"no workers", func(c *Config) { c.Processing.MaxWorkers = 0 }},
		{"no file size", func(c *Config) { c.Processing.MaxFileSizeMB = 0 }},
		{"unknown table backend", func(c *Config) { c.Tables.Backend = "magic" }},
		{"remote without url", func(c *Config) { c.Tables.Backend = TableBackendRemote }},
		{"unknown tie break", func(c *Config) { c.Tables.TieBreak = "random" }},
		{"no languages", func(c *Config) { c.OCR.SupportedLanguages = nil }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero cache capacity", func(c *Config) { c.Cache.Capacity = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
