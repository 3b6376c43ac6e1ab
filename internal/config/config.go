/**
 * Configuration for the PDF OCR Worker
 *
 * Built once per process: defaults, then an optional YAML/JSON file named by
 * CONFIG_FILE, then environment variable overrides.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// Config holds worker configuration
type Config struct {
	OCR        OCRConfig        `yaml:"ocr"`
	Processing ProcessingConfig `yaml:"processing"`
	Tables     TablesConfig     `yaml:"tables"`
	Cache      CacheConfig      `yaml:"cache"`
	Queue      QueueConfig      `yaml:"queue"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// OCRConfig configures text recognition
type OCRConfig struct {
	// TesseractPath is the tessdata directory; empty uses the library default
	TesseractPath       string   `yaml:"tesseract_path"`
	DefaultLanguage     string   `yaml:"default_language"`
	SupportedLanguages  []string `yaml:"supported_languages"`
	ConfidenceThreshold int      `yaml:"confidence_threshold"`
	DPI                 int      `yaml:"dpi"`
	PageSegMode         int      `yaml:"page_seg_mode"`
}

// ProcessingConfig configures request handling
type ProcessingConfig struct {
	MaxFileSizeMB int           `yaml:"max_file_size_mb"`
	TempDir       string        `yaml:"temp_dir"`
	OutputDir     string        `yaml:"output_dir"`
	EnableCaching bool          `yaml:"enable_caching"`
	MaxWorkers    int           `yaml:"max_workers"`
	MaxQueuedJobs int           `yaml:"max_queued_jobs"`
	Timeout       time.Duration `yaml:"timeout"`
}

// TablesConfig configures table extraction
type TablesConfig struct {
	Backend       string        `yaml:"backend"`
	RemoteURL     string        `yaml:"remote_url"`
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
	TieBreak      string        `yaml:"tie_break"`
	MinRows       int           `yaml:"min_rows"`
	MinCols       int           `yaml:"min_cols"`
}

// CacheConfig configures the result cache
type CacheConfig struct {
	Capacity  int           `yaml:"capacity"`
	TTL       time.Duration `yaml:"ttl"`
	RedisURL  string        `yaml:"redis_url"`
	RedisTTL  time.Duration `yaml:"redis_ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// QueueConfig configures the task queue
type QueueConfig struct {
	RedisURL    string        `yaml:"redis_url"`
	Name        string        `yaml:"name"`
	Concurrency int           `yaml:"concurrency"`
	Retention   time.Duration `yaml:"retention"`
	MaxRetry    int           `yaml:"max_retry"`
}

// LoggingConfig configures process logging
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	FilePath      string `yaml:"file_path"`
	ConsoleOutput bool   `yaml:"console_output"`
}

// Table backends
const (
	TableBackendGeometric = "geometric"
	TableBackendRemote    = "remote"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		OCR: OCRConfig{
			DefaultLanguage:     "eng",
			SupportedLanguages:  []string{"eng", "fra"},
			ConfidenceThreshold: 50,
			DPI:                 300,
			PageSegMode:         6,
		},
		Processing: ProcessingConfig{
			MaxFileSizeMB: 100,
			TempDir:       "/tmp",
			OutputDir:     "./output",
			EnableCaching: true,
			MaxWorkers:    4,
			MaxQueuedJobs: 1000,
			Timeout:       5 * time.Minute,
		},
		Tables: TablesConfig{
			Backend:       TableBackendGeometric,
			RemoteTimeout: 2 * time.Minute,
			TieBreak:      "overlap",
			MinRows:       2,
			MinCols:       2,
		},
		Cache: CacheConfig{
			Capacity:  128,
			TTL:       time.Hour,
			RedisTTL:  24 * time.Hour,
			KeyPrefix: "pdfocr:result:",
		},
		Queue: QueueConfig{
			RedisURL:    "redis://localhost:6379",
			Name:        "pdfocr",
			Concurrency: 2,
			Retention:   24 * time.Hour,
			MaxRetry:    3,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "standard",
			ConsoleOutput: true,
		},
	}
}

// LoadConfig loads configuration from CONFIG_FILE (if set) and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFrom loads configuration from path (empty for none) and environment variables
func LoadConfigFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// JSON is a subset of YAML, so one decoder serves both
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.OCR.TesseractPath = getEnvOrDefault("TESSERACT_PATH", c.OCR.TesseractPath)
	c.OCR.DefaultLanguage = getEnvOrDefault("DEFAULT_LANGUAGE", c.OCR.DefaultLanguage)
	if langs := os.Getenv("SUPPORTED_LANGUAGES"); langs != "" {
		c.OCR.SupportedLanguages = splitList(langs)
	}
	c.OCR.ConfidenceThreshold = getEnvAsIntOrDefault("CONFIDENCE_THRESHOLD", c.OCR.ConfidenceThreshold)
	c.OCR.DPI = getEnvAsIntOrDefault("OCR_DPI", c.OCR.DPI)

	c.Processing.MaxFileSizeMB = getEnvAsIntOrDefault("MAX_FILE_SIZE_MB", c.Processing.MaxFileSizeMB)
	c.Processing.TempDir = getEnvOrDefault("TEMP_DIR", c.Processing.TempDir)
	c.Processing.OutputDir = getEnvOrDefault("OUTPUT_DIR", c.Processing.OutputDir)
	c.Processing.MaxWorkers = getEnvAsIntOrDefault("MAX_WORKERS", c.Processing.MaxWorkers)

	timeout, err := getEnvAsDurationOrDefault("PROCESSING_TIMEOUT", c.Processing.Timeout)
	if err != nil {
		return err
	}
	c.Processing.Timeout = timeout

	c.Tables.Backend = getEnvOrDefault("TABLE_BACKEND", c.Tables.Backend)
	c.Tables.RemoteURL = getEnvOrDefault("TABLE_SERVICE_URL", c.Tables.RemoteURL)

	c.Cache.RedisURL = getEnvOrDefault("CACHE_REDIS_URL", c.Cache.RedisURL)

	c.Queue.RedisURL = getEnvOrDefault("REDIS_URL", c.Queue.RedisURL)
	c.Queue.Concurrency = getEnvAsIntOrDefault("WORKER_CONCURRENCY", c.Queue.Concurrency)

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.FilePath = getEnvOrDefault("LOG_FILE_PATH", c.Logging.FilePath)
	return nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.OCR.DefaultLanguage == "" {
		return fmt.Errorf("DEFAULT_LANGUAGE is required")
	}
	if len(c.OCR.SupportedLanguages) == 0 {
		return fmt.Errorf("ocr.supported_languages must not be empty")
	}
	if c.OCR.ConfidenceThreshold < 0 || c.OCR.ConfidenceThreshold > 100 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be between 0 and 100, got %d", c.OCR.ConfidenceThreshold)
	}
	if c.OCR.DPI < 50 || c.OCR.DPI > 1200 {
		return fmt.Errorf("OCR_DPI must be between 50 and 1200, got %d", c.OCR.DPI)
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.page_seg_mode must be between 0 and 13, got %d", c.OCR.PageSegMode)
	}

	if c.Processing.MaxFileSizeMB < 1 || c.Processing.MaxFileSizeMB > 10240 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be between 1 and 10240, got %d", c.Processing.MaxFileSizeMB)
	}
	if c.Processing.MaxWorkers < 1 || c.Processing.MaxWorkers > 64 {
		return fmt.Errorf("MAX_WORKERS must be between 1 and 64, got %d", c.Processing.MaxWorkers)
	}
	if c.Processing.MaxQueuedJobs < 1 {
		return fmt.Errorf("processing.max_queued_jobs must be a positive integer, got %d", c.Processing.MaxQueuedJobs)
	}
	if c.Processing.Timeout < 0 {
		return fmt.Errorf("PROCESSING_TIMEOUT must not be negative, got %s", c.Processing.Timeout)
	}

	switch c.Tables.Backend {
	case TableBackendGeometric:
	case TableBackendRemote:
		if c.Tables.RemoteURL == "" {
			return fmt.Errorf("TABLE_SERVICE_URL is required for the %s table backend", TableBackendRemote)
		}
	default:
		return fmt.Errorf("TABLE_BACKEND must be %s or %s, got %q", TableBackendGeometric, TableBackendRemote, c.Tables.Backend)
	}
	switch c.Tables.TieBreak {
	case "overlap", "area", "confidence":
	default:
		return fmt.Errorf("tables.tie_break must be overlap, area or confidence, got %q", c.Tables.TieBreak)
	}
	if c.Tables.MinRows < 1 || c.Tables.MinCols < 1 {
		return fmt.Errorf("tables.min_rows and tables.min_cols must be positive")
	}

	if c.Processing.EnableCaching && c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be a positive integer, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL < 0 || c.Cache.RedisTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}

	if c.Queue.Concurrency < 1 || c.Queue.Concurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.Queue.Concurrency)
	}
	if c.Queue.Name == "" {
		return fmt.Errorf("queue.name is required")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "standard", "json":
	default:
		return fmt.Errorf("logging.format must be standard or json, got %q", c.Logging.Format)
	}

	return nil
}

// Options returns the default per-request options
func (c *Config) Options() model.Options {
	return model.Options{
		Language:      c.OCR.DefaultLanguage,
		Threshold:     c.OCR.ConfidenceThreshold,
		Mode:          model.ModeText,
		MaxWorkers:    c.Processing.MaxWorkers,
		MaxFileSizeMB: c.Processing.MaxFileSizeMB,
		DPI:           c.OCR.DPI,
		Timeout:       c.Processing.Timeout,
	}
}

// LoggingOptions converts the logging section for logging.Configure
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:         c.Logging.Level,
		Format:        c.Logging.Format,
		FilePath:      c.Logging.FilePath,
		ConsoleOutput: c.Logging.ConsoleOutput,
	}
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDurationOrDefault accepts a Go duration ("90s") or plain milliseconds
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	if ms, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration or milliseconds, got %q", key, valueStr)
	}
	return d, nil
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
