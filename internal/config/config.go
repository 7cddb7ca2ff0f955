package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dgallion1/docchunk/internal/chunker"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Storage
	DBPath string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Synchronous chunk endpoint
	ResultCacheSize int

	// Chunking defaults, overridable per request
	Chunking chunker.Config

	// Heading detection
	HeadingMinLength int
	HeadingMaxLength int
}

// fileConfig mirrors Config for the optional TOML file. Absent keys stay nil
// and leave the env value in place.
type fileConfig struct {
	Port                 *string `toml:"port"`
	APIKey               *string `toml:"api_key"`
	DBPath               *string `toml:"db_path"`
	WorkerCount          *int    `toml:"worker_count"`
	MaxQueueSize         *int    `toml:"max_queue_size"`
	MaxUploadBytes       *int64  `toml:"max_upload_bytes"`
	JobTTL               *string `toml:"job_ttl"`
	PDFFallbackPdftotext *bool   `toml:"pdf_fallback_pdftotext"`
	ResultCacheSize      *int    `toml:"result_cache_size"`

	Chunking struct {
		MinTokens                *int  `toml:"min_tokens"`
		MaxTokens                *int  `toml:"max_tokens"`
		TargetTokens             *int  `toml:"target_tokens"`
		OverlapTokens            *int  `toml:"overlap_tokens"`
		RespectSectionBoundaries *bool `toml:"respect_section_boundaries"`
	} `toml:"chunking"`

	Headings struct {
		MinLength *int `toml:"min_length"`
		MaxLength *int `toml:"max_length"`
	} `toml:"headings"`
}

// Load reads the environment, then overlays the TOML file named by
// DOCCHUNK_CONFIG when it is set.
func Load() (Config, error) {
	defaults := chunker.DefaultConfig()
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCCHUNK_API_KEY"),

		DBPath: envOr("DB_PATH", "docchunk.db"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		ResultCacheSize: envInt("RESULT_CACHE_SIZE", 128),

		Chunking: chunker.Config{
			MinTokens:                envInt("MIN_TOKENS", defaults.MinTokens),
			MaxTokens:                envInt("MAX_TOKENS", defaults.MaxTokens),
			TargetTokens:             envInt("TARGET_TOKENS", defaults.TargetTokens),
			OverlapTokens:            envInt("OVERLAP_TOKENS", defaults.OverlapTokens),
			RespectSectionBoundaries: envBool("RESPECT_SECTION_BOUNDARIES", defaults.RespectSectionBoundaries),
		},

		HeadingMinLength: envInt("HEADING_MIN_LENGTH", 3),
		HeadingMaxLength: envInt("HEADING_MAX_LENGTH", 100),
	}

	if path := os.Getenv("DOCCHUNK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.overlay(data); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ResultCacheSize < 0 {
		cfg.ResultCacheSize = 0
	}

	return cfg, nil
}

// overlay applies the keys present in a TOML document. Unknown keys are errors.
func (c *Config) overlay(data []byte) error {
	var f fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return err
	}

	set(&c.Port, f.Port)
	set(&c.APIKey, f.APIKey)
	set(&c.DBPath, f.DBPath)
	set(&c.WorkerCount, f.WorkerCount)
	set(&c.MaxQueueSize, f.MaxQueueSize)
	set(&c.MaxUploadBytes, f.MaxUploadBytes)
	set(&c.PDFFallbackPdftotext, f.PDFFallbackPdftotext)
	set(&c.ResultCacheSize, f.ResultCacheSize)
	if f.JobTTL != nil {
		d, err := time.ParseDuration(*f.JobTTL)
		if err != nil {
			return fmt.Errorf("job_ttl: %w", err)
		}
		c.JobTTL = d
	}

	set(&c.Chunking.MinTokens, f.Chunking.MinTokens)
	set(&c.Chunking.MaxTokens, f.Chunking.MaxTokens)
	set(&c.Chunking.TargetTokens, f.Chunking.TargetTokens)
	set(&c.Chunking.OverlapTokens, f.Chunking.OverlapTokens)
	set(&c.Chunking.RespectSectionBoundaries, f.Chunking.RespectSectionBoundaries)

	set(&c.HeadingMinLength, f.Headings.MinLength)
	set(&c.HeadingMaxLength, f.Headings.MaxLength)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the settings every entry point needs. The API key is only
// required by the server; see ValidateServer.
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if c.HeadingMinLength < 0 || c.HeadingMaxLength < c.HeadingMinLength {
		return fmt.Errorf("heading length bounds %d..%d are invalid", c.HeadingMinLength, c.HeadingMaxLength)
	}
	return nil
}

// ValidateServer is Validate plus the settings only the HTTP server needs.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return errors.New("DOCCHUNK_API_KEY is required")
	}
	return c.Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
