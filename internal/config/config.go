package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Persistence
	DatabasePath string
	StorageDir   string

	// Auth
	DocauditAPIKey string

	// Rationale generation
	AnthropicAPIKey     string
	AnthropicModel      string
	RationaleDisabled   bool
	RationaleTimeout    time.Duration
	RationaleRatePerSec float64

	// Compliance runs
	RunWorkers       int
	CandidateLimit   int
	CandidateScanCap int
	SnippetBudget    int
	SourceRetries    int
	RetryBase        time.Duration

	// Ingestion worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Chunking
	MaxParagraphTokens int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DatabasePath: envOr("DATABASE_PATH", "./data/docaudit.db"),
		StorageDir:   envOr("STORAGE_DIR", "./data/storage"),

		DocauditAPIKey: os.Getenv("DOCAUDIT_API_KEY"),

		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:      envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		RationaleDisabled:   envBool("RATIONALE_DISABLED", false),
		RationaleTimeout:    envDuration("RATIONALE_TIMEOUT", 60*time.Second),
		RationaleRatePerSec: envFloat("RATIONALE_RATE_PER_SEC", 2),

		RunWorkers:       envInt("RUN_WORKERS", 4),
		CandidateLimit:   envInt("CANDIDATE_LIMIT", 5),
		CandidateScanCap: envInt("CANDIDATE_SCAN_CAP", 2000),
		SnippetBudget:    envInt("SNIPPET_BUDGET", 600),
		SourceRetries:    envInt("SOURCE_RETRIES", 3),
		RetryBase:        envDuration("RETRY_BASE", 1*time.Second),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		MaxParagraphTokens: envInt("MAX_PARAGRAPH_TOKENS", 1500),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.RationaleTimeout <= 0 {
		cfg.RationaleTimeout = 60 * time.Second
	}
	if cfg.RationaleRatePerSec < 0 {
		cfg.RationaleRatePerSec = 0
	}
	if cfg.RunWorkers <= 0 {
		cfg.RunWorkers = 4
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 5
	}
	if cfg.CandidateScanCap <= 0 {
		cfg.CandidateScanCap = 2000
	}
	if cfg.SnippetBudget <= 0 {
		cfg.SnippetBudget = 600
	}
	if cfg.SourceRetries <= 0 {
		cfg.SourceRetries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 1 * time.Second
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
	if cfg.MaxParagraphTokens <= 0 {
		cfg.MaxParagraphTokens = 1500
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings the HTTP server needs.
func (c Config) Validate() error {
	if c.DocauditAPIKey == "" {
		return fmt.Errorf("DOCAUDIT_API_KEY is required")
	}
	return c.ValidateLocal()
}

// ValidateLocal checks the settings needed to run in-process, without the API.
func (c Config) ValidateLocal() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("STORAGE_DIR is required")
	}
	if !c.RationaleDisabled && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required unless RATIONALE_DISABLED is set")
	}
	return nil
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
