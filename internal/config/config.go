package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

type Config struct {
	LogLevel  string
	LogFormat string

	WorkspaceDir  string
	InboxDir      string
	MasterDir     string
	SurveyDir     string
	DashboardPath string
	TaxonomyPath  string

	SniffBytes        int
	BatchConcurrency  int
	ConvertManuals    bool
	OverwriteExisting bool

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	ClassifierTimeout       time.Duration
	ClassifierRatePerMinute int

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerOpenTimeout  time.Duration

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	MetricsTextfile string
}

func Load() Config {
	return Config{
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "auto"),

		WorkspaceDir:  mustEnv("WORKSPACE_DIR", "."),
		InboxDir:      mustEnv("INBOX_DIR", "00_INBOX_UNPROCESSED"),
		MasterDir:     mustEnv("MASTER_DIR", "01_Curriculum_Master_Data"),
		SurveyDir:     mustEnv("SURVEY_DIR", "02_Survey_Data"),
		DashboardPath: mustEnv("DASHBOARD_PATH", "DASHBOARD.md"),
		TaxonomyPath:  mustEnv("TAXONOMY_PATH", ""),

		SniffBytes:        mustEnvInt("SNIFF_BYTES", 2000),
		BatchConcurrency:  mustEnvInt("BATCH_CONCURRENCY", 1),
		ConvertManuals:    mustEnvBool("CONVERT_MANUALS", true),
		OverwriteExisting: mustEnvBool("OVERWRITE_EXISTING", true),

		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL: mustEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:   mustEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		ClassifierTimeout:       mustEnvSeconds("CLASSIFIER_TIMEOUT_SECONDS", 60*time.Second),
		ClassifierRatePerMinute: mustEnvInt("CLASSIFIER_RATE_PER_MINUTE", 15),

		RetryMaxAttempts:    mustEnvInt("CLASSIFIER_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: mustEnvDuration("CLASSIFIER_RETRY_INITIAL_BACKOFF", 500*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("CLASSIFIER_RETRY_MAX_BACKOFF", 4*time.Second),
		BreakerEnabled:      mustEnvBool("CLASSIFIER_BREAKER_ENABLED", true),
		BreakerMinRequests:  mustEnvInt("CLASSIFIER_BREAKER_MIN_REQUESTS", 5),
		BreakerOpenTimeout:  mustEnvDuration("CLASSIFIER_BREAKER_OPEN_TIMEOUT", 30*time.Second),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "curriculum.archived"),

		MetricsTextfile: mustEnv("METRICS_TEXTFILE", ""),
	}
}

func (c Config) Layout() domain.ArchiveLayout {
	return domain.ArchiveLayout{
		Workspace: c.WorkspaceDir,
		MasterDir: c.MasterDir,
		SurveyDir: c.SurveyDir,
	}
}

func (c Config) GatewayEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Resolve anchors a relative path at the workspace directory.
func (c Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkspaceDir, path)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvSeconds(key string, fallback time.Duration) time.Duration {
	n := mustEnvInt(key, -1)
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
