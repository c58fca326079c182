package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/use-agent/serpcheck/models"
)

// Config holds all application configuration.
type Config struct {
	Primary       PrimaryConfig
	Secondary     SecondaryConfig
	StorageTarget models.StorageTarget
	Search        SearchConfig
	Browser       BrowserConfig
	Timeouts      TimeoutConfig
	Log           LogConfig
	Report        ReportConfig
}

// PrimaryConfig holds the PostgreSQL connection parameters.
type PrimaryConfig struct {
	Host     string // default: "localhost"
	Port     int    // default: 5432
	DBName   string // default: "postgres"
	User     string // default: "postgres"
	Password string
	SSLMode  string // default: "disable"
}

// SecondaryConfig holds the Oracle connection parameters.
type SecondaryConfig struct {
	Host     string // default: "localhost"
	Port     int    // default: 1521
	Service  string // default: "xe"
	User     string // default: "system"
	Password string
}

// SearchConfig describes what the suite searches for and what it expects.
type SearchConfig struct {
	// URL is the search engine start page.
	URL string // default: "https://www.google.com?hl=en"

	// Query is typed into the search box.
	Query string // default: "Domino's"

	// Spellings are the case-sensitive literals the landing page must contain.
	// The first one, normalized, is the term video titles must contain.
	Spellings []string // default: ["Domino's", "Dominos"]

	// VideoPattern is the href substring identifying related video links.
	VideoPattern string // default: "youtube.com/watch"

	// SideFile persists the sponsored URL between invocations.
	SideFile string // default: "sponsored_url.txt"

	// ScreenshotDir enables debug screenshots when non-empty.
	ScreenshotDir string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// BlockedResourceTypes lists resource types to block.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// TimeoutConfig bounds every blocking wait.
type TimeoutConfig struct {
	// Element is the wait for an ordinary UI element to appear.
	Element time.Duration // default: 15s

	// Sponsored is the wait for the first sponsored result.
	Sponsored time.Duration // default: 60s

	// Prompt is the wait for the optional location prompt.
	Prompt time.Duration // default: 5s

	// HTTP is the deadline for a single HTTP fetch.
	HTTP time.Duration // default: 30s

	// Navigation is the wait for a click or submit to load the next page.
	Navigation time.Duration // default: 30s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// ReportConfig controls where run summaries go besides the terminal.
type ReportConfig struct {
	// MetricsFile is a Prometheus textfile written after each run.
	MetricsFile string

	// WebhookURL receives the run summary as JSON.
	WebhookURL string

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first; variables already
// present in the environment take precedence. The only hard failure is an
// invalid STORAGE_TARGET.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	target, err := models.ParseStorageTarget(envOr("STORAGE_TARGET", "0"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Primary: PrimaryConfig{
			Host:     envOr("PRIMARY_HOST", "localhost"),
			Port:     envIntOr("PRIMARY_PORT", 5432),
			DBName:   envOr("PRIMARY_DBNAME", "postgres"),
			User:     envOr("PRIMARY_USER", "postgres"),
			Password: os.Getenv("PRIMARY_PASSWORD"),
			SSLMode:  envOr("PRIMARY_SSLMODE", "disable"),
		},
		Secondary: SecondaryConfig{
			Host:     envOr("SECONDARY_HOST", "localhost"),
			Port:     envIntOr("SECONDARY_PORT", 1521),
			Service:  envOr("SECONDARY_SERVICE", "xe"),
			User:     envOr("SECONDARY_USER", "system"),
			Password: os.Getenv("SECONDARY_PASSWORD"),
		},
		StorageTarget: target,
		Search: SearchConfig{
			URL:           envOr("SERPCHECK_SEARCH_URL", "https://www.google.com?hl=en"),
			Query:         envOr("SERPCHECK_QUERY", "Domino's"),
			Spellings:     envSliceOr("SERPCHECK_TERM_SPELLINGS", []string{"Domino's", "Dominos"}),
			VideoPattern:  envOr("SERPCHECK_VIDEO_PATTERN", "youtube.com/watch"),
			SideFile:      envOr("SERPCHECK_SIDE_FILE", "sponsored_url.txt"),
			ScreenshotDir: os.Getenv("SERPCHECK_SCREENSHOT_DIR"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("SERPCHECK_HEADLESS", true),
			NoSandbox:            envBoolOr("SERPCHECK_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("SERPCHECK_BROWSER_BIN"),
			Proxy:                os.Getenv("SERPCHECK_PROXY"),
			BlockedResourceTypes: envSliceOr("SERPCHECK_BLOCKED_RESOURCES", []string{"Font", "Media"}),
		},
		Timeouts: TimeoutConfig{
			Element:    envDurationOr("SERPCHECK_ELEMENT_TIMEOUT", 15*time.Second),
			Sponsored:  envDurationOr("SERPCHECK_SPONSORED_TIMEOUT", 60*time.Second),
			Prompt:     envDurationOr("SERPCHECK_PROMPT_TIMEOUT", 5*time.Second),
			HTTP:       envDurationOr("SERPCHECK_HTTP_TIMEOUT", 30*time.Second),
			Navigation: envDurationOr("SERPCHECK_NAVIGATION_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("SERPCHECK_LOG_LEVEL", "info"),
			Format: envOr("SERPCHECK_LOG_FORMAT", "text"),
		},
		Report: ReportConfig{
			MetricsFile:   os.Getenv("SERPCHECK_METRICS_FILE"),
			WebhookURL:    os.Getenv("SERPCHECK_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("SERPCHECK_WEBHOOK_SECRET"),
		},
	}, nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
