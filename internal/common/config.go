// Package common provides shared configuration, logging, and utilities
// across the application.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment  string             `toml:"environment"` // "development" or "production"
	Server       ServerConfig       `toml:"server"`
	Logging      LoggingConfig      `toml:"logging"`
	QuoteAPI     QuoteAPIConfig     `toml:"quote_api"`
	Browser      BrowserConfig      `toml:"browser"`
	Vision       VisionConfig       `toml:"vision"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Reconcile    ReconcileConfig    `toml:"reconcile"`
	Cache        CacheConfig        `toml:"cache"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// QuoteAPIConfig configures the structured quote API client.
type QuoteAPIConfig struct {
	BaseURL   string `toml:"base_url" validate:"required"`
	APIKey    string `toml:"api_key"`
	Timeout   string `toml:"timeout"`    // e.g. "10s"
	RateLimit int    `toml:"rate_limit"` // requests per second
}

// BrowserConfig configures the shared headless Chrome pool used by the
// vision collection path.
type BrowserConfig struct {
	MaxInstances   int    `toml:"max_instances" validate:"gte=1,lte=20"`
	Headless       bool   `toml:"headless"`
	DisableGPU     bool   `toml:"disable_gpu"`
	NoSandbox      bool   `toml:"no_sandbox"`
	UserAgent      string `toml:"user_agent"`
	Locale         string `toml:"locale"`          // Accept-Language header value
	ViewportWidth  int    `toml:"viewport_width"`  // fixed viewport, px
	ViewportHeight int    `toml:"viewport_height"` // fixed viewport, px
	SettleDelay    string `toml:"settle_delay"`    // wait after navigation, e.g. "2s"
	PageTimeout    string `toml:"page_timeout"`    // overall page-load bound, e.g. "30s"
	CaptureWidth   int    `toml:"capture_width"`   // screenshot clip, px
	CaptureHeight  int    `toml:"capture_height"`  // screenshot clip, px
}

// VisionConfig configures the multimodal extraction model.
type VisionConfig struct {
	Provider    string   `toml:"provider" validate:"oneof=gemini claude"`
	Model       string   `toml:"model"`
	APIKeys     []string `toml:"api_keys"` // tried in order on rate-limit failures
	Timeout     string   `toml:"timeout"`  // per model call, e.g. "60s"
	Temperature float32  `toml:"temperature"`
	// PageURLTemplate is the public finance page opened for non-Korean
	// symbols; %s is replaced with the symbol.
	PageURLTemplate string `toml:"page_url_template"`
	// KoreaPageURLTemplate is used for Korean symbols (6-digit codes or .KS).
	KoreaPageURLTemplate string `toml:"korea_page_url_template"`
}

// OrchestratorConfig bounds each collector independently.
type OrchestratorConfig struct {
	StructuredTimeout string `toml:"structured_timeout"` // e.g. "15s"
	VisionTimeout     string `toml:"vision_timeout"`     // e.g. "90s"
}

// ReconcileConfig holds field-class tolerances and confidence policy knobs.
type ReconcileConfig struct {
	// PriceTolerance is the relative tolerance for price-class fields,
	// absorbing quote-timing skew between sources (0.001 = 0.1%).
	PriceTolerance float64 `toml:"price_tolerance" validate:"gte=0,lt=1"`
	// RatioTolerance is the looser relative tolerance for valuation and
	// statement fields computed from different trailing windows.
	RatioTolerance float64 `toml:"ratio_tolerance" validate:"gte=0,lt=1"`
	// SingleSourceConfidence is the fixed baseline confidence when exactly
	// one source produced data.
	SingleSourceConfidence float64 `toml:"single_source_confidence" validate:"gte=0,lte=1"`
}

// CacheConfig configures the short-TTL unified-record cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Badger directory; empty means in-memory
	TTL     string `toml:"ttl"`  // e.g. "3m"
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8560,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		QuoteAPI: QuoteAPIConfig{
			BaseURL:   "http://localhost:8561",
			Timeout:   "10s",
			RateLimit: 10,
		},
		Browser: BrowserConfig{
			MaxInstances:   2,
			Headless:       true,
			DisableGPU:     true,
			NoSandbox:      true,
			UserAgent:      "CrossQuote/1.0",
			Locale:         "ko-KR,ko;q=0.9,en-US;q=0.8",
			ViewportWidth:  1280,
			ViewportHeight: 1024,
			SettleDelay:    "2s",
			PageTimeout:    "30s",
			CaptureWidth:   1280,
			CaptureHeight:  900,
		},
		Vision: VisionConfig{
			Provider:             "gemini",
			Model:                "gemini-2.0-flash",
			Timeout:              "60s",
			Temperature:          0.1,
			PageURLTemplate:      "https://finance.yahoo.com/quote/%s",
			KoreaPageURLTemplate: "https://finance.naver.com/item/main.naver?code=%s",
		},
		Orchestrator: OrchestratorConfig{
			StructuredTimeout: "15s",
			VisionTimeout:     "90s",
		},
		Reconcile: ReconcileConfig{
			PriceTolerance:         0.001,
			RatioTolerance:         0.02,
			SingleSourceConfidence: 0.5,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "./data/cache",
			TTL:     "3m",
		},
	}
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment variables.
// Later files override earlier ones. Missing files are an error; an empty
// file list returns defaults plus environment overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies CROSSQUOTE_* environment variables over the
// loaded configuration. Secrets are the primary use case so API keys can
// stay out of config files.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CROSSQUOTE_QUOTE_API_URL"); v != "" {
		config.QuoteAPI.BaseURL = v
	}
	if v := os.Getenv("CROSSQUOTE_QUOTE_API_KEY"); v != "" {
		config.QuoteAPI.APIKey = v
	}
	if v := os.Getenv("CROSSQUOTE_VISION_API_KEYS"); v != "" {
		keys := make([]string, 0)
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			config.Vision.APIKeys = keys
		}
	}
	if v := os.Getenv("CROSSQUOTE_VISION_PROVIDER"); v != "" {
		config.Vision.Provider = v
	}
	if v := os.Getenv("CROSSQUOTE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CROSSQUOTE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
// Zero values mean "not set" and leave the config untouched.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks structural constraints and duration syntax.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	durations := map[string]string{
		"quote_api.timeout":               c.QuoteAPI.Timeout,
		"browser.settle_delay":            c.Browser.SettleDelay,
		"browser.page_timeout":            c.Browser.PageTimeout,
		"vision.timeout":                  c.Vision.Timeout,
		"orchestrator.structured_timeout": c.Orchestrator.StructuredTimeout,
		"orchestrator.vision_timeout":     c.Orchestrator.VisionTimeout,
		"cache.ttl":                       c.Cache.TTL,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
	}

	if c.Reconcile.PriceTolerance > c.Reconcile.RatioTolerance {
		return fmt.Errorf("reconcile.price_tolerance (%v) must not exceed reconcile.ratio_tolerance (%v)",
			c.Reconcile.PriceTolerance, c.Reconcile.RatioTolerance)
	}

	return nil
}

// Duration parses a duration string with a fallback for empty or invalid
// values. Config validation already rejects malformed durations, so the
// fallback path only fires for empty strings in practice.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
