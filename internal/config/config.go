// Package config loads deploywatch.yaml and applies defaults and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deploywatch/deploywatch/internal/extract"
	"github.com/deploywatch/deploywatch/internal/notify"
	"github.com/deploywatch/deploywatch/internal/suggest"
	"github.com/deploywatch/deploywatch/internal/verify"
)

// DefaultPath is where the config file is looked up when no --config flag
// is given.
const DefaultPath = "deploywatch.yaml"

// DefaultHistoryPath is the default location of the sqlite history store.
const DefaultHistoryPath = ".deploywatch/history.db"

// ConfigFile is the on-disk YAML structure. Durations are strings so the
// file can say "90s", "10m", or "7d".
type ConfigFile struct {
	Extract ExtractConfig `yaml:"extract"`
	Verify  VerifyConfig  `yaml:"verify"`
	Suggest SuggestConfig `yaml:"suggest"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ExtractConfig controls route extraction.
type ExtractConfig struct {
	MinConfidence float64 `yaml:"min_confidence"` // Adapter detection threshold in [0,1]
	Framework     string  `yaml:"framework"`      // Optional adapter hint (flask, express, ...)
}

// VerifyConfig controls route probing.
type VerifyConfig struct {
	Timeout       string `yaml:"timeout"`        // Per-probe timeout, e.g. "10s"
	MaxConcurrent int    `yaml:"max_concurrent"` // In-flight probe cap
	MinInterval   string `yaml:"min_interval"`   // Minimum delay between probe starts
}

// SuggestConfig controls the suggestion backend.
type SuggestConfig struct {
	Model          string `yaml:"model"`
	MaxRetries     int    `yaml:"max_retries"`
	AttemptTimeout string `yaml:"attempt_timeout"` // e.g. "30s"
	MaxSnippet     int    `yaml:"max_snippet"`
}

// NotifyConfig controls the suppression policy and history store.
type NotifyConfig struct {
	SuppressionWindow string `yaml:"suppression_window"` // e.g. "1h", "7d"
	MaxPerWindow      int    `yaml:"max_per_window"`     // 0 = no global cap
	HistoryPath       string `yaml:"history_path"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Extract extract.Extractor
	Verify  verify.Config
	Suggest suggest.Config
	Notify  ResolvedNotify
}

// ResolvedNotify carries the parsed notification settings.
type ResolvedNotify struct {
	SuppressionWindow time.Duration
	MaxPerWindow      int
	HistoryPath       string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Extract: extract.Extractor{MinConfidence: extract.DefaultMinConfidence},
		Verify:  verify.DefaultConfig(),
		Suggest: suggest.Config{},
		Notify: ResolvedNotify{
			SuppressionWindow: notify.DefaultWindow,
			HistoryPath:       DefaultHistoryPath,
		},
	}
}

// Load reads the config file at path. A missing file is not an error: the
// defaults are returned. An unreadable or invalid file is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cf.ToConfig()
}

// ToConfig resolves the file values over the defaults.
func (cf *ConfigFile) ToConfig() (*Config, error) {
	config := DefaultConfig()

	if cf.Extract.MinConfidence > 0 {
		if cf.Extract.MinConfidence > 1 {
			return nil, fmt.Errorf("invalid min_confidence: %v (must be in [0,1])", cf.Extract.MinConfidence)
		}
		config.Extract.MinConfidence = cf.Extract.MinConfidence
	}
	if cf.Extract.Framework != "" {
		config.Extract.Hint = cf.Extract.Framework
	}

	if cf.Verify.Timeout != "" {
		d, err := parseDuration(cf.Verify.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid verify timeout: %w", err)
		}
		config.Verify.Timeout = d
	}
	if cf.Verify.MaxConcurrent > 0 {
		config.Verify.MaxConcurrent = cf.Verify.MaxConcurrent
	}
	if cf.Verify.MinInterval != "" {
		d, err := parseDuration(cf.Verify.MinInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid verify min_interval: %w", err)
		}
		config.Verify.MinInterval = d
	}

	if cf.Suggest.Model != "" {
		config.Suggest.Model = cf.Suggest.Model
	}
	if cf.Suggest.MaxRetries > 0 {
		retry := suggest.DefaultRetryConfig()
		retry.MaxRetries = cf.Suggest.MaxRetries
		config.Suggest.Retry = retry
	}
	if cf.Suggest.AttemptTimeout != "" {
		d, err := parseDuration(cf.Suggest.AttemptTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid suggest attempt_timeout: %w", err)
		}
		if config.Suggest.Retry.MaxRetries == 0 {
			config.Suggest.Retry = suggest.DefaultRetryConfig()
		}
		config.Suggest.Retry.Timeout = d
	}
	if cf.Suggest.MaxSnippet > 0 {
		config.Suggest.MaxSnippet = cf.Suggest.MaxSnippet
	}

	if cf.Notify.SuppressionWindow != "" {
		d, err := parseDuration(cf.Notify.SuppressionWindow)
		if err != nil {
			return nil, fmt.Errorf("invalid suppression_window: %w", err)
		}
		config.Notify.SuppressionWindow = d
	}
	if cf.Notify.MaxPerWindow > 0 {
		config.Notify.MaxPerWindow = cf.Notify.MaxPerWindow
	}
	if cf.Notify.HistoryPath != "" {
		config.Notify.HistoryPath = cf.Notify.HistoryPath
	}

	return config, nil
}

// ExampleConfig returns a commented template for deploywatch.yaml.
func ExampleConfig() string {
	return `# deploywatch configuration

# Route extraction
extract:
  min_confidence: 0.3     # Adapter detection threshold
  # framework: flask      # Force a single adapter

# Post-deploy route verification
verify:
  timeout: 10s            # Per-probe timeout
  max_concurrent: 4       # In-flight probe cap
  min_interval: 100ms     # Minimum delay between probe starts

# Fix suggestion backend
suggest:
  # model: claude-3-5-haiku-20241022
  max_retries: 3
  attempt_timeout: 30s

# Notification suppression
notify:
  suppression_window: 1h  # Repeats inside this window are suppressed
  max_per_window: 0       # Global cap per window, 0 disables
  history_path: .deploywatch/history.db
`
}

// parseDuration parses duration strings like "30s", "1h", "7d"
func parseDuration(s string) (time.Duration, error) {
	// Handle day suffix
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days := s[:len(s)-1]
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}

	// Use standard time.ParseDuration for other formats
	return time.ParseDuration(s)
}
