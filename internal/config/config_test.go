package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploywatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Extract.MinConfidence)
	assert.Equal(t, 10*time.Second, cfg.Verify.Timeout)
	assert.Equal(t, time.Hour, cfg.Notify.SuppressionWindow)
	assert.Equal(t, DefaultHistoryPath, cfg.Notify.HistoryPath)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
extract:
  min_confidence: 0.5
  framework: flask
verify:
  timeout: 5s
  max_concurrent: 8
  min_interval: 250ms
suggest:
  model: claude-sonnet-4-20250514
  max_retries: 5
  attempt_timeout: 90s
notify:
  suppression_window: 7d
  max_per_window: 10
  history_path: /tmp/dw/history.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Extract.MinConfidence)
	assert.Equal(t, "flask", cfg.Extract.Hint)
	assert.Equal(t, 5*time.Second, cfg.Verify.Timeout)
	assert.Equal(t, 8, cfg.Verify.MaxConcurrent)
	assert.Equal(t, 250*time.Millisecond, cfg.Verify.MinInterval)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Suggest.Model)
	assert.Equal(t, 5, cfg.Suggest.Retry.MaxRetries)
	assert.Equal(t, 90*time.Second, cfg.Suggest.Retry.Timeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Notify.SuppressionWindow)
	assert.Equal(t, 10, cfg.Notify.MaxPerWindow)
	assert.Equal(t, "/tmp/dw/history.db", cfg.Notify.HistoryPath)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
notify:
  suppression_window: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Notify.SuppressionWindow)
	assert.Equal(t, 10*time.Second, cfg.Verify.Timeout)
	assert.Equal(t, 0.3, cfg.Extract.MinConfidence)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "verify: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadInvalidDuration(t *testing.T) {
	path := writeConfig(t, `
verify:
  timeout: soon
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestLoadInvalidConfidence(t *testing.T) {
	path := writeConfig(t, `
extract:
  min_confidence: 1.5
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"10m", 10 * time.Minute, false},
		{"1h", time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"xd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}
