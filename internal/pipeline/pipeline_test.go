package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploywatch/deploywatch/internal/extract"
	"github.com/deploywatch/deploywatch/internal/notify"
	"github.com/deploywatch/deploywatch/internal/signature"
	"github.com/deploywatch/deploywatch/internal/suggest"
	"github.com/deploywatch/deploywatch/internal/types"
	"github.com/deploywatch/deploywatch/internal/verify"
)

const flaskApp = `from flask import Flask
app = Flask(__name__)

@app.route('/health')
def health():
    return 'ok'

@app.route('/users/<int:user_id>')
def get_user(user_id):
    return str(user_id)
`

func writeApp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(flaskApp), 0644))
	return dir
}

// memStore is an in-memory notification history for pipeline tests.
type memStore struct {
	entries map[string]*notify.HistoryEntry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*notify.HistoryEntry)}
}

func (m *memStore) Lookup(_ context.Context, fp string) (*notify.HistoryEntry, error) {
	e, ok := m.entries[fp]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) RecordSeen(_ context.Context, sig *types.ErrorSignature, at time.Time) error {
	if e, ok := m.entries[sig.Fingerprint]; ok {
		e.Category = sig.Category
		e.LastSeen = at
		e.SeenCount++
		return nil
	}
	m.entries[sig.Fingerprint] = &notify.HistoryEntry{
		Fingerprint: sig.Fingerprint,
		Category:    sig.Category,
		FirstSeen:   at,
		LastSeen:    at,
		SeenCount:   1,
	}
	return nil
}

func (m *memStore) RecordNotified(_ context.Context, fp string, at time.Time) error {
	m.entries[fp].LastNotified = at
	return nil
}

func (m *memStore) CountNotifiedSince(_ context.Context, since time.Time) (int, error) {
	n := 0
	for _, e := range m.entries {
		if !e.LastNotified.IsZero() && !e.LastNotified.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Close() error { return nil }

func fallbackGenerator() SuggestionGenerator {
	return suggest.NewGenerator(suggest.Config{APIKey: "", Model: "unused"})
}

func newTestPipeline(store notify.HistoryStore) *Pipeline {
	cfg := verify.DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.MinInterval = time.Millisecond
	return New(nil, cfg, fallbackGenerator(), notify.NewPolicy(store, time.Hour))
}

func TestRunHealthyDeploy(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestPipeline(newMemStore())
	report, err := p.Run(context.Background(), Input{
		SourcePath: writeApp(t),
		BaseURL:    srv.URL,
		Build:      types.BuildOutcome{Status: types.BuildSuccess},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	require.Len(t, report.Routes, 2)
	require.Len(t, report.CheckResults, 2)
	for _, r := range report.CheckResults {
		assert.Equal(t, types.StatusOK, r.Status)
	}
	assert.Nil(t, report.Signature)
	assert.Nil(t, report.Suggestion)
	assert.Nil(t, report.Notify)
}

func TestRunFailedBuildClassifiesAndNotifies(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	p := newTestPipeline(newMemStore())

	rawLog := `Traceback (most recent call last):
  File "app.py", line 12, in <module>
    import flask
ModuleNotFoundError: No module named 'flask'`

	report, err := p.Run(context.Background(), Input{
		Build: types.BuildOutcome{Status: types.BuildFailed, RawLog: rawLog},
	})
	require.NoError(t, err)

	require.NotNil(t, report.Signature)
	assert.Equal(t, types.CategoryImportError, report.Signature.Category)

	require.NotNil(t, report.Suggestion)
	assert.Equal(t, types.GeneratedByFallback, report.Suggestion.GeneratedBy)
	assert.Equal(t, report.Signature.Fingerprint, report.Suggestion.Fingerprint)

	require.NotNil(t, report.Notify)
	assert.True(t, report.Notify.ShouldNotify)
	assert.Equal(t, types.ReasonNewFingerprint, report.Notify.Reason)
}

func TestRunRepeatFailureSuppressed(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	store := newMemStore()
	p := newTestPipeline(store)

	in := Input{Build: types.BuildOutcome{Status: types.BuildFailed, RawLog: "SyntaxError: invalid syntax"}}

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	require.True(t, first.Notify.ShouldNotify)

	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, second.Notify)
	assert.False(t, second.Notify.ShouldNotify)
	assert.Equal(t, types.ReasonRepeatWithinWindow, second.Notify.Reason)
	assert.Equal(t, first.Signature.Fingerprint, second.Signature.Fingerprint)
}

func TestRunFailingRoutesProduceVerificationSignature(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestPipeline(newMemStore())
	report, err := p.Run(context.Background(), Input{
		SourcePath: writeApp(t),
		BaseURL:    srv.URL,
		Build:      types.BuildOutcome{Status: types.BuildSuccess},
	})
	require.NoError(t, err)

	require.NotNil(t, report.Signature)
	assert.Equal(t, types.CategoryRouteVerification, report.Signature.Category)
	require.NotNil(t, report.Notify)
	assert.True(t, report.Notify.ShouldNotify)
}

func TestRunFailedBuildLogWinsOverRouteChecks(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestPipeline(newMemStore())
	report, err := p.Run(context.Background(), Input{
		SourcePath: writeApp(t),
		BaseURL:    srv.URL,
		Build:      types.BuildOutcome{Status: types.BuildFailed, RawLog: "SyntaxError: invalid syntax"},
	})
	require.NoError(t, err)
	require.NotNil(t, report.Signature)
	assert.Equal(t, types.CategorySyntaxError, report.Signature.Category)
}

func TestRunExtractOnly(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	p := newTestPipeline(newMemStore())
	report, err := p.Run(context.Background(), Input{SourcePath: writeApp(t)})
	require.NoError(t, err)
	assert.Len(t, report.Routes, 2)
	assert.Empty(t, report.CheckResults)
	assert.Nil(t, report.Signature)
}

func TestRunNoPolicyStillSuggests(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	engineOnly := &Pipeline{
		Extractor: &extract.Extractor{MinConfidence: extract.DefaultMinConfidence},
		Engine:    signature.NewEngine(),
		Generator: fallbackGenerator(),
	}
	report, err := engineOnly.Run(context.Background(), Input{
		Build: types.BuildOutcome{Status: types.BuildFailed, RawLog: "KeyError: 'DATABASE_URL'"},
	})
	require.NoError(t, err)
	require.NotNil(t, report.Signature)
	require.NotNil(t, report.Suggestion)
	assert.Nil(t, report.Notify)
}
