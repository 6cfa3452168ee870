// Package suggest produces structured fix suggestions for error
// signatures. The primary path asks a generative backend with retry and
// backoff; when the backend is unavailable or exhausted, a deterministic
// rule table takes over so a suggestion is always produced.
package suggest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/deploywatch/deploywatch/internal/types"
)

const (
	// DefaultModel is the cost-efficient model used for suggestion
	// generation; fix suggestions are a simple task in the tiered sense.
	DefaultModel = "claude-3-5-haiku-20241022"

	// DefaultMaxSnippet bounds the code context sent to the backend.
	DefaultMaxSnippet = 4096

	maxTokens = 1024
)

// GetModel returns the model to use, checking DEPLOYWATCH_MODEL env var first
func GetModel() string {
	if model := os.Getenv("DEPLOYWATCH_MODEL"); model != "" {
		return model
	}
	return DefaultModel
}

// Config holds generator configuration
type Config struct {
	APIKey     string      // Backend API key (if empty, reads ANTHROPIC_API_KEY)
	Model      string      // Model to use (default: DefaultModel)
	Retry      RetryConfig // Retry configuration (defaults if zero)
	MaxSnippet int         // Code context cap in bytes (default: DefaultMaxSnippet)
}

// Generator produces suggestions for error signatures.
type Generator struct {
	model      string
	retry      RetryConfig
	breaker    *CircuitBreaker
	maxSnippet int

	// invoke performs one backend call and returns the raw response text.
	// nil means no credentials were available: fallback-only mode.
	invoke func(ctx context.Context, prompt string) (string, error)
}

// NewGenerator creates a suggestion generator. A missing API key is not an
// error: the generator runs in fallback-only mode, per the contract that
// absent credentials must never crash the tool.
func NewGenerator(cfg Config) *Generator {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	model := cfg.Model
	if model == "" {
		model = GetModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	maxSnippet := cfg.MaxSnippet
	if maxSnippet <= 0 {
		maxSnippet = DefaultMaxSnippet
	}

	g := &Generator{
		model:      model,
		retry:      retry,
		breaker:    NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout),
		maxSnippet: maxSnippet,
	}

	if apiKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(apiKey))
		g.invoke = func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
				Model:     anthropic.Model(g.model),
				MaxTokens: maxTokens,
				Messages: []anthropic.MessageParam{
					anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
				},
			})
			if err != nil {
				return "", err
			}
			var text strings.Builder
			for _, block := range resp.Content {
				if block.Type == "text" {
					text.WriteString(block.Text)
				}
			}
			return text.String(), nil
		}
	}

	return g
}

// HasBackend reports whether a generative backend is configured.
func (g *Generator) HasBackend() bool {
	return g.invoke != nil
}

// Generate produces a suggestion for the signature. It never fails: when
// the backend is absent, exhausted, or returns garbage, the deterministic
// rule fallback is used instead. The caller's context bounds total
// wall-clock time.
func (g *Generator) Generate(ctx context.Context, sig *types.ErrorSignature) *types.Suggestion {
	if g.invoke == nil {
		return Fallback(sig)
	}

	prompt := g.buildPrompt(sig)

	var responseText string
	err := g.retryWithBackoff(ctx, "suggestion", func(attemptCtx context.Context) error {
		text, callErr := g.invoke(attemptCtx, prompt)
		if callErr != nil {
			return callErr
		}
		responseText = text
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: backend unavailable, using rule fallback: %v\n", err)
		return Fallback(sig)
	}

	payload, err := parseSuggestion(responseText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: unparseable backend response, using rule fallback: %v\n", err)
		return Fallback(sig)
	}

	confidence := types.ConfidenceMedium
	if strings.EqualFold(payload.Confidence, "high") {
		confidence = types.ConfidenceHigh
	}

	return &types.Suggestion{
		Fingerprint:  sig.Fingerprint,
		Summary:      payload.Summary,
		SuggestedFix: payload.SuggestedFix,
		Confidence:   confidence,
		GeneratedBy:  types.GeneratedByModel,
		GeneratedAt:  time.Now().UTC(),
	}
}

// buildPrompt constructs the structured prompt for the backend. The code
// snippet is size-capped so payloads stay bounded.
func (g *Generator) buildPrompt(sig *types.ErrorSignature) string {
	snippet := sig.CodeSnippet
	if len(snippet) > g.maxSnippet {
		snippet = snippet[:g.maxSnippet]
	}

	var b strings.Builder
	b.WriteString("You are a deployment debugging assistant. Analyze this build/deploy error and propose a fix.\n\n")
	fmt.Fprintf(&b, "Error category: %s\n", sig.Category)
	fmt.Fprintf(&b, "Error message:\n%s\n", sig.RawMessage)
	if sig.Anchor != "" {
		fmt.Fprintf(&b, "\nFailing location: %s\n", sig.Anchor)
	}
	if snippet != "" {
		fmt.Fprintf(&b, "\nCode context:\n%s\n", snippet)
	}
	b.WriteString(`
Respond with valid JSON only, no markdown formatting:
{
  "summary": "one-sentence diagnosis of the root cause",
  "suggested_fix": "concrete steps or a patch to fix it",
  "confidence": "high or medium"
}
Use "high" only when you are certain of the root cause.`)
	return b.String()
}
