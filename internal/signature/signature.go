// Package signature normalizes raw build and runtime errors into stable
// fingerprints and coarse categories. The fingerprint is the key that
// suggestion history and notification dedupe hang off.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/deploywatch/deploywatch/internal/types"
)

// DefaultMaxSnippet bounds the code excerpt carried on a signature.
const DefaultMaxSnippet = 2048

// Classification rules, first match wins. Specific markers come before
// the generic runtime fallback.
var categoryRules = []struct {
	category types.Category
	markers  []string
}{
	{types.CategorySyntaxError, []string{
		"SyntaxError", "IndentationError", "invalid syntax",
		"Unexpected token", "Unexpected end of input", "ParseError",
	}},
	{types.CategoryImportError, []string{
		"ModuleNotFoundError", "ImportError", "No module named",
		"Cannot find module", "MODULE_NOT_FOUND",
	}},
	{types.CategoryConfigError, []string{
		"Missing environment variable", "EnvironmentError",
		"configuration error", "Invalid configuration", "EADDRINUSE",
		"missing required setting",
	}},
	{types.CategoryDependencyError, []string{
		"Could not find a version", "version conflict", "npm ERR!",
		"ERESOLVE", "ResolutionImpossible", "incompatible with",
	}},
	{types.CategoryRouteVerification, []string{
		"route verification failed",
	}},
	{types.CategoryRuntimeError, []string{
		"Traceback (most recent call last)", "Error:", "Exception",
		"panic:", "FATAL",
	}},
}

// Engine turns raw error text into ErrorSignatures.
type Engine struct {
	// MaxSnippet bounds the stored code excerpt. Zero means
	// DefaultMaxSnippet.
	MaxSnippet int
}

// NewEngine creates an Engine with default limits
func NewEngine() *Engine {
	return &Engine{MaxSnippet: DefaultMaxSnippet}
}

// Build normalizes raw error text into a signature. It never fails:
// unclassifiable input maps to CategoryUnknown.
func (e *Engine) Build(raw, snippet string) *types.ErrorSignature {
	raw = strings.TrimSpace(raw)

	anchor, hasAppFrame := anchorFrame(raw)
	category := classify(raw)

	// An error with frames but none in application code is the
	// dependency's fault, whatever its surface shape.
	if !hasAppFrame && anchor.Raw != "" {
		category = types.CategoryDependencyError
	}

	anchorText := ""
	if anchor.Raw != "" {
		anchorText = skeleton(anchor.Raw)
	}

	msg := messageSkeleton(raw)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", category, anchorText, msg)
	fingerprint := hex.EncodeToString(h.Sum(nil))[:32]

	maxSnippet := e.MaxSnippet
	if maxSnippet <= 0 {
		maxSnippet = DefaultMaxSnippet
	}
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	return &types.ErrorSignature{
		Category:    category,
		Fingerprint: fingerprint,
		RawMessage:  raw,
		Anchor:      anchorText,
		CodeSnippet: snippet,
		OccurredAt:  time.Now().UTC(),
	}
}

// FromCheckResults synthesizes a signature for failed route verification.
// The fingerprint covers the sorted set of failing (method, path, status)
// triples, so the same broken deploy fingerprints identically run to run.
func (e *Engine) FromCheckResults(results []types.RouteCheckResult) *types.ErrorSignature {
	var failing []string
	for _, r := range results {
		if !r.Healthy() {
			failing = append(failing, fmt.Sprintf("%s %s -> %s %d", r.Route.Method, r.Route.Path, r.Status, r.HTTPStatus))
		}
	}
	if len(failing) == 0 {
		return nil
	}
	sort.Strings(failing)

	raw := "route verification failed:\n  " + strings.Join(failing, "\n  ")

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s", types.CategoryRouteVerification, strings.Join(failing, "\n"))
	return &types.ErrorSignature{
		Category:    types.CategoryRouteVerification,
		Fingerprint: hex.EncodeToString(h.Sum(nil))[:32],
		RawMessage:  raw,
		OccurredAt:  time.Now().UTC(),
	}
}

// classify applies the ordered rule set to raw error text.
func classify(raw string) types.Category {
	for _, rule := range categoryRules {
		for _, marker := range rule.markers {
			if strings.Contains(raw, marker) {
				return rule.category
			}
		}
	}
	return types.CategoryUnknown
}

// messageSkeleton picks the line that names the error (for Python
// tracebacks the final "SomeError: ..." line, otherwise the first
// non-empty line) and reduces it to hash-stable form.
func messageSkeleton(raw string) string {
	lines := strings.Split(raw, "\n")

	// Scan bottom-up for the error-naming line
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if looksLikeErrorLine(line) {
			return skeleton(line)
		}
	}

	for _, line := range lines {
		if s := strings.TrimSpace(line); s != "" {
			return skeleton(s)
		}
	}
	return ""
}

func looksLikeErrorLine(line string) bool {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return false
	}
	head := line[:idx]
	return strings.HasSuffix(head, "Error") ||
		strings.HasSuffix(head, "Exception") ||
		strings.HasSuffix(head, "Warning") ||
		head == "panic"
}
