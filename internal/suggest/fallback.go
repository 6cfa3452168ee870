package suggest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/deploywatch/deploywatch/internal/types"
)

// fallbackEntry is one row of the deterministic suggestion table.
type fallbackEntry struct {
	summary string
	steps   []string
}

// fallbackTable maps error categories to fixed guidance. Used whenever the
// generative backend is absent or exhausted.
var fallbackTable = map[types.Category]fallbackEntry{
	types.CategorySyntaxError: {
		summary: "The source fails to parse, so the build cannot start.",
		steps: []string{
			"Check for missing parentheses, brackets, quotes, or colons%s",
			"Verify indentation is consistent (tabs vs spaces)",
			"Look for unclosed code blocks above the reported location",
		},
	},
	types.CategoryImportError: {
		summary: "A required module cannot be imported.",
		steps: []string{
			"Verify the module is declared in requirements.txt / package.json and installed",
			"Check the module name for typos (install names can differ from import names)",
			"Ensure the deploy environment installs dependencies before starting the app",
		},
	},
	types.CategoryRuntimeError: {
		summary: "The application crashed while running.",
		steps: []string{
			"Read the final error line for the specific failing operation%s",
			"Check variables and arguments near the failing location for unexpected types or values",
			"Review the most recent code changes touching that code path",
		},
	},
	types.CategoryConfigError: {
		summary: "The application is missing or misreading configuration.",
		steps: []string{
			"Confirm all required environment variables are set in the deploy environment",
			"Compare configuration keys against the example/defaults file",
			"Check for port or address conflicts on the target host",
		},
	},
	types.CategoryDependencyError: {
		summary: "A third-party dependency failed to resolve or behaved unexpectedly.",
		steps: []string{
			"Pin the dependency to a known-good version and rebuild",
			"Check for version conflicts between transitively required packages",
			"Clear the dependency cache in CI and reinstall from scratch",
		},
	},
	types.CategoryRouteVerification: {
		summary: "Deployed routes did not respond as expected.",
		steps: []string{
			"Confirm the deployed revision matches the commit that was built",
			"Check the application logs on the target for startup errors",
			"Verify the base URL and that the service finished cold-starting",
		},
	},
	types.CategoryUnknown: {
		summary: "The failure did not match a known pattern.",
		steps: []string{
			"Read the raw log around the first error line for specific clues",
			"Review recent changes that might have introduced the failure",
			"Re-run the build to rule out a transient infrastructure problem",
		},
	},
}

var lineHintRe = regexp.MustCompile(`line (\d+)`)

// Fallback produces a deterministic rule-based suggestion for a signature.
// Confidence is always Low and GeneratedBy is RuleFallback.
func Fallback(sig *types.ErrorSignature) *types.Suggestion {
	entry, ok := fallbackTable[sig.Category]
	if !ok {
		entry = fallbackTable[types.CategoryUnknown]
	}

	// When the raw error names a line, point the first step at it
	lineHint := ""
	if m := lineHintRe.FindStringSubmatch(sig.RawMessage); m != nil {
		lineHint = fmt.Sprintf(" near line %s", m[1])
	}

	steps := make([]string, len(entry.steps))
	for i, s := range entry.steps {
		if strings.Contains(s, "%s") {
			steps[i] = fmt.Sprintf(s, lineHint)
		} else {
			steps[i] = s
		}
	}

	return &types.Suggestion{
		Fingerprint:  sig.Fingerprint,
		Summary:      entry.summary,
		SuggestedFix: "- " + strings.Join(steps, "\n- "),
		Confidence:   types.ConfidenceLow,
		GeneratedBy:  types.GeneratedByFallback,
		GeneratedAt:  time.Now().UTC(),
	}
}
