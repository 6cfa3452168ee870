package types

import (
	"fmt"
	"time"
)

// Category classifies an error into a coarse bucket used for severity
// gating and fallback suggestions.
type Category string

const (
	CategorySyntaxError     Category = "SyntaxError"
	CategoryImportError     Category = "ImportError"
	CategoryRuntimeError    Category = "RuntimeError"
	CategoryConfigError     Category = "ConfigError"
	CategoryDependencyError Category = "DependencyError"
	// CategoryRouteVerification marks failures synthesized from
	// post-deploy route probes rather than build logs.
	CategoryRouteVerification Category = "RouteVerificationFailure"
	CategoryUnknown           Category = "Unknown"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategorySyntaxError, CategoryImportError, CategoryRuntimeError,
		CategoryConfigError, CategoryDependencyError, CategoryRouteVerification,
		CategoryUnknown:
		return true
	}
	return false
}

// Severity returns the rank used by the notification policy's escalation
// gate. Higher means worse. Build-breaking categories outrank degraded
// ones; Unknown ranks lowest.
func (c Category) Severity() int {
	switch c {
	case CategorySyntaxError:
		return 6
	case CategoryRuntimeError:
		return 5
	case CategoryImportError:
		return 4
	case CategoryConfigError:
		return 3
	case CategoryDependencyError:
		return 2
	case CategoryRouteVerification:
		return 1
	default:
		return 0
	}
}

// ErrorSignature is the stable identity of a class of failure. Two errors
// with the same underlying cause normalize to the same fingerprint even
// when their raw text differs in volatile substrings (addresses,
// timestamps, random IDs).
type ErrorSignature struct {
	Category    Category  `json:"category"`
	Fingerprint string    `json:"fingerprint"`
	RawMessage  string    `json:"raw_message"`
	// Anchor is the normalized application-code line the fingerprint is
	// derived from (top app frame, or first frame for dependency errors).
	Anchor      string    `json:"anchor,omitempty"`
	CodeSnippet string    `json:"code_snippet,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Validate checks if the signature has valid field values
func (s *ErrorSignature) Validate() error {
	if !s.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", s.Category)
	}
	if s.Fingerprint == "" {
		return fmt.Errorf("fingerprint is required")
	}
	return nil
}

// Confidence expresses how much trust to place in a suggestion.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	// ConfidenceLow is always used for rule-fallback suggestions
	ConfidenceLow Confidence = "low"
)

// IsValid checks if the confidence value is valid
func (c Confidence) IsValid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// Generator identifies which path produced a suggestion.
type Generator string

const (
	GeneratedByModel    Generator = "model"
	GeneratedByFallback Generator = "rule_fallback"
)

// Suggestion is a structured, actionable fix proposal for one failure
// occurrence. Produced once per distinct occurrence; never mutated.
type Suggestion struct {
	Fingerprint  string     `json:"fingerprint"`
	Summary      string     `json:"summary"`
	SuggestedFix string     `json:"suggested_fix"`
	Confidence   Confidence `json:"confidence"`
	GeneratedBy  Generator  `json:"generated_by"`
	GeneratedAt  time.Time  `json:"generated_at"`
}

// NotifyReason explains a notification decision.
type NotifyReason string

const (
	// ReasonNewFingerprint: first time this failure class has been seen
	ReasonNewFingerprint NotifyReason = "new_fingerprint"
	// ReasonSeverityEscalated: seen before, but the category severity
	// increased since the last notification
	ReasonSeverityEscalated NotifyReason = "severity_escalated"
	// ReasonRepeatWithinWindow: suppressed, repeat inside the window
	ReasonRepeatWithinWindow NotifyReason = "repeat_within_window"
	// ReasonWindowExpired: repeat, but the suppression window has lapsed
	ReasonWindowExpired NotifyReason = "window_expired"
	// ReasonRateLimited: suppressed by the global notification cap
	ReasonRateLimited NotifyReason = "rate_limited"
)

// NotificationDecision says whether this occurrence should surface to a
// human, and why. Stateless output; the caller persists last-notified
// times when ShouldNotify is true.
type NotificationDecision struct {
	ShouldNotify bool         `json:"should_notify"`
	Reason       NotifyReason `json:"reason"`
	Fingerprint  string       `json:"fingerprint"`
}
