// Package pipeline runs one full analysis pass for a build event: route
// extraction, optional post-deploy verification, error classification,
// fix suggestion, and the notification decision, all folded into a single
// Report.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deploywatch/deploywatch/internal/extract"
	"github.com/deploywatch/deploywatch/internal/notify"
	"github.com/deploywatch/deploywatch/internal/signature"
	"github.com/deploywatch/deploywatch/internal/types"
	"github.com/deploywatch/deploywatch/internal/verify"
)

// SuggestionGenerator produces a fix suggestion for a signature. Satisfied
// by *suggest.Generator.
type SuggestionGenerator interface {
	Generate(ctx context.Context, sig *types.ErrorSignature) *types.Suggestion
}

// Input is one build event to analyze.
type Input struct {
	// SourcePath is the application source to extract routes from. Empty
	// skips extraction.
	SourcePath string

	// BaseURL is the deployed base URL to probe. Empty skips verification.
	BaseURL string

	// Build is the build outcome. A failed build's RawLog is classified;
	// a successful build is only route-verified.
	Build types.BuildOutcome

	// CodeSnippet is optional source context forwarded to the suggestion
	// backend.
	CodeSnippet string
}

// Pipeline wires the analysis stages together. Any stage can be left nil
// to skip it; the zero generator and policy degrade rather than fail.
type Pipeline struct {
	Extractor *extract.Extractor
	Verifier  *verify.Verifier
	Engine    *signature.Engine
	Generator SuggestionGenerator
	Policy    *notify.Policy

	// Now is overridable for tests.
	Now func() time.Time
}

// New creates a pipeline with default stages and the given generator and
// policy (either may be nil).
func New(extractor *extract.Extractor, verifyCfg verify.Config, gen SuggestionGenerator, policy *notify.Policy) *Pipeline {
	if extractor == nil {
		extractor = &extract.Extractor{MinConfidence: extract.DefaultMinConfidence}
	}
	return &Pipeline{
		Extractor: extractor,
		Verifier:  verify.New(verifyCfg, http.DefaultClient),
		Engine:    signature.NewEngine(),
		Generator: gen,
		Policy:    policy,
	}
}

// Run executes one analysis pass. It is best-effort: per-file parse
// failures and verification errors become diagnostics or signatures, not
// run failures. Only configuration-level problems (unreadable source root,
// malformed base URL) abort the run.
func (p *Pipeline) Run(ctx context.Context, in Input) (*types.Report, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	report := &types.Report{
		ID:          uuid.New().String(),
		GeneratedAt: now().UTC(),
	}

	if in.SourcePath != "" {
		result, err := p.Extractor.ExtractPath(in.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("failed to extract routes: %w", err)
		}
		report.Routes = result.Routes
		report.Duplicates = result.Duplicates
		report.Diagnostics = result.Diagnostics
	}

	if in.BaseURL != "" && len(report.Routes) > 0 {
		results, err := p.Verifier.Verify(ctx, report.Routes, in.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to verify routes: %w", err)
		}
		report.CheckResults = results
	}

	sig := p.buildSignature(in, report)
	if sig == nil {
		return report, nil
	}
	report.Signature = sig

	// The notification decision must not depend on suggestion success, so
	// it is computed first.
	if p.Policy != nil {
		decision, err := p.Policy.Decide(ctx, sig, now())
		if err != nil {
			report.Diagnostics = append(report.Diagnostics, types.Diagnostic{
				Message: fmt.Sprintf("notification history unavailable: %v", err),
			})
		} else {
			report.Notify = decision
			if err := p.Policy.Record(ctx, sig, decision, now()); err != nil {
				report.Diagnostics = append(report.Diagnostics, types.Diagnostic{
					Message: fmt.Sprintf("failed to record notification history: %v", err),
				})
			}
		}
	}

	if p.Generator != nil {
		report.Suggestion = p.Generator.Generate(ctx, sig)
	}

	return report, nil
}

// buildSignature classifies the failure for this event. A failed build's
// log wins; otherwise failing route checks produce a verification
// signature. Healthy runs have no signature.
func (p *Pipeline) buildSignature(in Input, report *types.Report) *types.ErrorSignature {
	if in.Build.Status == types.BuildFailed && in.Build.RawLog != "" {
		return p.Engine.Build(in.Build.RawLog, in.CodeSnippet)
	}
	return p.Engine.FromCheckResults(report.CheckResults)
}
