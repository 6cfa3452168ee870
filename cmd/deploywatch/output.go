package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/deploywatch/deploywatch/internal/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// shortFingerprint abbreviates a fingerprint for display. Externally
// recorded fingerprints can be shorter than the engine's 32 hex chars.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

func printRoutes(routes []types.Route, duplicates []types.Route) {
	fmt.Printf("%s\n", yellow("Routes:"))
	if len(routes) == 0 {
		fmt.Printf("  %s\n", gray("No routes found"))
	}
	for _, r := range routes {
		fmt.Printf("  %-7s %-40s %s\n", cyan(string(r.Method)), r.Path,
			gray(fmt.Sprintf("%s:%d (%s)", r.SourceFile, r.SourceLine, r.Framework)))
	}
	if len(duplicates) > 0 {
		fmt.Printf("\n%s\n", yellow("Duplicates (ignored):"))
		for _, r := range duplicates {
			fmt.Printf("  %-7s %-40s %s\n", string(r.Method), r.Path,
				gray(fmt.Sprintf("%s:%d", r.SourceFile, r.SourceLine)))
		}
	}
}

func printCheckResults(results []types.RouteCheckResult) {
	fmt.Printf("%s\n", yellow("Route checks:"))
	healthy := 0
	for _, r := range results {
		icon, paint := red("✗"), red
		if r.Healthy() {
			icon, paint = green("✓"), green
			healthy++
		}
		detail := string(r.Status)
		if r.HTTPStatus != 0 {
			detail = fmt.Sprintf("%s %d", r.Status, r.HTTPStatus)
		}
		fmt.Printf("  %s %-7s %-40s %s %s\n", icon, string(r.Route.Method), r.Route.Path,
			paint(detail), gray(fmt.Sprintf("%dms", r.LatencyMs)))
	}
	fmt.Printf("\n%d/%d routes healthy\n", healthy, len(results))
}

func printSignature(sig *types.ErrorSignature) {
	fmt.Printf("%s\n", yellow("Error signature:"))
	fmt.Printf("  Category:    %s\n", red(string(sig.Category)))
	fmt.Printf("  Fingerprint: %s\n", sig.Fingerprint)
	if sig.Anchor != "" {
		fmt.Printf("  Anchor:      %s\n", sig.Anchor)
	}
}

func printSuggestion(s *types.Suggestion) {
	source := gray("(rule fallback)")
	if s.GeneratedBy == types.GeneratedByModel {
		source = gray("(model)")
	}
	fmt.Printf("\n%s %s\n", yellow("Suggestion:"), source)
	fmt.Printf("  %s\n", s.Summary)
	fmt.Printf("\n%s\n", s.SuggestedFix)
	fmt.Printf("\n  Confidence: %s\n", string(s.Confidence))
}

func printDecision(d *types.NotificationDecision) {
	fmt.Printf("\n%s ", yellow("Notification:"))
	if d.ShouldNotify {
		fmt.Printf("%s (%s)\n", green("notify"), d.Reason)
	} else {
		fmt.Printf("%s (%s)\n", gray("suppressed"), d.Reason)
	}
}

func printDiagnostics(diags []types.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Printf("\n%s\n", yellow("Diagnostics:"))
	for _, d := range diags {
		fmt.Printf("  %s %s\n", yellow("⚠"), d.String())
	}
}

func printReport(report *types.Report) {
	if jsonOutput {
		printJSON(report)
		return
	}

	fmt.Printf("%s %s\n\n", cyan("Report"), gray(report.ID))
	if len(report.Routes) > 0 || len(report.CheckResults) == 0 {
		printRoutes(report.Routes, report.Duplicates)
		fmt.Println()
	}
	if len(report.CheckResults) > 0 {
		printCheckResults(report.CheckResults)
		fmt.Println()
	}
	if report.Signature != nil {
		printSignature(report.Signature)
	} else {
		fmt.Printf("%s\n", green("No failure detected"))
	}
	if report.Suggestion != nil {
		printSuggestion(report.Suggestion)
	}
	if report.Notify != nil {
		printDecision(report.Notify)
	}
	printDiagnostics(report.Diagnostics)
}
