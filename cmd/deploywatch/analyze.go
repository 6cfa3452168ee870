package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploywatch/deploywatch/internal/signature"
	"github.com/deploywatch/deploywatch/internal/suggest"
	"github.com/deploywatch/deploywatch/internal/types"
)

var (
	analyzeLogFile     string
	analyzeSnippetFile string
	analyzeNoSuggest   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify build error text and suggest a fix",
	Long: `Read raw build or deploy error text (stdin by default), classify it into
an error signature, and produce a fix suggestion.

Exit code 0 means the analysis ran; the analyzed build having failed is
the expected input, not a tool error.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		raw, err := readInput(analyzeLogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(raw) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no error text provided (pipe it in or use --log)\n")
			os.Exit(1)
		}

		snippet := ""
		if analyzeSnippetFile != "" {
			data, err := os.ReadFile(analyzeSnippetFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to read snippet: %v\n", err)
				os.Exit(1)
			}
			snippet = string(data)
		}

		sig := signature.NewEngine().Build(string(raw), snippet)

		var suggestion *types.Suggestion
		if !analyzeNoSuggest {
			gen := suggest.NewGenerator(cfg.Suggest)
			suggestion = gen.Generate(ctx, sig)
		}

		if jsonOutput {
			printJSON(struct {
				Signature  *types.ErrorSignature `json:"signature"`
				Suggestion *types.Suggestion     `json:"suggestion,omitempty"`
			}{sig, suggestion})
			return
		}

		printSignature(sig)
		if suggestion != nil {
			printSuggestion(suggestion)
		}
	},
}

// readInput reads the log source: a file path, "-", or stdin when unset.
func readInput(path string) ([]byte, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read log: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeLogFile, "log", "", "Read error text from a file instead of stdin")
	analyzeCmd.Flags().StringVar(&analyzeSnippetFile, "snippet", "", "Source file to include as context for the suggestion")
	analyzeCmd.Flags().BoolVar(&analyzeNoSuggest, "no-suggest", false, "Classify only, skip the fix suggestion")
	rootCmd.AddCommand(analyzeCmd)
}
