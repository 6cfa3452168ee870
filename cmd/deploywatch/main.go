package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploywatch/deploywatch/internal/config"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "deploywatch",
	Short: "Deployment observability assistant",
	Long: `deploywatch inspects web application source, verifies deployed routes,
classifies build and deploy failures, and suggests fixes.

Route extraction is static (tree-sitter), so target code is never executed.
Fix suggestions use the Anthropic API when ANTHROPIC_API_KEY is set and a
deterministic rule table otherwise.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to deploywatch.yaml (default: ./deploywatch.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit structured JSON instead of human output")
}

// loadConfig resolves configuration or exits; a bad config file is a tool
// error for every command.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
