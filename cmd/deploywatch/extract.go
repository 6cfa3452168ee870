package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	extractFramework     string
	extractMinConfidence float64
)

var extractCmd = &cobra.Command{
	Use:   "extract <path>",
	Short: "Extract HTTP routes from application source",
	Long: `Statically extract HTTP route declarations from a source file or tree.

Framework adapters (flask, fastapi, django, express) are selected by
detection confidence; use --framework to force one.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		extractor := cfg.Extract
		if extractFramework != "" {
			extractor.Hint = extractFramework
		}
		if cmd.Flags().Changed("min-confidence") {
			extractor.MinConfidence = extractMinConfidence
		}

		result, err := extractor.ExtractPath(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(result)
			return
		}

		if len(result.Frameworks) > 0 {
			fmt.Printf("%s\n", yellow("Detected frameworks:"))
			for name, conf := range result.Frameworks {
				fmt.Printf("  %-10s %.2f\n", name, conf)
			}
			fmt.Println()
		}
		printRoutes(result.Routes, result.Duplicates)
		printDiagnostics(result.Diagnostics)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFramework, "framework", "", "Force a specific framework adapter")
	extractCmd.Flags().Float64Var(&extractMinConfidence, "min-confidence", 0.3, "Adapter detection threshold")
	rootCmd.AddCommand(extractCmd)
}
