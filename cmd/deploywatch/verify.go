package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploywatch/deploywatch/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <path> <base-url>",
	Short: "Probe extracted routes against a deployed base URL",
	Long: `Extract routes from source and send one probe per route to the deployed
application. Path parameters are filled with synthetic values.

The exit code reflects tool success, not route health; inspect the output
or --json record for failing routes.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := cfg.Extract.ExtractPath(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(result.Routes) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no routes found in %s\n", args[0])
			os.Exit(1)
		}

		verifier := verify.New(cfg.Verify, http.DefaultClient)
		checks, err := verifier.Verify(ctx, result.Routes, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(checks)
			return
		}
		printCheckResults(checks)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
