package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploywatch/deploywatch/internal/notify"
	"github.com/deploywatch/deploywatch/internal/pipeline"
	"github.com/deploywatch/deploywatch/internal/suggest"
	"github.com/deploywatch/deploywatch/internal/types"
)

var (
	runBaseURL     string
	runBuildFailed bool
	runLogFile     string
	runCommit      string
	runBranch      string
)

var runCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Run the full analysis pipeline for one build event",
	Long: `Run every stage for one build: extract routes, probe them against
--base-url if given, classify the failure (from --log when the build
failed, otherwise from failing route checks), generate a fix suggestion,
and decide whether to notify.

Notification history is kept in a local sqlite database so repeats of the
same failure inside the suppression window stay quiet.

Exit code 0 means the pipeline ran; the analyzed build having failed is
data, not a tool error.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		build := types.BuildOutcome{
			Status: types.BuildSuccess,
			Commit: runCommit,
			Branch: runBranch,
		}
		if runBuildFailed {
			build.Status = types.BuildFailed
			raw, err := readInput(runLogFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			build.RawLog = string(raw)
		}

		store, err := notify.OpenSQLite(cfg.Notify.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		policy := notify.NewPolicy(store, cfg.Notify.SuppressionWindow)
		policy.MaxPerWindow = cfg.Notify.MaxPerWindow

		extractor := cfg.Extract
		p := pipeline.New(&extractor, cfg.Verify, suggest.NewGenerator(cfg.Suggest), policy)

		report, err := p.Run(ctx, pipeline.Input{
			SourcePath: args[0],
			BaseURL:    runBaseURL,
			Build:      build,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printReport(report)
	},
}

func init() {
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "Deployed base URL to probe (skips verification when empty)")
	runCmd.Flags().BoolVar(&runBuildFailed, "build-failed", false, "Mark the build as failed and classify its log")
	runCmd.Flags().StringVar(&runLogFile, "log", "", "Build log to classify (stdin when omitted with --build-failed)")
	runCmd.Flags().StringVar(&runCommit, "commit", "", "Commit SHA of the build")
	runCmd.Flags().StringVar(&runBranch, "branch", "", "Branch of the build")
	rootCmd.AddCommand(runCmd)
}
