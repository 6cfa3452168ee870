package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploywatch/deploywatch/internal/notify"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the notification history store",
	Long:  `List recorded error fingerprints with sighting counts and last notification times.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		store, err := notify.OpenSQLite(cfg.Notify.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		entries, err := store.Entries(context.Background(), historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(entries)
			return
		}

		if len(entries) == 0 {
			fmt.Printf("%s\n", gray("No history recorded"))
			return
		}

		fmt.Printf("%s\n", yellow("Error history:"))
		for _, e := range entries {
			notified := gray("never notified")
			if !e.LastNotified.IsZero() {
				notified = fmt.Sprintf("notified %s ago", time.Since(e.LastNotified).Round(time.Minute))
			}
			fmt.Printf("  %s %-26s seen %d× last %s  %s\n",
				cyan(shortFingerprint(e.Fingerprint)), string(e.Category), e.SeenCount,
				e.LastSeen.Format("2006-01-02 15:04"), notified)
		}
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}
