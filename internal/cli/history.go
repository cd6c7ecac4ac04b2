package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yarda-ai/orchestrator/internal/control"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent generations",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max records to list")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	app, err := control.New(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize orchestrator", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := app.History().List(ctx, historyLimit)
	if err != nil {
		slog.Error("History lookup failed", "error", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No generations recorded.")
		return
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s  %-10s  %s  (%d areas)",
			rec.SubmittedAt.Format(time.RFC3339), rec.Status, rec.RequestID, len(rec.Areas))
		if rec.ErrorMessage != "" {
			line += "  error: " + rec.ErrorMessage
		}
		fmt.Println(line)
	}
}
