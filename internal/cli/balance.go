package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yarda-ai/orchestrator/internal/control"
	"github.com/yarda-ai/orchestrator/internal/core/auth"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Fetch and print the unified credit balance",
	Run:   runBalance,
}

func runBalance(cmd *cobra.Command, args []string) {
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

	bal, err := app.Credits().RefreshNow(ctx)
	if err != nil {
		slog.Error("Balance fetch failed", "error", err)
		os.Exit(1)
	}
	if bal == nil {
		slog.Error("Balance unavailable (not authenticated?)")
		os.Exit(1)
	}

	fmt.Printf("Trial:    %d remaining (%d of %d used)\n", bal.Trial.Remaining, bal.Trial.Used, bal.Trial.TotalGranted)
	fmt.Printf("Tokens:   %d (purchased %d, spent %d, refunded %d)\n",
		bal.Token.Balance, bal.Token.TotalPurchased, bal.Token.TotalSpent, bal.Token.TotalRefunded)
	fmt.Printf("Holiday:  %d credits (earned %d, can generate: %v)\n",
		bal.Holiday.Credits, bal.Holiday.Earned, bal.Holiday.CanGenerate)
	fmt.Printf("Method:   %s\n", auth.Resolve(bal))
}
