package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yarda-ai/orchestrator/internal/control"
	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/orchestration/poller"
)

var (
	genAddress string
	genAreas   []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit a generation and wait for it to finish",
	Long: `Submits a multi-area generation and polls it to completion.

Areas are given as AREA:STYLE or AREA:STYLE:PRESERVATION, e.g.
  orchestrator generate --address "12 Oak St" --area front_yard:modern:0.7 --area back_yard:cottage`,
	Run: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genAddress, "address", "", "property address")
	generateCmd.Flags().StringArrayVar(&genAreas, "area", nil, "area spec AREA:STYLE[:PRESERVATION], repeatable")
}

func parseAreaSpec(s string) (domain.AreaSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return domain.AreaSpec{}, fmt.Errorf("invalid area spec %q, want AREA:STYLE[:PRESERVATION]", s)
	}
	spec := domain.AreaSpec{Area: parts[0], Style: parts[1], PreservationStrength: 0.5}
	if len(parts) == 3 {
		strength, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return domain.AreaSpec{}, fmt.Errorf("invalid preservation strength in %q: %w", s, err)
		}
		spec.PreservationStrength = strength
	}
	return spec, nil
}

func runGenerate(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	areas := make([]domain.AreaSpec, 0, len(genAreas))
	for _, s := range genAreas {
		spec, err := parseAreaSpec(s)
		if err != nil {
			slog.Error("Invalid area", "error", err)
			os.Exit(1)
		}
		areas = append(areas, spec)
	}

	app, err := control.New(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize orchestrator", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, events, err := app.Submit(ctx, genAddress, areas)
	if err != nil {
		slog.Error("Submission failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Generation submitted", "request_id", req.ID)

	for ev := range events {
		switch ev.Kind {
		case poller.EventProgress:
			done := 0
			for _, a := range ev.Request.Areas {
				if a.Status.Terminal() {
					done++
				}
			}
			slog.Info("Progress", "done", done, "total", len(ev.Request.Areas))
		case poller.EventComplete:
			slog.Info("Generation finished", "status", ev.Request.Outcome())
			for _, a := range ev.Request.Areas {
				if a.ImageURL != "" {
					fmt.Printf("%s: %s\n", a.AreaID, a.ImageURL)
				}
				if a.Error != "" {
					fmt.Printf("%s: failed: %s\n", a.AreaID, a.Error)
				}
			}
		case poller.EventError:
			slog.Error("Polling failed", "error", ev.Err)
		case poller.EventTimeout:
			slog.Error("Generation exceeded maximum wait; check history later for results")
		}
	}
}
