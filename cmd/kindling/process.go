package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/okontny/kindling/internal/api"
	"github.com/okontny/kindling/internal/logging"
	"github.com/okontny/kindling/internal/store"
	"github.com/spf13/cobra"
)

var (
	processRounds    int
	processBatchSize int
	processCooldown  int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run one batch of idea processing",
	Long: `Runs one batch of idea processing directly against the configured stores,
without the daemon. This is the command an external scheduler invokes.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().IntVar(&processRounds, "rounds", 0, "Max rounds for this run (overrides config)")
	processCmd.Flags().IntVar(&processBatchSize, "batch-size", 0, "Ideas per round (overrides config)")
	processCmd.Flags().IntVar(&processCooldown, "cooldown", 0, "Seconds between rounds (overrides config)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		DataDir:     cfg.DataDirPath(),
		PostgresDSN: cfg.Store.PostgresDSN,
	})
	if err != nil {
		return err
	}
	defer stores.Close()

	service, err := api.NewServiceFromConfig(cfg, stores, logger)
	if err != nil {
		return err
	}

	summary, err := service.RunBatch(ctx, api.RunOverrides{
		Rounds:    processRounds,
		BatchSize: processBatchSize,
		Cooldown:  time.Duration(processCooldown) * time.Second,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Rounds:      %d\n", summary.Rounds)
	fmt.Printf("Processed:   %d\n", summary.Processed)
	fmt.Printf("Stored:      %d\n", summary.Stored)
	fmt.Printf("Reprocessed: %d\n", summary.Reprocessed)
	fmt.Printf("Failed:      %d\n", summary.Failed)
	return nil
}
