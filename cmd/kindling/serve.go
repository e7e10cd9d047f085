package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okontny/kindling/internal/api"
	"github.com/okontny/kindling/internal/logging"
	"github.com/okontny/kindling/internal/store"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kindling daemon",
	Long:  `Starts the kindling daemon which provides the HTTP API for idea submission, batch processing and review.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	logger := logging.New(cfg.Verbose)
	logger.Info("starting kindling daemon", "version", api.Version)

	stores, err := store.Open(cmd.Context(), store.Options{
		Driver:      cfg.Store.Driver,
		DataDir:     cfg.DataDirPath(),
		PostgresDSN: cfg.Store.PostgresDSN,
	})
	if err != nil {
		return err
	}

	service, err := api.NewServiceFromConfig(cfg, stores, logger)
	if err != nil {
		stores.Close()
		return err
	}
	server := api.NewServer(service, cfg.Listen, logger)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			stores.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := stores.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
