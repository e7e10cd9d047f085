package main

import (
	"fmt"
	"os"

	"github.com/okontny/kindling/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kindling",
	Short: "Kindling - idea pipeline CLI",
	Long: `Kindling turns free-text ideas into reviewed, structured project notes:
ideas are queued, expanded by a local model, gated by validation and a
human review step, and published on approval.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
	cfgPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:8931", "API server address")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file path (default ~/.kindling/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(ideaCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the --config flag against the default location.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
