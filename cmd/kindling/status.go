package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/okontny/kindling/internal/api"
	"github.com/okontny/kindling/internal/probe"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depths and the last batch run",
	RunE:  runStatus,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local environment without the daemon",
	Long:  `Checks model endpoint reachability, store access and publish/notify credentials against the local configuration.`,
	RunE:  runDoctor,
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/status")
	if err != nil {
		return err
	}

	var report api.StatusReport
	if err := json.Unmarshal(resp, &report); err != nil {
		return err
	}

	fmt.Printf("Status:          %s\n", report.Status)
	fmt.Printf("Queued:          %d\n", report.Queued)
	fmt.Printf("Reprocess:       %d\n", report.Reprocess)
	fmt.Printf("Awaiting review: %d\n", report.AwaitingReview)
	fmt.Printf("Errored:         %d\n", report.Errored)

	if report.LastRun != nil {
		fmt.Printf("\nLast run (%s):\n", report.LastRun.FinishedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("  %s\n", report.LastRun.Summary)
	}
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checks := probe.New(cfg).Run(cmd.Context())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
	failed := false
	for _, c := range checks {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Status, c.Detail)
		if c.Status == "error" {
			failed = true
		}
	}
	w.Flush()

	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
