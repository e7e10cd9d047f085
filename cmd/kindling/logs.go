package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/okontny/kindling/internal/models"
	"github.com/spf13/cobra"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the processing trail",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "Max entries to show (0 for all)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	url := "/logs"
	if logsLimit > 0 {
		url += "?limit=" + strconv.Itoa(logsLimit)
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var entries []models.LogEntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No log entries")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			truncateID(e.IdeaID),
			e.Message)
	}
	return nil
}
