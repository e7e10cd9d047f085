package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/okontny/kindling/internal/models"
	"github.com/spf13/cobra"
)

var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "Manage ideas",
}

var ideaAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a new idea",
	RunE:  runIdeaAdd,
}

var ideaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ideas",
	RunE:  runIdeaList,
}

var ideaShowCmd = &cobra.Command{
	Use:   "show [idea-id]",
	Short: "Show idea details",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeaShow,
}

var ideaDeleteCmd = &cobra.Command{
	Use:   "delete [idea-id]",
	Short: "Delete an idea",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeaDelete,
}

var (
	ideaText   string
	ideaRefs   string
	ideaStatus string
)

func init() {
	ideaCmd.AddCommand(ideaAddCmd, ideaListCmd, ideaShowCmd, ideaDeleteCmd)

	ideaAddCmd.Flags().StringVar(&ideaText, "text", "", "Idea text (required)")
	ideaAddCmd.Flags().StringVar(&ideaRefs, "refs", "", "Comma-separated context URLs")
	ideaAddCmd.MarkFlagRequired("text")

	ideaListCmd.Flags().StringVar(&ideaStatus, "status", "", "Filter by status (queued, reprocess, awaiting_review, error, approved, rejected)")
}

func runIdeaAdd(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"text":         ideaText,
		"context_refs": ideaRefs,
	}

	resp, err := apiPost("/ideas", body)
	if err != nil {
		return err
	}

	var idea models.Idea
	if err := json.Unmarshal(resp, &idea); err != nil {
		return err
	}

	fmt.Printf("Queued idea: %s\n", idea.ID)
	return nil
}

func runIdeaList(cmd *cobra.Command, args []string) error {
	url := "/ideas"
	if ideaStatus != "" {
		url += "?status=" + ideaStatus
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var ideas []models.Idea
	if err := json.Unmarshal(resp, &ideas); err != nil {
		return err
	}

	if len(ideas) == 0 {
		fmt.Println("No ideas found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tTEXT")
	for _, idea := range ideas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncateID(idea.ID),
			idea.Status,
			idea.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(idea.Text, 60))
	}
	w.Flush()
	return nil
}

func runIdeaShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/ideas/" + args[0])
	if err != nil {
		return err
	}

	var idea models.Idea
	if err := json.Unmarshal(resp, &idea); err != nil {
		return err
	}

	fmt.Printf("ID:      %s\n", idea.ID)
	fmt.Printf("Status:  %s\n", idea.Status)
	fmt.Printf("Created: %s\n", idea.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if idea.ContextRefs != "" {
		fmt.Printf("Refs:    %s\n", idea.ContextRefs)
	}
	fmt.Printf("\n%s\n", idea.Text)
	return nil
}

func runIdeaDelete(cmd *cobra.Command, args []string) error {
	if err := apiDelete("/ideas/" + args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted idea %s\n", args[0])
	return nil
}

// --- Helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
