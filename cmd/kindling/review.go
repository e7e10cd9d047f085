package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/okontny/kindling/internal/models"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review generated artifacts",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artifacts awaiting review",
	RunE:  runReviewList,
}

var reviewShowCmd = &cobra.Command{
	Use:   "show [artifact-id]",
	Short: "Show a full artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewShow,
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve [artifact-id]",
	Short: "Approve an artifact and publish it",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewApprove,
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject [artifact-id]",
	Short: "Reject an artifact and requeue the idea with correction notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewReject,
}

var (
	rejectNotes string
	rejectRefs  string
)

func init() {
	reviewCmd.AddCommand(reviewListCmd, reviewShowCmd, reviewApproveCmd, reviewRejectCmd)

	reviewRejectCmd.Flags().StringVar(&rejectNotes, "notes", "", "Correction notes for the regenerated idea (required)")
	reviewRejectCmd.Flags().StringVar(&rejectRefs, "refs", "", "Additional context URLs, comma-separated")
	reviewRejectCmd.MarkFlagRequired("notes")
}

func runReviewList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/review")
	if err != nil {
		return err
	}

	var artifacts []models.Artifact
	if err := json.Unmarshal(resp, &artifacts); err != nil {
		return err
	}

	if len(artifacts) == 0 {
		fmt.Println("Nothing awaiting review")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tTAGS\tCREATED")
	for _, a := range artifacts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(a.ID),
			a.Type,
			truncate(a.Title, 40),
			strings.Join(a.CategoryTags, ","),
			a.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
	return nil
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/review/" + args[0])
	if err != nil {
		return err
	}

	var a models.Artifact
	if err := json.Unmarshal(resp, &a); err != nil {
		return err
	}

	fmt.Printf("ID:      %s\n", a.ID)
	fmt.Printf("Idea:    %s\n", a.IdeaID)
	fmt.Printf("Type:    %s\n", a.Type)
	fmt.Printf("Title:   %s\n", a.Title)
	if len(a.CategoryTags) > 0 {
		fmt.Printf("Tags:    %s\n", strings.Join(a.CategoryTags, ", "))
	}
	fmt.Printf("Created: %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	fmt.Printf("\n%s\n", a.Body)

	if len(a.NextActions) > 0 {
		fmt.Println("\nNext Actions:")
		for _, action := range a.NextActions {
			fmt.Printf("  - %s (%s)\n", action.Name, action.Priority)
		}
	}
	if len(a.NextReading) > 0 {
		fmt.Println("\nNext Reading:")
		for _, item := range a.NextReading {
			fmt.Printf("  - %s\n", item)
		}
	}
	return nil
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	if _, err := apiPost("/review/"+args[0]+"/approve", nil); err != nil {
		return err
	}

	fmt.Printf("Approved and published artifact %s\n", args[0])
	return nil
}

func runReviewReject(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"correction_text": rejectNotes,
		"correction_refs": rejectRefs,
	}

	resp, err := apiPost("/review/"+args[0]+"/reject", body)
	if err != nil {
		return err
	}

	var idea models.Idea
	if err := json.Unmarshal(resp, &idea); err != nil {
		return err
	}

	fmt.Printf("Rejected artifact %s\n", args[0])
	fmt.Printf("Requeued as idea %s\n", idea.ID)
	return nil
}
