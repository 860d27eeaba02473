package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varunch/reviewbot/internal/github"
	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/output"
)

var reviewCmd = &cobra.Command{
	Use:   "review <pr-url>",
	Short: "Review a pull request and post validated comments",
	Long: `Review every changed file of a pull request.

Each finding is validated before posting; findings that fail validation,
duplicate an earlier comment, or exceed the comment limits are recorded
as skipped. Re-running the same PR resumes where the last run stopped.

The PR may be given as a full URL or as OWNER/REPO#NUMBER.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(cmd *cobra.Command, prRef string) error {
	repository, prNumber, err := github.ParsePRURL(prRef)
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	reviewer, err := newReviewer(s)
	if err != nil {
		return err
	}

	ui.Info("Reviewing %s#%d", repository, prNumber)
	ui.DryRunMsg("Comments will not be posted")

	summary, err := reviewer.ReviewPR(cmd.Context(), repository, prNumber)
	if err != nil {
		return err
	}

	outcomes, err := s.ListOutcomes(cmd.Context(), summary.SessionID)
	if err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"FILE", "OUTCOME", "CRITICALITY", "DETAIL"})
	for _, o := range outcomes {
		switch o.Kind {
		case models.OutcomeReviewed:
			table.Append([]string{o.FilePath, output.Green("reviewed"), output.CriticalityColor(string(o.Criticality)), o.Issue})
		case models.OutcomeSkipped:
			table.Append([]string{o.FilePath, output.Yellow("skipped"), "", string(o.SkipReason)})
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	ui.Success("Session %s: %d reviewed, %d skipped, %d comments posted",
		summary.SessionID, summary.FilesReviewed, summary.FilesSkipped, summary.CommentsPosted)
	ui.VerboseLog("session status %s for %s#%d", summary.Status, repository, prNumber)

	return nil
}
