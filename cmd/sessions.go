package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/output"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List review sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session with its per-file outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsShowRun(cmd, args[0])
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to list")
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsListRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sessions, err := s.ListSessions(cmd.Context(), sessionsLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		ui.Info("No review sessions yet. Run 'reviewbot review <pr-url>' to start one.")
		return nil
	}

	table := ui.Table([]string{"ID", "REPOSITORY", "PR", "STATUS", "REVIEWED", "COMMENTS", "UPDATED"})
	for _, sess := range sessions {
		table.Append([]string{
			sess.ID,
			sess.Repository,
			strconv.Itoa(sess.PRNumber),
			output.StatusColor(string(sess.Status)),
			strconv.Itoa(sess.FilesReviewed),
			strconv.Itoa(sess.CommentsPosted),
			sess.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}

func sessionsShowRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sess, err := s.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s#%d  %s\n", sess.ID, sess.Repository, sess.PRNumber, output.StatusColor(string(sess.Status)))
	if sess.Title != "" {
		fmt.Fprintf(ui.Out, "%s\n", sess.Title)
	}
	if sess.FinalSummary != "" {
		fmt.Fprintf(ui.Out, "%s\n", sess.FinalSummary)
	}
	fmt.Fprintln(ui.Out)

	outcomes, err := s.ListOutcomes(cmd.Context(), id)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		ui.Info("No files resolved yet")
		return nil
	}

	table := ui.Table([]string{"FILE", "OUTCOME", "CRITICALITY", "DETAIL", "COMMENT"})
	for _, o := range outcomes {
		switch o.Kind {
		case models.OutcomeReviewed:
			table.Append([]string{o.FilePath, output.Green("reviewed"), output.CriticalityColor(string(o.Criticality)), o.Issue, o.CommentRef})
		case models.OutcomeSkipped:
			table.Append([]string{o.FilePath, output.Yellow("skipped"), "", string(o.SkipReason), ""})
		}
	}
	return table.Render()
}
