package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varunch/reviewbot/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate review statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "Sessions:        %d\n", stats.TotalSessions)
	fmt.Fprintf(ui.Out, "Comments posted: %d\n", stats.TotalComments)
	fmt.Fprintf(ui.Out, "Files reviewed:  %d\n", stats.UniqueFiles)

	if len(stats.SessionsByStatus) > 0 {
		fmt.Fprintln(ui.Out)
		for status, count := range stats.SessionsByStatus {
			fmt.Fprintf(ui.Out, "  %-14s %d\n", output.StatusColor(status), count)
		}
	}
	return nil
}
