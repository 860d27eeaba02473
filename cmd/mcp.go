package cmd

import (
	"github.com/spf13/cobra"

	"github.com/varunch/reviewbot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets agent hosts trigger reviews and inspect session history
natively. Configure with:

  {
    "mcpServers": {
      "reviewbot": { "command": "reviewbot", "args": ["mcp"] }
    }
  }

Available tools: review_pr, list_review_sessions, get_review_session,
review_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		reviewer, err := newReviewer(s)
		if err != nil {
			return err
		}

		return mcp.NewServer(s, reviewer).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
