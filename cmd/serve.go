package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varunch/reviewbot/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the review engine.

  POST /api/v1/reviews       start a review (sync, or async with "async": true)
  GET  /api/v1/reviews       list sessions
  GET  /api/v1/reviews/{id}  one session with per-file outcomes
  GET  /api/v1/stats         aggregate statistics
  GET  /api/v1/health        liveness check

By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := viper.GetInt("port")

		s, err := getStore()
		if err != nil {
			return err
		}

		reviewer, err := newReviewer(s)
		if err != nil {
			return err
		}

		srv := api.NewServer(s, reviewer)

		addr := fmt.Sprintf(":%d", port)
		ui.Info("Serving API at http://localhost%s", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
