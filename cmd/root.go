package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varunch/reviewbot/internal/github"
	"github.com/varunch/reviewbot/internal/llm"
	"github.com/varunch/reviewbot/internal/output"
	"github.com/varunch/reviewbot/internal/review"
	"github.com/varunch/reviewbot/internal/selector"
	"github.com/varunch/reviewbot/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reviewbot",
	Short: "AI code review for pull requests with validated, deduplicated comments",
	Long: `reviewbot reviews pull requests with an LLM, validates every finding
against the diff before posting, and remembers what it already said so
re-runs resume instead of repeating themselves.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Review without posting comments")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/reviewbot/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "reviewbot")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REVIEWBOT")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "reviewbot")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "reviewbot.db"))
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("review.max_retries", review.DefaultMaxRetries)
	viper.SetDefault("review.min_confidence", review.DefaultMinConfidence)
	viper.SetDefault("review.max_comments_per_file", review.DefaultMaxCommentsPerFile)
	viper.SetDefault("review.max_comments_per_session", review.DefaultMaxCommentsPerSession)
	viper.SetDefault("review.max_transient_retries", review.DefaultMaxTransientRetries)
	viper.SetDefault("review.duplicate_threshold", review.DefaultDuplicateThreshold)
	viper.SetDefault("port", 8080)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newReviewer assembles the full review pipeline over the shared store.
// With --dry-run nothing is posted; outcomes are still recorded.
func newReviewer(s store.Store) (*review.PRReviewer, error) {
	policy, err := selector.Load(selector.PolicyFile)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(viper.GetString("anthropic.api_key"), viper.GetString("anthropic.model"))

	var pub review.Publisher
	if !dryRun {
		pub = github.NewCommentPublisher()
	}

	orch := review.NewOrchestrator(s, client, client, pub, review.DefaultConfig())
	return review.NewPRReviewer(github.NewClient(), orch, policy), nil
}
