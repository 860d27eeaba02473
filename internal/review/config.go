package review

import "github.com/spf13/viper"

// Defaults for the review engine knobs. All are overridable via config.
const (
	DefaultMaxRetries            = 2
	DefaultMinConfidence         = 0.6
	DefaultMaxCommentsPerFile    = 3
	DefaultMaxCommentsPerSession = 25
	DefaultMaxTransientRetries   = 2
	DefaultDuplicateThreshold    = 0.8
)

// Config holds review engine configuration.
type Config struct {
	// MaxRetries is the number of quality retries after a rejected
	// validation; MaxRetries+1 is the total generation budget per file.
	MaxRetries int

	// MinConfidence is the reflexion confidence floor for acceptance.
	MinConfidence float64

	// MaxCommentsPerFile caps posted comments per file per session.
	MaxCommentsPerFile int

	// MaxCommentsPerSession caps posted comments across the whole session.
	MaxCommentsPerSession int

	// MaxTransientRetries bounds retries of collaborator-side failures
	// (generator or validator unavailable). Independent of MaxRetries.
	MaxTransientRetries int

	// DuplicateThreshold is the word-overlap similarity at or above which
	// a candidate issue counts as a duplicate of a prior one.
	DuplicateThreshold float64
}

// DefaultConfig returns the default review config, reading from viper when available.
func DefaultConfig() Config {
	cfg := Config{
		MaxRetries:            DefaultMaxRetries,
		MinConfidence:         DefaultMinConfidence,
		MaxCommentsPerFile:    DefaultMaxCommentsPerFile,
		MaxCommentsPerSession: DefaultMaxCommentsPerSession,
		MaxTransientRetries:   DefaultMaxTransientRetries,
		DuplicateThreshold:    DefaultDuplicateThreshold,
	}

	if viper.IsSet("review.max_retries") {
		cfg.MaxRetries = viper.GetInt("review.max_retries")
	}
	if viper.IsSet("review.min_confidence") {
		cfg.MinConfidence = viper.GetFloat64("review.min_confidence")
	}
	if viper.IsSet("review.max_comments_per_file") {
		cfg.MaxCommentsPerFile = viper.GetInt("review.max_comments_per_file")
	}
	if viper.IsSet("review.max_comments_per_session") {
		cfg.MaxCommentsPerSession = viper.GetInt("review.max_comments_per_session")
	}
	if viper.IsSet("review.max_transient_retries") {
		cfg.MaxTransientRetries = viper.GetInt("review.max_transient_retries")
	}
	if viper.IsSet("review.duplicate_threshold") {
		cfg.DuplicateThreshold = viper.GetFloat64("review.duplicate_threshold")
	}

	return cfg
}
