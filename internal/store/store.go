package store

import (
	"context"
	"errors"

	"github.com/varunch/reviewbot/internal/models"
)

// ErrConflict signals an invariant violation: double-resolving a file or
// finalizing an already-completed session. It is never safe to ignore.
var ErrConflict = errors.New("conflict")

// ErrNotFound signals a missing session or outcome.
var ErrNotFound = errors.New("not found")

// Stats holds aggregate database statistics.
type Stats struct {
	TotalSessions    int            `json:"total_sessions"`
	TotalComments    int            `json:"total_comments"`
	UniqueFiles      int            `json:"unique_files_reviewed"`
	SessionsByStatus map[string]int `json:"sessions_by_status"`
}

// Store defines the persistence interface for review sessions.
type Store interface {
	// Sessions
	CreateOrLoadSession(ctx context.Context, repository string, prNumber int, title, description string) (*models.ReviewSession, error)
	GetSession(ctx context.Context, id string) (*models.ReviewSession, error)
	GetSessionByKey(ctx context.Context, repository string, prNumber int) (*models.ReviewSession, error)
	ListSessions(ctx context.Context, limit int) ([]*models.ReviewSession, error)
	ReopenSession(ctx context.Context, id string) error
	FinalizeSession(ctx context.Context, id, summary string, status models.SessionStatus) error

	// File outcomes
	RecordFileOutcome(ctx context.Context, outcome *models.FileOutcome) error
	ListOutcomeKinds(ctx context.Context, sessionID string) (map[string]models.OutcomeKind, error)
	ListOutcomes(ctx context.Context, sessionID string) ([]*models.FileOutcome, error)

	// Review comment memory
	ListFileIssues(ctx context.Context, sessionID, filePath string) ([]string, error)
	CountFileComments(ctx context.Context, sessionID, filePath string) (int, error)
	SetCommentRef(ctx context.Context, sessionID, filePath, ref string) error

	// Aggregates
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
