package models

import "time"

// SessionStatus represents the lifecycle state of a review session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// Terminal reports whether the status ends the session lifecycle.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// ReviewSession represents one review run for a (repository, PR number) pair.
// At most one session exists per pair; re-runs resume it.
type ReviewSession struct {
	ID             string        `json:"id"`
	Repository     string        `json:"repository"`
	PRNumber       int           `json:"pr_number"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	Status         SessionStatus `json:"status"`
	FilesReviewed  int           `json:"files_reviewed"`
	CommentsPosted int           `json:"comments_posted"`
	FinalSummary   string        `json:"final_summary,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// SessionSummary is the aggregate result returned to the caller after a run.
type SessionSummary struct {
	SessionID      string        `json:"session_id"`
	Repository     string        `json:"repository"`
	PRNumber       int           `json:"pr_number"`
	FilesReviewed  int           `json:"files_reviewed"`
	FilesSkipped   int           `json:"files_skipped"`
	CommentsPosted int           `json:"comments_posted"`
	Status         SessionStatus `json:"status"`
}
