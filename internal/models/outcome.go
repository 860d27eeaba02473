package models

import "time"

// OutcomeKind discriminates the two terminal per-file results.
type OutcomeKind string

const (
	OutcomeReviewed OutcomeKind = "reviewed"
	OutcomeSkipped  OutcomeKind = "skipped"
)

// SkipReason is a machine-readable code explaining why a file was not commented on.
type SkipReason string

const (
	SkipValidationFailed SkipReason = "validation_failed"
	SkipGenerationError  SkipReason = "generation_error"
	SkipNoIssues         SkipReason = "no_issues"
	SkipReadError        SkipReason = "read_error"
	SkipNotApproved      SkipReason = "not_approved"
	SkipLowConfidence    SkipReason = "low_confidence"
	SkipDuplicate        SkipReason = "duplicate"
	SkipPerFileLimit     SkipReason = "per_file_limit"
	SkipPerSessionLimit  SkipReason = "per_session_limit"
)

// FileOutcome is the single terminal record for one file within a session.
// A file resolves exactly once; re-runs skip files that already have one.
type FileOutcome struct {
	SessionID   string      `json:"session_id"`
	FilePath    string      `json:"file_path"`
	Kind        OutcomeKind `json:"kind"`
	Criticality Criticality `json:"criticality,omitempty"` // reviewed only
	Issue       string      `json:"issue,omitempty"`       // reviewed only
	DiffCode    string      `json:"diff_code,omitempty"`   // reviewed only
	CommentRef  string      `json:"comment_ref,omitempty"` // reviewed only; empty until the comment is posted
	SkipReason  SkipReason  `json:"skip_reason,omitempty"` // skipped only
	CreatedAt   time.Time   `json:"created_at"`
}

// ReviewComment is the persisted memory of one posted (or pending) comment.
// It backs duplicate detection and the per-file comment ceiling.
type ReviewComment struct {
	ID          string
	SessionID   string
	FilePath    string
	Criticality Criticality
	Issue       string
	DiffCode    string
	CommentRef  string
	CreatedAt   time.Time
}
