package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/store"
)

// FileInput is one candidate file for review, with its content already
// resolved by the caller (diff text in the CLI path).
type FileInput struct {
	Path    string
	Content string
}

// Orchestrator drives the full per-session review pass: retry controller,
// gate, publish, and persistence, file by file in order.
type Orchestrator struct {
	store store.Store
	retry *RetryController
	gate  *SecurityGate
	pub   Publisher
	log   *slog.Logger
}

// NewOrchestrator wires the engine together. pub may be nil for dry runs;
// admitted candidates are then recorded with an empty comment reference.
func NewOrchestrator(s store.Store, gen Generator, val Validator, pub Publisher, cfg Config) *Orchestrator {
	dupes := NewDuplicateDetector(s, cfg.DuplicateThreshold)
	return &Orchestrator{
		store: s,
		retry: NewRetryController(gen, val, cfg),
		gate:  NewSecurityGate(s, dupes, cfg),
		pub:   pub,
		log:   slog.Default(),
	}
}

// RunSession reviews the given files for one (repository, PR) pair. Files
// already resolved in a prior run are not reprocessed; a completed session
// short-circuits without any generation calls. Per-file failures become
// Skipped outcomes; store failures and invariant violations abort the run,
// finalize the session as failed, and propagate.
func (o *Orchestrator) RunSession(ctx context.Context, repository string, prNumber int, title, description string, files []FileInput) (*models.SessionSummary, error) {
	sess, err := o.store.CreateOrLoadSession(ctx, repository, prNumber, title, description)
	if err != nil {
		return nil, fmt.Errorf("create or load session: %w", err)
	}

	if sess.Status == models.SessionStatusCompleted {
		o.log.Info("session already completed, nothing to do",
			"session", sess.ID, "repository", repository, "pr", prNumber)
		return o.summary(ctx, sess.ID)
	}
	if sess.Status == models.SessionStatusFailed {
		if err := o.store.ReopenSession(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("reopen session: %w", err)
		}
	}

	prior, err := o.store.ListOutcomeKinds(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list prior outcomes: %w", err)
	}

	for _, file := range files {
		// External cancellation: leave the session in_progress with no
		// partial outcome; a later run resumes from prior outcomes.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if kind, ok := prior[file.Path]; ok {
			o.log.Debug("file already resolved, skipping", "file", file.Path, "kind", kind)
			continue
		}

		outcome, err := o.reviewFile(ctx, sess, repository, prNumber, title, description, file)
		if err != nil {
			return nil, o.fail(ctx, sess.ID, err)
		}

		if err := o.store.RecordFileOutcome(ctx, outcome); err != nil {
			return nil, o.fail(ctx, sess.ID, fmt.Errorf("record outcome for %s: %w", file.Path, err))
		}
	}

	summary, err := o.summary(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Reviewed %d files, posted %d comments, skipped %d files.",
		summary.FilesReviewed, summary.CommentsPosted, summary.FilesSkipped)
	if err := o.store.FinalizeSession(ctx, sess.ID, text, models.SessionStatusCompleted); err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}
	summary.Status = models.SessionStatusCompleted

	return summary, nil
}

// reviewFile resolves one file to a terminal outcome. Only collaborator
// failures are absorbed here (as Skipped outcomes); store errors propagate.
func (o *Orchestrator) reviewFile(ctx context.Context, sess *models.ReviewSession, repository string, prNumber int, title, description string, file FileInput) (*models.FileOutcome, error) {
	fc := FileContext{
		FilePath:      file.Path,
		FileContent:   file.Content,
		PRTitle:       title,
		PRDescription: description,
	}

	result, err := o.retry.Run(ctx, fc)
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			o.log.Warn("generation failed, skipping file", "file", file.Path, "error", genErr.Err)
			return skippedOutcome(sess.ID, file.Path, models.SkipGenerationError), nil
		}
		return nil, err
	}

	if result.NoIssues {
		o.log.Info("no actionable issues", "file", file.Path)
		return skippedOutcome(sess.ID, file.Path, models.SkipNoIssues), nil
	}

	if !result.Accepted {
		o.log.Warn("validation rejected after retries",
			"file", file.Path, "generations", result.Generations, "feedback", result.Feedback)
		return skippedOutcome(sess.ID, file.Path, models.SkipValidationFailed), nil
	}

	decision, err := o.gate.Admit(ctx, sess.ID, result)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		o.log.Info("gate denied candidate", "file", file.Path, "reason", decision.Reason)
		return skippedOutcome(sess.ID, file.Path, decision.Reason), nil
	}

	candidate := result.Candidate

	// Publish failures do not unwind the outcome; the reference stays
	// empty for later repair via SetCommentRef.
	var ref string
	if o.pub != nil {
		ref, err = o.pub.Publish(ctx, repository, prNumber, candidate)
		if err != nil {
			o.log.Warn("publish failed, recording outcome without reference",
				"file", file.Path, "error", err)
			ref = ""
		}
	}

	o.log.Info("comment admitted",
		"file", file.Path, "criticality", candidate.Criticality, "confidence", result.Confidence)

	return &models.FileOutcome{
		SessionID:   sess.ID,
		FilePath:    file.Path,
		Kind:        models.OutcomeReviewed,
		Criticality: candidate.Criticality,
		Issue:       candidate.Issue,
		DiffCode:    candidate.DiffCode,
		CommentRef:  ref,
	}, nil
}

// fail finalizes the session as failed, preserving every outcome already
// committed, and returns the original error for the caller. Cancellation is
// not failure: the session stays in_progress so a later run can resume it.
func (o *Orchestrator) fail(ctx context.Context, sessionID string, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	text := fmt.Sprintf("Session aborted: %v", cause)
	if err := o.store.FinalizeSession(ctx, sessionID, text, models.SessionStatusFailed); err != nil {
		o.log.Error("finalize failed session", "session", sessionID, "error", err)
	}
	return cause
}

func (o *Orchestrator) summary(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	kinds, err := o.store.ListOutcomeKinds(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	skipped := 0
	for _, kind := range kinds {
		if kind == models.OutcomeSkipped {
			skipped++
		}
	}

	return &models.SessionSummary{
		SessionID:      sess.ID,
		Repository:     sess.Repository,
		PRNumber:       sess.PRNumber,
		FilesReviewed:  sess.FilesReviewed,
		FilesSkipped:   skipped,
		CommentsPosted: sess.CommentsPosted,
		Status:         sess.Status,
	}, nil
}

func skippedOutcome(sessionID, filePath string, reason models.SkipReason) *models.FileOutcome {
	return &models.FileOutcome{
		SessionID:  sessionID,
		FilePath:   filePath,
		Kind:       models.OutcomeSkipped,
		SkipReason: reason,
	}
}
