// Package review implements the review-validation-retry engine: candidate
// generation with bounded retries, reflexion validation, duplicate
// suppression, the final admission gate, and the per-session orchestrator.
package review

import (
	"context"
	"fmt"

	"github.com/varunch/reviewbot/internal/models"
)

// FileContext carries everything a collaborator needs to reason about one file.
type FileContext struct {
	FilePath      string
	FileContent   string
	PRTitle       string
	PRDescription string
}

// GenerateRequest is the input for one generation attempt. Feedback holds the
// validation issues from prior rejected attempts; empty on the first attempt.
type GenerateRequest struct {
	FileContext
	Feedback []string
	Attempt  int
}

// Generator produces a review candidate for one file.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*models.ReviewCandidate, error)
}

// Validator scores a candidate for validity and confidence and may return an
// improved candidate.
type Validator interface {
	Validate(ctx context.Context, candidate *models.ReviewCandidate, fc FileContext) (*models.ReflexionResult, error)
}

// Publisher posts an admitted comment and returns its external reference.
type Publisher interface {
	Publish(ctx context.Context, repository string, prNumber int, candidate *models.ReviewCandidate) (string, error)
}

// GenerationError marks a collaborator-side transient failure (generator or
// validator unreachable). It is distinct from a validation rejection: it never
// consumes a quality retry, and after its own retry budget the file resolves
// as Skipped(generation_error).
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
