package review

import (
	"context"

	"github.com/varunch/reviewbot/internal/models"
)

// attemptState enumerates the per-file retry state machine.
type attemptState int

const (
	stateGenerating attemptState = iota
	stateValidating
	stateAccepted
	stateRetrying
	stateRejected
)

// RetryResult is the terminal outcome of running the controller for one file.
type RetryResult struct {
	// Accepted is true when the validator approved a candidate with
	// sufficient confidence. When false and NoIssues is false, the retry
	// budget was exhausted and Candidate holds the best-scoring attempt.
	Accepted bool

	// NoIssues is true when generation produced an OK-tier candidate:
	// nothing actionable, no validation performed.
	NoIssues bool

	Candidate  *models.ReviewCandidate
	Confidence float64

	// Feedback is the accumulated validation-issue history, kept for
	// diagnostics on rejection.
	Feedback []string

	// Generations counts generator invocations that consumed the quality
	// budget (transient-failure retries excluded).
	Generations int
}

// RetryController owns the bounded generate-validate-retry loop for one file.
type RetryController struct {
	gen Generator
	val Validator
	cfg Config
}

// NewRetryController creates a controller over the given collaborators.
func NewRetryController(gen Generator, val Validator, cfg Config) *RetryController {
	return &RetryController{gen: gen, val: val, cfg: cfg}
}

// Run drives the state machine to a terminal state. It returns a
// *GenerationError when a collaborator stays unavailable past its transient
// retry budget; any validation-based rejection is a normal RetryResult.
func (c *RetryController) Run(ctx context.Context, fc FileContext) (*RetryResult, error) {
	result := &RetryResult{}

	var (
		state     = stateGenerating
		candidate *models.ReviewCandidate
		attempt   int
	)

	for {
		switch state {
		case stateGenerating:
			req := GenerateRequest{
				FileContext: fc,
				Feedback:    append([]string(nil), result.Feedback...),
				Attempt:     attempt,
			}

			cand, err := c.generateWithTransientRetry(ctx, req)
			if err != nil {
				return nil, err
			}
			result.Generations++
			candidate = cand

			if !candidate.Criticality.Actionable() {
				result.NoIssues = true
				result.Candidate = candidate
				return result, nil
			}
			state = stateValidating

		case stateValidating:
			res, err := c.validateWithTransientRetry(ctx, candidate, fc)
			if err != nil {
				return nil, err
			}

			// The validator may hand back an improved candidate; the
			// improved variant is what gets accepted or carried forward.
			if res.ImprovedCandidate != nil {
				res.ImprovedCandidate.FilePath = candidate.FilePath
				candidate = res.ImprovedCandidate
			}

			if res.Confidence >= result.Confidence || result.Candidate == nil {
				result.Candidate = candidate
				result.Confidence = res.Confidence
			}

			if res.IsValid && res.Confidence >= c.cfg.MinConfidence {
				result.Candidate = candidate
				result.Confidence = res.Confidence
				state = stateAccepted
				break
			}

			result.Feedback = append(result.Feedback, res.ValidationIssues...)
			if attempt < c.cfg.MaxRetries {
				state = stateRetrying
			} else {
				state = stateRejected
			}

		case stateRetrying:
			attempt++
			state = stateGenerating

		case stateAccepted:
			result.Accepted = true
			return result, nil

		case stateRejected:
			return result, nil
		}
	}
}

func (c *RetryController) generateWithTransientRetry(ctx context.Context, req GenerateRequest) (*models.ReviewCandidate, error) {
	var lastErr error
	for try := 0; try <= c.cfg.MaxTransientRetries; try++ {
		cand, err := c.gen.Generate(ctx, req)
		if err == nil {
			return cand, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &GenerationError{Err: lastErr}
}

func (c *RetryController) validateWithTransientRetry(ctx context.Context, candidate *models.ReviewCandidate, fc FileContext) (*models.ReflexionResult, error) {
	var lastErr error
	for try := 0; try <= c.cfg.MaxTransientRetries; try++ {
		res, err := c.val.Validate(ctx, candidate, fc)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &GenerationError{Err: lastErr}
}
