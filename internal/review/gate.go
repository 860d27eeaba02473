package review

import (
	"context"
	"fmt"

	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/store"
)

// Decision is the gate's verdict for one candidate. Denial is normal control
// flow, never an error; Reason is the machine-readable audit code.
type Decision struct {
	Admitted bool
	Reason   models.SkipReason
}

func admit() Decision                        { return Decision{Admitted: true} }
func deny(reason models.SkipReason) Decision { return Decision{Reason: reason} }

// SecurityGate is the final admission check before a comment leaves the
// system. Checks run in order and short-circuit on the first failure.
type SecurityGate struct {
	store store.Store
	dupes *DuplicateDetector
	cfg   Config
}

// NewSecurityGate creates a gate over the given store and detector.
func NewSecurityGate(s store.Store, dupes *DuplicateDetector, cfg Config) *SecurityGate {
	return &SecurityGate{store: s, dupes: dupes, cfg: cfg}
}

// Admit decides whether the retry result may be posted. The confidence floor
// is re-checked here even though the retry controller already enforced it.
func (g *SecurityGate) Admit(ctx context.Context, sessionID string, result *RetryResult) (Decision, error) {
	if !result.Accepted {
		return deny(models.SkipNotApproved), nil
	}

	if result.Confidence < g.cfg.MinConfidence {
		return deny(models.SkipLowConfidence), nil
	}

	candidate := result.Candidate
	dup, err := g.dupes.IsDuplicate(ctx, sessionID, candidate.FilePath, candidate.Issue)
	if err != nil {
		return Decision{}, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		return deny(models.SkipDuplicate), nil
	}

	fileCount, err := g.store.CountFileComments(ctx, sessionID, candidate.FilePath)
	if err != nil {
		return Decision{}, fmt.Errorf("per-file count: %w", err)
	}
	if fileCount >= g.cfg.MaxCommentsPerFile {
		return deny(models.SkipPerFileLimit), nil
	}

	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return Decision{}, fmt.Errorf("load session: %w", err)
	}
	if sess.CommentsPosted >= g.cfg.MaxCommentsPerSession {
		return deny(models.SkipPerSessionLimit), nil
	}

	return admit(), nil
}
