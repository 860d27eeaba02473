package review

import (
	"context"
	"fmt"

	"github.com/varunch/reviewbot/internal/diff"
	"github.com/varunch/reviewbot/internal/github"
	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/selector"
)

// PRReviewer runs a full review pass for one pull request: fetch the PR,
// select reviewable files, extract their changed code, and hand the set to
// the orchestrator.
type PRReviewer struct {
	gh     github.Client
	orch   *Orchestrator
	policy *selector.Policy
}

// NewPRReviewer wires the PR-level service. A nil policy uses the defaults.
func NewPRReviewer(gh github.Client, orch *Orchestrator, policy *selector.Policy) *PRReviewer {
	if policy == nil {
		policy = selector.Default()
	}
	return &PRReviewer{gh: gh, orch: orch, policy: policy}
}

// ReviewPR reviews every selected file of the pull request and returns the
// session summary.
func (r *PRReviewer) ReviewPR(ctx context.Context, repository string, prNumber int) (*models.SessionSummary, error) {
	pr, err := r.gh.FetchPR(ctx, repository, prNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch %s#%d: %w", repository, prNumber, err)
	}

	byPath := make(map[string]github.ChangedFile, len(pr.Files))
	paths := make([]string, 0, len(pr.Files))
	for _, f := range pr.Files {
		byPath[f.Path] = f
		paths = append(paths, f.Path)
	}

	var files []FileInput
	for _, p := range r.policy.Filter(paths) {
		content := diff.ExtractCode(byPath[p].Diff, diff.DefaultMaxLines)
		if content == "" {
			continue
		}
		files = append(files, FileInput{Path: p, Content: content})
	}

	return r.orch.RunSession(ctx, repository, prNumber, pr.Title, pr.Body, files)
}
