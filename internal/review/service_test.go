package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunch/reviewbot/internal/github"
	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/selector"
)

type fakeGitHub struct {
	pr  *github.PullRequest
	err error
}

func (g *fakeGitHub) FetchPR(_ context.Context, _ string, _ int) (*github.PullRequest, error) {
	return g.pr, g.err
}

const pyFileDiff = `diff --git a/app/db.py b/app/db.py
index 1111111..2222222 100644
--- a/app/db.py
+++ b/app/db.py
@@ -1,1 +1,2 @@
 def lookup(uid):
+    return cursor.execute(query)`

func TestPRReviewer_ReviewsSelectedFiles(t *testing.T) {
	s := newTestStore(t)
	gh := &fakeGitHub{pr: &github.PullRequest{
		Number: 42,
		Title:  "Add lookup",
		Body:   "Adds the lookup endpoint",
		Files: []github.ChangedFile{
			{Path: "app/db.py", Diff: pyFileDiff},
			{Path: "go.sum", Diff: pyFileDiff},
		},
	}}

	gen := &fakeGenerator{fn: func(req GenerateRequest) (*models.ReviewCandidate, error) {
		assert.Equal(t, "Add lookup", req.PRTitle)
		assert.Contains(t, req.FileContent, "cursor.execute(query)")
		assert.NotContains(t, req.FileContent, "+", "diff markers are stripped")
		return mediumCandidate(req.FilePath, "issue found reviewing "+req.FilePath), nil
	}}

	orch := NewOrchestrator(s, gen, approvingValidator(0.9), &fakePublisher{}, testConfig())
	r := NewPRReviewer(gh, orch, nil)

	summary, err := r.ReviewPR(context.Background(), "acme/app", 42)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesReviewed, "ignored files never reach the engine")
	assert.Equal(t, 1, gen.calls)
}

func TestPRReviewer_FetchErrorPropagates(t *testing.T) {
	s := newTestStore(t)
	gh := &fakeGitHub{err: errors.New("gh: not authenticated")}
	orch := NewOrchestrator(s, pathIssueGenerator(), approvingValidator(0.9), nil, testConfig())
	r := NewPRReviewer(gh, orch, nil)

	_, err := r.ReviewPR(context.Background(), "acme/app", 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/app#42")

	_, err = s.GetSessionByKey(context.Background(), "acme/app", 42)
	assert.Error(t, err, "no session is created when the PR cannot be fetched")
}

func TestPRReviewer_PolicyCapsFiles(t *testing.T) {
	s := newTestStore(t)
	gh := &fakeGitHub{pr: &github.PullRequest{
		Number: 42,
		Title:  "Big change",
		Files: []github.ChangedFile{
			{Path: "a.py", Diff: pyFileDiff},
			{Path: "b.py", Diff: pyFileDiff},
			{Path: "c.py", Diff: pyFileDiff},
		},
	}}

	gen := pathIssueGenerator()
	orch := NewOrchestrator(s, gen, approvingValidator(0.9), &fakePublisher{}, testConfig())
	r := NewPRReviewer(gh, orch, &selector.Policy{MaxFiles: 2})

	summary, err := r.ReviewPR(context.Background(), "acme/app", 42)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesReviewed)
	assert.Equal(t, 2, gen.calls)
}
