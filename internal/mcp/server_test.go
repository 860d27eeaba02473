package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/store"
)

type mockRunner struct {
	summary *models.SessionSummary
	err     error

	lastRepo string
	lastPR   int
}

func (r *mockRunner) ReviewPR(_ context.Context, repository string, prNumber int) (*models.SessionSummary, error) {
	r.lastRepo = repository
	r.lastPR = prNumber
	return r.summary, r.err
}

func newTestServer(t *testing.T, runner *mockRunner) (*Server, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	return NewServer(s, runner), s
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func TestMCPServer_RegistersTools(t *testing.T) {
	srv, _ := newTestServer(t, &mockRunner{})
	assert.NotNil(t, srv.MCPServer())
}

func TestHandleReviewPR(t *testing.T) {
	runner := &mockRunner{summary: &models.SessionSummary{
		SessionID:      "sess-1",
		Repository:     "acme/app",
		PRNumber:       42,
		FilesReviewed:  3,
		CommentsPosted: 2,
		Status:         models.SessionStatusCompleted,
	}}
	srv, _ := newTestServer(t, runner)

	req := callToolReq("review_pr", map[string]any{"pr_url": "https://github.com/acme/app/pull/42"})
	result, err := srv.handleReviewPR(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, "acme/app", runner.lastRepo)
	assert.Equal(t, 42, runner.lastPR)

	var summary models.SessionSummary
	resultJSON(t, result, &summary)
	assert.Equal(t, "sess-1", summary.SessionID)
	assert.Equal(t, 2, summary.CommentsPosted)
}

func TestHandleReviewPR_BadURL(t *testing.T) {
	srv, _ := newTestServer(t, &mockRunner{})

	req := callToolReq("review_pr", map[string]any{"pr_url": "garbage"})
	result, err := srv.handleReviewPR(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleReviewPR_MissingArg(t *testing.T) {
	srv, _ := newTestServer(t, &mockRunner{})

	result, err := srv.handleReviewPR(context.Background(), callToolReq("review_pr", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "pr_url")
}

func TestHandleReviewPR_RunnerError(t *testing.T) {
	srv, _ := newTestServer(t, &mockRunner{err: errors.New("gh: not authenticated")})

	req := callToolReq("review_pr", map[string]any{"pr_url": "acme/app#7"})
	result, err := srv.handleReviewPR(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not authenticated")
}

func TestHandleListSessions(t *testing.T) {
	srv, s := newTestServer(t, &mockRunner{})
	ctx := context.Background()

	result, err := srv.handleListSessions(ctx, callToolReq("list_review_sessions", nil))
	require.NoError(t, err)
	assert.Equal(t, "null", resultText(t, result))

	_, err = s.CreateOrLoadSession(ctx, "acme/app", 1, "First", "")
	require.NoError(t, err)

	result, err = srv.handleListSessions(ctx, callToolReq("list_review_sessions", map[string]any{"limit": 5}))
	require.NoError(t, err)

	var sessions []*models.ReviewSession
	resultJSON(t, result, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, "acme/app", sessions[0].Repository)
}

func TestHandleGetSession(t *testing.T) {
	srv, s := newTestServer(t, &mockRunner{})
	ctx := context.Background()

	result, err := srv.handleGetSession(ctx, callToolReq("get_review_session", map[string]any{"session_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	sess, err := s.CreateOrLoadSession(ctx, "acme/app", 1, "First", "")
	require.NoError(t, err)
	err = s.RecordFileOutcome(ctx, &models.FileOutcome{
		SessionID:  sess.ID,
		FilePath:   "a.py",
		Kind:       models.OutcomeSkipped,
		SkipReason: models.SkipNoIssues,
	})
	require.NoError(t, err)

	result, err = srv.handleGetSession(ctx, callToolReq("get_review_session", map[string]any{"session_id": sess.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var detail struct {
		Session  *models.ReviewSession `json:"session"`
		Outcomes []*models.FileOutcome `json:"outcomes"`
	}
	resultJSON(t, result, &detail)
	assert.Equal(t, sess.ID, detail.Session.ID)
	require.Len(t, detail.Outcomes, 1)
	assert.Equal(t, models.SkipNoIssues, detail.Outcomes[0].SkipReason)
}

func TestHandleStats(t *testing.T) {
	srv, s := newTestServer(t, &mockRunner{})
	ctx := context.Background()

	_, err := s.CreateOrLoadSession(ctx, "acme/app", 1, "First", "")
	require.NoError(t, err)

	result, err := srv.handleStats(ctx, callToolReq("review_stats", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var stats store.Stats
	resultJSON(t, result, &stats)
	assert.Equal(t, 1, stats.TotalSessions)
}
