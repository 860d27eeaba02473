package review

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/store"
)

func testConfig() Config {
	return Config{
		MaxRetries:            DefaultMaxRetries,
		MinConfidence:         DefaultMinConfidence,
		MaxCommentsPerFile:    DefaultMaxCommentsPerFile,
		MaxCommentsPerSession: DefaultMaxCommentsPerSession,
		MaxTransientRetries:   DefaultMaxTransientRetries,
		DuplicateThreshold:    DefaultDuplicateThreshold,
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func mediumCandidate(filePath, issue string) *models.ReviewCandidate {
	return &models.ReviewCandidate{
		FilePath:      filePath,
		Criticality:   models.CriticalityMedium,
		Issue:         issue,
		DiffCode:      "x = conn.execute(query)",
		CurrentCode:   "x = conn.execute(query)",
		SuggestedCode: "x = conn.execute(query, args)",
		Rationale:     "parameterize the query",
	}
}

func reviewedOutcome(sessionID string, c *models.ReviewCandidate) *models.FileOutcome {
	return &models.FileOutcome{
		SessionID:   sessionID,
		FilePath:    c.FilePath,
		Kind:        models.OutcomeReviewed,
		Criticality: c.Criticality,
		Issue:       c.Issue,
		DiffCode:    c.DiffCode,
		CommentRef:  "comment-1",
	}
}

// fakeGenerator scripts Generate and counts calls.
type fakeGenerator struct {
	calls int
	fn    func(req GenerateRequest) (*models.ReviewCandidate, error)
}

func (g *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (*models.ReviewCandidate, error) {
	g.calls++
	return g.fn(req)
}

// fakeValidator scripts Validate and counts calls.
type fakeValidator struct {
	calls int
	fn    func(candidate *models.ReviewCandidate, fc FileContext) (*models.ReflexionResult, error)
}

func (v *fakeValidator) Validate(_ context.Context, candidate *models.ReviewCandidate, fc FileContext) (*models.ReflexionResult, error) {
	v.calls++
	return v.fn(candidate, fc)
}

// fakePublisher records what was published and can be made to fail.
type fakePublisher struct {
	calls     int
	published []*models.ReviewCandidate
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, _ int, candidate *models.ReviewCandidate) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, candidate)
	return "comment-" + candidate.FilePath, nil
}

func approvingValidator(confidence float64) *fakeValidator {
	return &fakeValidator{fn: func(_ *models.ReviewCandidate, _ FileContext) (*models.ReflexionResult, error) {
		return &models.ReflexionResult{IsValid: true, Confidence: confidence}, nil
	}}
}

func rejectingValidator(issues ...string) *fakeValidator {
	return &fakeValidator{fn: func(_ *models.ReviewCandidate, _ FileContext) (*models.ReflexionResult, error) {
		return &models.ReflexionResult{IsValid: false, Confidence: 0.3, ValidationIssues: issues}, nil
	}}
}

func issueGenerator(issue string) *fakeGenerator {
	return &fakeGenerator{fn: func(req GenerateRequest) (*models.ReviewCandidate, error) {
		return mediumCandidate(req.FilePath, issue), nil
	}}
}
