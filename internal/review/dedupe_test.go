package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "missing nil check", "missing nil check", 1.0},
		{"case and spacing insensitive", "Missing  Nil Check", "missing nil check", 1.0},
		{"disjoint", "missing nil check", "query allows injection", 0.0},
		{"partial overlap", "missing nil check here", "missing nil check", 0.75},
		{"both empty", "", "", 0.0},
		{"one empty", "missing nil check", "", 0.0},
		{"repeated words collapse", "check check check", "check", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, similarity(tt.b, tt.a), 1e-9, "similarity is symmetric")
		})
	}
}

func TestDuplicateDetector_AgainstStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateOrLoadSession(ctx, "acme/app", 7, "Fix queries", "")
	require.NoError(t, err)

	outcome := mediumCandidate("db/queries.py", "unparameterized query allows sql injection attacks")
	err = s.RecordFileOutcome(ctx, reviewedOutcome(sess.ID, outcome))
	require.NoError(t, err)

	d := NewDuplicateDetector(s, DefaultDuplicateThreshold)

	dup, err := d.IsDuplicate(ctx, sess.ID, "db/queries.py",
		"unparameterized query allows sql injection attacks")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.IsDuplicate(ctx, sess.ID, "db/queries.py",
		"file handle leaked when parse fails")
	require.NoError(t, err)
	assert.False(t, dup)

	// Memory is scoped per file; the same wording on another file passes.
	dup, err = d.IsDuplicate(ctx, sess.ID, "db/other.py",
		"unparameterized query allows sql injection attacks")
	require.NoError(t, err)
	assert.False(t, dup)
}
