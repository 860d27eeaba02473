package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/review"
)

func TestBuildReviewPrompt(t *testing.T) {
	req := review.GenerateRequest{
		FileContext: review.FileContext{
			FilePath:      "app/db.py",
			FileContent:   "cursor.execute(f\"SELECT * FROM users WHERE id={uid}\")",
			PRTitle:       "Add user lookup",
			PRDescription: "Looks up users by id",
		},
	}

	t.Run("first attempt", func(t *testing.T) {
		system, user := buildReviewPrompt(req)

		assert.Contains(t, system, `"criticality"`)
		assert.Contains(t, system, `"OK"`)
		assert.Contains(t, system, `"Medium"`)
		assert.Contains(t, system, `"Critical"`)
		assert.Contains(t, system, `"suggested_code"`)

		assert.Contains(t, user, "app/db.py")
		assert.Contains(t, user, "Add user lookup")
		assert.Contains(t, user, "Looks up users by id")
		assert.Contains(t, user, "cursor.execute")
		assert.NotContains(t, user, "rejected")
	})

	t.Run("retry carries feedback", func(t *testing.T) {
		retry := req
		retry.Feedback = []string{"diff_code not present in the change", "suggestion does not compile"}
		retry.Attempt = 1

		_, user := buildReviewPrompt(retry)
		assert.Contains(t, user, "rejected")
		assert.Contains(t, user, "diff_code not present in the change")
		assert.Contains(t, user, "suggestion does not compile")
	})

	t.Run("empty description omitted", func(t *testing.T) {
		bare := req
		bare.PRDescription = ""
		_, user := buildReviewPrompt(bare)
		assert.NotContains(t, user, "Description:")
	})
}

func TestBuildReviewPromptLargeContent(t *testing.T) {
	req := review.GenerateRequest{
		FileContext: review.FileContext{FilePath: "big.py", FileContent: strings.Repeat("x", 10000), PRTitle: "t"},
	}
	_, user := buildReviewPrompt(req)
	assert.Contains(t, user, req.FileContent)
}

func TestBuildReflexionPrompt(t *testing.T) {
	candidate := &models.ReviewCandidate{
		FilePath:    "app/db.py",
		Criticality: models.CriticalityCritical,
		Issue:       "unparameterized query allows sql injection",
		DiffCode:    "cursor.execute(f\"SELECT ...\")",
	}
	fc := review.FileContext{FilePath: "app/db.py", FileContent: "cursor.execute(f\"SELECT ...\")"}

	system, user := buildReflexionPrompt(candidate, fc)

	assert.Contains(t, system, `"is_valid"`)
	assert.Contains(t, system, `"validation_issues"`)
	assert.Contains(t, system, `"confidence"`)
	assert.Contains(t, system, `"improved_candidate"`)

	assert.Contains(t, user, "app/db.py")
	assert.Contains(t, user, "unparameterized query allows sql injection")
}

func TestStripFencing(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fencing", `{"a": 1}`, `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\": 1}\n```\n ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFencing(tt.in))
		})
	}
}
