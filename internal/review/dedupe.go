package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/varunch/reviewbot/internal/store"
)

// DuplicateDetector decides whether a candidate issue is redundant with a
// previously stored comment for the same file in the same session.
type DuplicateDetector struct {
	store     store.Store
	threshold float64
}

// NewDuplicateDetector creates a detector over the given store. Issues with
// word-overlap similarity at or above threshold count as duplicates.
func NewDuplicateDetector(s store.Store, threshold float64) *DuplicateDetector {
	return &DuplicateDetector{store: s, threshold: threshold}
}

// IsDuplicate compares the candidate issue against every prior issue recorded
// for the file. A missed duplicate is acceptable; suppressing a genuinely new
// issue is not, so anything below the threshold passes.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, sessionID, filePath, issue string) (bool, error) {
	prior, err := d.store.ListFileIssues(ctx, sessionID, filePath)
	if err != nil {
		return false, fmt.Errorf("load prior issues: %w", err)
	}

	for _, existing := range prior {
		if similarity(issue, existing) >= d.threshold {
			return true, nil
		}
	}
	return false, nil
}

// similarity is the fraction of shared words relative to the larger word set.
// Case- and whitespace-insensitive, deterministic, and symmetric. Empty
// inputs never match.
func similarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	common := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			common++
		}
	}

	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}
	return float64(common) / float64(larger)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
