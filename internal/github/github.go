// Package github wraps the gh CLI for pull request metadata, diffs, and
// review comment posting.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/varunch/reviewbot/internal/diff"
	"github.com/varunch/reviewbot/internal/models"
)

// ChangedFile is one file touched by a pull request, with its per-file
// unified diff.
type ChangedFile struct {
	Path string
	Diff string
}

// PullRequest holds the metadata and changed files of one pull request.
type PullRequest struct {
	Number int
	Title  string
	Body   string
	Files  []ChangedFile
}

// Client fetches pull request data.
type Client interface {
	FetchPR(ctx context.Context, repository string, number int) (*PullRequest, error)
}

// RealClient implements Client using the gh CLI.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func ghCmd(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "gh", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

type prViewRaw struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// FetchPR loads a pull request's title, body, and per-file diffs.
func (c *RealClient) FetchPR(ctx context.Context, repository string, number int) (*PullRequest, error) {
	out, err := ghCmd(ctx, "pr", "view", strconv.Itoa(number),
		"--repo", repository,
		"--json", "number,title,body",
	)
	if err != nil {
		return nil, err
	}

	var raw prViewRaw
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse PR metadata: %w", err)
	}

	diffText, err := ghCmd(ctx, "pr", "diff", strconv.Itoa(number), "--repo", repository)
	if err != nil {
		return nil, err
	}

	return &PullRequest{
		Number: raw.Number,
		Title:  raw.Title,
		Body:   raw.Body,
		Files:  SplitDiff(diffText),
	}, nil
}

// SplitDiff breaks a full unified diff into per-file sections. Deleted files
// are skipped; there is nothing to review in them.
func SplitDiff(diffText string) []ChangedFile {
	var files []ChangedFile
	var current *ChangedFile
	var body strings.Builder
	deleted := false

	flush := func() {
		if current != nil && !deleted {
			current.Diff = strings.TrimRight(body.String(), "\n")
			files = append(files, *current)
		}
		body.Reset()
		deleted = false
	}

	for _, line := range strings.Split(diffText, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			current = &ChangedFile{Path: pathFromHeader(line)}
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}
		if current == nil {
			continue
		}
		if strings.HasPrefix(line, "+++ /dev/null") {
			deleted = true
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return files
}

// pathFromHeader extracts the post-change path from a "diff --git a/X b/Y" line.
func pathFromHeader(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return ""
	}
	return strings.TrimPrefix(fields[3], "b/")
}

// ParsePRURL resolves a pull request reference to (repository, number).
// Accepted forms: a full https://github.com/OWNER/REPO/pull/N URL, or the
// short OWNER/REPO#N form.
func ParsePRURL(ref string) (string, int, error) {
	ref = strings.TrimSpace(ref)

	if owner, rest, ok := strings.Cut(ref, "#"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || strings.Count(owner, "/") != 1 {
			return "", 0, fmt.Errorf("invalid pull request reference: %q", ref)
		}
		return owner, n, nil
	}

	trimmed := strings.TrimPrefix(strings.TrimPrefix(ref, "https://"), "http://")
	trimmed = strings.TrimPrefix(trimmed, "github.com/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return "", 0, fmt.Errorf("invalid pull request reference: %q", ref)
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, fmt.Errorf("invalid pull request number in %q", ref)
	}
	return parts[0] + "/" + parts[1], n, nil
}

// CommentPublisher posts admitted review comments to the pull request
// conversation via the gh CLI.
type CommentPublisher struct{}

// NewCommentPublisher returns a new CommentPublisher.
func NewCommentPublisher() *CommentPublisher {
	return &CommentPublisher{}
}

// Publish posts the candidate as a PR comment and returns the comment URL.
func (p *CommentPublisher) Publish(ctx context.Context, repository string, prNumber int, candidate *models.ReviewCandidate) (string, error) {
	body := FormatComment(candidate)

	url, err := ghCmd(ctx, "api",
		fmt.Sprintf("repos/%s/issues/%d/comments", repository, prNumber),
		"-f", "body="+body,
		"--jq", ".html_url",
	)
	if err != nil {
		return "", fmt.Errorf("post comment: %w", err)
	}
	return url, nil
}

// FormatComment renders a candidate as the markdown body of a PR comment.
func FormatComment(c *models.ReviewCandidate) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("**%s** issue in `%s`\n\n", c.Criticality, c.FilePath))
	sb.WriteString(c.Issue)
	sb.WriteString("\n")

	lang := diff.Language(c.FilePath)
	if c.CurrentCode != "" {
		sb.WriteString("\nCurrent:\n```")
		sb.WriteString(lang)
		sb.WriteString("\n")
		sb.WriteString(c.CurrentCode)
		sb.WriteString("\n```\n")
	}
	if c.SuggestedCode != "" {
		sb.WriteString("\nSuggested:\n```")
		sb.WriteString(lang)
		sb.WriteString("\n")
		sb.WriteString(c.SuggestedCode)
		sb.WriteString("\n```\n")
	}
	if c.Rationale != "" {
		sb.WriteString("\n")
		sb.WriteString(c.Rationale)
		sb.WriteString("\n")
	}

	return sb.String()
}
