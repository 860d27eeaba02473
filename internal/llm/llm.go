package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/review"
)

// Client wraps the Anthropic API for review generation and reflexion
// validation. It satisfies both review.Generator and review.Validator.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildReviewPrompt constructs the system and user prompts for one generation attempt.
func buildReviewPrompt(req review.GenerateRequest) (system string, user string) {
	system = `You are a senior code reviewer examining one changed file from a pull request. Identify the single most important issue in the changed code, if any. Return ONLY a JSON object with these fields:
- "file_path": the path of the reviewed file, exactly as given
- "criticality": one of "OK", "Medium", "Critical". Use "OK" when the change needs no comment
- "issue": one or two sentences naming the problem. Empty string when criticality is "OK"
- "diff_code": the exact lines from the provided diff that exhibit the issue, copied verbatim
- "current_code": the problematic code as it appears in the change
- "suggested_code": the corrected code. Must be complete and syntactically valid
- "rationale": why the suggestion is an improvement

Rules:
- Review only what the diff changes. Do not comment on pre-existing code
- "Critical" is for bugs, data loss, security holes, and crashes. "Medium" is for correctness risks and real maintainability problems. Style nits are "OK"
- diff_code must be copied from the input verbatim so the comment can be anchored to the right lines
- When nothing in the change warrants a comment, return criticality "OK" with empty issue fields
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Pull request: ")
	sb.WriteString(req.PRTitle)
	sb.WriteString("\n")
	if req.PRDescription != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(req.PRDescription)
		sb.WriteString("\n")
	}
	sb.WriteString("\nFile: ")
	sb.WriteString(req.FilePath)
	sb.WriteString("\n\nChanged code:\n")
	sb.WriteString(req.FileContent)
	sb.WriteString("\n")
	if len(req.Feedback) > 0 {
		sb.WriteString("\nA previous attempt at this review was rejected for these reasons. Produce a corrected review that resolves them:\n")
		for _, issue := range req.Feedback {
			sb.WriteString("- ")
			sb.WriteString(issue)
			sb.WriteString("\n")
		}
	}
	user = sb.String()
	return
}

// Generate asks the model for a review candidate for one file.
func (c *Client) Generate(ctx context.Context, req review.GenerateRequest) (*models.ReviewCandidate, error) {
	systemPrompt, userPrompt := buildReviewPrompt(req)

	text, err := c.complete(ctx, systemPrompt, userPrompt, 4096)
	if err != nil {
		return nil, err
	}

	var candidate models.ReviewCandidate
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	// The model occasionally rewrites the path; the stored outcome keys on it.
	candidate.FilePath = req.FilePath

	return &candidate, nil
}

// buildReflexionPrompt constructs the system and user prompts for validating a candidate.
func buildReflexionPrompt(candidate *models.ReviewCandidate, fc review.FileContext) (system string, user string) {
	system = `You are validating a code review comment before it is posted to a pull request. Judge whether the review is correct, anchored to the right code, and worth a developer's attention. Return ONLY a JSON object with these fields:
- "is_valid": true when the review should be posted as-is or with your improvement
- "validation_issues": array of strings, each naming one concrete defect in the review (wrong diagnosis, misanchored code, broken suggestion, trivial nit). Empty when valid
- "confidence": your confidence in the review's correctness, 0.0 to 1.0
- "improved_candidate": optional. When the review is fundamentally right but poorly expressed, return the full corrected review object here (same fields as the input review); otherwise omit it

Rules:
- Check that diff_code actually appears in the changed code
- Check that suggested_code compiles in context and actually fixes the stated issue
- A review that restates the code without naming a problem is invalid
- Be strict: a wrong review posted to a PR costs more than a missed one
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("File: ")
	sb.WriteString(fc.FilePath)
	sb.WriteString("\n\nChanged code:\n")
	sb.WriteString(fc.FileContent)
	sb.WriteString("\n\nReview to validate:\n")
	enc, _ := json.MarshalIndent(candidate, "", "  ")
	sb.Write(enc)
	sb.WriteString("\n")
	user = sb.String()
	return
}

// Validate asks the model to score a candidate and possibly improve it.
func (c *Client) Validate(ctx context.Context, candidate *models.ReviewCandidate, fc review.FileContext) (*models.ReflexionResult, error) {
	systemPrompt, userPrompt := buildReflexionPrompt(candidate, fc)

	text, err := c.complete(ctx, systemPrompt, userPrompt, 2048)
	if err != nil {
		return nil, err
	}

	var result models.ReflexionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}

	return &result, nil
}

// complete runs one message exchange and returns the stripped text response.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	return stripFencing(text), nil
}

// stripFencing removes markdown code fencing the model sometimes adds
// despite instructions.
func stripFencing(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
