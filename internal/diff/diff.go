// Package diff cleans unified-diff text into plain code snippets suitable
// for prompting and for anchoring review comments.
package diff

import "strings"

// DefaultMaxLines caps how much of a file's diff is extracted for review.
const DefaultMaxLines = 50

// Clean strips diff markers from a snippet: hunk and file headers are
// dropped, deletions are dropped, additions and context keep their code.
func Clean(diffCode string) string {
	if strings.TrimSpace(diffCode) == "" {
		return ""
	}

	var cleaned []string
	for _, line := range strings.Split(diffCode, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"),
			strings.HasPrefix(line, "diff "),
			strings.HasPrefix(line, "index "):
			continue
		case strings.HasPrefix(line, "+"):
			cleaned = append(cleaned, line[1:])
		case strings.HasPrefix(line, "-"):
			continue
		case strings.HasPrefix(line, " "):
			cleaned = append(cleaned, line[1:])
		default:
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}

// ExtractCode pulls the added and context lines out of a full per-file diff,
// capped at maxLines. Lines before the first hunk header are ignored; a
// following file header ends extraction.
func ExtractCode(diffContent string, maxLines int) string {
	if diffContent == "" {
		return ""
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	var code []string
	inHunk := false

	for _, line := range strings.Split(diffContent, "\n") {
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		if strings.HasPrefix(line, "diff ") || strings.HasPrefix(line, "index ") {
			break
		}

		if strings.HasPrefix(line, "+") {
			code = append(code, line[1:])
		} else if strings.HasPrefix(line, " ") {
			code = append(code, line[1:])
		}
	}

	if len(code) > maxLines {
		code = code[:maxLines]
	}
	return strings.Join(code, "\n")
}

// ValidateSnippet checks that a cleaned snippet is usable as comment code:
// non-empty, free of diff markers, and of sane length. The returned string
// names the defect when invalid.
func ValidateSnippet(snippet string) (bool, string) {
	if strings.TrimSpace(snippet) == "" {
		return false, "code snippet is empty"
	}

	lines := 0
	markers := 0
	for _, line := range strings.Split(snippet, "\n") {
		if line == "" {
			continue
		}
		lines++
		switch line[0] {
		case '+', '-', '@':
			markers++
		}
	}
	if lines > 0 && float64(markers)/float64(lines) > 0.5 {
		return false, "code snippet still carries diff markers"
	}

	if strings.Contains(snippet, "@@") {
		return false, "code snippet contains hunk headers"
	}

	if len(strings.TrimSpace(snippet)) < 10 {
		return false, "code snippet is too short to be meaningful"
	}
	if len(snippet) > 5000 {
		return false, "code snippet is too long"
	}

	return true, ""
}

var languageByExtension = map[string]string{
	"py":    "python",
	"js":    "javascript",
	"ts":    "typescript",
	"jsx":   "javascript",
	"tsx":   "typescript",
	"java":  "java",
	"cpp":   "cpp",
	"c":     "c",
	"go":    "go",
	"rs":    "rust",
	"rb":    "ruby",
	"php":   "php",
	"cs":    "csharp",
	"swift": "swift",
	"kt":    "kotlin",
	"scala": "scala",
	"sql":   "sql",
	"sh":    "bash",
	"bash":  "bash",
	"yml":   "yaml",
	"yaml":  "yaml",
	"json":  "json",
	"xml":   "xml",
	"html":  "html",
	"css":   "css",
	"vue":   "vue",
	"dart":  "dart",
}

// Language guesses the programming language from a file path's extension.
// Returns "" when unknown.
func Language(filePath string) string {
	idx := strings.LastIndex(filePath, ".")
	if idx < 0 || idx == len(filePath)-1 {
		return ""
	}
	return languageByExtension[strings.ToLower(filePath[idx+1:])]
}
