package models

// Criticality is the impact tier of a review finding.
type Criticality string

const (
	CriticalityOK       Criticality = "OK"
	CriticalityMedium   Criticality = "Medium"
	CriticalityCritical Criticality = "Critical"
)

// Actionable reports whether the tier warrants a posted comment.
func (c Criticality) Actionable() bool {
	return c == CriticalityMedium || c == CriticalityCritical
}

// ReviewCandidate is a generated, not-yet-approved review for one file.
// Candidates are transient; only accepted ones are persisted as outcomes.
type ReviewCandidate struct {
	FilePath      string      `json:"file_path"`
	Criticality   Criticality `json:"criticality"`
	Issue         string      `json:"issue"`
	DiffCode      string      `json:"diff_code"`
	CurrentCode   string      `json:"current_code"`
	SuggestedCode string      `json:"suggested_code"`
	Rationale     string      `json:"rationale"`
}

// ReflexionResult is the self-validation verdict for one candidate.
type ReflexionResult struct {
	IsValid           bool             `json:"is_valid"`
	ValidationIssues  []string         `json:"validation_issues"`
	Confidence        float64          `json:"confidence"`
	ImprovedCandidate *ReviewCandidate `json:"improved_candidate,omitempty"`
}
