package model

import "time"

type (
	Category string
	Severity string
	State    string
)

// Category values are the platform's own URL path tokens so that ids and
// labels derived from them line up with alert URLs.
const (
	CategoryCodeScanning   Category = "code-scanning"
	CategoryDependabot     Category = "dependabot"
	CategorySecretScanning Category = "secret-scanning"
)

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityNote     Severity = "note"
)

const (
	StateOpen      State = "open"
	StateFixed     State = "fixed"
	StateDismissed State = "dismissed"
)

// Categories lists every alert category in fetch order.
func Categories() []Category {
	return []Category{CategoryCodeScanning, CategoryDependabot, CategorySecretScanning}
}

// UnifiedAlert is a category-agnostic view of a single security finding.
// URL is the deduplication anchor; ID is only unique within a run.
type UnifiedAlert struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	State       State     `json:"state"`
	URL         string    `json:"url"`

	Location             *string `json:"location,omitempty"`
	CVEID                *string `json:"cve_id,omitempty"`
	AffectedVersionRange *string `json:"affected_version_range,omitempty"`
	FixedVersion         *string `json:"fixed_version,omitempty"`
}
