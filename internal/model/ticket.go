package model

// Ticket is the read-only view of an existing tracker issue.
type Ticket struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description"` // plain-text projection
	Status      string `json:"status"`

	// SearchText holds every string in the raw description, node attributes
	// included (inlineCard urls, link hrefs).
	SearchText string `json:"-"`
}
