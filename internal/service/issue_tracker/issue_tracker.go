package issue_tracker

import (
	"context"

	"github.com/nickhealDD/ghas-jira-sync/internal/adf"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
)

// DefaultSearchFields is the field set requested on every search.
var DefaultSearchFields = []string{"summary", "description", "status", "labels"}

type SearchParams struct {
	JQL        string
	MaxResults int
	Fields     []string // defaults to DefaultSearchFields
}

type KeyRef struct {
	Key string `json:"key"`
}

type NameRef struct {
	Name string `json:"name"`
}

type IssueFields struct {
	Project     KeyRef       `json:"project"`
	Summary     string       `json:"summary"`
	Description adf.Document `json:"description"`
	IssueType   NameRef      `json:"issuetype"`
	Priority    *NameRef     `json:"priority,omitempty"`
	Parent      *KeyRef      `json:"parent,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
}

type CreateIssuePayload struct {
	Fields IssueFields `json:"fields"`
}

type IssueTracker interface {
	SearchIssues(ctx context.Context, params SearchParams) ([]model.Ticket, error)
	CreateIssue(ctx context.Context, payload CreateIssuePayload) (string, error)
}
