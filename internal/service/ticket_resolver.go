package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nickhealDD/ghas-jira-sync/common/logger"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/issue_tracker"
)

const textSearchCandidates = 5

// TicketResolver finds the ticket already filed for an alert, if any.
// A nil ticket with a nil error means no ticket exists.
type TicketResolver interface {
	Resolve(ctx context.Context, params ResolveParams) (*model.Ticket, error)
}

type ResolveParams struct {
	AlertURL   string
	ProjectKey string
	EpicKey    string // optional
}

type searchTier struct {
	name string
	// runs reports whether the tier applies given the previous tier's error.
	runs   func(params ResolveParams, prevErr error) bool
	search func(ctx context.Context, params ResolveParams, label string) (*model.Ticket, error)
}

type ticketResolver struct {
	tracker issue_tracker.IssueTracker
	tiers   []searchTier
}

func NewTicketResolver(tracker issue_tracker.IssueTracker) TicketResolver {
	r := &ticketResolver{tracker: tracker}
	r.tiers = []searchTier{
		{
			name:   "label",
			runs:   func(ResolveParams, error) bool { return true },
			search: r.searchByLabel,
		},
		{
			name: "epic_label",
			runs: func(params ResolveParams, prevErr error) bool {
				return prevErr != nil && params.EpicKey != ""
			},
			search: r.searchByEpicLabel,
		},
		{
			name:   "url_text",
			runs:   func(ResolveParams, error) bool { return true },
			search: r.searchByURLText,
		},
	}
	return r
}

func (r *ticketResolver) Resolve(ctx context.Context, params ResolveParams) (*model.Ticket, error) {
	label := AlertLabel(params.AlertURL)
	slog.DebugContext(ctx, "searching for existing ticket", "label", label)

	var prevErr error
	for _, tier := range r.tiers {
		if !tier.runs(params, prevErr) {
			continue
		}

		ticket, err := tier.search(ctx, params, label)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("resolving ticket for %s: %w", params.AlertURL, ctxErr)
			}
			slog.WarnContext(ctx, "ticket search tier failed",
				"tier", tier.name,
				"label", label,
				"error", err)
			prevErr = err
			continue
		}
		prevErr = nil

		if ticket != nil {
			slog.DebugContext(ctx, "existing ticket found",
				"tier", tier.name,
				"ticket_key", ticket.Key)
			return ticket, nil
		}
	}

	return nil, nil
}

func (r *ticketResolver) searchByLabel(ctx context.Context, params ResolveParams, label string) (*model.Ticket, error) {
	jql := fmt.Sprintf(`project = %s AND labels = "%s" ORDER BY created DESC`, params.ProjectKey, label)
	return r.first(ctx, jql)
}

func (r *ticketResolver) searchByEpicLabel(ctx context.Context, params ResolveParams, label string) (*model.Ticket, error) {
	jql := fmt.Sprintf(`project = %s AND parent = %s AND labels = "%s" ORDER BY created DESC`,
		params.ProjectKey, params.EpicKey, label)
	return r.first(ctx, jql)
}

// searchByURLText catches tickets whose labels were lost or edited. Full-text
// relevance is fuzzy, so a candidate only counts when its description
// contains the alert URL verbatim, attribute values included.
func (r *ticketResolver) searchByURLText(ctx context.Context, params ResolveParams, _ string) (*model.Ticket, error) {
	jql := fmt.Sprintf(`project = %s AND text ~ "%s" ORDER BY created DESC`,
		params.ProjectKey, SanitizeTextQuery(params.AlertURL))

	candidates, err := r.tracker.SearchIssues(ctx, issue_tracker.SearchParams{
		JQL:        jql,
		MaxResults: textSearchCandidates,
	})
	if err != nil {
		return nil, fmt.Errorf("searching issue text: %w", err)
	}

	for i := range candidates {
		if strings.Contains(candidates[i].SearchText, params.AlertURL) ||
			strings.Contains(candidates[i].Description, params.AlertURL) {
			slog.InfoContext(logger.WithLogFields(ctx, logger.LogFields{TicketKey: logger.Ptr(candidates[i].Key)}),
				"found existing ticket via URL search")
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (r *ticketResolver) first(ctx context.Context, jql string) (*model.Ticket, error) {
	issues, err := r.tracker.SearchIssues(ctx, issue_tracker.SearchParams{
		JQL:        jql,
		MaxResults: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("searching issues by label: %w", err)
	}
	if len(issues) == 0 {
		return nil, nil
	}
	return &issues[0], nil
}

var textQueryReplacer = strings.NewReplacer(":", " ", `"`, " ", "/", " ", `\`, " ")

// SanitizeTextQuery turns a URL into a full-text search term. Search engines
// tokenize on separators, and quotes or backslashes would break the query.
func SanitizeTextQuery(s string) string {
	return textQueryReplacer.Replace(s)
}
