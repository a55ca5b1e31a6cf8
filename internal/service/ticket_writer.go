package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nickhealDD/ghas-jira-sync/internal/adf"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/issue_tracker"
)

const (
	issueTypeTask   = "Task"
	createdLayout   = "Jan 2, 2006, 3:04:05 PM MST"
	attributionText = "This ticket was automatically created by ghas-jira-sync"
	defaultPriority = "Medium"
)

var priorityBySeverity = map[model.Severity]string{
	model.SeverityCritical: "Highest",
	model.SeverityHigh:     "High",
	model.SeverityError:    "High",
	model.SeverityMedium:   "Medium",
	model.SeverityWarning:  "Medium",
	model.SeverityLow:      "Low",
	model.SeverityNote:     "Lowest",
}

type TicketWriter interface {
	Create(ctx context.Context, params CreateTicketParams) (string, error)
}

type CreateTicketParams struct {
	ProjectKey string
	EpicKey    string
	Alert      model.UnifiedAlert
}

// TicketCreationError is a rejected create. Details holds the tracker's error
// payload as indented JSON when it sent one.
type TicketCreationError struct {
	AlertURL string
	Details  string
	Err      error
}

func (e *TicketCreationError) Error() string {
	return fmt.Sprintf("creating ticket for %s: %v", e.AlertURL, e.Err)
}

func (e *TicketCreationError) Unwrap() error {
	return e.Err
}

type ticketWriter struct {
	tracker  issue_tracker.IssueTracker
	location *time.Location
}

// NewTicketWriter renders timestamps in loc; nil means the process's local zone.
func NewTicketWriter(tracker issue_tracker.IssueTracker, loc *time.Location) TicketWriter {
	if loc == nil {
		loc = time.Local
	}
	return &ticketWriter{
		tracker:  tracker,
		location: loc,
	}
}

func (w *ticketWriter) Create(ctx context.Context, params CreateTicketParams) (string, error) {
	payload := BuildIssuePayload(params, w.location)
	slog.DebugContext(ctx, "creating ticket", "labels", strings.Join(payload.Fields.Labels, ", "))

	key, err := w.tracker.CreateIssue(ctx, payload)
	if err != nil {
		creationErr := &TicketCreationError{AlertURL: params.Alert.URL, Err: err}
		var apiErr *issue_tracker.APIError
		if errors.As(err, &apiErr) {
			creationErr.Details = apiErr.Details()
		}
		return "", creationErr
	}
	return key, nil
}

func BuildIssuePayload(params CreateTicketParams, loc *time.Location) issue_tracker.CreateIssuePayload {
	alert := params.Alert
	return issue_tracker.CreateIssuePayload{
		Fields: issue_tracker.IssueFields{
			Project:     issue_tracker.KeyRef{Key: params.ProjectKey},
			Summary:     fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Category)), alert.Title),
			Description: BuildDescription(alert, loc),
			IssueType:   issue_tracker.NameRef{Name: issueTypeTask},
			Priority:    &issue_tracker.NameRef{Name: PriorityFor(alert.Severity)},
			Parent:      &issue_tracker.KeyRef{Key: params.EpicKey},
			Labels: []string{
				"ghas",
				string(alert.Category),
				"severity-" + string(alert.Severity),
				AlertLabel(alert.URL),
			},
		},
	}
}

func PriorityFor(severity model.Severity) string {
	if p, ok := priorityBySeverity[severity]; ok {
		return p
	}
	return defaultPriority
}

// BuildDescription lays out the ticket body. The block order is fixed; readers
// and the URL-text fallback search both depend on it.
func BuildDescription(alert model.UnifiedAlert, loc *time.Location) adf.Document {
	if loc == nil {
		loc = time.Local
	}

	content := []adf.Node{
		field("Alert Type: ", string(alert.Category)),
		field("Severity: ", strings.ToUpper(string(alert.Severity))),
		field("State: ", string(alert.State)),
		field("Created: ", alert.CreatedAt.In(loc).Format(createdLayout)),
		adf.Paragraph(adf.Text("Vulnerability Details", adf.MarkStrong)),
	}

	if alert.CVEID != nil {
		content = append(content, field("CVE ID: ", *alert.CVEID))
	}
	if alert.AffectedVersionRange != nil {
		content = append(content, field("Affected Versions: ", *alert.AffectedVersionRange))
	}
	if alert.FixedVersion != nil {
		content = append(content, field("Fixed in Version: ", *alert.FixedVersion))
	}

	content = append(content, adf.FromMarkup(alert.Description)...)

	if alert.Location != nil {
		content = append(content, field("Location: ", *alert.Location))
	}

	content = append(content,
		adf.Paragraph(adf.Text("GitHub Alert URL: ", adf.MarkStrong)),
		adf.Paragraph(adf.Text(alert.URL)),
		adf.Rule(),
		adf.Paragraph(adf.Text(attributionText, adf.MarkEm)),
	)

	return adf.NewDocument(content...)
}

func field(label, value string) adf.Node {
	return adf.Paragraph(adf.Text(label, adf.MarkStrong), adf.Text(value))
}
