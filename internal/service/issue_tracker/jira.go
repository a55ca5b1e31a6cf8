package issue_tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	jira "github.com/andygrunwald/go-jira"

	"github.com/nickhealDD/ghas-jira-sync/internal/adf"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
)

const (
	searchPath = "rest/api/3/search/jql"
	issuePath  = "rest/api/3/issue"
)

type JiraConfig struct {
	Host     string
	Email    string
	APIToken string
}

type jiraIssueTracker struct {
	client *jira.Client
}

// NewJiraIssueTracker talks to Jira Cloud's v3 REST API with basic auth
// (account email + API token). httpClient is optional.
func NewJiraIssueTracker(cfg JiraConfig, httpClient *http.Client) (IssueTracker, error) {
	transport := jira.BasicAuthTransport{
		Username: cfg.Email,
		Password: cfg.APIToken,
	}
	if httpClient != nil && httpClient.Transport != nil {
		transport.Transport = httpClient.Transport
	}
	authClient := transport.Client()
	if httpClient != nil {
		authClient.Timeout = httpClient.Timeout
	}

	client, err := jira.NewClient(authClient, cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}

	return &jiraIssueTracker{client: client}, nil
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	Issues []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary     string          `json:"summary"`
			Description json.RawMessage `json:"description"`
			Status      *struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"fields"`
	} `json:"issues"`
}

func (t *jiraIssueTracker) SearchIssues(ctx context.Context, params SearchParams) ([]model.Ticket, error) {
	fields := params.Fields
	if len(fields) == 0 {
		fields = DefaultSearchFields
	}

	req, err := t.client.NewRequestWithContext(ctx, http.MethodPost, searchPath, searchRequest{
		JQL:        params.JQL,
		MaxResults: params.MaxResults,
		Fields:     fields,
	})
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	var out searchResponse
	resp, err := t.client.Do(req, &out)
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", apiError(resp, err))
	}

	tickets := make([]model.Ticket, 0, len(out.Issues))
	for _, issue := range out.Issues {
		status := "Unknown"
		if issue.Fields.Status != nil && issue.Fields.Status.Name != "" {
			status = issue.Fields.Status.Name
		}
		tickets = append(tickets, model.Ticket{
			ID:          issue.ID,
			Key:         issue.Key,
			Summary:     issue.Fields.Summary,
			Description: adf.DecodePlainText(issue.Fields.Description),
			SearchText:  adf.DecodeSearchText(issue.Fields.Description),
			Status:      status,
		})
	}

	return tickets, nil
}

type createResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

func (t *jiraIssueTracker) CreateIssue(ctx context.Context, payload CreateIssuePayload) (string, error) {
	req, err := t.client.NewRequestWithContext(ctx, http.MethodPost, issuePath, payload)
	if err != nil {
		return "", fmt.Errorf("building create request: %w", err)
	}

	var out createResponse
	resp, err := t.client.Do(req, &out)
	if err != nil {
		return "", fmt.Errorf("creating issue: %w", apiError(resp, err))
	}

	return out.Key, nil
}

// apiError converts a failed go-jira call into an *APIError, keeping the
// structured error body when the response had one.
func apiError(resp *jira.Response, err error) error {
	if resp == nil || resp.Response == nil || resp.StatusCode < http.StatusMultipleChoices {
		return err
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Err: err}

	var jiraErr *jira.Error
	if errors.As(jira.NewJiraError(resp, err), &jiraErr) {
		apiErr.ErrorMessages = jiraErr.ErrorMessages
		apiErr.Errors = jiraErr.Errors
	}

	return apiErr
}
