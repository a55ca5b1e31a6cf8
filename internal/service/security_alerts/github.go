package security_alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/nickhealDD/ghas-jira-sync/internal/mapper"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
)

const (
	userAgent = "ghas-jira-sync/1.0.0"
	perPage   = 100
)

type gitHubAlertSource struct {
	client *github.Client
}

func NewGitHubAlertSource(client *github.Client) AlertSource {
	return &gitHubAlertSource{client: client}
}

// NewGitHubClient builds an authenticated client. baseURL is optional and
// points at a GitHub Enterprise Server API root.
func NewGitHubClient(token, baseURL string) (*github.Client, error) {
	client := github.NewClient(nil).WithAuthToken(token)
	client.UserAgent = userAgent

	if baseURL == "" {
		return client, nil
	}

	apiURL := strings.TrimSuffix(baseURL, "/") + "/"
	enterprise, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("configuring github base url: %w", err)
	}
	return enterprise, nil
}

// ListOpenAlerts fetches the first page (up to 100) of open alerts.
func (s *gitHubAlertSource) ListOpenAlerts(ctx context.Context, category model.Category, repo Repository) ([]model.UnifiedAlert, error) {
	switch category {
	case model.CategoryCodeScanning:
		alerts, resp, err := s.client.CodeScanning.ListAlertsForRepo(ctx, repo.Owner, repo.Name, &github.AlertListOptions{
			State:       "open",
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		if err != nil {
			return nil, sourceError(category, resp, err)
		}
		return mapper.CodeScanning.Map(alerts), nil

	case model.CategoryDependabot:
		alerts, resp, err := s.client.Dependabot.ListRepoAlerts(ctx, repo.Owner, repo.Name, &github.ListAlertsOptions{
			State:       github.String("open"),
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		if err != nil {
			return nil, sourceError(category, resp, err)
		}
		return mapper.Dependabot.Map(alerts), nil

	case model.CategorySecretScanning:
		alerts, resp, err := s.client.SecretScanning.ListAlertsForRepo(ctx, repo.Owner, repo.Name, &github.SecretScanningAlertListOptions{
			State:       "open",
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		if err != nil {
			return nil, sourceError(category, resp, err)
		}
		return mapper.SecretScanning.Map(alerts), nil

	default:
		return nil, fmt.Errorf("unknown alert category %q", category)
	}
}

func sourceError(category model.Category, resp *github.Response, err error) error {
	statusCode := 0
	if resp != nil && resp.Response != nil {
		statusCode = resp.StatusCode
	}

	var ghErr *github.ErrorResponse
	if statusCode == 0 && errors.As(err, &ghErr) && ghErr.Response != nil {
		statusCode = ghErr.Response.StatusCode
	}

	return &SourceError{Category: category, StatusCode: statusCode, Err: err}
}
