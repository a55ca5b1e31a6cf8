package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nickhealDD/ghas-jira-sync/core/config"
	"github.com/nickhealDD/ghas-jira-sync/internal/runlock"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/issue_tracker"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/security_alerts"
)

const trackerTimeout = 30 * time.Second

// NewSyncerFromConfig builds the GitHub and Jira clients and the loop on top
// of them. locker may be nil.
func NewSyncerFromConfig(cfg config.Config, locker runlock.Locker) (Syncer, error) {
	gh, err := security_alerts.NewGitHubClient(cfg.GitHub.Token, cfg.GitHub.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating github client: %w", err)
	}

	tracker, err := issue_tracker.NewJiraIssueTracker(issue_tracker.JiraConfig{
		Host:     cfg.Jira.Host,
		Email:    cfg.Jira.Email,
		APIToken: cfg.Jira.APIToken,
	}, &http.Client{Timeout: trackerTimeout})
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}

	return NewSyncer(
		security_alerts.NewGitHubAlertSource(gh),
		NewTicketResolver(tracker),
		NewTicketWriter(tracker, time.Local),
		locker,
	), nil
}

// ParamsFromConfig is the sync target described by cfg.
func ParamsFromConfig(cfg config.Config) SyncParams {
	return SyncParams{
		Repository: security_alerts.Repository{Owner: cfg.GitHub.Owner, Name: cfg.GitHub.Repo},
		ProjectKey: cfg.Jira.Project,
		EpicKey:    cfg.Jira.Epic,
		DryRun:     cfg.DryRun,
	}
}
