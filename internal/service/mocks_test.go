package service_test

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/nickhealDD/ghas-jira-sync/internal/model"
	"github.com/nickhealDD/ghas-jira-sync/internal/runlock"
	"github.com/nickhealDD/ghas-jira-sync/internal/service"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/issue_tracker"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/security_alerts"
)

type mockAlertSource struct {
	listFn func(ctx context.Context, category model.Category, repo security_alerts.Repository) ([]model.UnifiedAlert, error)
}

func (m *mockAlertSource) ListOpenAlerts(ctx context.Context, category model.Category, repo security_alerts.Repository) ([]model.UnifiedAlert, error) {
	if m.listFn != nil {
		return m.listFn(ctx, category, repo)
	}
	return nil, nil
}

// alertsByCategory serves fixed lists per category.
func alertsByCategory(lists map[model.Category][]model.UnifiedAlert) *mockAlertSource {
	return &mockAlertSource{
		listFn: func(_ context.Context, category model.Category, _ security_alerts.Repository) ([]model.UnifiedAlert, error) {
			return lists[category], nil
		},
	}
}

type mockIssueTracker struct {
	mu          sync.Mutex
	searchFn    func(ctx context.Context, params issue_tracker.SearchParams) ([]model.Ticket, error)
	createFn    func(ctx context.Context, payload issue_tracker.CreateIssuePayload) (string, error)
	searchCalls []issue_tracker.SearchParams
	createCalls []issue_tracker.CreateIssuePayload
}

func (m *mockIssueTracker) SearchIssues(ctx context.Context, params issue_tracker.SearchParams) ([]model.Ticket, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, params)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, params)
	}
	return nil, nil
}

func (m *mockIssueTracker) CreateIssue(ctx context.Context, payload issue_tracker.CreateIssuePayload) (string, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, payload)
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, payload)
	}
	return "SEC-1", nil
}

var jqlLabelPattern = regexp.MustCompile(`labels = "([^"]+)"`)

// memoryTracker keeps created issues so label searches find them later.
type memoryTracker struct {
	issues []memoryIssue
	next   int
}

type memoryIssue struct {
	ticket model.Ticket
	labels []string
}

func (m *memoryTracker) SearchIssues(_ context.Context, params issue_tracker.SearchParams) ([]model.Ticket, error) {
	match := jqlLabelPattern.FindStringSubmatch(params.JQL)
	if match == nil {
		return nil, nil
	}
	var found []model.Ticket
	for _, issue := range m.issues {
		for _, l := range issue.labels {
			if l == match[1] {
				found = append(found, issue.ticket)
			}
		}
	}
	return found, nil
}

func (m *memoryTracker) CreateIssue(_ context.Context, payload issue_tracker.CreateIssuePayload) (string, error) {
	m.next++
	key := fmt.Sprintf("SEC-%d", m.next)
	m.issues = append(m.issues, memoryIssue{
		ticket: model.Ticket{ID: fmt.Sprint(m.next), Key: key, Summary: payload.Fields.Summary, Status: "To Do"},
		labels: payload.Fields.Labels,
	})
	return key, nil
}

type mockResolver struct {
	resolveFn func(ctx context.Context, params service.ResolveParams) (*model.Ticket, error)
}

func (m *mockResolver) Resolve(ctx context.Context, params service.ResolveParams) (*model.Ticket, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, params)
	}
	return nil, nil
}

type mockLocker struct {
	acquireFn    func(ctx context.Context, key string) (runlock.ReleaseFunc, error)
	releaseCalls int
}

func (m *mockLocker) Acquire(ctx context.Context, key string) (runlock.ReleaseFunc, error) {
	if m.acquireFn != nil {
		return m.acquireFn(ctx, key)
	}
	return func(context.Context) error {
		m.releaseCalls++
		return nil
	}, nil
}

func alertURL(category model.Category, n int) string {
	return fmt.Sprintf("https://github.com/acme/widgets/security/%s/%d", category, n)
}

func newAlert(category model.Category, n int, title string) model.UnifiedAlert {
	return model.UnifiedAlert{
		ID:          fmt.Sprintf("%s-%d", category, n),
		Category:    category,
		Title:       title,
		Description: "details",
		Severity:    model.SeverityHigh,
		State:       model.StateOpen,
		URL:         alertURL(category, n),
	}
}

func hasLabel(jql, label string) bool {
	return strings.Contains(jql, `labels = "`+label+`"`)
}
