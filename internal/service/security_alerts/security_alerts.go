package security_alerts

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nickhealDD/ghas-jira-sync/internal/model"
)

// Repository identifies the repository whose alert feeds are read.
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// AlertSource lists open alerts of a single category.
type AlertSource interface {
	ListOpenAlerts(ctx context.Context, category model.Category, repo Repository) ([]model.UnifiedAlert, error)
}

// SourceError is a failed alert-feed request with the HTTP status the
// platform answered with (zero when no response was received).
type SourceError struct {
	Category   model.Category
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("listing %s alerts: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("listing %s alerts: HTTP %d: %v", e.Category, e.StatusCode, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsAccessDenied reports whether err means the feature is unavailable or
// not permitted for the repository (404 or 403). Such failures are not fatal.
func IsAccessDenied(err error) bool {
	var sourceErr *SourceError
	if !errors.As(err, &sourceErr) {
		return false
	}
	return sourceErr.StatusCode == http.StatusNotFound || sourceErr.StatusCode == http.StatusForbidden
}
