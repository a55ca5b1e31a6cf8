package mapper

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/nickhealDD/ghas-jira-sync/internal/model"
)

// NativeAlert holds the raw fields pulled out of a platform alert before the
// category tables are applied.
type NativeAlert struct {
	CreatedAt            time.Time
	Number               int
	Title                string
	Description          string
	Severity             string
	State                string
	URL                  string
	Location             string
	CVEID                string
	AffectedVersionRange string
	FixedVersion         string
}

// CategoryMapping normalizes one category's native alerts. Every category
// shares the same control flow and differs only in these tables.
type CategoryMapping[T any] struct {
	Category model.Category

	// Severities is keyed by lowercased native severity. When nil,
	// FixedSeverity is used for every alert.
	Severities    map[string]model.Severity
	FixedSeverity model.Severity

	// FixedState is the native token meaning resolved; "open" maps to open
	// and anything else to dismissed.
	FixedState string

	// MissingState is used when the alert carries no state. Zero means open.
	MissingState model.State

	Extract func(T) NativeAlert
}

func (m CategoryMapping[T]) Map(alerts []T) []model.UnifiedAlert {
	unified := make([]model.UnifiedAlert, 0, len(alerts))
	for _, a := range alerts {
		unified = append(unified, m.MapOne(a))
	}
	return unified
}

func (m CategoryMapping[T]) MapOne(alert T) model.UnifiedAlert {
	native := m.Extract(alert)

	createdAt := native.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return model.UnifiedAlert{
		ID:                   fmt.Sprintf("%s-%d", m.Category, native.Number),
		Category:             m.Category,
		Title:                native.Title,
		Description:          native.Description,
		Severity:             m.severity(native.Severity),
		State:                m.state(native.State),
		URL:                  native.URL,
		CreatedAt:            createdAt,
		Location:             optional(native.Location),
		CVEID:                optional(native.CVEID),
		AffectedVersionRange: optional(native.AffectedVersionRange),
		FixedVersion:         optional(native.FixedVersion),
	}
}

func (m CategoryMapping[T]) severity(raw string) model.Severity {
	if m.Severities == nil {
		return m.FixedSeverity
	}
	if s, ok := m.Severities[strings.ToLower(raw)]; ok {
		return s
	}
	return model.SeverityMedium
}

func (m CategoryMapping[T]) state(raw string) model.State {
	switch raw {
	case "":
		if m.MissingState != "" {
			return m.MissingState
		}
		return model.StateOpen
	case "open":
		return model.StateOpen
	case m.FixedState:
		return model.StateFixed
	default:
		return model.StateDismissed
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var CodeScanning = CategoryMapping[*github.Alert]{
	Category: model.CategoryCodeScanning,
	Severities: map[string]model.Severity{
		"critical": model.SeverityCritical,
		"high":     model.SeverityHigh,
		"medium":   model.SeverityMedium,
		"low":      model.SeverityLow,
		"warning":  model.SeverityWarning,
		"error":    model.SeverityError,
		"note":     model.SeverityNote,
	},
	FixedState: "fixed",
	Extract: func(a *github.Alert) NativeAlert {
		rule := a.GetRule()

		title := rule.GetDescription()
		if title == "" {
			title = rule.GetID()
		}
		if title == "" {
			title = "Unknown rule"
		}

		description := rule.GetFullDescription()
		if description == "" {
			description = rule.GetDescription()
		}

		return NativeAlert{
			Number:      a.GetNumber(),
			Title:       title,
			Description: description,
			Severity:    rule.GetSeverity(),
			State:       a.GetState(),
			URL:         a.GetHTMLURL(),
			CreatedAt:   a.GetCreatedAt().Time,
			Location:    a.GetMostRecentInstance().GetLocation().GetPath(),
		}
	},
}

var Dependabot = CategoryMapping[*github.DependabotAlert]{
	Category: model.CategoryDependabot,
	Severities: map[string]model.Severity{
		"critical": model.SeverityCritical,
		"high":     model.SeverityHigh,
		"medium":   model.SeverityMedium,
		"low":      model.SeverityLow,
	},
	FixedState:   "fixed",
	MissingState: model.StateDismissed,
	Extract: func(a *github.DependabotAlert) NativeAlert {
		advisory := a.GetSecurityAdvisory()
		vulnerability := a.GetSecurityVulnerability()

		pkg := a.GetDependency().GetPackage().GetName()
		if pkg == "" {
			pkg = "unknown package"
		}

		cve := advisory.GetCVEID()
		if cve == "" {
			cve = advisory.GetGHSAID()
		}

		return NativeAlert{
			Number:               a.GetNumber(),
			Title:                fmt.Sprintf("%s in %s", advisory.GetSummary(), pkg),
			Description:          advisory.GetDescription(),
			Severity:             advisory.GetSeverity(),
			State:                a.GetState(),
			URL:                  a.GetHTMLURL(),
			CreatedAt:            a.GetCreatedAt().Time,
			Location:             a.GetDependency().GetManifestPath(),
			CVEID:                cve,
			AffectedVersionRange: vulnerability.GetVulnerableVersionRange(),
			FixedVersion:         vulnerability.GetFirstPatchedVersion().GetIdentifier(),
		}
	},
}

// SecretScanning alerts are always critical: an exposed credential is
// treated as maximally severe whatever the platform reports.
var SecretScanning = CategoryMapping[*github.SecretScanningAlert]{
	Category:      model.CategorySecretScanning,
	FixedSeverity: model.SeverityCritical,
	FixedState:    "resolved",
	Extract: func(a *github.SecretScanningAlert) NativeAlert {
		return NativeAlert{
			Number:      a.GetNumber(),
			Title:       fmt.Sprintf("%s exposed", a.GetSecretTypeDisplayName()),
			Description: fmt.Sprintf("Secret type: %s", a.GetSecretType()),
			State:       a.GetState(),
			URL:         a.GetHTMLURL(),
			CreatedAt:   a.GetCreatedAt().Time,
			Location:    a.GetLocationsURL(),
		}
	},
}
