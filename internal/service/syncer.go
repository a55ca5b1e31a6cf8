package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/nickhealDD/ghas-jira-sync/common/id"
	"github.com/nickhealDD/ghas-jira-sync/common/logger"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
	"github.com/nickhealDD/ghas-jira-sync/internal/runlock"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/security_alerts"
)

// Syncer reconciles a repository's open alerts against the tracker: every
// alert without a ticket gets one, nothing is ever updated or closed.
type Syncer interface {
	Sync(ctx context.Context, params SyncParams) (*model.SyncResult, error)
}

type SyncParams struct {
	Repository security_alerts.Repository
	ProjectKey string
	EpicKey    string
	DryRun     bool
}

type alertOutcome int

const (
	outcomeExisting alertOutcome = iota
	outcomeCreated
	outcomeDryRun
	outcomeFailed
)

type syncer struct {
	source   security_alerts.AlertSource
	resolver TicketResolver
	writer   TicketWriter
	locker   runlock.Locker
}

// NewSyncer wires the loop. A nil locker means runs are not serialized
// across processes.
func NewSyncer(source security_alerts.AlertSource, resolver TicketResolver, writer TicketWriter, locker runlock.Locker) Syncer {
	if locker == nil {
		locker = runlock.NewNoopLocker()
	}
	return &syncer{
		source:   source,
		resolver: resolver,
		writer:   writer,
		locker:   locker,
	}
}

func (s *syncer) Sync(ctx context.Context, params SyncParams) (*model.SyncResult, error) {
	runID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:      &runID,
		Repository: logger.Ptr(params.Repository.String()),
		Component:  "ghas.service.syncer",
	})

	span := logger.StartSpan(ctx, "sync.run")
	defer span.End()
	ctx = span.Context()
	span.SetAttributes(
		attribute.Int64("sync.run_id", runID),
		attribute.String("sync.repository", params.Repository.String()),
		attribute.Bool("sync.dry_run", params.DryRun),
	)

	release, err := s.locker.Acquire(ctx, runlock.Key(params.Repository.String(), params.ProjectKey))
	if err != nil {
		if !errors.Is(err, runlock.ErrLocked) {
			span.RecordError(err)
		}
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "failed to release run lock", "error", err)
		}
	}()

	slog.InfoContext(ctx, "fetching alerts")

	alerts, byCategory, err := s.fetchAll(ctx, params.Repository)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &model.SyncResult{
		RunID:       runID,
		TotalAlerts: len(alerts),
		ByCategory:  byCategory,
	}

	slog.InfoContext(ctx, "alerts fetched",
		"total", len(alerts),
		"code_scanning", byCategory[model.CategoryCodeScanning],
		"dependabot", byCategory[model.CategoryDependabot],
		"secret_scanning", byCategory[model.CategorySecretScanning])

	if len(alerts) == 0 {
		slog.InfoContext(ctx, "no alerts to process")
		return result, nil
	}

	slog.InfoContext(ctx, "processing alerts", "dry_run", params.DryRun)

	// One alert at a time: a parallel search-then-create on the same label
	// would file duplicates.
	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return result, fmt.Errorf("sync interrupted: %w", err)
		}

		switch s.processAlertSafe(ctx, params, alert) {
		case outcomeExisting:
			result.ExistingTickets++
		case outcomeCreated, outcomeDryRun:
			result.NewTickets++
		case outcomeFailed:
			result.Errors++
		}
	}

	span.SetAttributes(
		attribute.Int("sync.total_alerts", result.TotalAlerts),
		attribute.Int("sync.new_tickets", result.NewTickets),
		attribute.Int("sync.existing_tickets", result.ExistingTickets),
		attribute.Int("sync.errors", result.Errors),
	)

	slog.InfoContext(ctx, "sync summary",
		"total_alerts", result.TotalAlerts,
		"new_tickets", result.NewTickets,
		"existing_tickets", result.ExistingTickets,
		"errors", result.Errors)

	return result, nil
}

// fetchAll reads the three categories concurrently. Alerts come back in
// category order regardless of which request finished first.
func (s *syncer) fetchAll(ctx context.Context, repo security_alerts.Repository) ([]model.UnifiedAlert, map[model.Category]int, error) {
	categories := model.Categories()
	lists := make([][]model.UnifiedAlert, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			alerts, err := s.source.ListOpenAlerts(gctx, category, repo)
			if err != nil {
				if security_alerts.IsAccessDenied(err) {
					slog.WarnContext(ctx, "alert feed not available, skipping category",
						"category", category,
						"error", err)
					return nil
				}
				return err
			}
			lists[i] = alerts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetching alerts: %w", err)
	}

	byCategory := make(map[model.Category]int, len(categories))
	var all []model.UnifiedAlert
	for i, category := range categories {
		byCategory[category] = len(lists[i])
		all = append(all, lists[i]...)
	}
	return all, byCategory, nil
}

func (s *syncer) processAlertSafe(ctx context.Context, params SyncParams, alert model.UnifiedAlert) (outcome alertOutcome) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AlertID:  logger.Ptr(alert.ID),
		Category: logger.Ptr(string(alert.Category)),
	})

	span := logger.StartSpan(ctx, "sync.alert")
	defer span.End()
	ctx = span.Context()
	span.SetAttributes(
		attribute.String("alert.id", alert.ID),
		attribute.String("alert.url", alert.URL),
	)

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in alert processing",
				"panic", r,
				"title", alert.Title,
				"url", alert.URL)
			span.RecordError(fmt.Errorf("panic: %v", r))
			outcome = outcomeFailed
		}
	}()

	outcome, err := s.processAlert(ctx, params, alert)
	if err != nil {
		span.RecordError(err)
	}
	return outcome
}

func (s *syncer) processAlert(ctx context.Context, params SyncParams, alert model.UnifiedAlert) (alertOutcome, error) {
	existing, err := s.resolver.Resolve(ctx, ResolveParams{
		AlertURL:   alert.URL,
		ProjectKey: params.ProjectKey,
		EpicKey:    params.EpicKey,
	})
	if err != nil {
		slog.ErrorContext(ctx, "error processing alert",
			"title", alert.Title,
			"url", alert.URL,
			"error", err)
		return outcomeFailed, err
	}

	if existing != nil {
		slog.InfoContext(ctx, "ticket already exists",
			"title", alert.Title,
			"ticket_key", existing.Key)
		return outcomeExisting, nil
	}

	if params.DryRun {
		slog.InfoContext(ctx, "dry run: would create ticket",
			"title", alert.Title,
			"severity", alert.Severity)
		return outcomeDryRun, nil
	}

	key, err := s.writer.Create(ctx, CreateTicketParams{
		ProjectKey: params.ProjectKey,
		EpicKey:    params.EpicKey,
		Alert:      alert,
	})
	if err != nil {
		attrs := []any{
			"title", alert.Title,
			"url", alert.URL,
			"error", err,
		}
		var creationErr *TicketCreationError
		if errors.As(err, &creationErr) && creationErr.Details != "" {
			attrs = append(attrs, "details", creationErr.Details)
		}
		slog.ErrorContext(ctx, "error creating ticket", attrs...)
		return outcomeFailed, err
	}

	slog.InfoContext(logger.WithLogFields(ctx, logger.LogFields{TicketKey: &key}), "created ticket",
		"title", alert.Title,
		"severity", alert.Severity)
	return outcomeCreated, nil
}
