package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nickhealDD/ghas-jira-sync/common/logger"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
	"github.com/nickhealDD/ghas-jira-sync/internal/runlock"
	"github.com/nickhealDD/ghas-jira-sync/internal/service"
)

// Worker runs full syncs one at a time. Triggers that arrive while a sync is
// pending collapse into it; a trigger during a running sync queues one more.
type Worker struct {
	syncer service.Syncer
	params service.SyncParams

	triggerCh chan string
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(syncer service.Syncer, params service.SyncParams) *Worker {
	return &Worker{
		syncer:    syncer,
		params:    params,
		triggerCh: make(chan string, 1),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Trigger requests a sync without blocking. It reports false when the
// request was folded into one already pending.
func (w *Worker) Trigger(reason string) bool {
	select {
	case w.triggerCh <- reason:
		return true
	default:
		return false
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ghas.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		case reason := <-w.triggerCh:
			result, err := w.syncSafe(ctx, reason)
			switch {
			case errors.Is(err, runlock.ErrLocked):
				slog.InfoContext(ctx, "sync skipped, another run holds the lock", "reason", reason)
			case err != nil:
				slog.ErrorContext(ctx, "sync failed", "reason", reason, "error", err)
			case result.Failed():
				slog.WarnContext(ctx, "sync finished with errors",
					"reason", reason,
					"errors", result.Errors)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) syncSafe(ctx context.Context, reason string) (result *model.SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in sync", "panic", r, "reason", reason)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	slog.InfoContext(ctx, "sync triggered", "reason", reason)
	return w.syncer.Sync(ctx, w.params)
}
