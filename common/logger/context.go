package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every log record written with a context that
// carries them, so a run or alert never has to repeat its identifiers.
type LogFields struct {
	RunID      *int64  // Sync run (snowflake id)
	Repository *string // owner/repo being synced
	AlertID    *string // Run-local alert id, e.g. "dependabot-42"
	Category   *string // Alert category
	TicketKey  *string // Tracker issue key once known
	Component  string  // e.g. "ghas.service.syncer"
}

// WithLogFields merges fields into ctx; newer non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.Repository != nil {
		result.Repository = new.Repository
	}
	if new.AlertID != nil {
		result.AlertID = new.AlertID
	}
	if new.Category != nil {
		result.Category = new.Category
	}
	if new.TicketKey != nil {
		result.TicketKey = new.TicketKey
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper for inline LogFields: logger.LogFields{AlertID: logger.Ptr(a.ID)}
func Ptr[T any](v T) *T {
	return &v
}
