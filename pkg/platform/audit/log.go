package audit

import (
	"context"
	"log/slog"

	"nameledger/pkg/requestcontext"
)

// Emitter accepts audit events. *publisher.Publisher satisfies it.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Log writes event to the structured logger and, when emitter is non-nil, to
// the audit trail. Emit failures are logged and never fail the operation that
// produced the event.
func Log(ctx context.Context, logger *slog.Logger, emitter Emitter, event Event) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if logger != nil {
		args := []any{
			"event", event.Action,
			"log_type", "audit",
			"actor", event.Actor.String(),
			"subject", event.Subject,
		}
		if event.Years != 0 {
			args = append(args, "years", event.Years)
		}
		if event.Amount != "" {
			args = append(args, "amount", event.Amount)
		}
		if event.Reason != "" {
			args = append(args, "reason", event.Reason)
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		logger.InfoContext(ctx, event.Action, args...)
	}

	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
