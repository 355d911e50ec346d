package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"nameledger/pkg/domain"
	audit "nameledger/pkg/platform/audit"
	txcontext "nameledger/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Appends made inside
// a registry transaction join it through the tx context.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an event. Duplicate IDs are ignored so redelivery from the
// async publisher stays idempotent.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	event = event.Normalize()
	query := `
		INSERT INTO audit_events (id, category, occurred_at, actor, subject, action, years, amount, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.Actor.String(),
		event.Subject,
		event.Action,
		event.Years,
		event.Amount,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT id, category, occurred_at, actor, subject, action, years, amount, reason, request_id
		FROM audit_events
		WHERE subject = $1
		ORDER BY occurred_at ASC
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
			actor    string
		)
		if err := rows.Scan(&e.ID, &category, &e.Timestamp, &actor, &e.Subject, &e.Action, &e.Years, &e.Amount, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Actor = domain.Address(actor)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
