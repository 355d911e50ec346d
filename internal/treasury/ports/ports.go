// Package ports defines the interfaces the treasury service consumes.
package ports

import (
	"context"

	"nameledger/internal/treasury/models"
	"nameledger/pkg/platform/audit"
)

// AuditPublisher emits audit events for policy changes and withdrawals.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditReader lists recorded audit events for a subject.
type AuditReader interface {
	List(ctx context.Context, subject string) ([]audit.Event, error)
}

// Settler hands a transfer instruction to the settlement layer. Settle runs
// inside the withdrawal unit of work: an error rolls the withdrawal back.
type Settler interface {
	Settle(ctx context.Context, instruction *models.TransferInstruction) error
}
