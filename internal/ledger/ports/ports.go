// Package ports defines the interfaces the ledger service consumes.
package ports

import (
	"context"

	"nameledger/internal/ledger/models"
	"nameledger/pkg/platform/audit"
)

// AuditPublisher emits audit events for accepted and rejected mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LeaseCache is a read-through cache for lease lookups. Mutations never read
// from it; they write through after commit.
type LeaseCache interface {
	// Get returns sentinel.ErrNotFound on a miss.
	Get(ctx context.Context, name string) (*models.LeaseRecord, error)
	// Set must not replace a cached record whose ExpiresAt is the same or
	// later: lookups fill the cache with what they read, and that read may
	// predate a mutation that has already written through.
	Set(ctx context.Context, lease *models.LeaseRecord) error
	Invalidate(ctx context.Context, name string) error
}
