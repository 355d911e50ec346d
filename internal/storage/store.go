// Package storage defines the unit of work that spans the lease table and the
// registry policy, and the in-memory backend used by tests and local runs.
// The Postgres backend lives in storage/postgres.
package storage

import (
	"context"
	"errors"
	"time"

	ledgermodels "nameledger/internal/ledger/models"
	treasurymodels "nameledger/internal/treasury/models"
	dErrors "nameledger/pkg/domain-errors"
)

// DefaultTxTimeout bounds a unit of work whose context carries no deadline.
const DefaultTxTimeout = 5 * time.Second

// LeaseStore persists lease records keyed by name.
type LeaseStore interface {
	// FindByName returns sentinel.ErrNotFound when the name was never leased.
	FindByName(ctx context.Context, name string) (*ledgermodels.LeaseRecord, error)
	Save(ctx context.Context, lease *ledgermodels.LeaseRecord) error
}

// PolicyStore persists the single registry policy row.
type PolicyStore interface {
	// Load returns sentinel.ErrNotFound before the policy is bootstrapped.
	Load(ctx context.Context) (*treasurymodels.PolicyState, error)
	Save(ctx context.Context, policy *treasurymodels.PolicyState) error
}

// Stores is the view of persistent state handed to a unit of work.
type Stores struct {
	Leases LeaseStore
	Policy PolicyStore
}

// UnitOfWork runs registry operations against a consistent view of state.
//
// RunInTx serializes mutations: at most one RunInTx body observes or modifies
// state at a time, and its writes become visible only if fn returns nil.
// RunReadOnly observes a consistent snapshot and rejects writes.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
	RunReadOnly(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// Backend is a UnitOfWork that can seed the registry policy.
type Backend interface {
	UnitOfWork
	// Bootstrap stores initial when no policy exists yet and returns the
	// policy in effect. created reports whether initial was stored.
	Bootstrap(ctx context.Context, initial *treasurymodels.PolicyState) (policy *treasurymodels.PolicyState, created bool, err error)
}

// ErrReadOnly is returned by stores handed to RunReadOnly when written to.
var ErrReadOnly = errors.New("write attempted in read-only unit of work")

// TxContext applies the default timeout when ctx has none and fails fast when
// ctx is already done.
func TxContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// TimeoutError converts context expiry into a coded timeout and passes other
// errors through.
func TimeoutError(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return err
}
