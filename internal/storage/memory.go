package storage

import (
	"context"
	"sync"
	"time"

	ledgermodels "nameledger/internal/ledger/models"
	treasurymodels "nameledger/internal/treasury/models"
	"nameledger/pkg/platform/sentinel"
)

// Memory keeps registry state in process. A unit of work stages its writes
// and applies them only when the body succeeds, so a failed operation leaves
// no trace.
type Memory struct {
	mu      sync.RWMutex
	leases  map[string]*ledgermodels.LeaseRecord
	policy  *treasurymodels.PolicyState
	timeout time.Duration
}

type MemoryOption func(*Memory)

// WithTxTimeout overrides DefaultTxTimeout.
func WithTxTimeout(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.timeout = d
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{leases: make(map[string]*ledgermodels.LeaseRecord)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	ctx, cancel, err := TxContext(ctx, m.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return TimeoutError(err)
	}

	tx := &memoryTx{m: m, leases: make(map[string]*ledgermodels.LeaseRecord)}
	if err := fn(ctx, tx.stores()); err != nil {
		return TimeoutError(err)
	}
	if err := ctx.Err(); err != nil {
		return TimeoutError(err)
	}
	tx.commit()
	return nil
}

func (m *Memory) RunReadOnly(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	ctx, cancel, err := TxContext(ctx, m.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	m.mu.RLock()
	defer m.mu.RUnlock()

	tx := &memoryTx{m: m, readOnly: true}
	return TimeoutError(fn(ctx, tx.stores()))
}

func (m *Memory) Bootstrap(_ context.Context, initial *treasurymodels.PolicyState) (*treasurymodels.PolicyState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.policy != nil {
		return m.policy.Clone(), false, nil
	}
	m.policy = initial.Clone()
	return m.policy.Clone(), true, nil
}

// memoryTx is the staging area of one unit of work. Callers hold m.mu.
type memoryTx struct {
	m        *Memory
	readOnly bool
	leases   map[string]*ledgermodels.LeaseRecord
	policy   *treasurymodels.PolicyState
}

func (tx *memoryTx) stores() Stores {
	return Stores{
		Leases: memoryLeases{tx: tx},
		Policy: memoryPolicy{tx: tx},
	}
}

func (tx *memoryTx) commit() {
	for name, lease := range tx.leases {
		tx.m.leases[name] = lease
	}
	if tx.policy != nil {
		tx.m.policy = tx.policy
	}
}

type memoryLeases struct {
	tx *memoryTx
}

func (s memoryLeases) FindByName(_ context.Context, name string) (*ledgermodels.LeaseRecord, error) {
	if lease, ok := s.tx.leases[name]; ok {
		return lease.Clone(), nil
	}
	if lease, ok := s.tx.m.leases[name]; ok {
		return lease.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s memoryLeases) Save(_ context.Context, lease *ledgermodels.LeaseRecord) error {
	if s.tx.readOnly {
		return ErrReadOnly
	}
	s.tx.leases[lease.Name] = lease.Clone()
	return nil
}

type memoryPolicy struct {
	tx *memoryTx
}

func (s memoryPolicy) Load(_ context.Context) (*treasurymodels.PolicyState, error) {
	if s.tx.policy != nil {
		return s.tx.policy.Clone(), nil
	}
	if s.tx.m.policy != nil {
		return s.tx.m.policy.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s memoryPolicy) Save(_ context.Context, policy *treasurymodels.PolicyState) error {
	if s.tx.readOnly {
		return ErrReadOnly
	}
	s.tx.policy = policy.Clone()
	return nil
}
