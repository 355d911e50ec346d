// Package postgres implements the registry unit of work on PostgreSQL.
//
// Every mutating unit of work first locks the single registry_policy row, so
// registry mutations are totally ordered across all server instances.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	ledgermodels "nameledger/internal/ledger/models"
	"nameledger/internal/storage"
	treasurymodels "nameledger/internal/treasury/models"
	"nameledger/pkg/domain"
	"nameledger/pkg/platform/sentinel"
	txcontext "nameledger/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Migrate creates the registry tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type Store struct {
	db      *sql.DB
	timeout time.Duration
}

type Option func(*Store)

// WithTxTimeout overrides storage.DefaultTxTimeout.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, stores storage.Stores) error) error {
	return s.run(ctx, nil, true, fn)
}

func (s *Store) RunReadOnly(ctx context.Context, fn func(ctx context.Context, stores storage.Stores) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, false, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, lock bool, fn func(ctx context.Context, stores storage.Stores) error) error {
	ctx, cancel, err := storage.TxContext(ctx, s.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return storage.TimeoutError(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if lock {
		if _, err := tx.ExecContext(ctx, `SELECT id FROM registry_policy WHERE id = 1 FOR UPDATE`); err != nil {
			return storage.TimeoutError(fmt.Errorf("lock registry policy: %w", err))
		}
	}

	ctx = txcontext.WithTx(ctx, tx)
	if err := fn(ctx, storage.Stores{Leases: &leaseStore{db: s.db}, Policy: &policyStore{db: s.db}}); err != nil {
		return storage.TimeoutError(err)
	}
	if err := tx.Commit(); err != nil {
		return storage.TimeoutError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *Store) Bootstrap(ctx context.Context, initial *treasurymodels.PolicyState) (*treasurymodels.PolicyState, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_policy (id, admin, one_year_charge, renew_ratio, balance, withdrawal_seq, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, initial.Admin.String(), initial.OneYearCharge.Dec(), strconv.FormatUint(initial.RenewRatio, 10), initial.Balance.Dec(),
		strconv.FormatUint(initial.WithdrawalSeq, 10), initial.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert registry policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert registry policy: %w", err)
	}
	policy, err := (&policyStore{db: s.db}).Load(ctx)
	if err != nil {
		return nil, false, err
	}
	return policy, affected == 1, nil
}

type leaseStore struct {
	db *sql.DB
}

func (s *leaseStore) FindByName(ctx context.Context, name string) (*ledgermodels.LeaseRecord, error) {
	var (
		lease  ledgermodels.LeaseRecord
		holder string
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT name, holder, expires_at, updated_at
		FROM leases
		WHERE name = $1
	`, name).Scan(&lease.Name, &holder, &lease.ExpiresAt, &lease.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lease: %w", err)
	}
	lease.Holder = domain.Address(holder)
	lease.ExpiresAt = lease.ExpiresAt.UTC()
	lease.UpdatedAt = lease.UpdatedAt.UTC()
	return &lease, nil
}

func (s *leaseStore) Save(ctx context.Context, lease *ledgermodels.LeaseRecord) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO leases (name, holder, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			holder = EXCLUDED.holder,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, lease.Name, lease.Holder.String(), lease.ExpiresAt, lease.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save lease: %w", err)
	}
	return nil
}

type policyStore struct {
	db *sql.DB
}

func (s *policyStore) Load(ctx context.Context) (*treasurymodels.PolicyState, error) {
	var (
		admin, charge, ratio, balance, seq string
		updatedAt                          time.Time
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT admin, one_year_charge::text, renew_ratio::text, balance::text, withdrawal_seq::text, updated_at
		FROM registry_policy
		WHERE id = 1
	`).Scan(&admin, &charge, &ratio, &balance, &seq, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load registry policy: %w", err)
	}

	policy := &treasurymodels.PolicyState{
		Admin:     domain.Address(admin),
		UpdatedAt: updatedAt.UTC(),
	}
	if policy.OneYearCharge, err = uint256.FromDecimal(charge); err != nil {
		return nil, fmt.Errorf("%w: one_year_charge %q: %v", sentinel.ErrInvalidState, charge, err)
	}
	if policy.Balance, err = uint256.FromDecimal(balance); err != nil {
		return nil, fmt.Errorf("%w: balance %q: %v", sentinel.ErrInvalidState, balance, err)
	}
	if policy.RenewRatio, err = strconv.ParseUint(ratio, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: renew_ratio %q: %v", sentinel.ErrInvalidState, ratio, err)
	}
	if policy.WithdrawalSeq, err = strconv.ParseUint(seq, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: withdrawal_seq %q: %v", sentinel.ErrInvalidState, seq, err)
	}
	return policy, nil
}

func (s *policyStore) Save(ctx context.Context, policy *treasurymodels.PolicyState) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE registry_policy
		SET one_year_charge = $1, renew_ratio = $2, balance = $3, withdrawal_seq = $4, updated_at = $5
		WHERE id = 1
	`, policy.OneYearCharge.Dec(), strconv.FormatUint(policy.RenewRatio, 10), policy.Balance.Dec(),
		strconv.FormatUint(policy.WithdrawalSeq, 10), policy.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save registry policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save registry policy: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
