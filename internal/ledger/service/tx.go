package service

import (
	"context"
	"errors"

	"nameledger/internal/ledger/models"
	"nameledger/internal/storage"
	treasurymodels "nameledger/internal/treasury/models"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/sentinel"
)

// loadPolicy reads the policy inside a unit of work. A registry without a
// policy has not been bootstrapped and cannot price anything.
func loadPolicy(ctx context.Context, stores storage.Stores) (*treasurymodels.PolicyState, error) {
	policy, err := stores.Policy.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registry policy is not initialised")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry policy")
	}
	return policy, nil
}

// findLease returns nil when name has never been leased.
func findLease(ctx context.Context, stores storage.Stores, name string) (*models.LeaseRecord, error) {
	lease, err := stores.Leases.FindByName(ctx, name)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lease")
	}
	return lease, nil
}

// translate keeps coded errors and classifies the rest.
func translate(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
