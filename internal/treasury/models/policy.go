package models

import (
	"time"

	"github.com/holiman/uint256"

	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

// RatioScale is the denominator of RenewRatio: ratios are stored in tenths.
const RatioScale = 10

// PolicyState is the registry-wide pricing and treasury state.
//
// Invariants:
//   - Admin is fixed when the policy is created and never reassigned
//   - OneYearCharge and Balance are non-negative integers in the smallest unit
//   - Balance equals accepted payments minus withdrawn amounts
//   - Only Credit increases Balance and only Drain decreases it
//   - WithdrawalSeq counts committed non-empty drains
type PolicyState struct {
	Admin         domain.Address
	OneYearCharge *uint256.Int
	RenewRatio    uint64
	Balance       *uint256.Int
	WithdrawalSeq uint64
	UpdatedAt     time.Time
}

// NewPolicyState builds the initial policy with an empty balance.
func NewPolicyState(admin domain.Address, oneYearCharge *uint256.Int, renewRatio uint64, now time.Time) (*PolicyState, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "policy admin is required")
	}
	if oneYearCharge == nil {
		oneYearCharge = new(uint256.Int)
	}
	return &PolicyState{
		Admin:         admin,
		OneYearCharge: oneYearCharge.Clone(),
		RenewRatio:    renewRatio,
		Balance:       new(uint256.Int),
		UpdatedAt:     now,
	}, nil
}

// IsAdmin reports whether caller is the policy administrator.
func (p *PolicyState) IsAdmin(caller domain.Address) bool {
	return !caller.IsZero() && caller == p.Admin
}

// RegistrationCharge is years × OneYearCharge. ok is false when the product
// does not fit in 256 bits; such a charge can never be paid exactly.
func (p *PolicyState) RegistrationCharge(years int) (charge *uint256.Int, ok bool) {
	if years < 0 {
		return nil, false
	}
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(uint64(years)), p.OneYearCharge)
	if overflow {
		return nil, false
	}
	return product, true
}

// RenewalCharge is years × OneYearCharge × RenewRatio / 10, multiplying
// before dividing so fractional ratios are exact whenever the result is.
func (p *PolicyState) RenewalCharge(years int) (charge *uint256.Int, ok bool) {
	base, ok := p.RegistrationCharge(years)
	if !ok {
		return nil, false
	}
	scaled, overflow := new(uint256.Int).MulOverflow(base, uint256.NewInt(p.RenewRatio))
	if overflow {
		return nil, false
	}
	return scaled.Div(scaled, uint256.NewInt(RatioScale)), true
}

// Credit adds an accepted payment to the balance.
func (p *PolicyState) Credit(amount *uint256.Int, now time.Time) error {
	if amount == nil {
		return nil
	}
	sum, overflow := new(uint256.Int).AddOverflow(p.Balance, amount)
	if overflow {
		return dErrors.New(dErrors.CodeInvariantViolation, "treasury balance overflow")
	}
	p.Balance = sum
	p.UpdatedAt = now
	return nil
}

// Drain empties the balance and returns what it held with the sequence
// number of this drain. An empty balance drains nothing and keeps the
// sequence.
func (p *PolicyState) Drain(now time.Time) (drained *uint256.Int, seq uint64) {
	drained = p.Balance.Clone()
	if drained.IsZero() {
		return drained, p.WithdrawalSeq
	}
	p.Balance = new(uint256.Int)
	p.WithdrawalSeq++
	p.UpdatedAt = now
	return drained, p.WithdrawalSeq
}

// ApplyOneYearCharge replaces the per-year price.
func (p *PolicyState) ApplyOneYearCharge(amount *uint256.Int, now time.Time) {
	p.OneYearCharge = amount.Clone()
	p.UpdatedAt = now
}

// ApplyRenewRatio replaces the renewal multiplier.
func (p *PolicyState) ApplyRenewRatio(ratio uint64, now time.Time) {
	p.RenewRatio = ratio
	p.UpdatedAt = now
}

// Clone returns a deep copy so stores never share amount pointers with callers.
func (p *PolicyState) Clone() *PolicyState {
	if p == nil {
		return nil
	}
	c := *p
	c.OneYearCharge = p.OneYearCharge.Clone()
	c.Balance = p.Balance.Clone()
	return &c
}

// Quote is the exact payment required for a given lease length.
type Quote struct {
	Years        int
	Registration *uint256.Int
	Renewal      *uint256.Int
}

// ErrAdminOnly rejects policy and treasury operations from anyone but Admin.
var ErrAdminOnly = dErrors.NewWithReason(dErrors.CodeAccessDenied, dErrors.ReasonAdminOnly, "access denied: registry admin only")
