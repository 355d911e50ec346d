package models

import (
	"time"

	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

const (
	MinLeaseYears = 1
	MaxLeaseYears = 10

	// LeaseYear is the fixed length of one lease year. Calendar drift is
	// deliberately ignored so expiry arithmetic stays exact.
	LeaseYear = 365 * 24 * time.Hour
)

// LeaseRecord is the current lease of one name.
//
// Invariants:
//   - A name with no record, or whose ExpiresAt is before now, is available
//   - Otherwise it is held and only Holder may renew it
//   - Records are never deleted; re-registration overwrites an expired record
//   - Every committed registration or renewal moves ExpiresAt strictly later
type LeaseRecord struct {
	Name      string         `json:"name"`
	Holder    domain.Address `json:"holder"`
	ExpiresAt time.Time      `json:"expires_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewLease builds the record for a fresh registration.
func NewLease(name string, holder domain.Address, years int, now time.Time) *LeaseRecord {
	return &LeaseRecord{
		Name:      name,
		Holder:    holder,
		ExpiresAt: now.Add(LeaseTerm(years)),
		UpdatedAt: now,
	}
}

// Unleased is the record reported for a name that was never registered.
func Unleased(name string) *LeaseRecord {
	return &LeaseRecord{Name: name, Holder: domain.ZeroAddress}
}

// IsAvailable reports whether the name may be registered at now.
func (l *LeaseRecord) IsAvailable(now time.Time) bool {
	return l == nil || l.Holder.IsZero() || l.ExpiresAt.Before(now)
}

// IsHeldBy reports whether caller is the recorded holder, expired or not.
func (l *LeaseRecord) IsHeldBy(caller domain.Address) bool {
	return l != nil && !caller.IsZero() && l.Holder == caller
}

// Extend adds years on top of the current expiry, not on top of now.
func (l *LeaseRecord) Extend(years int, now time.Time) {
	l.ExpiresAt = l.ExpiresAt.Add(LeaseTerm(years))
	l.UpdatedAt = now
}

// LeaseTerm converts whole lease years to a duration.
func LeaseTerm(years int) time.Duration {
	return time.Duration(years) * LeaseYear
}

// Kind distinguishes the two lease mutations when validating durations.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindRenewal      Kind = "renewal"
)

// ValidateYears enforces the [MinLeaseYears, MaxLeaseYears] bound.
func ValidateYears(kind Kind, years int) error {
	if years < MinLeaseYears {
		if kind == KindRenewal {
			return dErrors.NewWithReason(dErrors.CodeInvalidDuration, dErrors.ReasonTooShort,
				"a name cannot be renewed for less than one year")
		}
		return dErrors.NewWithReason(dErrors.CodeInvalidDuration, dErrors.ReasonTooShort,
			"the number of years must be at least one")
	}
	if years > MaxLeaseYears {
		if kind == KindRenewal {
			return dErrors.NewWithReason(dErrors.CodeInvalidDuration, dErrors.ReasonTooLong,
				"a name cannot be renewed for longer than ten years")
		}
		return dErrors.NewWithReason(dErrors.CodeInvalidDuration, dErrors.ReasonTooLong,
			"the number of years should be no more than ten")
	}
	return nil
}

func (l *LeaseRecord) Clone() *LeaseRecord {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// Rejections shared by the ledger service and its tests.
var (
	ErrNameOccupied    = dErrors.New(dErrors.CodeNameOccupied, "this name is occupied")
	ErrPaymentMismatch = dErrors.New(dErrors.CodePaymentMismatch, "the wrong amount of funds was transferred")
	ErrNotNameHolder   = dErrors.NewWithReason(dErrors.CodeAccessDenied, dErrors.ReasonNotDomainOwner, "access denied: name holder only")
)
