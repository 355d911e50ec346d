package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

var (
	holder = domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	other  = domain.MustParseAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	t0     = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestLeaseAvailability(t *testing.T) {
	lease := NewLease("thomas", holder, 2, t0)

	t.Run("missing and unleased records are available", func(t *testing.T) {
		var missing *LeaseRecord
		assert.True(t, missing.IsAvailable(t0))
		assert.True(t, Unleased("thomas").IsAvailable(t0))
	})

	t.Run("held until the last instant of the term", func(t *testing.T) {
		assert.Equal(t, t0.Add(2*LeaseYear), lease.ExpiresAt)
		assert.False(t, lease.IsAvailable(t0))
		assert.False(t, lease.IsAvailable(lease.ExpiresAt))
		assert.True(t, lease.IsAvailable(lease.ExpiresAt.Add(time.Nanosecond)))
	})

	t.Run("holder check ignores expiry", func(t *testing.T) {
		assert.True(t, lease.IsHeldBy(holder))
		assert.False(t, lease.IsHeldBy(other))
		assert.False(t, Unleased("x").IsHeldBy(domain.ZeroAddress))
	})
}

func TestLeaseExtend(t *testing.T) {
	lease := NewLease("thomas", holder, 1, t0)
	later := t0.Add(5 * LeaseYear)

	lease.Extend(3, later)

	assert.Equal(t, t0.Add(4*LeaseYear), lease.ExpiresAt, "extension is added to the prior expiry")
	assert.Equal(t, later, lease.UpdatedAt)
}

func TestValidateYears(t *testing.T) {
	cases := []struct {
		years  int
		reason dErrors.Reason
	}{
		{0, dErrors.ReasonTooShort},
		{-3, dErrors.ReasonTooShort},
		{11, dErrors.ReasonTooLong},
		{20, dErrors.ReasonTooLong},
	}
	for _, kind := range []Kind{KindRegistration, KindRenewal} {
		for _, tc := range cases {
			err := ValidateYears(kind, tc.years)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDuration))
			assert.Equal(t, tc.reason, dErrors.ReasonOf(err))
		}
		assert.NoError(t, ValidateYears(kind, MinLeaseYears))
		assert.NoError(t, ValidateYears(kind, MaxLeaseYears))
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("thomas"))
	assert.NoError(t, ValidateName("aquinas.eth"))
	for _, bad := range []string{"", "two words", "tab\tname", strings.Repeat("a", MaxNameLength+1), "\xff"} {
		assert.True(t, dErrors.HasCode(ValidateName(bad), dErrors.CodeValidation), bad)
	}
}
