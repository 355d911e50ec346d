package models

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

var (
	admin    = domain.MustParseAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	stranger = domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	now      = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newPolicy(t *testing.T) *PolicyState {
	t.Helper()
	p, err := NewPolicyState(admin, domain.MustParseAmount("50000000000000000"), 12, now)
	require.NoError(t, err)
	return p
}

func TestNewPolicyState(t *testing.T) {
	t.Run("requires an admin", func(t *testing.T) {
		_, err := NewPolicyState("", uint256.NewInt(1), 12, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("starts with an empty balance", func(t *testing.T) {
		p := newPolicy(t)
		assert.True(t, p.Balance.IsZero())
		assert.True(t, p.IsAdmin(admin))
		assert.False(t, p.IsAdmin(stranger))
		assert.False(t, p.IsAdmin(""))
	})
}

func TestCharges(t *testing.T) {
	p := newPolicy(t)

	t.Run("registration is linear in years", func(t *testing.T) {
		charge, ok := p.RegistrationCharge(2)
		require.True(t, ok)
		assert.Equal(t, "100000000000000000", charge.Dec())
	})

	t.Run("renewal applies ratio in tenths", func(t *testing.T) {
		charge, ok := p.RenewalCharge(2)
		require.True(t, ok)
		assert.Equal(t, "120000000000000000", charge.Dec())
	})

	t.Run("overflowing charge is reported", func(t *testing.T) {
		huge := newPolicy(t)
		huge.ApplyOneYearCharge(new(uint256.Int).SetAllOne(), now)
		_, ok := huge.RegistrationCharge(2)
		assert.False(t, ok)
		_, ok = huge.RenewalCharge(1)
		assert.False(t, ok)
	})

	t.Run("negative years never price", func(t *testing.T) {
		_, ok := p.RegistrationCharge(-1)
		assert.False(t, ok)
	})
}

func TestBalanceAccounting(t *testing.T) {
	p := newPolicy(t)

	require.NoError(t, p.Credit(uint256.NewInt(100), now))
	require.NoError(t, p.Credit(uint256.NewInt(20), now))
	assert.Equal(t, uint64(120), p.Balance.Uint64())

	drained, seq := p.Drain(now)
	assert.Equal(t, uint64(120), drained.Uint64())
	assert.Equal(t, uint64(1), seq)
	assert.True(t, p.Balance.IsZero())

	t.Run("empty drain keeps the sequence", func(t *testing.T) {
		drained, seq := p.Drain(now)
		assert.True(t, drained.IsZero())
		assert.Equal(t, uint64(1), seq)
		assert.Equal(t, uint64(1), p.WithdrawalSeq)
	})

	t.Run("credit overflow leaves balance untouched", func(t *testing.T) {
		p.Balance = new(uint256.Int).SetAllOne()
		err := p.Credit(uint256.NewInt(1), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Equal(t, new(uint256.Int).SetAllOne(), p.Balance)
	})
}

func TestClone(t *testing.T) {
	p := newPolicy(t)
	c := p.Clone()
	require.NoError(t, c.Credit(uint256.NewInt(5), now))
	assert.True(t, p.Balance.IsZero())
	assert.Equal(t, uint64(5), c.Balance.Uint64())
}
