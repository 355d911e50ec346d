package domain

import (
	"strings"

	"github.com/holiman/uint256"

	dErrors "nameledger/pkg/domain-errors"
)

// Amounts are unsigned 256-bit integers in the smallest currency unit. Exact
// payment checks depend on never touching floating point.

// ParseAmount parses a base-10 amount.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount is required")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount must be a non-negative base-10 integer")
	}
	return v, nil
}

// MustParseAmount panics on invalid input.
func MustParseAmount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatAmount renders v in base 10; nil renders as "0".
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
