package domain

import (
	"encoding/hex"
	"strings"

	dErrors "nameledger/pkg/domain-errors"
)

// Address identifies a caller: a 20-byte account in 0x-prefixed lowercase hex.
// The registry only compares addresses for equality; it never verifies keys.
type Address string

// ZeroAddress is reported as the holder of names that were never registered.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

const addressHexLen = 40

// ParseAddress validates and normalizes a hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	digits, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be 0x-prefixed")
	}
	if len(digits) != addressHexLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be 20 bytes")
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be hex encoded")
	}
	return Address("0x" + digits), nil
}

// MustParseAddress panics on invalid input. Intended for tests and constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	if a == "" {
		return string(ZeroAddress)
	}
	return string(a)
}

// IsZero reports whether a is unset or the zero account.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}
