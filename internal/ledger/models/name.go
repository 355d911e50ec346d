package models

import (
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "nameledger/pkg/domain-errors"
)

// MaxNameLength bounds names accepted at the transport boundary (bytes).
const MaxNameLength = 253

// ValidateName checks a name supplied by a client. The ledger itself accepts
// any string; handlers call this before reaching it.
func ValidateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(name) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be 253 bytes or less")
	}
	if !utf8.ValidString(name) {
		return dErrors.New(dErrors.CodeValidation, "name must be valid UTF-8")
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return dErrors.New(dErrors.CodeValidation, "name must not contain whitespace or control characters")
	}
	return nil
}
