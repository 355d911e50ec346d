package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: no lease or policy row exists
//   - ErrConflict: a concurrent writer won a race the store detected
//   - ErrInvalidState: persisted state violates an invariant (e.g. negative balance)
//   - ErrUnavailable: backend temporarily unavailable (breaker open, broker down)
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
