package handler

import (
	"time"

	"nameledger/internal/ledger/models"
)

// LeaseRequest is the body of register and renew calls. Payment is a decimal
// string in the smallest currency unit.
type LeaseRequest struct {
	Years   int    `json:"years"`
	Payment string `json:"payment"`
}

// LeaseResponse reports a lease. ExpiresAt is null for names that were never
// registered.
type LeaseResponse struct {
	Name      string     `json:"name"`
	Holder    string     `json:"holder"`
	ExpiresAt *time.Time `json:"expires_at"`
	Available bool       `json:"available"`
}

func toLeaseResponse(lease *models.LeaseRecord, now time.Time) *LeaseResponse {
	resp := &LeaseResponse{
		Name:      lease.Name,
		Holder:    lease.Holder.String(),
		Available: lease.IsAvailable(now),
	}
	if !lease.ExpiresAt.IsZero() {
		expiresAt := lease.ExpiresAt.UTC()
		resp.ExpiresAt = &expiresAt
	}
	return resp
}
