package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nameledger/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores
// can apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers movements of funds and ownership.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejected attempts to use privileged operations.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine policy tuning.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the ledger and treasury services after a decision.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	Actor     domain.Address
	// Subject is the leased name, or "policy" for treasury events.
	Subject   string
	Action    string
	Years     int
	Amount    string
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	EventNameRegistered       AuditEvent = "name_registered"
	EventNameRenewed          AuditEvent = "name_renewed"
	EventOneYearChargeUpdated AuditEvent = "one_year_charge_updated"
	EventRenewRatioUpdated    AuditEvent = "renew_ratio_updated"
	EventFundsWithdrawn       AuditEvent = "funds_withdrawn"
	EventAccessDenied         AuditEvent = "access_denied"
	EventPolicyBootstrapped   AuditEvent = "policy_bootstrapped"
)

// SubjectPolicy is the subject of treasury events.
const SubjectPolicy = "policy"

var eventCategories = map[AuditEvent]EventCategory{
	EventNameRegistered:       CategoryCompliance,
	EventNameRenewed:          CategoryCompliance,
	EventFundsWithdrawn:       CategoryCompliance,
	EventPolicyBootstrapped:   CategoryCompliance,
	EventAccessDenied:         CategorySecurity,
	EventOneYearChargeUpdated: CategoryOperations,
	EventRenewRatioUpdated:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Normalize fills the fields every persisted event must carry.
func (e Event) Normalize() Event {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Category == "" {
		e.Category = AuditEvent(e.Action).Category()
	}
	return e
}
