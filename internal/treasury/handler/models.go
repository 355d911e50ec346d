package handler

import (
	"time"

	"nameledger/internal/treasury/models"
	"nameledger/pkg/domain"
	"nameledger/pkg/platform/audit"
)

// Amounts travel as base-10 strings so 256-bit values survive JSON clients.

type SetChargeRequest struct {
	Amount string `json:"amount"`
}

type SetRatioRequest struct {
	Value *uint64 `json:"value"`
}

type PolicyResponse struct {
	Admin         string    `json:"admin"`
	OneYearCharge string    `json:"one_year_charge"`
	RenewRatio    uint64    `json:"renew_ratio"`
	Balance       string    `json:"balance"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type QuoteResponse struct {
	Years        int    `json:"years"`
	Registration string `json:"registration"`
	Renewal      string `json:"renewal"`
}

type WithdrawResponse struct {
	Amount        string     `json:"amount"`
	InstructionID string     `json:"instruction_id,omitempty"`
	Sequence      uint64     `json:"sequence,omitempty"`
	Recipient     string     `json:"recipient,omitempty"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
}

type AuditEventResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Years     int       `json:"years,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

type AuditTrailResponse struct {
	Subject string               `json:"subject"`
	Events  []AuditEventResponse `json:"events"`
}

func toPolicyResponse(p *models.PolicyState) *PolicyResponse {
	return &PolicyResponse{
		Admin:         p.Admin.String(),
		OneYearCharge: domain.FormatAmount(p.OneYearCharge),
		RenewRatio:    p.RenewRatio,
		Balance:       domain.FormatAmount(p.Balance),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

func toQuoteResponse(q *models.Quote) *QuoteResponse {
	return &QuoteResponse{
		Years:        q.Years,
		Registration: domain.FormatAmount(q.Registration),
		Renewal:      domain.FormatAmount(q.Renewal),
	}
}

func toWithdrawResponse(w *models.Withdrawal) *WithdrawResponse {
	resp := &WithdrawResponse{Amount: domain.FormatAmount(w.Amount)}
	if w.Instruction != nil {
		issuedAt := w.Instruction.IssuedAt.UTC()
		resp.InstructionID = w.Instruction.ID.String()
		resp.Sequence = w.Instruction.Sequence
		resp.Recipient = w.Instruction.Recipient.String()
		resp.IssuedAt = &issuedAt
	}
	return resp
}

func toAuditTrailResponse(subject string, events []audit.Event) *AuditTrailResponse {
	resp := &AuditTrailResponse{Subject: subject, Events: make([]AuditEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, AuditEventResponse{
			ID:        e.ID.String(),
			Category:  string(e.Category),
			Timestamp: e.Timestamp.UTC(),
			Actor:     e.Actor.String(),
			Subject:   e.Subject,
			Action:    e.Action,
			Years:     e.Years,
			Amount:    e.Amount,
			Reason:    e.Reason,
			RequestID: e.RequestID,
		})
	}
	return resp
}
