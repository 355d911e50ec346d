// Package settlement delivers transfer instructions issued by withdrawals.
package settlement

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nameledger/internal/treasury/models"
	"nameledger/pkg/domain"
)

// Message is the wire form of a transfer instruction. Amount is a decimal
// string in the smallest currency unit.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Sequence  uint64    `json:"sequence"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"`
	IssuedAt  time.Time `json:"issued_at"`
}

func NewMessage(instruction *models.TransferInstruction) Message {
	return Message{
		ID:        instruction.ID,
		Sequence:  instruction.Sequence,
		Recipient: instruction.Recipient.String(),
		Amount:    domain.FormatAmount(instruction.Amount),
		IssuedAt:  instruction.IssuedAt.UTC(),
	}
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a message produced by Encode back into an instruction.
func DecodeMessage(raw []byte) (*models.TransferInstruction, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode transfer instruction: %w", err)
	}
	recipient, err := domain.ParseAddress(m.Recipient)
	if err != nil {
		return nil, fmt.Errorf("decode transfer instruction recipient: %w", err)
	}
	amount, err := domain.ParseAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("decode transfer instruction amount: %w", err)
	}
	return &models.TransferInstruction{
		ID:        m.ID,
		Sequence:  m.Sequence,
		Recipient: recipient,
		Amount:    amount,
		IssuedAt:  m.IssuedAt,
	}, nil
}
