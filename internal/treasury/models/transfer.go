package models

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"nameledger/pkg/domain"
)

// transferNamespace scopes instruction IDs derived by InstructionID.
var transferNamespace = uuid.MustParse("6f1c1d2e-3b4a-5c6d-8e7f-90a1b2c3d4e5")

// TransferInstruction asks the settlement layer to pay Amount to Recipient.
//
// ID is derived from the recipient and the drain Sequence, so every attempt
// to commit the same drain carries the same ID. Consumers key on ID: a
// redelivery with a known ID states the full amount of that drain and only
// the difference over what was already paid for it is owed.
type TransferInstruction struct {
	ID        uuid.UUID
	Sequence  uint64
	Recipient domain.Address
	Amount    *uint256.Int
	IssuedAt  time.Time
}

// InstructionID is the stable ID of the seq-th drain paid to recipient.
func InstructionID(recipient domain.Address, seq uint64) uuid.UUID {
	name := make([]byte, 0, len(recipient)+8)
	name = append(name, recipient.String()...)
	name = binary.BigEndian.AppendUint64(name, seq)
	return uuid.NewSHA1(transferNamespace, name)
}

func NewTransferInstruction(recipient domain.Address, seq uint64, amount *uint256.Int, now time.Time) *TransferInstruction {
	return &TransferInstruction{
		ID:        InstructionID(recipient, seq),
		Sequence:  seq,
		Recipient: recipient,
		Amount:    amount.Clone(),
		IssuedAt:  now,
	}
}

// Withdrawal is the outcome of draining the treasury. Instruction is nil when
// the balance was already zero and nothing was sent for settlement.
type Withdrawal struct {
	Amount      *uint256.Int
	Instruction *TransferInstruction
}
