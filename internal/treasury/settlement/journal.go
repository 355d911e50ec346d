package settlement

import (
	"context"
	"log/slog"
	"sync"

	"nameledger/internal/treasury/models"
)

// Journal keeps instructions in process. It backs local runs without a broker
// and lets tests inspect what a withdrawal issued.
type Journal struct {
	mu           sync.Mutex
	instructions []*models.TransferInstruction
	logger       *slog.Logger
}

func NewJournal(logger *slog.Logger) *Journal {
	return &Journal{logger: logger}
}

func (j *Journal) Settle(ctx context.Context, instruction *models.TransferInstruction) error {
	j.mu.Lock()
	j.instructions = append(j.instructions, instruction)
	j.mu.Unlock()

	if j.logger != nil {
		j.logger.InfoContext(ctx, "transfer instruction recorded",
			"instruction_id", instruction.ID.String(),
			"recipient", instruction.Recipient.String(),
			"amount", instruction.Amount.Dec(),
		)
	}
	return nil
}

// Instructions returns a copy of everything recorded so far, oldest first.
func (j *Journal) Instructions() []*models.TransferInstruction {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*models.TransferInstruction, len(j.instructions))
	copy(out, j.instructions)
	return out
}
