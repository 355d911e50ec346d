package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"nameledger/internal/treasury/models"
	"nameledger/internal/treasury/ports"
	"nameledger/pkg/platform/circuit"
	"nameledger/pkg/platform/sentinel"
)

// Guard wraps a settler with a circuit breaker. While the circuit is open
// withdrawals fail fast with sentinel.ErrUnavailable instead of waiting on a
// broker that is known to be down.
type Guard struct {
	next    ports.Settler
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuard(next ports.Settler, breaker *circuit.Breaker, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{next: next, breaker: breaker, logger: logger}
}

func (g *Guard) Settle(ctx context.Context, instruction *models.TransferInstruction) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%w: settlement circuit %s is open", sentinel.ErrUnavailable, g.breaker.Name())
	}

	if err := g.next.Settle(ctx, instruction); err != nil {
		_, change := g.breaker.RecordFailure()
		if change.Opened {
			g.logger.WarnContext(ctx, "settlement circuit opened", "circuit", g.breaker.Name(), "error", err)
		}
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "settlement circuit closed", "circuit", g.breaker.Name())
	}
	return nil
}
