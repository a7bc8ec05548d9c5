package notify

import (
	"context"
	"log/slog"

	"github.com/bitfsorg/sharepool-go/pool"
)

// LogNotifier writes each event to a logger at Info level.
type LogNotifier struct {
	Logger *slog.Logger
}

// ClaimCompleted implements pool.Notifier.
func (n LogNotifier) ClaimCompleted(ctx context.Context, ev pool.ClaimEvent) error {
	n.Logger.InfoContext(ctx, "claim completed",
		"event", ev.ID,
		"pool", ev.Pool,
		"claimant", ev.Claimant,
		"amount", ev.Amount,
		"seq", ev.Seq,
		"remaining_total", ev.RemainingTotal,
		"shares_remaining", ev.SharesRemaining,
	)
	return nil
}

// Multi fans an event out to several notifiers, returning the first error
// after all have run.
type Multi []pool.Notifier

// ClaimCompleted implements pool.Notifier.
func (m Multi) ClaimCompleted(ctx context.Context, ev pool.ClaimEvent) error {
	var first error
	for _, n := range m {
		if err := n.ClaimCompleted(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
