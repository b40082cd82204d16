package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Trigger runs a reconcile pass whenever a donation reaches a settled state.
// Transient failures are retried a bounded number of times; because every
// pass recomputes from the ledger, a retry starts from scratch rather than
// resuming a partial pass.
type Trigger struct {
	reconciler *Reconciler
	logger     zerolog.Logger
	attempts   int
	backoff    time.Duration
}

func NewTrigger(reconciler *Reconciler, logger zerolog.Logger) *Trigger {
	return &Trigger{
		reconciler: reconciler,
		logger:     logger,
		attempts:   3,
		backoff:    250 * time.Millisecond,
	}
}

// DonationSettled must be called after the donation status write has
// committed. The periodic sweep in cmd/worker picks up anything that still
// fails here, so an error return means delayed, not lost, reconciliation.
func (t *Trigger) DonationSettled(ctx context.Context, fundraiserID string) error {
	return t.run(ctx, fundraiserID)
}

// MilestonesChanged re-plans after the milestone set itself changes, since a
// created or resized step may already sit below the standing donation total.
func (t *Trigger) MilestonesChanged(ctx context.Context, fundraiserID string) error {
	return t.run(ctx, fundraiserID)
}

func (t *Trigger) run(ctx context.Context, fundraiserID string) error {
	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		lastErr = t.reconciler.Reconcile(ctx, fundraiserID)
		if lastErr == nil {
			return nil
		}

		t.logger.Warn().
			Err(lastErr).
			Str("fundraiser_id", fundraiserID).
			Int("attempt", attempt).
			Msg("reconcile: pass failed")

		if attempt == t.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("reconcile fundraiser %s: %w", fundraiserID, ctx.Err())
		case <-time.After(t.backoff * time.Duration(attempt)):
		}
	}

	t.logger.Error().
		Err(lastErr).
		Str("fundraiser_id", fundraiserID).
		Int("attempts", t.attempts).
		Msg("reconcile: giving up until next sweep")
	return fmt.Errorf("reconcile fundraiser %s: %w", fundraiserID, lastErr)
}
