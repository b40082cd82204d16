// Package reconcile keeps milestone achievement flags consistent with the
// completed donation total of a fundraiser.
//
// A milestone k is achieved when the completed total is at least the sum of
// milestone amounts for steps 1..k. Reconciliation recomputes that state from
// scratch on every pass, so it is idempotent and safe to re-run after any
// failure. Passes for the same fundraiser are serialized; passes for
// different fundraisers run in parallel.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"givepool/internal/domain"
	"givepool/internal/metrics"
)

// EventSink receives milestone transitions after they have been committed.
// Implementations must not block for long; they run inside the reconcile
// pass while the fundraiser lock is held.
type EventSink interface {
	MilestoneTransition(ctx context.Context, fundraiserID string, milestone domain.Milestone, achieved bool)
}

// Reconciler recomputes milestone achievement state from the donation ledger.
type Reconciler struct {
	milestones domain.MilestoneLedger
	donations  domain.DonationLedger
	events     EventSink
	logger     zerolog.Logger
	locks      *lockTable
	now        func() time.Time
}

func NewReconciler(milestones domain.MilestoneLedger, donations domain.DonationLedger, events EventSink, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		milestones: milestones,
		donations:  donations,
		events:     events,
		logger:     logger,
		locks:      newLockTable(),
		now:        time.Now,
	}
}

// PlanTransitions returns the writes needed to bring milestone flags in line
// with the completed total. Milestones are evaluated in step order against
// cumulative amount sums; a milestone whose cumulative threshold is met keeps
// or gains the achieved flag, one whose threshold is no longer met loses it.
// Milestones already in the desired state produce no transition.
func PlanTransitions(milestones []domain.Milestone, total decimal.Decimal) []domain.MilestoneTransition {
	ordered := make([]domain.Milestone, len(milestones))
	copy(ordered, milestones)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StepNumber < ordered[j].StepNumber })

	var out []domain.MilestoneTransition
	cumulative := decimal.Zero
	for _, m := range ordered {
		cumulative = cumulative.Add(m.Amount)
		achieved := total.GreaterThanOrEqual(cumulative)
		if achieved == m.Achieved {
			continue
		}
		out = append(out, domain.MilestoneTransition{MilestoneID: m.ID, Achieved: achieved})
	}
	return out
}

// Reconcile brings the fundraiser's milestones in line with its completed
// donation total. The total is read under the per-fundraiser lock so a pass
// never applies state derived from a stale snapshot, and all transitions of
// a pass are applied atomically by the ledger.
func (r *Reconciler) Reconcile(ctx context.Context, fundraiserID string) error {
	entry := r.locks.lock(fundraiserID)
	defer r.locks.unlock(fundraiserID, entry)

	total, err := r.donations.CompletedTotal(ctx, fundraiserID)
	if err != nil {
		metrics.RecordReconcilePass("error")
		return fmt.Errorf("reconcile fundraiser %s: read completed total: %w", fundraiserID, err)
	}

	milestones, err := r.milestones.ListByFundraiser(ctx, fundraiserID)
	if err != nil {
		metrics.RecordReconcilePass("error")
		return fmt.Errorf("reconcile fundraiser %s: list milestones: %w", fundraiserID, err)
	}

	plan := PlanTransitions(milestones, total)
	if len(plan) == 0 {
		metrics.RecordReconcilePass("noop")
		return nil
	}

	appliedAt := r.now().UTC()
	for i := range plan {
		if plan[i].Achieved {
			at := appliedAt
			plan[i].AchievedAt = &at
		}
	}

	if err := r.milestones.ApplyTransitions(ctx, fundraiserID, plan); err != nil {
		metrics.RecordReconcilePass("error")
		return fmt.Errorf("reconcile fundraiser %s: apply %d transitions: %w", fundraiserID, len(plan), err)
	}

	byID := make(map[string]domain.Milestone, len(milestones))
	for _, m := range milestones {
		byID[m.ID] = m
	}
	for _, tr := range plan {
		metrics.RecordMilestoneTransition(tr.Achieved)
		m, ok := byID[tr.MilestoneID]
		if !ok {
			continue
		}
		m.Achieved = tr.Achieved
		m.AchievedAt = tr.AchievedAt
		if r.events != nil {
			r.events.MilestoneTransition(ctx, fundraiserID, m, tr.Achieved)
		}
	}

	metrics.RecordReconcilePass("applied")
	r.logger.Info().
		Str("fundraiser_id", fundraiserID).
		Str("completed_total", total.String()).
		Int("transitions", len(plan)).
		Msg("reconcile: milestones updated")
	return nil
}
