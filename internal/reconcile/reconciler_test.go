package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"givepool/internal/domain"
)

func ms(id string, step int, amount string, achieved bool) domain.Milestone {
	m := domain.Milestone{
		ID:           id,
		FundraiserID: "f1",
		StepNumber:   step,
		Title:        id,
		Amount:       decimal.RequireFromString(amount),
		Achieved:     achieved,
	}
	if achieved {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		m.AchievedAt = &at
	}
	return m
}

type fakeMilestones struct {
	mu         sync.Mutex
	rows       []domain.Milestone
	listCalls  int
	applyCalls int
	writes     int
	failApply  int
	applyErr   error

	inApply atomic.Bool
	overlap atomic.Bool
}

func (f *fakeMilestones) ListByFundraiser(ctx context.Context, fundraiserID string) ([]domain.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]domain.Milestone, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeMilestones) ApplyTransitions(ctx context.Context, fundraiserID string, transitions []domain.MilestoneTransition) error {
	if !f.inApply.CompareAndSwap(false, true) {
		f.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	defer f.inApply.Store(false)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	if f.failApply > 0 {
		f.failApply--
		return f.applyErr
	}
	for _, tr := range transitions {
		for i := range f.rows {
			if f.rows[i].ID == tr.MilestoneID {
				f.rows[i].Achieved = tr.Achieved
				f.rows[i].AchievedAt = tr.AchievedAt
			}
		}
	}
	f.writes += len(transitions)
	return nil
}

func (f *fakeMilestones) get(id string) domain.Milestone {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.ID == id {
			return m
		}
	}
	return domain.Milestone{}
}

type fakeDonations struct {
	mu    sync.Mutex
	total decimal.Decimal
	reads int
	err   error
}

func (f *fakeDonations) CompletedTotal(ctx context.Context, fundraiserID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.total, nil
}

func (f *fakeDonations) set(total string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = decimal.RequireFromString(total)
}

func (f *fakeDonations) add(amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = f.total.Add(decimal.RequireFromString(amount))
}

func newTestReconciler(milestones *fakeMilestones, donations *fakeDonations) *Reconciler {
	return NewReconciler(milestones, donations, nil, zerolog.Nop())
}

func achievedIDs(plan []domain.MilestoneTransition) map[string]bool {
	out := make(map[string]bool, len(plan))
	for _, tr := range plan {
		out[tr.MilestoneID] = tr.Achieved
	}
	return out
}

func TestPlanTransitionsThresholds(t *testing.T) {
	base := []domain.Milestone{
		ms("m1", 1, "100", false),
		ms("m2", 2, "150", false),
	}

	tests := []struct {
		total string
		want  map[string]bool
	}{
		{total: "0", want: map[string]bool{}},
		{total: "90", want: map[string]bool{}},
		{total: "99.99", want: map[string]bool{}},
		{total: "100", want: map[string]bool{"m1": true}},
		{total: "100.01", want: map[string]bool{"m1": true}},
		{total: "249.99", want: map[string]bool{"m1": true}},
		{total: "250", want: map[string]bool{"m1": true, "m2": true}},
		{total: "1000", want: map[string]bool{"m1": true, "m2": true}},
	}

	for _, tc := range tests {
		t.Run("total="+tc.total, func(t *testing.T) {
			plan := PlanTransitions(base, decimal.RequireFromString(tc.total))
			got := achievedIDs(plan)
			if len(got) != len(tc.want) {
				t.Fatalf("planned %d transitions, want %d (%v)", len(got), len(tc.want), got)
			}
			for id, achieved := range tc.want {
				if got[id] != achieved {
					t.Errorf("milestone %s: achieved=%v, want %v", id, got[id], achieved)
				}
			}
		})
	}
}

func TestPlanTransitionsReversal(t *testing.T) {
	base := []domain.Milestone{
		ms("m1", 1, "100", true),
		ms("m2", 2, "150", true),
	}

	plan := PlanTransitions(base, decimal.RequireFromString("120"))
	if len(plan) != 1 {
		t.Fatalf("planned %d transitions, want 1", len(plan))
	}
	if plan[0].MilestoneID != "m2" || plan[0].Achieved {
		t.Fatalf("plan = %+v, want m2 reverting to unachieved", plan[0])
	}
	if plan[0].AchievedAt != nil {
		t.Fatalf("reversal must clear the achievement timestamp, got %v", plan[0].AchievedAt)
	}

	plan = PlanTransitions(base, decimal.RequireFromString("50"))
	got := achievedIDs(plan)
	if len(got) != 2 || got["m1"] || got["m2"] {
		t.Fatalf("total below first threshold must revert both, got %v", got)
	}
}

func TestPlanTransitionsNoGap(t *testing.T) {
	// Five equal steps of 100. Whatever the total, the achieved set must be a
	// prefix of the step sequence.
	totals := []string{"0", "99.99", "100", "150", "200", "299.5", "300", "499", "500", "750"}
	for _, total := range totals {
		var rows []domain.Milestone
		for i := 1; i <= 5; i++ {
			rows = append(rows, ms(fmt.Sprintf("m%d", i), i, "100", false))
		}
		plan := PlanTransitions(rows, decimal.RequireFromString(total))
		got := achievedIDs(plan)
		for i := range rows {
			if got[rows[i].ID] {
				rows[i].Achieved = true
			}
		}
		for i := 1; i < len(rows); i++ {
			if rows[i].Achieved && !rows[i-1].Achieved {
				t.Fatalf("total %s: step %d achieved while step %d is not", total, rows[i].StepNumber, rows[i-1].StepNumber)
			}
		}
	}
}

func TestPlanTransitionsUnorderedInput(t *testing.T) {
	rows := []domain.Milestone{
		ms("m3", 3, "50", false),
		ms("m1", 1, "100", false),
		ms("m2", 2, "150", false),
	}

	plan := PlanTransitions(rows, decimal.RequireFromString("250"))
	got := achievedIDs(plan)
	if !got["m1"] || !got["m2"] {
		t.Fatalf("steps 1 and 2 must be achieved at total 250, got %v", got)
	}
	if achieved, planned := got["m3"]; planned && achieved {
		t.Fatalf("step 3 needs a total of 300, got %v", got)
	}
}

func TestReconcileScenario(t *testing.T) {
	milestones := &fakeMilestones{rows: []domain.Milestone{
		ms("m1", 1, "100", false),
		ms("m2", 2, "150", false),
	}}
	donations := &fakeDonations{total: decimal.Zero}
	r := newTestReconciler(milestones, donations)
	ctx := context.Background()

	donations.set("100")
	if err := r.Reconcile(ctx, "f1"); err != nil {
		t.Fatalf("reconcile at 100: %v", err)
	}
	if m := milestones.get("m1"); !m.Achieved || m.AchievedAt == nil {
		t.Fatalf("m1 must be achieved with a timestamp at total 100, got %+v", m)
	}
	if m := milestones.get("m2"); m.Achieved {
		t.Fatalf("m2 must not be achieved at total 100")
	}

	donations.set("250")
	if err := r.Reconcile(ctx, "f1"); err != nil {
		t.Fatalf("reconcile at 250: %v", err)
	}
	if m := milestones.get("m2"); !m.Achieved || m.AchievedAt == nil {
		t.Fatalf("m2 must be achieved with a timestamp at total 250, got %+v", m)
	}

	// Refund drops the total below every threshold.
	donations.set("90")
	if err := r.Reconcile(ctx, "f1"); err != nil {
		t.Fatalf("reconcile at 90: %v", err)
	}
	for _, id := range []string{"m1", "m2"} {
		m := milestones.get(id)
		if m.Achieved {
			t.Errorf("%s must revert at total 90", id)
		}
		if m.AchievedAt != nil {
			t.Errorf("%s must have its timestamp cleared, got %v", id, m.AchievedAt)
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	milestones := &fakeMilestones{rows: []domain.Milestone{
		ms("m1", 1, "100", false),
		ms("m2", 2, "150", false),
	}}
	donations := &fakeDonations{total: decimal.RequireFromString("100")}
	r := newTestReconciler(milestones, donations)
	ctx := context.Background()

	if err := r.Reconcile(ctx, "f1"); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if milestones.applyCalls != 1 || milestones.writes != 1 {
		t.Fatalf("first pass: applyCalls=%d writes=%d, want 1/1", milestones.applyCalls, milestones.writes)
	}

	if err := r.Reconcile(ctx, "f1"); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if milestones.applyCalls != 1 || milestones.writes != 1 {
		t.Fatalf("second pass must not write, applyCalls=%d writes=%d", milestones.applyCalls, milestones.writes)
	}
}

func TestReconcileReadsTotalErrors(t *testing.T) {
	milestones := &fakeMilestones{rows: []domain.Milestone{ms("m1", 1, "100", false)}}
	donations := &fakeDonations{err: errors.New("connection reset")}
	r := newTestReconciler(milestones, donations)

	err := r.Reconcile(context.Background(), "f1")
	if err == nil {
		t.Fatal("expected an error when the total cannot be read")
	}
	if milestones.applyCalls != 0 {
		t.Fatalf("no transitions may be applied after a failed read, got %d calls", milestones.applyCalls)
	}
}

func TestReconcileEventSink(t *testing.T) {
	milestones := &fakeMilestones{rows: []domain.Milestone{
		ms("m1", 1, "100", false),
		ms("m2", 2, "150", false),
	}}
	donations := &fakeDonations{total: decimal.RequireFromString("250")}

	var events []string
	sink := eventSinkFunc(func(ctx context.Context, fundraiserID string, m domain.Milestone, achieved bool) {
		if !achieved {
			t.Errorf("unexpected reversal event for %s", m.ID)
		}
		if m.AchievedAt == nil {
			t.Errorf("event for %s carries no timestamp", m.ID)
		}
		events = append(events, m.ID)
	})

	r := NewReconciler(milestones, donations, sink, zerolog.Nop())
	if err := r.Reconcile(context.Background(), "f1"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
}

type eventSinkFunc func(ctx context.Context, fundraiserID string, m domain.Milestone, achieved bool)

func (f eventSinkFunc) MilestoneTransition(ctx context.Context, fundraiserID string, m domain.Milestone, achieved bool) {
	f(ctx, fundraiserID, m, achieved)
}

func TestReconcileConcurrentSettlements(t *testing.T) {
	for i := 0; i < 25; i++ {
		milestones := &fakeMilestones{rows: []domain.Milestone{
			ms("m1", 1, "100", false),
			ms("m2", 2, "150", false),
		}}
		donations := &fakeDonations{total: decimal.Zero}
		r := newTestReconciler(milestones, donations)
		ctx := context.Background()

		var wg sync.WaitGroup
		settle := func(amount string) {
			defer wg.Done()
			donations.add(amount)
			if err := r.Reconcile(ctx, "f1"); err != nil {
				t.Errorf("reconcile: %v", err)
			}
		}
		wg.Add(2)
		go settle("100")
		go settle("150")
		wg.Wait()

		if milestones.overlap.Load() {
			t.Fatal("transitions for the same fundraiser were applied concurrently")
		}
		for _, id := range []string{"m1", "m2"} {
			if m := milestones.get(id); !m.Achieved {
				t.Fatalf("iteration %d: %s not achieved after both settlements", i, id)
			}
		}
	}
}
