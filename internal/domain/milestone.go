package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Milestone is an ordered funding checkpoint. Amount is the incremental
// contribution of this step; the achievement threshold for step k is the
// cumulative sum of amounts over steps 1..k.
type Milestone struct {
	ID             string
	FundraiserID   string
	StepNumber     int
	Title          string
	Amount         decimal.Decimal
	Achieved       bool
	AchievedAt     *time.Time
	CompletionNote string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Mutable reports whether the milestone may still be edited or deleted.
// Achieved milestones are frozen apart from completion annotation, though
// reconciliation may still flip them back if the donation total drops.
func (m Milestone) Mutable() bool {
	return !m.Achieved
}

// MilestoneTransition is one reconciliation write: flip the achieved flag and
// stamp or clear the achievement time. Both fields move together.
type MilestoneTransition struct {
	MilestoneID string
	Achieved    bool
	AchievedAt  *time.Time
}
