package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundraiserStatus enumerates fundraiser lifecycle states.
type FundraiserStatus string

const (
	FundraiserStatusDraft     FundraiserStatus = "draft"
	FundraiserStatusPublished FundraiserStatus = "published"
	FundraiserStatusClosed    FundraiserStatus = "closed"
)

// Fundraiser is a campaign owned exclusively by one group.
type Fundraiser struct {
	ID          string
	GroupID     string
	Title       string
	Description string
	GoalAmount  decimal.Decimal
	Currency    string
	Status      FundraiserStatus
	IsPublic    bool
	CoverURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PubliclyVisible reports whether unauthenticated callers may read the
// fundraiser.
func (f Fundraiser) PubliclyVisible() bool {
	return f.IsPublic && f.Status == FundraiserStatusPublished
}
