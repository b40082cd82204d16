package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus enumerates donation lifecycle states. Only completed
// donations count toward a fundraiser's total.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusRefunded  DonationStatus = "refunded"
	DonationStatusFailed    DonationStatus = "failed"
)

// CanTransitionTo reports whether the payment flow may move a donation from
// the current status to next. Terminal failures stay terminal; refunds only
// follow completion.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	switch s {
	case DonationStatusPending:
		return next == DonationStatusCompleted || next == DonationStatusFailed
	case DonationStatusCompleted:
		return next == DonationStatusRefunded
	}
	return false
}

// CountsTowardTotal reports whether the status contributes to the completed
// donation total.
func (s DonationStatus) CountsTowardTotal() bool {
	return s == DonationStatusCompleted
}

// Donation represents a supporter contribution record. UserID is nil for
// anonymous donations.
type Donation struct {
	ID           string
	FundraiserID string
	UserID       *string
	Amount       decimal.Decimal
	Currency     string
	Status       DonationStatus
	DonorName    string
	Note         string
	CountryCode  string
	ProviderRef  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
