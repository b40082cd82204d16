package domain

import "github.com/shopspring/decimal"

// CountryDonations is one row of the per-country donor breakdown.
type CountryDonations struct {
	CountryCode string
	Count       int
	Total       decimal.Decimal
}

// FundraiserStats aggregates donation figures for one fundraiser.
type FundraiserStats struct {
	FundraiserID       string
	CompletedTotal     decimal.Decimal
	DonationCount      int
	AchievedMilestones int
	TotalMilestones    int
	ByCountry          []CountryDonations
}
