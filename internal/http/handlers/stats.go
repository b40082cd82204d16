package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type countryStatsDTO struct {
	CountryCode string          `json:"country_code"`
	Count       int             `json:"count"`
	Total       decimal.Decimal `json:"total"`
}

type statsDTO struct {
	FundraiserID       string            `json:"fundraiser_id"`
	CompletedTotal     decimal.Decimal   `json:"completed_total"`
	DonationCount      int               `json:"donation_count"`
	AchievedMilestones int               `json:"achieved_milestones"`
	TotalMilestones    int               `json:"total_milestones"`
	ByCountry          []countryStatsDTO `json:"by_country"`
}

// StatsGet aggregates donation figures for a fundraiser. Visibility follows
// the fundraiser itself.
func (a *App) StatsGet(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	if _, err := a.visibleFundraiser(r, fundraiserID); err != nil {
		a.domainError(w, err)
		return
	}
	stats, err := a.Stats.FundraiserStats(r.Context(), fundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}

	byCountry := make([]countryStatsDTO, 0, len(stats.ByCountry))
	for _, c := range stats.ByCountry {
		byCountry = append(byCountry, countryStatsDTO{
			CountryCode: c.CountryCode,
			Count:       c.Count,
			Total:       c.Total,
		})
	}
	a.json(w, http.StatusOK, statsDTO{
		FundraiserID:       stats.FundraiserID,
		CompletedTotal:     stats.CompletedTotal,
		DonationCount:      stats.DonationCount,
		AchievedMilestones: stats.AchievedMilestones,
		TotalMilestones:    stats.TotalMilestones,
		ByCountry:          byCountry,
	})
}
