package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"givepool/internal/domain"
)

func TestStatsGet(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser("owner", "owner@example.com")
	ta.seedGroup("g1", "owner")
	ta.seedFundraiser("f1", "g1", domain.FundraiserStatusPublished, true)
	ta.seedFundraiser("f-priv", "g1", domain.FundraiserStatusPublished, false)
	ta.stats.stats["f1"] = &domain.FundraiserStats{
		FundraiserID:       "f1",
		CompletedTotal:     decimal.RequireFromString("1250.00"),
		DonationCount:      17,
		AchievedMilestones: 2,
		TotalMilestones:    5,
		ByCountry: []domain.CountryDonations{
			{CountryCode: "ID", Count: 10, Total: decimal.RequireFromString("800.00")},
			{CountryCode: "SG", Count: 7, Total: decimal.RequireFromString("450.00")},
		},
	}

	req := httptest.NewRequest("GET", "/v1/fundraisers/f1/stats", nil)
	req = withURLParams(req, map[string]string{"id": "f1"})
	rr := httptest.NewRecorder()
	ta.StatsGet(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rr.Code, rr.Body.String())
	}

	var got statsDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.CompletedTotal.Equal(decimal.RequireFromString("1250.00")) {
		t.Fatalf("completed_total = %s", got.CompletedTotal)
	}
	if got.DonationCount != 17 || got.AchievedMilestones != 2 || got.TotalMilestones != 5 {
		t.Fatalf("stats = %+v", got)
	}
	if len(got.ByCountry) != 2 || got.ByCountry[0].CountryCode != "ID" {
		t.Fatalf("by_country = %+v", got.ByCountry)
	}

	// Stats follow the fundraiser's visibility.
	req = httptest.NewRequest("GET", "/v1/fundraisers/f-priv/stats", nil)
	req = withURLParams(req, map[string]string{"id": "f-priv"})
	rr = httptest.NewRecorder()
	ta.StatsGet(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("private stats status = %d, want 401", rr.Code)
	}
}
