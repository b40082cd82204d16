package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"givepool/internal/domain"
	"givepool/internal/middleware"
	"givepool/internal/payments"
)

type createDonationRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	DonorName string          `json:"donor_name"`
	Note      string          `json:"note"`
	ReturnURL string          `json:"return_url"`
}

type createDonationResponse struct {
	DonationID  string `json:"donation_id"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

type donationDTO struct {
	ID        string          `json:"id"`
	DonorName string          `json:"donor_name,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DonationsCreate opens a pending donation and, when the payment provider is
// configured, a hosted checkout session for it. Anonymous donors are allowed;
// authenticated callers get the donation attached to their account.
func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	var req createDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !req.Amount.IsPositive() {
		a.error(w, http.StatusBadRequest, "bad_request", "amount must be positive")
		return
	}

	fundraiser, err := a.Fundraisers.GetByID(r.Context(), fundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if fundraiser.Status != domain.FundraiserStatusPublished {
		a.error(w, http.StatusConflict, "conflict", "fundraiser is not accepting donations")
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = fundraiser.Currency
	}
	if currency != fundraiser.Currency {
		a.error(w, http.StatusBadRequest, "bad_request", "currency must be "+fundraiser.Currency)
		return
	}

	var donorID *string
	if userID := a.currentUserID(r); userID != "" {
		donorID = &userID
	}

	donation := &domain.Donation{
		ID:           uuid.NewString(),
		FundraiserID: fundraiserID,
		UserID:       donorID,
		Amount:       req.Amount,
		Currency:     currency,
		Status:       domain.DonationStatusPending,
		DonorName:    strings.TrimSpace(req.DonorName),
		Note:         strings.TrimSpace(req.Note),
		CountryCode:  middleware.CountryFromContext(r.Context()),
	}

	// Without a provider the donation references itself, so the webhook
	// simulator used in development can still settle it by id.
	donation.ProviderRef = donation.ID
	checkoutURL := ""
	if a.Payments.HasCredentials() {
		session, err := a.Payments.CreateCheckout(r.Context(), payments.CheckoutRequest{
			DonationID: donation.ID,
			Amount:     donation.Amount,
			Currency:   donation.Currency,
			ReturnURL:  strings.TrimSpace(req.ReturnURL),
		})
		if err != nil {
			a.Logger.Error().Err(err).Str("fundraiser_id", fundraiserID).Msg("create checkout failed")
			a.error(w, http.StatusBadGateway, "provider_unavailable", "payment provider unavailable")
			return
		}
		donation.ProviderRef = session.ProviderRef
		checkoutURL = session.CheckoutURL
	}

	if err := a.Donations.Create(r.Context(), donation); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, createDonationResponse{
		DonationID:  donation.ID,
		Status:      string(donation.Status),
		CheckoutURL: checkoutURL,
	})
}

// DonationsList returns the fundraiser's recent donations, newest first.
// Visibility follows the fundraiser itself.
func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	if _, err := a.visibleFundraiser(r, fundraiserID); err != nil {
		a.domainError(w, err)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	donations, err := a.Donations.ListByFundraiser(r.Context(), fundraiserID, limit)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]donationDTO, 0, len(donations))
	for _, d := range donations {
		items = append(items, donationDTO{
			ID:        d.ID,
			DonorName: d.DonorName,
			Amount:    d.Amount,
			Currency:  d.Currency,
			Status:    string(d.Status),
			Note:      d.Note,
			CreatedAt: d.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
