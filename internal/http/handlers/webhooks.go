package handlers

import (
	"io"
	"net/http"

	"givepool/internal/domain"
	"givepool/internal/metrics"
	"givepool/internal/payments"
)

const maxWebhookBytes = 1 << 20

// PaymentsWebhook ingests signed settlement callbacks from the payment
// provider. Redelivered events acknowledge without re-applying, and the
// reconciliation trigger fires only after the status write has committed.
func (a *App) PaymentsWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	if !payments.VerifySignature(a.WebhookSecret, body, r.Header.Get("X-Signature")) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
		return
	}
	ev, err := payments.ParseWebhook(body)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "malformed event")
		return
	}
	next, handled := payments.StatusFor(ev.Type)
	if !handled {
		a.json(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	donation, err := a.Donations.GetByProviderRef(r.Context(), ev.ProviderRef)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if donation.Status == next {
		// Redelivery of an event already applied.
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if !donation.Status.CanTransitionTo(next) {
		a.error(w, http.StatusConflict, "conflict", "invalid status transition")
		return
	}

	if err := a.Donations.UpdateStatus(r.Context(), donation.ID, next); err != nil {
		a.domainError(w, err)
		return
	}
	donation.Status = next
	metrics.RecordDonationSettled(string(next))
	a.Feed.DonationSettled(r.Context(), *donation)

	if next == domain.DonationStatusCompleted || next == domain.DonationStatusRefunded {
		if err := a.Trigger.DonationSettled(r.Context(), donation.FundraiserID); err != nil {
			// The donation write is committed; the sweep catches up later.
			a.Logger.Error().Err(err).Str("fundraiser_id", donation.FundraiserID).Msg("reconcile after settlement failed")
		}
	}

	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
