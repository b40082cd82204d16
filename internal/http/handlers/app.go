// Package handlers contains the HTTP transport layer. Handlers decode
// requests, run every access decision through the authz engine, call the
// domain repositories, and translate sentinel errors into status codes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"givepool/internal/authz"
	"givepool/internal/domain"
	"givepool/internal/middleware"
	"givepool/internal/notify"
	"givepool/internal/payments"
	"givepool/internal/storage"
)

// ReconcileTrigger re-runs milestone reconciliation with bounded retries.
type ReconcileTrigger interface {
	DonationSettled(ctx context.Context, fundraiserID string) error
	MilestonesChanged(ctx context.Context, fundraiserID string) error
}

// EventPublisher announces settled donations to the live feed.
type EventPublisher interface {
	DonationSettled(ctx context.Context, d domain.Donation)
}

// CheckoutProvider opens hosted checkout sessions for pending donations.
type CheckoutProvider interface {
	HasCredentials() bool
	CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
}

// App bundles the dependencies shared by every handler.
type App struct {
	Users       domain.UserRepository
	Groups      domain.GroupRepository
	Fundraisers domain.FundraiserRepository
	Milestones  domain.MilestoneRepository
	Donations   domain.DonationRepository
	Links       domain.ShareLinkRepository
	Stats       domain.StatsRepository

	Authz    *authz.Engine
	Trigger  ReconcileTrigger
	Hub      *notify.Hub
	Feed     EventPublisher
	Payments CheckoutProvider
	Store    *storage.FileStore

	Logger         zerolog.Logger
	JWTSecret      string
	JWTTTL         time.Duration
	WebhookSecret  string
	StorageBaseURL string
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}

// domainError translates sentinel errors into HTTP responses. The membership
// denials collapse into one indistinguishable 403 so a caller cannot probe
// which rule refused them.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrInsufficientRole),
		errors.Is(err, domain.ErrSelfActionForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrMilestoneAchieved):
		a.error(w, http.StatusConflict, "conflict", "milestone already achieved")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", "resource conflict")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid input")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// visibleFundraiser loads the fundraiser and enforces read visibility:
// published public fundraisers are world-readable, anything else requires
// membership in the owning group.
func (a *App) visibleFundraiser(r *http.Request, fundraiserID string) (*domain.Fundraiser, error) {
	fundraiser, err := a.Fundraisers.GetByID(r.Context(), fundraiserID)
	if err != nil {
		return nil, err
	}
	if fundraiser.PubliclyVisible() {
		return fundraiser, nil
	}
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.FundraiserRef(fundraiserID), authz.ViewerOrAbove); err != nil {
		return nil, err
	}
	return fundraiser, nil
}
