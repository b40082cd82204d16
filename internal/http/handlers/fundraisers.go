package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"givepool/internal/authz"
	"givepool/internal/domain"
)

type createFundraiserRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	GoalAmount  decimal.Decimal `json:"goal_amount"`
	Currency    string          `json:"currency"`
	IsPublic    bool            `json:"is_public"`
}

type updateFundraiserRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	GoalAmount  *decimal.Decimal `json:"goal_amount"`
	IsPublic    *bool            `json:"is_public"`
}

type fundraiserDTO struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	GoalAmount  decimal.Decimal `json:"goal_amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	IsPublic    bool            `json:"is_public"`
	CoverURL    string          `json:"cover_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toFundraiserDTO(f *domain.Fundraiser) fundraiserDTO {
	return fundraiserDTO{
		ID:          f.ID,
		GroupID:     f.GroupID,
		Title:       f.Title,
		Description: f.Description,
		GoalAmount:  f.GoalAmount,
		Currency:    f.Currency,
		Status:      string(f.Status),
		IsPublic:    f.IsPublic,
		CoverURL:    f.CoverURL,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func (a *App) FundraisersCreate(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	var req createFundraiserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title required")
		return
	}
	if !req.GoalAmount.IsPositive() {
		a.error(w, http.StatusBadRequest, "bad_request", "goal_amount must be positive")
		return
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if !validCurrency(req.Currency) {
		a.error(w, http.StatusBadRequest, "bad_request", "currency must be a 3-letter code")
		return
	}

	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.GroupRef(groupID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}

	fundraiser := &domain.Fundraiser{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		Title:       req.Title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		Currency:    req.Currency,
		Status:      domain.FundraiserStatusDraft,
		IsPublic:    req.IsPublic,
	}
	if err := a.Fundraisers.Create(r.Context(), fundraiser); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, toFundraiserDTO(fundraiser))
}

func (a *App) FundraisersList(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.GroupRef(groupID), authz.ViewerOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	fundraisers, err := a.Fundraisers.ListByGroup(r.Context(), groupID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]fundraiserDTO, 0, len(fundraisers))
	for i := range fundraisers {
		items = append(items, toFundraiserDTO(&fundraisers[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) FundraiserGet(w http.ResponseWriter, r *http.Request) {
	fundraiser, err := a.visibleFundraiser(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toFundraiserDTO(fundraiser))
}

// FundraiserUpdate rewrites editable fields. The goal amount is frozen once
// the fundraiser leaves draft, since milestones and donors rely on it.
func (a *App) FundraiserUpdate(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	var req updateFundraiserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.FundraiserRef(fundraiserID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	fundraiser, err := a.Fundraisers.GetByID(r.Context(), fundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}

	if req.GoalAmount != nil {
		if fundraiser.Status != domain.FundraiserStatusDraft {
			a.error(w, http.StatusConflict, "conflict", "goal_amount can only change while draft")
			return
		}
		if !req.GoalAmount.IsPositive() {
			a.error(w, http.StatusBadRequest, "bad_request", "goal_amount must be positive")
			return
		}
		fundraiser.GoalAmount = *req.GoalAmount
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "title required")
			return
		}
		fundraiser.Title = title
	}
	if req.Description != nil {
		fundraiser.Description = *req.Description
	}
	if req.IsPublic != nil {
		fundraiser.IsPublic = *req.IsPublic
	}

	if err := a.Fundraisers.Update(r.Context(), fundraiser); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toFundraiserDTO(fundraiser))
}

func (a *App) FundraiserPublish(w http.ResponseWriter, r *http.Request) {
	a.setFundraiserStatus(w, r, domain.FundraiserStatusDraft, domain.FundraiserStatusPublished)
}

func (a *App) FundraiserClose(w http.ResponseWriter, r *http.Request) {
	a.setFundraiserStatus(w, r, domain.FundraiserStatusPublished, domain.FundraiserStatusClosed)
}

func (a *App) setFundraiserStatus(w http.ResponseWriter, r *http.Request, from, to domain.FundraiserStatus) {
	fundraiserID := chi.URLParam(r, "id")
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.FundraiserRef(fundraiserID), authz.AdminOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	fundraiser, err := a.Fundraisers.GetByID(r.Context(), fundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if fundraiser.Status != from {
		a.error(w, http.StatusConflict, "conflict", "fundraiser is "+string(fundraiser.Status))
		return
	}
	if err := a.Fundraisers.SetStatus(r.Context(), fundraiserID, to); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": fundraiserID, "status": string(to)})
}
