package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"givepool/internal/authz"
	"givepool/internal/domain"
)

type createMilestoneRequest struct {
	StepNumber int             `json:"step_number"`
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
}

type updateMilestoneRequest struct {
	StepNumber *int             `json:"step_number"`
	Title      *string          `json:"title"`
	Amount     *decimal.Decimal `json:"amount"`
}

type milestoneDTO struct {
	ID             string          `json:"id"`
	FundraiserID   string          `json:"fundraiser_id"`
	StepNumber     int             `json:"step_number"`
	Title          string          `json:"title"`
	Amount         decimal.Decimal `json:"amount"`
	Achieved       bool            `json:"achieved"`
	AchievedAt     *time.Time      `json:"achieved_at,omitempty"`
	CompletionNote string          `json:"completion_note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toMilestoneDTO(m *domain.Milestone) milestoneDTO {
	return milestoneDTO{
		ID:             m.ID,
		FundraiserID:   m.FundraiserID,
		StepNumber:     m.StepNumber,
		Title:          m.Title,
		Amount:         m.Amount,
		Achieved:       m.Achieved,
		AchievedAt:     m.AchievedAt,
		CompletionNote: m.CompletionNote,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (a *App) MilestonesCreate(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	var req createMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title required")
		return
	}
	if req.StepNumber < 1 {
		a.error(w, http.StatusBadRequest, "bad_request", "step_number must be at least 1")
		return
	}
	if !req.Amount.IsPositive() {
		a.error(w, http.StatusBadRequest, "bad_request", "amount must be positive")
		return
	}

	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.FundraiserRef(fundraiserID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}

	milestone := &domain.Milestone{
		ID:           uuid.NewString(),
		FundraiserID: fundraiserID,
		StepNumber:   req.StepNumber,
		Title:        req.Title,
		Amount:       req.Amount,
	}
	if err := a.Milestones.Create(r.Context(), milestone); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			a.error(w, http.StatusConflict, "conflict", "step_number already used")
			return
		}
		a.domainError(w, err)
		return
	}

	a.reconcileAfterMilestoneChange(r, fundraiserID)
	a.json(w, http.StatusCreated, toMilestoneDTO(milestone))
}

func (a *App) MilestonesList(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	if _, err := a.visibleFundraiser(r, fundraiserID); err != nil {
		a.domainError(w, err)
		return
	}
	milestones, err := a.Milestones.ListByFundraiser(r.Context(), fundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]milestoneDTO, 0, len(milestones))
	for i := range milestones {
		items = append(items, toMilestoneDTO(&milestones[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// MilestoneUpdate edits an unachieved milestone. Achieved ones are frozen
// apart from the completion note.
func (a *App) MilestoneUpdate(w http.ResponseWriter, r *http.Request) {
	milestoneID := chi.URLParam(r, "id")
	var req updateMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.MilestoneRef(milestoneID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	milestone, err := a.Milestones.GetByID(r.Context(), milestoneID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !milestone.Mutable() {
		a.domainError(w, domain.ErrMilestoneAchieved)
		return
	}

	if req.StepNumber != nil {
		if *req.StepNumber < 1 {
			a.error(w, http.StatusBadRequest, "bad_request", "step_number must be at least 1")
			return
		}
		milestone.StepNumber = *req.StepNumber
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "title required")
			return
		}
		milestone.Title = title
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			a.error(w, http.StatusBadRequest, "bad_request", "amount must be positive")
			return
		}
		milestone.Amount = *req.Amount
	}

	if err := a.Milestones.Update(r.Context(), milestone); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			a.error(w, http.StatusConflict, "conflict", "step_number already used")
			return
		}
		a.domainError(w, err)
		return
	}

	a.reconcileAfterMilestoneChange(r, milestone.FundraiserID)
	a.json(w, http.StatusOK, toMilestoneDTO(milestone))
}

type annotateRequest struct {
	CompletionNote string `json:"completion_note"`
}

// MilestoneAnnotate records what the funds of an achieved step were spent on.
func (a *App) MilestoneAnnotate(w http.ResponseWriter, r *http.Request) {
	milestoneID := chi.URLParam(r, "id")
	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.MilestoneRef(milestoneID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	milestone, err := a.Milestones.GetByID(r.Context(), milestoneID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !milestone.Achieved {
		a.error(w, http.StatusConflict, "conflict", "milestone not achieved yet")
		return
	}

	if err := a.Milestones.Annotate(r.Context(), milestoneID, strings.TrimSpace(req.CompletionNote)); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) MilestoneDelete(w http.ResponseWriter, r *http.Request) {
	milestoneID := chi.URLParam(r, "id")
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.MilestoneRef(milestoneID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	milestone, err := a.Milestones.GetByID(r.Context(), milestoneID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !milestone.Mutable() {
		a.domainError(w, domain.ErrMilestoneAchieved)
		return
	}

	if err := a.Milestones.Delete(r.Context(), milestoneID); err != nil {
		a.domainError(w, err)
		return
	}

	a.reconcileAfterMilestoneChange(r, milestone.FundraiserID)
	w.WriteHeader(http.StatusNoContent)
}

// reconcileAfterMilestoneChange re-plans achievement against the standing
// donation total, since the thresholds just moved. The write has already
// committed, so a failed pass only delays the flip until the next sweep.
func (a *App) reconcileAfterMilestoneChange(r *http.Request, fundraiserID string) {
	if err := a.Trigger.MilestonesChanged(r.Context(), fundraiserID); err != nil {
		a.Logger.Warn().Err(err).Str("fundraiser_id", fundraiserID).Msg("reconcile after milestone change failed")
	}
}
