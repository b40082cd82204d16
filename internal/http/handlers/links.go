package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"givepool/internal/authz"
	"givepool/internal/domain"
)

type createLinkRequest struct {
	ExpiresInHours int `json:"expires_in_hours"`
}

type linkDTO struct {
	Code         string     `json:"code"`
	FundraiserID string     `json:"fundraiser_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toLinkDTO(l domain.ShareLink) linkDTO {
	return linkDTO{
		Code:         l.Code,
		FundraiserID: l.FundraiserID,
		ExpiresAt:    l.ExpiresAt,
		CreatedAt:    l.CreatedAt,
	}
}

func (a *App) ShareLinkCreate(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	var req createLinkRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	if req.ExpiresInHours < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "expires_in_hours must not be negative")
		return
	}

	userID := a.currentUserID(r)
	if _, err := a.Authz.Authorize(r.Context(), userID, authz.FundraiserRef(fundraiserID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInHours > 0 {
		t := time.Now().UTC().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	link := &domain.ShareLink{
		ID:           uuid.NewString(),
		FundraiserID: fundraiserID,
		CreatedBy:    userID,
		ExpiresAt:    expiresAt,
	}
	// A code collision is astronomically unlikely; retry a couple of times
	// rather than surfacing it.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		link.Code = domain.NewShareCode()
		if err = a.Links.Create(r.Context(), link); !errors.Is(err, domain.ErrConflict) {
			break
		}
	}
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, toLinkDTO(*link))
}

func (a *App) ShareLinksList(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.FundraiserRef(fundraiserID), authz.ViewerOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	links, err := a.Links.ListByFundraiser(r.Context(), fundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]linkDTO, 0, len(links))
	for _, l := range links {
		items = append(items, toLinkDTO(l))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// LinkResolve is the public landing lookup: code to fundraiser. Expired
// links and fundraisers that are not publicly visible resolve like missing
// codes.
func (a *App) LinkResolve(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	link, err := a.Links.GetByCode(r.Context(), code)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if link.Expired(time.Now()) {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	fundraiser, err := a.Fundraisers.GetByID(r.Context(), link.FundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if !fundraiser.PubliclyVisible() {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	a.json(w, http.StatusOK, toFundraiserDTO(fundraiser))
}
