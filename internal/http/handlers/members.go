package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"givepool/internal/domain"
)

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// MemberInvite creates a pending membership addressed by email. The engine's
// member-change rule doubles as the invite guard: the invited role must rank
// strictly below the actor's own, so an admin can hand out editor or viewer
// but never admin, and nobody hands out owner.
func (a *App) MemberInvite(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		a.error(w, http.StatusBadRequest, "bad_request", "valid email required")
		return
	}
	role := domain.MemberRole(req.Role)
	if !role.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown role")
		return
	}

	if _, err := a.Authz.AuthorizeMemberChange(r.Context(), a.currentUserID(r), groupID, domain.GroupMember{Role: role}); err != nil {
		a.domainError(w, err)
		return
	}

	member := &domain.GroupMember{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		InviteEmail: req.Email,
		Role:        role,
		Status:      domain.MemberStatusInvited,
	}
	if err := a.Groups.Invite(r.Context(), member); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			a.error(w, http.StatusConflict, "conflict", "invite already pending")
			return
		}
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, toMemberDTO(*member))
}

type acceptInviteRequest struct {
	GroupID string `json:"group_id"`
}

// InviteAccept converts the caller's pending invite into an active
// membership. The invite is addressed to the email on the caller's account.
func (a *App) InviteAccept(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req acceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.GroupID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "group_id required")
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	member, err := a.Groups.AcceptInvite(r.Context(), req.GroupID, user.Email, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no pending invite")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			a.error(w, http.StatusConflict, "conflict", "already a member")
			return
		}
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toMemberDTO(*member))
}

type roleChangeRequest struct {
	Role string `json:"role"`
}

// MemberRoleUpdate changes another member's role. The engine is consulted
// before the target lookup result is revealed, so the response for an
// unauthorized caller never depends on whether the target exists. It runs
// once against the target's current row and once against the requested role,
// which keeps promotions bounded by the actor's own rank.
func (a *App) MemberRoleUpdate(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "userID")
	var req roleChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	role := domain.MemberRole(req.Role)
	if !role.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown role")
		return
	}

	target, targetErr := a.Groups.FindActiveMembership(r.Context(), targetID, groupID)
	var targetRow domain.GroupMember
	if target != nil {
		targetRow = *target
	}
	if _, err := a.Authz.AuthorizeMemberChange(r.Context(), a.currentUserID(r), groupID, targetRow); err != nil {
		a.domainError(w, err)
		return
	}
	if _, err := a.Authz.AuthorizeMemberChange(r.Context(), a.currentUserID(r), groupID, domain.GroupMember{Role: role}); err != nil {
		a.domainError(w, err)
		return
	}
	if targetErr != nil {
		a.domainError(w, targetErr)
		return
	}

	if err := a.Groups.UpdateMemberRole(r.Context(), groupID, targetID, role); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MemberRemove deactivates another member's row. Same decision sequencing as
// MemberRoleUpdate.
func (a *App) MemberRemove(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "userID")

	target, targetErr := a.Groups.FindActiveMembership(r.Context(), targetID, groupID)
	var targetRow domain.GroupMember
	if target != nil {
		targetRow = *target
	}
	if _, err := a.Authz.AuthorizeMemberChange(r.Context(), a.currentUserID(r), groupID, targetRow); err != nil {
		a.domainError(w, err)
		return
	}
	if targetErr != nil {
		a.domainError(w, targetErr)
		return
	}

	if err := a.Groups.RemoveMember(r.Context(), groupID, targetID); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
