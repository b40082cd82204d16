package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"givepool/internal/authz"
	"givepool/internal/domain"
)

type createGroupRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type groupDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toGroupDTO(g *domain.Group) groupDTO {
	return groupDTO{
		ID:        g.ID,
		Name:      g.Name,
		Type:      string(g.Type),
		OwnerID:   g.OwnerID,
		CreatedAt: g.CreatedAt,
	}
}

type memberDTO struct {
	GroupID     string    `json:"group_id"`
	UserID      string    `json:"user_id,omitempty"`
	InviteEmail string    `json:"invite_email,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMemberDTO(m domain.GroupMember) memberDTO {
	return memberDTO{
		GroupID:     m.GroupID,
		UserID:      m.UserID,
		InviteEmail: m.InviteEmail,
		Role:        string(m.Role),
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
	}
}

// GroupsCreate onboards a new group with the caller as its owner, in one
// transaction. Individual creators are just groups of type individual, so
// every later access decision walks the same path.
func (a *App) GroupsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name required")
		return
	}
	groupType := domain.GroupType(req.Type)
	if req.Type == "" {
		groupType = domain.GroupTypeIndividual
	}
	switch groupType {
	case domain.GroupTypeIndividual, domain.GroupTypeTeam, domain.GroupTypeNonprofit:
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unknown group type")
		return
	}

	group := &domain.Group{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Type:    groupType,
		OwnerID: userID,
	}
	owner := &domain.GroupMember{
		ID:      uuid.NewString(),
		GroupID: group.ID,
		UserID:  userID,
		Role:    domain.RoleOwner,
		Status:  domain.MemberStatusActive,
	}
	if err := a.Groups.CreateWithOwner(r.Context(), group, owner); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, toGroupDTO(group))
}

func (a *App) GroupGet(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.GroupRef(groupID), authz.ViewerOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	group, err := a.Groups.GetByID(r.Context(), groupID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toGroupDTO(group))
}

func (a *App) MyGroups(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	groups, err := a.Groups.ListByUser(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]groupDTO, 0, len(groups))
	for i := range groups {
		items = append(items, toGroupDTO(&groups[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) MembersList(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.GroupRef(groupID), authz.ViewerOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	members, err := a.Groups.ListMembers(r.Context(), groupID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]memberDTO, 0, len(members))
	for _, m := range members {
		items = append(items, toMemberDTO(m))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
