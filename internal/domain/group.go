package domain

import "time"

// GroupType enumerates the kinds of fundraiser-owning groups.
type GroupType string

const (
	GroupTypeIndividual GroupType = "individual"
	GroupTypeTeam       GroupType = "team"
	GroupTypeNonprofit  GroupType = "nonprofit"
)

// MemberRole enumerates membership capability levels, ordered
// viewer < editor < admin < owner.
type MemberRole string

const (
	RoleViewer MemberRole = "viewer"
	RoleEditor MemberRole = "editor"
	RoleAdmin  MemberRole = "admin"
	RoleOwner  MemberRole = "owner"
)

// Valid reports whether the role is one of the known levels.
func (r MemberRole) Valid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// MemberStatus enumerates membership lifecycle states. Only active
// memberships participate in access decisions.
type MemberStatus string

const (
	MemberStatusInvited MemberStatus = "invited"
	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"
)

// Group is the owning aggregate for fundraisers. An individual creator is a
// group of type individual with exactly one owner member, so access control
// never branches on owner kind.
type Group struct {
	ID        string
	Name      string
	Type      GroupType
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupMember is the authoritative join between users and groups. At most one
// row exists per (user, group). Pending invites are addressed by email until
// accepted.
type GroupMember struct {
	ID          string
	GroupID     string
	UserID      string
	InviteEmail string
	Role        MemberRole
	Status      MemberStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
