// Package authz decides, for any (user, resource) pair, which operations are
// permitted. It composes the group-scoped role hierarchy with membership and
// ownership lookups into a single decision path shared by every transport.
package authz

import (
	"sort"
	"strings"

	"givepool/internal/domain"
)

// Rank maps a role to its capability rank: owner=3, admin=2, editor=1,
// viewer=0. Unknown roles rank below every valid role.
func Rank(role domain.MemberRole) int {
	switch role {
	case domain.RoleOwner:
		return 3
	case domain.RoleAdmin:
		return 2
	case domain.RoleEditor:
		return 1
	case domain.RoleViewer:
		return 0
	}
	return -1
}

// Requirement declares which roles satisfy a guarded operation. Callers pick
// the semantics: Exactly matches the listed roles only, AtLeast accepts any
// role ranking at or above the lowest listed role.
type Requirement struct {
	roles   []domain.MemberRole
	atLeast bool
}

// Exactly requires the actor's role to be one of the listed roles.
func Exactly(roles ...domain.MemberRole) Requirement {
	return Requirement{roles: roles}
}

// AtLeast requires the actor's role to rank at or above the given role.
func AtLeast(role domain.MemberRole) Requirement {
	return Requirement{roles: []domain.MemberRole{role}, atLeast: true}
}

// SatisfiedBy reports whether the actual role meets the requirement. Pure;
// never errors.
func (r Requirement) SatisfiedBy(actual domain.MemberRole) bool {
	if len(r.roles) == 0 {
		return false
	}
	if r.atLeast {
		min := Rank(r.roles[0])
		for _, role := range r.roles[1:] {
			if rank := Rank(role); rank < min {
				min = rank
			}
		}
		return Rank(actual) >= min
	}
	for _, role := range r.roles {
		if actual == role {
			return true
		}
	}
	return false
}

// String renders the requirement for logs.
func (r Requirement) String() string {
	names := make([]string, len(r.roles))
	for i, role := range r.roles {
		names[i] = string(role)
	}
	sort.Strings(names)
	if r.atLeast {
		return "at-least(" + strings.Join(names, ",") + ")"
	}
	return "exactly(" + strings.Join(names, ",") + ")"
}

// Common requirements shared by the HTTP layer.
var (
	ViewerOrAbove = AtLeast(domain.RoleViewer)
	EditorOrAbove = AtLeast(domain.RoleEditor)
	AdminOrAbove  = AtLeast(domain.RoleAdmin)
	OwnerOrAdmin  = Exactly(domain.RoleOwner, domain.RoleAdmin)
)
