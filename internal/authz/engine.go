package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"givepool/internal/domain"
	"givepool/internal/metrics"
)

// ResourceRef identifies the resource a caller wants to act on.
type ResourceRef struct {
	Kind domain.ResourceKind
	ID   string
}

func GroupRef(id string) ResourceRef {
	return ResourceRef{Kind: domain.ResourceGroup, ID: id}
}

func FundraiserRef(id string) ResourceRef {
	return ResourceRef{Kind: domain.ResourceFundraiser, ID: id}
}

func MilestoneRef(id string) ResourceRef {
	return ResourceRef{Kind: domain.ResourceMilestone, ID: id}
}

func ShareLinkRef(id string) ResourceRef {
	return ResourceRef{Kind: domain.ResourceShareLink, ID: id}
}

// Grant is a successful decision. It carries the resolved group and the
// actor's membership so callers never repeat the lookup.
type Grant struct {
	GroupID    string
	Membership domain.GroupMember
}

// Engine evaluates access decisions. Decisions are valid as of the membership
// row read; the check-then-act window between a decision and the guarded
// write is accepted and not closed here.
type Engine struct {
	members domain.MembershipStore
	locator domain.ResourceLocator
	logger  zerolog.Logger
}

// NewEngine builds the access-control engine.
func NewEngine(members domain.MembershipStore, locator domain.ResourceLocator, logger zerolog.Logger) *Engine {
	return &Engine{members: members, locator: locator, logger: logger}
}

// Authorize resolves the resource to its owning group, loads the actor's
// active membership there, and checks the requirement. Denials come back as
// ErrNotFound, ErrNotAMember or ErrInsufficientRole and are terminal: no
// partial execution may follow one.
func (e *Engine) Authorize(ctx context.Context, actorID string, ref ResourceRef, req Requirement) (*Grant, error) {
	grant, err := e.check(ctx, actorID, ref, req)
	e.record(actorID, ref, req, err)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// AuthorizeMemberChange guards mutations that target another member's role or
// removal. Beyond admin-or-above standing, the actor may never target their
// own row and may only target rows ranking strictly below their own, so an
// admin cannot touch peers or the owner.
func (e *Engine) AuthorizeMemberChange(ctx context.Context, actorID, groupID string, target domain.GroupMember) (*Grant, error) {
	ref := GroupRef(groupID)
	grant, err := e.check(ctx, actorID, ref, AdminOrAbove)
	if err == nil {
		switch {
		case target.UserID != "" && target.UserID == actorID:
			err = domain.ErrSelfActionForbidden
		case Rank(target.Role) >= Rank(grant.Membership.Role):
			err = domain.ErrSelfActionForbidden
		}
	}
	e.record(actorID, ref, AdminOrAbove, err)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (e *Engine) check(ctx context.Context, actorID string, ref ResourceRef, req Requirement) (*Grant, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}

	// Existence first: unauthenticated callers never get this far, so a 404
	// here leaks nothing beyond what a member could already see.
	groupID, err := e.locator.GroupOwning(ctx, ref.Kind, ref.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("authz: resolve %s %s: %w", ref.Kind, ref.ID, err)
	}

	member, err := e.members.FindActiveMembership(ctx, actorID, groupID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotAMember
		}
		return nil, fmt.Errorf("authz: membership lookup: %w", err)
	}

	if !req.SatisfiedBy(member.Role) {
		return nil, domain.ErrInsufficientRole
	}

	return &Grant{GroupID: groupID, Membership: *member}, nil
}

// record logs denials with their precise reason and feeds the decision
// counter. The HTTP layer collapses membership denials into one status; the
// distinction survives here.
func (e *Engine) record(actorID string, ref ResourceRef, req Requirement, err error) {
	outcome := outcomeFor(err)
	metrics.RecordAuthzDecision(outcome)
	if err == nil {
		return
	}
	evt := e.logger.Debug()
	if outcome == "error" {
		evt = e.logger.Error().Err(err)
	}
	evt.
		Str("actor", actorID).
		Str("resource_kind", string(ref.Kind)).
		Str("resource_id", ref.ID).
		Str("requirement", req.String()).
		Str("reason", outcome).
		Msg("authz: denied")
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, domain.ErrInsufficientRole):
		return "insufficient_role"
	case errors.Is(err, domain.ErrSelfActionForbidden):
		return "self_action_forbidden"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthenticated"
	}
	return "error"
}
