package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ResourceKind names the resource families the access-control engine can
// resolve to an owning group.
type ResourceKind string

const (
	ResourceGroup      ResourceKind = "group"
	ResourceFundraiser ResourceKind = "fundraiser"
	ResourceMilestone  ResourceKind = "milestone"
	ResourceShareLink  ResourceKind = "share_link"
)

// MembershipStore is the narrow lookup the access-control engine depends on.
type MembershipStore interface {
	// FindActiveMembership returns the user's active membership in the group,
	// or ErrNotFound when no active row exists.
	FindActiveMembership(ctx context.Context, userID, groupID string) (*GroupMember, error)
}

// ResourceLocator resolves a resource to the group that owns it.
type ResourceLocator interface {
	// GroupOwning returns the owning group id, or ErrNotFound when the
	// resource does not exist.
	GroupOwning(ctx context.Context, kind ResourceKind, id string) (string, error)
}

// MilestoneLedger is the milestone access the reconciler depends on.
type MilestoneLedger interface {
	// ListByFundraiser returns the fundraiser's milestones ordered by step
	// number ascending.
	ListByFundraiser(ctx context.Context, fundraiserID string) ([]Milestone, error)
	// ApplyTransitions applies every transition as a single atomic unit:
	// either all of them commit or none do.
	ApplyTransitions(ctx context.Context, fundraiserID string, transitions []MilestoneTransition) error
}

// DonationLedger exposes the authoritative completed-donation total. No
// component may cache or derive a competing total.
type DonationLedger interface {
	CompletedTotal(ctx context.Context, fundraiserID string) (decimal.Decimal, error)
}

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetFCMToken(ctx context.Context, userID, token string) error
}

// GroupRepository handles group persistence and membership rows.
type GroupRepository interface {
	MembershipStore

	// CreateWithOwner inserts the group and its owner membership in one
	// transaction.
	CreateWithOwner(ctx context.Context, group *Group, owner *GroupMember) error
	GetByID(ctx context.Context, id string) (*Group, error)
	ListByUser(ctx context.Context, userID string) ([]Group, error)

	Invite(ctx context.Context, member *GroupMember) error
	AcceptInvite(ctx context.Context, groupID, email, userID string) (*GroupMember, error)
	UpdateMemberRole(ctx context.Context, groupID, userID string, role MemberRole) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	ListMembers(ctx context.Context, groupID string) ([]GroupMember, error)
}

// FundraiserRepository handles fundraiser persistence.
type FundraiserRepository interface {
	Create(ctx context.Context, fundraiser *Fundraiser) error
	GetByID(ctx context.Context, id string) (*Fundraiser, error)
	ListByGroup(ctx context.Context, groupID string) ([]Fundraiser, error)
	Update(ctx context.Context, fundraiser *Fundraiser) error
	SetStatus(ctx context.Context, id string, status FundraiserStatus) error
	SetCoverURL(ctx context.Context, id, coverURL string) error
}

// MilestoneRepository adds CRUD on top of the reconciliation ledger.
type MilestoneRepository interface {
	MilestoneLedger

	Create(ctx context.Context, milestone *Milestone) error
	GetByID(ctx context.Context, id string) (*Milestone, error)
	Update(ctx context.Context, milestone *Milestone) error
	Annotate(ctx context.Context, id, completionNote string) error
	Delete(ctx context.Context, id string) error
}

// DonationRepository handles donation persistence.
type DonationRepository interface {
	DonationLedger

	Create(ctx context.Context, donation *Donation) error
	GetByProviderRef(ctx context.Context, providerRef string) (*Donation, error)
	UpdateStatus(ctx context.Context, id string, status DonationStatus) error
	ListByFundraiser(ctx context.Context, fundraiserID string, limit int) ([]Donation, error)
	// SettledSince returns ids of fundraisers whose donations settled after
	// their last recorded reconciliation, for the sweep worker.
	SettledSince(ctx context.Context, since time.Time) ([]string, error)
}

// ShareLinkRepository handles share link persistence.
type ShareLinkRepository interface {
	Create(ctx context.Context, link *ShareLink) error
	GetByCode(ctx context.Context, code string) (*ShareLink, error)
	ListByFundraiser(ctx context.Context, fundraiserID string) ([]ShareLink, error)
}

// StatsRepository aggregates fundraiser donation figures.
type StatsRepository interface {
	FundraiserStats(ctx context.Context, fundraiserID string) (*FundraiserStats, error)
}
