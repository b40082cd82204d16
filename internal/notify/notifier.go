package notify

import (
	"context"

	"github.com/rs/zerolog"

	"givepool/internal/domain"
)

// Notifier converts domain events into live feed entries and owner push
// notifications.
type Notifier struct {
	hub         *Hub
	push        *Push
	fundraisers domain.FundraiserRepository
	groups      domain.GroupRepository
	users       domain.UserRepository
	logger      zerolog.Logger
}

func NewNotifier(hub *Hub, push *Push, fundraisers domain.FundraiserRepository, groups domain.GroupRepository, users domain.UserRepository, logger zerolog.Logger) *Notifier {
	return &Notifier{
		hub:         hub,
		push:        push,
		fundraisers: fundraisers,
		groups:      groups,
		users:       users,
		logger:      logger,
	}
}

// MilestoneTransition publishes the flip to the live feed and, for newly
// achieved milestones, pushes a notification to the owning group's owner.
// The push happens on its own goroutine because this is called while the
// reconciler holds the fundraiser lock.
func (n *Notifier) MilestoneTransition(ctx context.Context, fundraiserID string, m domain.Milestone, achieved bool) {
	evType := "milestone_achieved"
	if !achieved {
		evType = "milestone_reversed"
	}
	n.hub.Publish(Event{
		Type:         evType,
		FundraiserID: fundraiserID,
		Data: map[string]any{
			"milestone_id": m.ID,
			"step_number":  m.StepNumber,
			"title":        m.Title,
			"achieved_at":  m.AchievedAt,
		},
	})

	if !achieved {
		return
	}
	go n.pushMilestoneAchieved(context.Background(), fundraiserID, m)
}

// DonationSettled publishes a settled donation to the fundraiser's live feed.
func (n *Notifier) DonationSettled(ctx context.Context, d domain.Donation) {
	n.hub.Publish(Event{
		Type:         "donation_" + string(d.Status),
		FundraiserID: d.FundraiserID,
		Data: map[string]any{
			"donation_id":  d.ID,
			"amount":       d.Amount.String(),
			"currency":     d.Currency,
			"donor_name":   d.DonorName,
			"country_code": d.CountryCode,
		},
	})
}

func (n *Notifier) pushMilestoneAchieved(ctx context.Context, fundraiserID string, m domain.Milestone) {
	fundraiser, err := n.fundraisers.GetByID(ctx, fundraiserID)
	if err != nil {
		n.logger.Warn().Err(err).Str("fundraiser_id", fundraiserID).Msg("notify: load fundraiser")
		return
	}
	group, err := n.groups.GetByID(ctx, fundraiser.GroupID)
	if err != nil {
		n.logger.Warn().Err(err).Str("group_id", fundraiser.GroupID).Msg("notify: load group")
		return
	}
	owner, err := n.users.GetByID(ctx, group.OwnerID)
	if err != nil {
		n.logger.Warn().Err(err).Str("user_id", group.OwnerID).Msg("notify: load owner")
		return
	}
	if owner.FCMToken == "" {
		return
	}

	amount := FormatAmount(owner.Locale, fundraiser.Currency, m.Amount)
	title, body := milestoneAchievedCopy(owner.Locale, fundraiser.Title, m.Title, amount)
	n.push.Send(ctx, owner.FCMToken, title, body, map[string]string{
		"fundraiser_id": fundraiserID,
		"milestone_id":  m.ID,
	})
}
