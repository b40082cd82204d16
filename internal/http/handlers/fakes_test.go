package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"givepool/internal/authz"
	"givepool/internal/domain"
	"givepool/internal/middleware"
	"givepool/internal/notify"
	"givepool/internal/payments"
)

type fakeUsers struct {
	byID map[string]*domain.User
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	for _, u := range f.byID {
		if u.Email == user.Email {
			return domain.ErrConflict
		}
	}
	stored := *user
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	f.byID[user.ID] = &stored
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) SetFCMToken(_ context.Context, userID, token string) error {
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.FCMToken = token
	return nil
}

type fakeGroups struct {
	groups  map[string]*domain.Group
	members map[string]map[string]*domain.GroupMember // groupID -> userID
	invites map[string]map[string]*domain.GroupMember // groupID -> email
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{
		groups:  make(map[string]*domain.Group),
		members: make(map[string]map[string]*domain.GroupMember),
		invites: make(map[string]map[string]*domain.GroupMember),
	}
}

func (f *fakeGroups) FindActiveMembership(_ context.Context, userID, groupID string) (*domain.GroupMember, error) {
	m, ok := f.members[groupID][userID]
	if !ok || m.Status != domain.MemberStatusActive {
		return nil, domain.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeGroups) CreateWithOwner(_ context.Context, group *domain.Group, owner *domain.GroupMember) error {
	stored := *group
	f.groups[group.ID] = &stored
	member := *owner
	f.members[group.ID] = map[string]*domain.GroupMember{owner.UserID: &member}
	return nil
}

func (f *fakeGroups) GetByID(_ context.Context, id string) (*domain.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGroups) ListByUser(_ context.Context, userID string) ([]domain.Group, error) {
	var out []domain.Group
	for groupID, members := range f.members {
		if m, ok := members[userID]; ok && m.Status == domain.MemberStatusActive {
			out = append(out, *f.groups[groupID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGroups) Invite(_ context.Context, member *domain.GroupMember) error {
	if _, ok := f.invites[member.GroupID][member.InviteEmail]; ok {
		return domain.ErrConflict
	}
	if f.invites[member.GroupID] == nil {
		f.invites[member.GroupID] = make(map[string]*domain.GroupMember)
	}
	stored := *member
	f.invites[member.GroupID][member.InviteEmail] = &stored
	return nil
}

func (f *fakeGroups) AcceptInvite(_ context.Context, groupID, email, userID string) (*domain.GroupMember, error) {
	invite, ok := f.invites[groupID][email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if _, exists := f.members[groupID][userID]; exists {
		return nil, domain.ErrConflict
	}
	delete(f.invites[groupID], email)
	invite.UserID = userID
	invite.Status = domain.MemberStatusActive
	if f.members[groupID] == nil {
		f.members[groupID] = make(map[string]*domain.GroupMember)
	}
	f.members[groupID][userID] = invite
	copied := *invite
	return &copied, nil
}

func (f *fakeGroups) UpdateMemberRole(_ context.Context, groupID, userID string, role domain.MemberRole) error {
	m, ok := f.members[groupID][userID]
	if !ok || m.Status != domain.MemberStatusActive {
		return domain.ErrNotFound
	}
	m.Role = role
	return nil
}

func (f *fakeGroups) RemoveMember(_ context.Context, groupID, userID string) error {
	m, ok := f.members[groupID][userID]
	if !ok || m.Status != domain.MemberStatusActive {
		return domain.ErrNotFound
	}
	m.Status = domain.MemberStatusRemoved
	return nil
}

func (f *fakeGroups) ListMembers(_ context.Context, groupID string) ([]domain.GroupMember, error) {
	var out []domain.GroupMember
	for _, m := range f.members[groupID] {
		if m.Status != domain.MemberStatusRemoved {
			out = append(out, *m)
		}
	}
	for _, m := range f.invites[groupID] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeFundraisers struct {
	byID map[string]*domain.Fundraiser
}

func (f *fakeFundraisers) Create(_ context.Context, fundraiser *domain.Fundraiser) error {
	stored := *fundraiser
	f.byID[fundraiser.ID] = &stored
	return nil
}

func (f *fakeFundraisers) GetByID(_ context.Context, id string) (*domain.Fundraiser, error) {
	fr, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *fr
	return &copied, nil
}

func (f *fakeFundraisers) ListByGroup(_ context.Context, groupID string) ([]domain.Fundraiser, error) {
	var out []domain.Fundraiser
	for _, fr := range f.byID {
		if fr.GroupID == groupID {
			out = append(out, *fr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeFundraisers) Update(_ context.Context, fundraiser *domain.Fundraiser) error {
	fr, ok := f.byID[fundraiser.ID]
	if !ok {
		return domain.ErrNotFound
	}
	fr.Title = fundraiser.Title
	fr.Description = fundraiser.Description
	fr.GoalAmount = fundraiser.GoalAmount
	fr.Currency = fundraiser.Currency
	fr.IsPublic = fundraiser.IsPublic
	return nil
}

func (f *fakeFundraisers) SetStatus(_ context.Context, id string, status domain.FundraiserStatus) error {
	fr, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	fr.Status = status
	return nil
}

func (f *fakeFundraisers) SetCoverURL(_ context.Context, id, coverURL string) error {
	fr, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	fr.CoverURL = coverURL
	return nil
}

type fakeMilestones struct {
	byID map[string]*domain.Milestone
}

func (f *fakeMilestones) Create(_ context.Context, milestone *domain.Milestone) error {
	for _, m := range f.byID {
		if m.FundraiserID == milestone.FundraiserID && m.StepNumber == milestone.StepNumber {
			return domain.ErrConflict
		}
	}
	stored := *milestone
	f.byID[milestone.ID] = &stored
	return nil
}

func (f *fakeMilestones) GetByID(_ context.Context, id string) (*domain.Milestone, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMilestones) Update(_ context.Context, milestone *domain.Milestone) error {
	m, ok := f.byID[milestone.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, other := range f.byID {
		if other.ID != milestone.ID && other.FundraiserID == milestone.FundraiserID && other.StepNumber == milestone.StepNumber {
			return domain.ErrConflict
		}
	}
	m.StepNumber = milestone.StepNumber
	m.Title = milestone.Title
	m.Amount = milestone.Amount
	return nil
}

func (f *fakeMilestones) Annotate(_ context.Context, id, completionNote string) error {
	m, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.CompletionNote = completionNote
	return nil
}

func (f *fakeMilestones) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeMilestones) ListByFundraiser(_ context.Context, fundraiserID string) ([]domain.Milestone, error) {
	var out []domain.Milestone
	for _, m := range f.byID {
		if m.FundraiserID == fundraiserID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepNumber < out[j].StepNumber })
	return out, nil
}

func (f *fakeMilestones) ApplyTransitions(_ context.Context, fundraiserID string, transitions []domain.MilestoneTransition) error {
	for _, tr := range transitions {
		m, ok := f.byID[tr.MilestoneID]
		if !ok || m.FundraiserID != fundraiserID {
			return domain.ErrNotFound
		}
		m.Achieved = tr.Achieved
		m.AchievedAt = tr.AchievedAt
	}
	return nil
}

type fakeDonations struct {
	byID map[string]*domain.Donation
}

func (f *fakeDonations) Create(_ context.Context, donation *domain.Donation) error {
	for _, d := range f.byID {
		if d.ProviderRef != "" && d.ProviderRef == donation.ProviderRef {
			return domain.ErrConflict
		}
	}
	stored := *donation
	stored.CreatedAt = time.Now().UTC()
	f.byID[donation.ID] = &stored
	return nil
}

func (f *fakeDonations) GetByProviderRef(_ context.Context, providerRef string) (*domain.Donation, error) {
	for _, d := range f.byID {
		if d.ProviderRef == providerRef {
			copied := *d
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDonations) UpdateStatus(_ context.Context, id string, status domain.DonationStatus) error {
	d, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = status
	return nil
}

func (f *fakeDonations) ListByFundraiser(_ context.Context, fundraiserID string, limit int) ([]domain.Donation, error) {
	var out []domain.Donation
	for _, d := range f.byID {
		if d.FundraiserID == fundraiserID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDonations) CompletedTotal(_ context.Context, fundraiserID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.byID {
		if d.FundraiserID == fundraiserID && d.Status.CountsTowardTotal() {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

func (f *fakeDonations) SettledSince(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

type fakeLinks struct {
	byCode map[string]*domain.ShareLink
}

func (f *fakeLinks) Create(_ context.Context, link *domain.ShareLink) error {
	if _, ok := f.byCode[link.Code]; ok {
		return domain.ErrConflict
	}
	stored := *link
	f.byCode[link.Code] = &stored
	return nil
}

func (f *fakeLinks) GetByCode(_ context.Context, code string) (*domain.ShareLink, error) {
	l, ok := f.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (f *fakeLinks) ListByFundraiser(_ context.Context, fundraiserID string) ([]domain.ShareLink, error) {
	var out []domain.ShareLink
	for _, l := range f.byCode {
		if l.FundraiserID == fundraiserID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type fakeStats struct {
	stats map[string]*domain.FundraiserStats
}

func (f *fakeStats) FundraiserStats(_ context.Context, fundraiserID string) (*domain.FundraiserStats, error) {
	s, ok := f.stats[fundraiserID]
	if !ok {
		return &domain.FundraiserStats{FundraiserID: fundraiserID, CompletedTotal: decimal.Zero}, nil
	}
	return s, nil
}

// fakeLocator resolves ownership against the other fakes, mirroring the SQL
// joins of the real locator.
type fakeLocator struct {
	groups      *fakeGroups
	fundraisers *fakeFundraisers
	milestones  *fakeMilestones
	links       *fakeLinks
}

func (f *fakeLocator) GroupOwning(ctx context.Context, kind domain.ResourceKind, id string) (string, error) {
	switch kind {
	case domain.ResourceGroup:
		if _, ok := f.groups.groups[id]; !ok {
			return "", domain.ErrNotFound
		}
		return id, nil
	case domain.ResourceFundraiser:
		fr, ok := f.fundraisers.byID[id]
		if !ok {
			return "", domain.ErrNotFound
		}
		return fr.GroupID, nil
	case domain.ResourceMilestone:
		m, ok := f.milestones.byID[id]
		if !ok {
			return "", domain.ErrNotFound
		}
		return f.GroupOwning(ctx, domain.ResourceFundraiser, m.FundraiserID)
	case domain.ResourceShareLink:
		for _, l := range f.links.byCode {
			if l.ID == id {
				return f.GroupOwning(ctx, domain.ResourceFundraiser, l.FundraiserID)
			}
		}
		return "", domain.ErrNotFound
	}
	return "", fmt.Errorf("unknown resource kind %q", kind)
}

type fakeTrigger struct {
	mu         sync.Mutex
	settled    []string
	milestones []string
	err        error
}

func (f *fakeTrigger) DonationSettled(_ context.Context, fundraiserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, fundraiserID)
	return f.err
}

func (f *fakeTrigger) MilestonesChanged(_ context.Context, fundraiserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.milestones = append(f.milestones, fundraiserID)
	return f.err
}

func (f *fakeTrigger) settledCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.settled...)
}

func (f *fakeTrigger) milestoneCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.milestones...)
}

type fakePublisher struct {
	mu        sync.Mutex
	announced []domain.Donation
}

func (f *fakePublisher) DonationSettled(_ context.Context, d domain.Donation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, d)
}

func (f *fakePublisher) events() []domain.Donation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Donation(nil), f.announced...)
}

type fakeCheckout struct {
	configured bool
	session    *payments.CheckoutSession
	err        error
	requests   []payments.CheckoutRequest
}

func (f *fakeCheckout) HasCredentials() bool { return f.configured }

func (f *fakeCheckout) CreateCheckout(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// testApp wires an App over in-memory fakes plus helpers to seed fixtures.
type testApp struct {
	*App
	users       *fakeUsers
	groups      *fakeGroups
	fundraisers *fakeFundraisers
	milestones  *fakeMilestones
	donations   *fakeDonations
	links       *fakeLinks
	stats       *fakeStats
	trigger     *fakeTrigger
	feed        *fakePublisher
	checkout    *fakeCheckout
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	users := &fakeUsers{byID: make(map[string]*domain.User)}
	groups := newFakeGroups()
	fundraisers := &fakeFundraisers{byID: make(map[string]*domain.Fundraiser)}
	milestones := &fakeMilestones{byID: make(map[string]*domain.Milestone)}
	donations := &fakeDonations{byID: make(map[string]*domain.Donation)}
	links := &fakeLinks{byCode: make(map[string]*domain.ShareLink)}
	stats := &fakeStats{stats: make(map[string]*domain.FundraiserStats)}
	locator := &fakeLocator{groups: groups, fundraisers: fundraisers, milestones: milestones, links: links}
	trigger := &fakeTrigger{}
	feed := &fakePublisher{}
	checkout := &fakeCheckout{}
	logger := zerolog.Nop()

	app := &App{
		Users:          users,
		Groups:         groups,
		Fundraisers:    fundraisers,
		Milestones:     milestones,
		Donations:      donations,
		Links:          links,
		Stats:          stats,
		Authz:          authz.NewEngine(groups, locator, logger),
		Trigger:        trigger,
		Hub:            notify.NewHub(logger),
		Feed:           feed,
		Payments:       checkout,
		Logger:         logger,
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		WebhookSecret:  "hook-secret",
		StorageBaseURL: "http://localhost:8080/static",
	}
	return &testApp{
		App:         app,
		users:       users,
		groups:      groups,
		fundraisers: fundraisers,
		milestones:  milestones,
		donations:   donations,
		links:       links,
		stats:       stats,
		trigger:     trigger,
		feed:        feed,
		checkout:    checkout,
	}
}

func (ta *testApp) seedUser(id, email string) {
	ta.users.byID[id] = &domain.User{ID: id, Email: email, Name: "User " + id, Locale: "en"}
}

func (ta *testApp) seedGroup(id, ownerID string) {
	ta.groups.groups[id] = &domain.Group{ID: id, Name: "Group " + id, Type: domain.GroupTypeTeam, OwnerID: ownerID}
	ta.groups.members[id] = map[string]*domain.GroupMember{
		ownerID: {ID: id + "-owner", GroupID: id, UserID: ownerID, Role: domain.RoleOwner, Status: domain.MemberStatusActive},
	}
}

func (ta *testApp) seedMember(groupID, userID string, role domain.MemberRole) {
	ta.groups.members[groupID][userID] = &domain.GroupMember{
		ID:      groupID + "-" + userID,
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
		Status:  domain.MemberStatusActive,
	}
}

func (ta *testApp) seedFundraiser(id, groupID string, status domain.FundraiserStatus, isPublic bool) {
	ta.fundraisers.byID[id] = &domain.Fundraiser{
		ID:         id,
		GroupID:    groupID,
		Title:      "Fundraiser " + id,
		GoalAmount: decimal.NewFromInt(1000),
		Currency:   "USD",
		Status:     status,
		IsPublic:   isPublic,
	}
}

// asUser stamps the authenticated user onto the request, the way the JWT
// middleware would.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withURLParams mounts chi's route parameters on the request, standing in for
// the router in direct handler tests.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
