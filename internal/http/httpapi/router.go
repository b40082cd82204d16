// Package httpapi assembles the chi router: middleware stack, public and
// authenticated route groups, and the operational endpoints.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"givepool/internal/http/handlers"
	"givepool/internal/middleware"
)

// Options carries router-level settings that do not belong on the App.
type Options struct {
	AllowedOrigins     []string
	DefaultLocale      string
	CountryLookup      middleware.CountryLookup
	RateLimitPerMinute int
	StaticDir          string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.Metrics,
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	// Operational endpoints sit outside the client rate limit, as does the
	// webhook: the provider authenticates by signature and may burst on
	// redelivery.
	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}
	r.Post("/v1/webhooks/payments", app.PaymentsWebhook)

	r.Group(func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute))
		}

		r.Post("/v1/auth/register", app.Register)
		r.Post("/v1/auth/login", app.Login)

		// Public reads and donation intake. Identity is honored when a
		// bearer token is present so members can see their drafts and
		// donations get attached to accounts.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthJWT(app.JWTSecret))
			r.Get("/v1/fundraisers/{id}", app.FundraiserGet)
			r.Get("/v1/fundraisers/{id}/milestones", app.MilestonesList)
			r.Get("/v1/fundraisers/{id}/donations", app.DonationsList)
			r.Get("/v1/fundraisers/{id}/stats", app.StatsGet)
			r.Get("/v1/fundraisers/{id}/live", app.LiveFeed)
			r.Post("/v1/fundraisers/{id}/donations", app.DonationsCreate)
			r.Get("/v1/links/{code}", app.LinkResolve)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(app.JWTSecret))

			r.Get("/v1/me", app.Me)
			r.Put("/v1/me/fcm-token", app.SetFCMToken)
			r.Get("/v1/me/groups", app.MyGroups)

			r.Post("/v1/groups", app.GroupsCreate)
			r.Get("/v1/groups/{id}", app.GroupGet)
			r.Get("/v1/groups/{id}/members", app.MembersList)
			r.Post("/v1/groups/{id}/members", app.MemberInvite)
			r.Patch("/v1/groups/{id}/members/{userID}", app.MemberRoleUpdate)
			r.Delete("/v1/groups/{id}/members/{userID}", app.MemberRemove)
			r.Post("/v1/invites/accept", app.InviteAccept)

			r.Get("/v1/groups/{id}/fundraisers", app.FundraisersList)
			r.Post("/v1/groups/{id}/fundraisers", app.FundraisersCreate)
			r.Patch("/v1/fundraisers/{id}", app.FundraiserUpdate)
			r.Post("/v1/fundraisers/{id}/publish", app.FundraiserPublish)
			r.Post("/v1/fundraisers/{id}/close", app.FundraiserClose)
			r.Post("/v1/fundraisers/{id}/cover", app.CoverUpload)

			r.Post("/v1/fundraisers/{id}/milestones", app.MilestonesCreate)
			r.Patch("/v1/milestones/{id}", app.MilestoneUpdate)
			r.Post("/v1/milestones/{id}/note", app.MilestoneAnnotate)
			r.Delete("/v1/milestones/{id}", app.MilestoneDelete)

			r.Post("/v1/fundraisers/{id}/links", app.ShareLinkCreate)
			r.Get("/v1/fundraisers/{id}/links", app.ShareLinksList)
		})
	})

	return r
}
