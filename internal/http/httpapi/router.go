package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"schedbot/internal/http/handlers"
	mw "schedbot/internal/middleware"
)

// Options carries the router's cross-cutting configuration.
type Options struct {
	Logger          zerolog.Logger
	DefaultLocale   string
	CountryLookup   mw.CountryLookup
	AdminToken      string
	RateLimitPerMin int
}

// NewRouter wires the operator API. Everything except the health probe sits
// behind the admin bearer token.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.I18N(opts.DefaultLocale, opts.CountryLookup),
		mw.Logger(opts.Logger),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(mw.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(mw.AdminAuth(opts.AdminToken))

		r.Route("/v1/subscriptions", func(r chi.Router) {
			r.Get("/", app.ListSubscriptions)
			r.Put("/", app.UpsertSubscription)
			r.Get("/{id}", app.GetSubscription)
			r.Post("/{id}/enable", app.EnableSubscription)
			r.Post("/{id}/disable", app.DisableSubscription)
			r.Post("/{id}/unflag", app.UnflagSubscription)
		})

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Get("/abandoned", app.ListAbandonedJobs)
			r.Get("/{id}", app.GetJob)
			r.Post("/{id}/requeue", app.RequeueJob)
		})

		r.Get("/v1/stats", app.Stats)
	})

	return r
}
