package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dorandoran/user/internal/auth"
	"github.com/dorandoran/user/internal/domain"
)

// Options configures the user API routes.
type Options struct {
	Verifier           *auth.Verifier
	AllowedOrigins     []string
	RateLimitPerMinute int
}

const defaultRateLimitPerMinute = 30

// Register attaches the /api/users routes to r.
func Register(r chi.Router, logger zerolog.Logger, services domain.Container, opts Options) {
	logger = logger.With().Str("component", "httpapi").Logger()

	verifier := opts.Verifier
	if verifier == nil {
		verifier = auth.NewVerifier("", auth.DefaultSkew)
	}
	perMinute := opts.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = defaultRateLimitPerMinute
	}

	uh := &userHandlers{svc: services.Users, logger: logger}
	ph := &profileHandlers{svc: services.Profiles, logger: logger}

	r.Route("/api/users", func(r chi.Router) {
		r.Use(corsHandler(opts.AllowedOrigins))

		r.With(rateLimit(perMinute)).Post("/", uh.create)
		r.Get("/health", uh.health)
		r.Get("/email/{email}", uh.getByEmail)

		r.Group(func(r chi.Router) {
			r.Use(requireGateway(verifier, logger))

			r.Get("/", uh.list)
			r.Get("/me", uh.me)
			r.With(rateLimit(perMinute)).Post("/password/reset", uh.resetPassword)

			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", uh.get)
				r.Put("/", uh.update)
				r.Delete("/", uh.delete)
				r.Patch("/status", uh.updateStatus)
				r.With(rateLimit(perMinute)).Put("/password", uh.updatePassword)
				r.Put("/last-connection", uh.touchLastConnection)

				r.Get("/profile", ph.getProfile)
				r.Put("/profile", ph.upsertProfile)
				r.Get("/settings", ph.listSettings)
				r.Get("/settings/{key}", ph.getSetting)
				r.Put("/settings/{key}", ph.putSetting)
				r.Delete("/settings/{key}", ph.deleteSetting)
			})
		})
	})
}
