package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/api/handler"
	"github.com/daap14/tempaccess/internal/api/middleware"
	"github.com/daap14/tempaccess/internal/tier"
)

// AuthService authenticates sessions and answers permission questions.
type AuthService interface {
	middleware.Authenticator
	middleware.Authorizer
	handler.SessionService
	handler.KeyGenerator
}

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger    handler.Pinger
	RedisPinger handler.Pinger
	Version     string
	OpenAPI     *handler.OpenAPIHandler
	Auth        AuthService
	Accounts    account.Repository
	Tiers       tier.Repository
	Editor      handler.ExpiryEditor
	// ReservedTiers cannot be deleted through the API.
	ReservedTiers []string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.RedisPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	if deps.OpenAPI != nil {
		r.Get("/openapi.json", deps.OpenAPI.ServeHTTP)
	}

	if deps.Auth == nil {
		return r
	}

	sessionHandler := handler.NewSessionHandler(deps.Auth)
	r.Post("/sessions", sessionHandler.Create)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))
		requireAdmin := middleware.RequireAdmin(deps.Auth)
		requireCanEdit := middleware.RequireCanEdit(deps.Auth)

		r.Delete("/sessions/current", sessionHandler.Delete)

		tierHandler := handler.NewTierHandler(deps.Tiers, deps.ReservedTiers...)
		r.Route("/tiers", func(r chi.Router) {
			r.Get("/", tierHandler.List)
			r.With(requireAdmin).Post("/", tierHandler.Create)
			r.With(requireAdmin).Delete("/{id}", tierHandler.Delete)
		})

		accountHandler := handler.NewAccountHandler(deps.Accounts, deps.Tiers, deps.Auth, deps.Editor)
		expiryHandler := handler.NewExpiryHandler(deps.Accounts, deps.Editor)
		r.Route("/accounts", func(r chi.Router) {
			r.With(requireAdmin).Get("/", accountHandler.List)
			r.With(requireAdmin).Post("/", accountHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.With(requireCanEdit).Get("/", accountHandler.GetByID)
				r.With(requireAdmin).Put("/tiers", accountHandler.SetTiers)
				r.With(requireCanEdit).Get("/expiry", expiryHandler.Get)
				r.With(requireCanEdit).Put("/expiry", expiryHandler.Put)
			})
		})
	})

	return r
}
