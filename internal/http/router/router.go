// Package router arma el chi.Mux del servicio con sus middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/digestus/internal/http/handlers"
	"github.com/dropDatabas3/digestus/internal/http/middlewares"
	"github.com/dropDatabas3/digestus/internal/rate"
	"github.com/dropDatabas3/digestus/internal/security/apikey"
	"github.com/dropDatabas3/digestus/internal/store/core"
)

// Deps son las dependencias de los handlers.
type Deps struct {
	Store          core.Store
	Queue          handlers.Enqueuer
	AdminKey       *apikey.Verifier
	InboundLimiter rate.Limiter // nil ⇒ sin límite
	Version        string
}

// New construye el router completo.
func New(d Deps) http.Handler {
	health := &handlers.HealthHandler{Store: d.Store, Version: d.Version}
	teams := &handlers.TeamsHandler{Store: d.Store, Queue: d.Queue}
	in := &handlers.InboundHandler{Store: d.Store, Queue: d.Queue}

	r := chi.NewRouter()

	// Infra
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	// API pública
	api := chi.NewRouter()
	api.Get("/teams", teams.ListByMember)

	api.Group(func(api chi.Router) {
		api.Use(middlewares.WithRateLimit(d.InboundLimiter))
		api.Post("/inbound", in.Receive)
	})

	// Admin
	api.Group(func(api chi.Router) {
		api.Use(middlewares.RequireAdminKey(d.AdminKey))

		api.Post("/admin/teams", teams.Create)
		api.Get("/admin/teams", teams.List)
		api.Get("/admin/teams/{slug}", teams.Get)
		api.Put("/admin/teams/{slug}", teams.Update)

		api.Post("/admin/teams/{slug}/members", teams.AddMember)
		api.Get("/admin/teams/{slug}/members", teams.ListMembers)
		api.Delete("/admin/teams/{slug}/members/{id}", teams.RemoveMember)

		api.Post("/admin/teams/{slug}/reminders", teams.TriggerReminders)
		api.Post("/admin/teams/{slug}/digest", teams.TriggerDigest)
		api.Get("/admin/teams/{slug}/updates", teams.ListUpdates)
	})

	// Request ID y logging cubren toda la API versionada; las sondas y
	// /metrics quedan afuera para no ensuciar el log.
	r.Mount("/v1", middlewares.Chain(api,
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
	))

	return r
}
