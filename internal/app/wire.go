package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/auth"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/handler"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/notify"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Engine  *progression.Engine
	Catalog *quest.Catalog
	Hub     *notify.Hub
	JWTMgr  *auth.JWTManager
	Logger  *slog.Logger

	// Dedupe backs Idempotency-Key on /internal/events; nil disables it.
	Dedupe *guard.IdempotencyGuard
	// RerollLimit caps rerolls per user per minute; 0 disables the limiter.
	RerollLimit int

	HealthChecks       map[string]handler.HealthCheck
	CORSAllowedOrigins []string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	jwtMgr := deps.JWTMgr

	// Handlers
	gamificationHandler := handler.NewGamificationHandler(deps.Engine)
	questHandler := handler.NewQuestHandler(deps.Engine, deps.Catalog)
	eventHandler := handler.NewEventHandler(deps.Engine, deps.Dedupe, logger)
	userHandler := handler.NewUserHandler(deps.Engine)
	wsHandler := notify.NewWSHandler(deps.Hub, jwtMgr.UserSubject, deps.CORSAllowedOrigins, logger)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSAllowedOrigins...))

	// Websocket upgrade (token in query string, no JSON content-type)
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)

		// Health (no auth)
		r.Get("/health", handler.HealthHandler(deps.HealthChecks))

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthenticateUser(jwtMgr))

			r.Get("/me/gamification", gamificationHandler.Me)

			r.Route("/quests", func(r chi.Router) {
				r.Get("/catalog", questHandler.Catalog)
				r.Get("/catalog/{questID}", questHandler.Template)
				r.With(rerollLimiter(deps.RerollLimit)).Post("/{questID}/reroll", questHandler.Reroll)
			})
		})

		// Service-authenticated routes for collaborator backends
		r.Route("/internal", func(r chi.Router) {
			r.Use(auth.AuthenticateService(jwtMgr))

			r.With(auth.RequireRole(auth.IngestRoles()...)).Post("/events", eventHandler.Record)
			r.With(auth.RequireRole(auth.ProvisionRoles()...)).Put("/users/{userID}", userHandler.Ensure)
		})
	})

	return r
}

func rerollLimiter(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := guard.NewRateLimiter(limit, time.Minute)
	return rl.Middleware(func(r *http.Request) string {
		return auth.SubjectFromContext(r.Context())
	})
}
