package app

import (
	"log/slog"
	"net/http"

	"github.com/attaboy/lifestats/internal/auth"
	"github.com/attaboy/lifestats/internal/guard"
	"github.com/attaboy/lifestats/internal/handler"
	"github.com/attaboy/lifestats/internal/infra"
	"github.com/attaboy/lifestats/internal/projection"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/go-chi/chi/v5"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Engine handler.ProfileReader
	// ProfileCache is the store the engine's ProfileRecorder writes to. It is
	// optional.
	ProfileCache projection.Store

	Stores  source.Stores
	Backend string
	// DB is nil for the memory backend.
	DB     infra.Pinger
	Logger *slog.Logger

	// JWTMgr is required when AuthEnabled is set.
	JWTMgr      *auth.JWTManager
	AuthEnabled bool

	RateLimiter *guard.RateLimiter
	Idempotency *guard.IdempotencyGuard

	CORSAllowedOrigins string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger

	profileHandler := handler.NewProfileHandler(deps.Engine, deps.ProfileCache, logger)
	recordHandler := handler.NewRecordHandler(deps.Stores)

	origins := deps.CORSAllowedOrigins
	if origins == "" {
		origins = "*"
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(origins))
	r.Use(handler.JSONContentType)

	// Health check (no auth)
	r.Get("/health", handler.HealthHandler(deps.DB, deps.Backend))

	r.Group(func(r chi.Router) {
		if deps.AuthEnabled {
			r.Use(auth.Authenticate(deps.JWTMgr, auth.RealmPlayer, auth.RealmViewer))
		}

		r.Get("/profile", profileHandler.Get)
		r.Get("/quests", recordHandler.ListQuests)
		r.Get("/books", recordHandler.ListBooks)

		// Record writes
		r.Group(func(r chi.Router) {
			if deps.AuthEnabled {
				r.Use(auth.RequireRealm(auth.RealmPlayer))
			}
			if deps.RateLimiter != nil {
				r.Use(handler.RateLimit(deps.RateLimiter))
			}
			create := func(h http.HandlerFunc) http.Handler { return h }
			if deps.Idempotency != nil {
				create = func(h http.HandlerFunc) http.Handler { return handler.Idempotent(deps.Idempotency)(h) }
			}

			r.Method(http.MethodPost, "/quests", create(recordHandler.CreateQuest))
			r.Post("/quests/{id}/complete", recordHandler.CompleteQuest)
			r.Post("/quests/{id}/reopen", recordHandler.ReopenQuest)
			r.Delete("/quests/{id}", recordHandler.DeleteQuest)

			r.Method(http.MethodPost, "/books", create(recordHandler.CreateBook))
			r.Patch("/books/{id}", recordHandler.UpdateBook)
			r.Delete("/books/{id}", recordHandler.DeleteBook)

			r.Method(http.MethodPost, "/exercise", create(recordHandler.CreateExercise))
			r.Delete("/exercise/{id}", recordHandler.DeleteExercise)

			r.Method(http.MethodPost, "/assets", create(recordHandler.CreateAsset))
			r.Patch("/assets/{id}", recordHandler.UpdateAsset)
			r.Delete("/assets/{id}", recordHandler.DeleteAsset)
		})
	})

	return r
}
