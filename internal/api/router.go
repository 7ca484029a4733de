package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/parla-app/parla/internal/api/handlers"
	"github.com/parla-app/parla/internal/api/middleware"
	"github.com/parla-app/parla/internal/auth"
	"github.com/parla-app/parla/internal/config"
	"github.com/parla-app/parla/internal/db"
)

// Translator is the translation service mounted at /api/translate.
type Translator interface {
	handlers.Translator
	Engines() []string
}

// NewRouter builds the HTTP API. ctx bounds background work such as the
// rate limiter's sweeper.
func NewRouter(
	ctx context.Context,
	database *db.Database,
	jwtService *auth.JWTService,
	translator Translator,
	cfg config.Server,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit, cfg.RateWindowDuration())

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService, logger)
	translateHandler := handlers.NewTranslateHandler(translator, database.SettingsStore(), logger)
	phrasesHandler := handlers.NewPhrasesHandler(database, logger)
	settingsHandler := handlers.NewSettingsHandler(database, translator.Engines(), logger)
	adminHandler := handlers.NewAdminHandler(database, limiter)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))

		r.Get("/health", handlers.Health)
		r.Post("/auth/login", authHandler.Login)

		// Translation is public so the extension works before login.
		r.With(limiter.Handler).Post("/translate", translateHandler.Translate)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))

			r.Get("/auth/me", authHandler.Me)

			r.Get("/phrases", phrasesHandler.ListPhrases)
			r.Post("/phrases", phrasesHandler.CreatePhrase)
			r.Delete("/phrases/{id}", phrasesHandler.DeletePhrase)

			r.Get("/settings", settingsHandler.GetSettings)
			r.Put("/settings", settingsHandler.UpdateSettings)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users", adminHandler.CreateUser)
				r.Get("/ratelimit", adminHandler.RateLimitStatus)
				r.Delete("/ratelimit", adminHandler.ClearRateLimits)
			})
		})
	})

	return r
}
