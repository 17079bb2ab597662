package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/video-stream/subtrans/internal/api/handlers"
	"github.com/video-stream/subtrans/internal/api/middleware"
	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/history"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/metrics"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

const (
	jsonBodyLimit   = 1 << 20
	uploadBodyLimit = 32 << 20
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Config     *config.Config
	Database   *db.Database
	JWT        *auth.JWTService
	Queue      *job.JobQueue
	History    *history.Store
	Translator *translate.Service
	Defaults   config.TranslationSettings
	OnKeys     handlers.KeyReloader
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(d.Config.CORSOrigins))

	// Handlers
	authHandler := handlers.NewAuthHandler(d.Database, d.JWT)
	subtitleHandler := handlers.NewSubtitleHandler()
	jobHandler := handlers.NewJobHandler(d.Queue)
	historyHandler := handlers.NewHistoryHandler(d.History)
	settingsHandler := handlers.NewSettingsHandler(d.Database, d.Defaults, d.OnKeys)
	presetsHandler := handlers.NewPresetsHandler(d.Database)
	modelsHandler := handlers.NewModelsHandler(d.Translator)
	filesHandler := handlers.NewFilesHandler(d.Config.SubtitlePath)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute, middleware.ByIP)
	batchLimiter := middleware.NewRateLimiter(30, time.Hour, middleware.ByUser)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Auth (public)
		r.With(loginLimiter.Handler, middleware.MaxBodySize(jsonBodyLimit)).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.JWT))

			r.Get("/auth/me", authHandler.Me)

			// Subtitles and translation batches accept whole files
			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(uploadBodyLimit))
				r.Post("/subtitles/parse", subtitleHandler.Parse)
				r.Post("/subtitles/render", subtitleHandler.Render)
				r.With(batchLimiter.Handler).Post("/translations", jobHandler.CreateTranslation)
			})

			// Jobs
			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Delete("/jobs/{id}", jobHandler.CancelJob)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)

			// Translated artifacts
			r.Get("/files/tree", filesHandler.GetTree)
			r.Get("/files/tree/*", filesHandler.GetTree)
			r.Get("/files/content/*", filesHandler.GetContent)
			r.Get("/files/search", filesHandler.Search)

			// Providers and models
			r.Get("/providers", modelsHandler.ListProviders)
			r.Get("/models/{provider}", modelsHandler.ListModels)

			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(jsonBodyLimit))

				r.Get("/history", historyHandler.ListHistory)
				r.Put("/history/cue", historyHandler.UpdateCue)

				r.Get("/presets", presetsHandler.ListPresets)
				r.Post("/presets", presetsHandler.CreatePreset)
				r.Put("/presets/{id}", presetsHandler.UpdatePreset)
				r.Delete("/presets/{id}", presetsHandler.DeletePreset)

				// Settings and keys are admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole("admin"))
					r.Get("/settings", settingsHandler.GetSettings)
					r.Put("/settings", settingsHandler.UpdateSettings)
					r.Get("/settings/keys", settingsHandler.GetKeys)
					r.Put("/settings/keys", settingsHandler.UpdateKeys)
					r.Get("/ratelimit", func(w http.ResponseWriter, r *http.Request) {
						w.Header().Set("Content-Type", "application/json")
						json.NewEncoder(w).Encode(map[string]middleware.RateLimitStatus{
							"login":        loginLimiter.Status(),
							"translations": batchLimiter.Status(),
						})
					})
				})
			})
		})
	})

	return r
}
