package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"dialogue-backend/internal/handlers"
	"dialogue-backend/internal/middleware"
	"dialogue-backend/internal/websocket"
)

type Config struct {
	FrontendURL string
	// CreatePerMinute bounds POST /dialogue/ per user.
	CreatePerMinute int
}

func New(
	jwtAuth *middleware.JWTAuth,
	dialogueHandler *handlers.DialogueHandler,
	catalogHandler *handlers.CatalogHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	cfg Config,
) (http.Handler, func()) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.FrontendURL))

	createLimiter := middleware.NewRateLimiter(cfg.CreatePerMinute, time.Minute, middleware.KeyByUser)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {

		// ──── Dialogue Routes ────
		r.Route("/dialogue", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequirePermissions(middleware.PermViewDialogue, middleware.PermAddDialogue))

			r.With(createLimiter.Middleware).Post("/", dialogueHandler.Create)
			r.Get("/", dialogueHandler.List)
			r.Put("/update-dialogue/", dialogueHandler.UpdateLatest)
			r.Get("/{id}/", dialogueHandler.Get)
		})

		// ──── Catalog Routes ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/aimodel/", catalogHandler.ListAIModels)
			r.Get("/modelversion/", catalogHandler.ListModelVersions)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", jobHandler.GetJob)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r, createLimiter.Stop
}
