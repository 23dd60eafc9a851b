package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/languagesgo/stickerforge/internal/api"
	apiMiddleware "github.com/languagesgo/stickerforge/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	cardHandler := api.NewCardHandler(app.cardService, app.logger)
	stickerHandler := api.NewStickerHandler(app.cardService, app.stickerQueue, app.statuses, app.logger)
	healthHandler := api.NewHealthHandler(app.db, app.statuses, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenVerifier)

	r.Route("/api/v1", func(r chi.Router) {
		// Health endpoint (public)
		r.Get("/health", healthHandler.Health)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Card endpoints
			r.Post("/cards", cardHandler.IngestCards)
			r.Get("/cards/{cardID}", cardHandler.GetCard)

			// Sticker job endpoints
			r.Post("/stickers", stickerHandler.EnqueueSticker)
			r.Post("/stickers/backfill", stickerHandler.Backfill)
			r.Get("/stickers/jobs/{jobID}", stickerHandler.GetJobStatus)
			r.Get("/stickers/queue", stickerHandler.GetQueueStats)
		})
	})

	return r
}
