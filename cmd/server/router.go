package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/planvox/planvox-api/internal/api"
	apiMiddleware "github.com/planvox/planvox-api/internal/api/middleware"
)

// setupRouter wires the chi router: standard middleware, trace IDs, and the
// scheme and speech endpoints behind service-token auth.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	schemeHandler := api.NewSchemeHandler(app.schemeService, app.logger)
	speechHandler := api.NewSpeechHandler(app.batchService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Every API route requires a valid service token.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/schemes", schemeHandler.CreateScheme)
			r.Get("/schemes/{schemeID}", schemeHandler.GetScheme)

			r.Route("/schemes/{schemeID}/speech", func(r chi.Router) {
				r.Post("/batch", speechHandler.CreateBatch)
				r.Patch("/batch", speechHandler.UpdateBatch)
				r.Post("/retries", speechHandler.RetryBatch)
				r.Get("/tasks", speechHandler.ListTasks)
				r.Get("/status", speechHandler.GetStatus)
			})
		})
	})

	// Liveness probe, outside the authenticated group.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health response", "error", err)
		}
	})

	return r
}
