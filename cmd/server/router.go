package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskflow-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskflow-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.config.Auth)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.taskService)
	bulkHandler := api.NewBulkHandler(app.bulkEngine)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/auth/me", authHandler.Me)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.ListTasks)
				r.Post("/", taskHandler.CreateTask)
				r.Get("/stats", taskHandler.GetStats)
				r.Get("/{id}", taskHandler.GetTask)
				r.Put("/{id}", taskHandler.UpdateTask)
				r.Delete("/{id}", taskHandler.DeleteTask)
			})

			r.Route("/bulk", func(r chi.Router) {
				r.Post("/create", bulkHandler.Create)
				r.Put("/update", bulkHandler.Update)
				r.Delete("/delete", bulkHandler.Delete)
				r.Put("/status", bulkHandler.ChangeStatus)
				r.Put("/priority", bulkHandler.ChangePriority)
				r.Put("/reorder", bulkHandler.Reorder)
				r.Post("/duplicate", bulkHandler.Duplicate)
				r.Get("/status/{operation_id}", bulkHandler.Status)
				r.Post("/operations/{operation_id}/cancel", bulkHandler.Cancel)
				r.Post("/undo", bulkHandler.Undo)
				r.Get("/undo/history", bulkHandler.UndoHistory)
				r.Post("/templates", bulkHandler.CreateTemplate)
				r.Get("/templates", bulkHandler.ListTemplates)
				r.Post("/templates/apply", bulkHandler.ApplyTemplate)
				r.Get("/shortcuts", bulkHandler.Shortcuts)
			})
		})
	})

	r.Handle("/metrics", app.metricsHandler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

// metricsHandler serves the registry the bulk metrics were registered on.
func (app *application) metricsHandler() http.Handler {
	if g, ok := app.registerer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
