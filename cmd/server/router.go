package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gatherly/gatherly-api/internal/api"
	apiMiddleware "github.com/gatherly/gatherly-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.userService, app.jwtService)
	userHandler := api.NewUserHandler(app.userService)
	eventHandler := api.NewEventHandler(app.eventService, app.participationService)
	notificationHandler := api.NewNotificationHandler(app.notificationService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Everything else requires a valid access token
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Account endpoints
			r.Get("/users/me", userHandler.GetProfile)
			r.Patch("/users/me", userHandler.UpdateProfile)
			r.Delete("/users/me", userHandler.DeleteAccount)
			r.Put("/users/me/password", userHandler.ChangePassword)
			r.Get("/users/me/events", eventHandler.ListMyRegistrations)

			// Event endpoints
			r.Post("/events", eventHandler.CreateEvent)
			r.Get("/events", eventHandler.ListEvents)
			r.Get("/events/{eventID}", eventHandler.GetEvent)
			r.Patch("/events/{eventID}", eventHandler.UpdateEvent)
			r.Delete("/events/{eventID}", eventHandler.CancelEvent)
			r.Get("/events/{eventID}/participants", eventHandler.ListParticipants)
			r.Get("/events/{eventID}/report", eventHandler.EventReport)
			r.Post("/events/{eventID}/register", eventHandler.Register)
			r.Delete("/events/{eventID}/register", eventHandler.Unregister)

			// Notification endpoints
			r.Get("/notifications", notificationHandler.ListNotifications)
			r.Get("/notifications/unread-count", notificationHandler.UnreadCount)
			r.Get("/notifications/recent", notificationHandler.Recent)
			r.Post("/notifications/{notificationID}/read", notificationHandler.MarkRead)
			r.Post("/notifications/read-all", notificationHandler.MarkAllRead)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
