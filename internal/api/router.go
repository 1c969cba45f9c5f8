/**
 * @description
 * This file sets up the HTTP router for the renewal-service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, CORS, and authentication, and maps the routes to their
 * corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/renewly/renewal-service/internal/app"
)

// NewRouter creates a new Chi router and registers the service routes.
func NewRouter(h *Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Renewal service is healthy"))
	})

	// Public auth routes
	r.Post("/api/admin/login", h.handleAdminLogin)
	r.Post("/api/client/login", h.handleClientLogin)

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))
		r.Use(RequireRole(app.RoleAdmin))

		r.Post("/api/admin/logout", h.handleLogout)
		r.Post("/api/admin/create-admin", h.handleCreateAdmin)
		r.Post("/api/admin/create-client", h.handleCreateClient)
		r.Post("/api/admin/create-project", h.handleCreateProject)
		r.Get("/api/admin/clients", h.handleListClients)
		r.Get("/api/admin/projects", h.handleListProjects)
		r.Patch("/api/admin/edit-client/{clientID}", h.handleUpdateClient)
		r.Patch("/api/admin/clients/{clientID}/status", h.handleSetClientStatus)
		r.Delete("/api/admin/clients/{clientID}", h.handleDeleteClient)
		r.Put("/api/admin/projects/{projectID}", h.handleUpdateProject)
		r.Delete("/api/admin/projects/bulk", h.handleDeleteProjects)
		r.Delete("/api/admin/projects/{projectID}", h.handleDeleteProject)
		r.Get("/api/admin/projects-stats", h.handleProjectStats)
		r.Get("/api/admin/projects-expiring", h.handleExpiringSoon)
		r.Patch("/api/projects/activate/{projectID}", h.handleActivateProject)
	})

	// Authenticated routes shared by clients and admins
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/api/client/logout", h.handleLogout)
		r.Get("/api/client/{clientID}/profile", h.handleClientProfile)
		r.Get("/api/client/{clientID}/projects", h.handleClientProjects)
		r.Get("/api/client/{clientID}/projects/{projectID}", h.handleClientProjectDetails)

		r.Post("/api/payments/create-order", h.handleCreateOrder)
		r.Post("/api/payments/verify-payment", h.handleVerifyPayment)
		r.Post("/api/projects/renew/{projectID}", h.handleRenewProject)
		r.Get("/api/projects/renewal-history/{projectID}", h.handleRenewalHistory)
	})

	return r
}
