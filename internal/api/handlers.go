/**
 * @description
 * This file contains the HTTP handler functions for the admin surface of
 * the renewal-service, plus the shared JSON response helpers and the
 * mapping from service-layer errors onto HTTP statuses and error kinds.
 */
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/renewly/renewal-service/internal/app"
	"github.com/renewly/renewal-service/internal/store"
)

// Error kinds exposed in failure responses.
const (
	errorKindValidation   = "VALIDATION_FAILURE"
	errorKindNotFound     = "NOT_FOUND"
	errorKindConflict     = "CONFLICT"
	errorKindUnauthorized = "UNAUTHORIZED"
	errorKindRateLimited  = "RATE_LIMITED"
	errorKindUpstream     = "UPSTREAM_FAILURE"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// handleAdminLogin authenticates an admin and returns a session token.
func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	result, err := h.service.AdminLogin(r.Context(), req.UserID, req.Password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "admin login successful", result)
}

// handleClientLogin authenticates a client and returns a session token.
func (h *Handler) handleClientLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	result, err := h.service.ClientLogin(r.Context(), req.ClientID, req.Password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "client login successful", result)
}

// handleLogout ends a session. Tokens are stateless bearer credentials, so
// there is nothing to revoke server-side; the response tells the caller the
// token should be discarded. Expiry still bounds a token that is kept.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, "logged out successfully", nil)
}

// handleCreateAdmin registers a new admin principal.
func (h *Handler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	admin, err := h.service.CreateAdmin(r.Context(), req.UserID, req.Password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, "new admin created successfully", admin)
}

// handleCreateClient registers a new client.
func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	profile, err := h.service.CreateClient(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, "new client created successfully", profile)
}

// handleCreateProject creates a project assigned to an existing client.
func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID        string    `json:"client_id"`
		Name            string    `json:"name"`
		Description     string    `json:"description"`
		ExpiryDate      time.Time `json:"expiry_date"`
		RenewalCost     float64   `json:"renewal_cost"`
		ServiceProvider *string   `json:"service_provider,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	project, err := h.service.CreateProject(r.Context(), req.ClientID, req.Name, req.Description, req.ExpiryDate, req.RenewalCost, req.ServiceProvider)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, "new project created successfully", project)
}

// handleListClients returns every client's public profile with projects.
func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.ListClients(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "all clients fetched successfully", clients)
}

// handleListProjects returns every project.
func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "all projects fetched successfully", projects)
}

// handleUpdateClient applies a partial edit to a client.
func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	profile, err := h.service.UpdateClient(r.Context(), clientID, req.Name, req.Email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "client updated successfully", profile)
}

// handleSetClientStatus flips a client's active flag.
func (h *Handler) handleSetClientStatus(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		respondWithError(w, http.StatusBadRequest, "is_active is required", errorKindValidation)
		return
	}

	profile, err := h.service.SetClientActive(r.Context(), clientID, *req.IsActive)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "client status updated successfully", profile)
}

// handleDeleteClient removes a client without projects.
func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	if err := h.service.DeleteClient(r.Context(), clientID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "client deleted successfully", nil)
}

// handleUpdateProject applies a partial admin edit to a project.
func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req struct {
		Name            *string    `json:"name"`
		AssignedTo      *string    `json:"assigned_to"`
		Description     *string    `json:"description"`
		ExpiryDate      *time.Time `json:"expiry_date"`
		RenewalCost     *float64   `json:"renewal_cost"`
		Status          *string    `json:"status"`
		ServiceProvider *string    `json:"service_provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	input := app.ProjectUpdateInput{
		Name:        req.Name,
		AssignedTo:  req.AssignedTo,
		Description: req.Description,
		ExpiryDate:  req.ExpiryDate,
		RenewalCost: req.RenewalCost,
		Status:      req.Status,
	}
	if req.ServiceProvider != nil {
		if *req.ServiceProvider == "" {
			input.ClearProvider = true
		} else {
			input.ServiceProvider = req.ServiceProvider
		}
	}

	project, err := h.service.UpdateProject(r.Context(), projectID, input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "project updated successfully", project)
}

// handleDeleteProject removes one project.
func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	deleted, err := h.service.DeleteProject(r.Context(), projectID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "project deleted successfully", map[string]interface{}{
		"deleted_project": map[string]string{
			"project_id":  deleted.ProjectID,
			"name":        deleted.Name,
			"assigned_to": deleted.AssignedTo,
		},
	})
}

// handleDeleteProjects removes a batch of projects.
func (h *Handler) handleDeleteProjects(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectIDs []string `json:"project_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	deleted, notFound, err := h.service.DeleteProjects(r.Context(), req.ProjectIDs)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "projects deleted successfully", map[string]interface{}{
		"deleted_projects":   deleted,
		"deleted_count":      len(deleted),
		"not_found_projects": notFound,
	})
}

// handleProjectStats returns the status partition of projects, optionally
// scoped with ?client_id=.
func (h *Handler) handleProjectStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ProjectStats(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "project stats fetched successfully", stats)
}

// handleExpiringSoon returns active projects expiring within the window.
func (h *Handler) handleExpiringSoon(w http.ResponseWriter, r *http.Request) {
	windowDays := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "days must be a number", errorKindValidation)
			return
		}
		windowDays = parsed
	}

	expiring, err := h.service.ExpiringSoon(r.Context(), r.URL.Query().Get("client_id"), windowDays)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "expiring projects fetched successfully", expiring)
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type apiResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
}

// respondWithData writes a success envelope.
func respondWithData(w http.ResponseWriter, code int, message string, data interface{}) {
	respondWithJSON(w, code, apiResponse{Success: true, Message: message, Data: data})
}

// respondWithError writes a failure envelope.
func respondWithError(w http.ResponseWriter, code int, message, kind string) {
	respondWithJSON(w, code, apiResponse{Success: false, Message: message, ErrorKind: kind})
}

// respondWithServiceError maps service and store errors onto HTTP statuses.
// Unrecognized errors surface generically so internals never leak.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation), errors.Is(err, app.ErrMissingRenewalFields):
		respondWithError(w, http.StatusBadRequest, err.Error(), errorKindValidation)
	case errors.Is(err, store.ErrAdminNotFound),
		errors.Is(err, store.ErrClientNotFound),
		errors.Is(err, store.ErrProjectNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), errorKindNotFound)
	case errors.Is(err, store.ErrDuplicateAdmin),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrDuplicateClientID),
		errors.Is(err, store.ErrDuplicateProjectID),
		errors.Is(err, store.ErrClientHasProjects),
		errors.Is(err, store.ErrConcurrentModification),
		errors.Is(err, app.ErrIDGenerationExhausted):
		respondWithError(w, http.StatusConflict, err.Error(), errorKindConflict)
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrInvalidPaymentSignature):
		respondWithError(w, http.StatusUnauthorized, err.Error(), errorKindUnauthorized)
	case errors.Is(err, app.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, err.Error(), errorKindRateLimited)
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error", errorKindUpstream)
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
