/**
 * @description
 * HTTP handlers for the client portal: profile, project listing, and single
 * project detail. Clients can only read their own resources; admins can
 * read any client's.
 */
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleClientProfile returns a client's public profile with projects.
func (h *Handler) handleClientProfile(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	principal, ok := PrincipalFromContext(r.Context())
	if !ok || !canAccessClient(principal, clientID) {
		respondWithError(w, http.StatusForbidden, "insufficient permissions", errorKindUnauthorized)
		return
	}

	profile, err := h.service.GetClientProfile(r.Context(), clientID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "client profile fetched successfully", profile)
}

// handleClientProjects returns a client's projects.
func (h *Handler) handleClientProjects(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	principal, ok := PrincipalFromContext(r.Context())
	if !ok || !canAccessClient(principal, clientID) {
		respondWithError(w, http.StatusForbidden, "insufficient permissions", errorKindUnauthorized)
		return
	}

	projects, err := h.service.ListClientProjects(r.Context(), clientID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "client projects fetched successfully", projects)
}

// handleClientProjectDetails returns one of the client's projects.
func (h *Handler) handleClientProjectDetails(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	projectID := chi.URLParam(r, "projectID")

	principal, ok := PrincipalFromContext(r.Context())
	if !ok || !canAccessClient(principal, clientID) {
		respondWithError(w, http.StatusForbidden, "insufficient permissions", errorKindUnauthorized)
		return
	}

	project, err := h.service.GetClientProject(r.Context(), clientID, projectID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "project details fetched successfully", project)
}
