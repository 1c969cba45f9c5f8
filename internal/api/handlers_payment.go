/**
 * @description
 * HTTP handlers for the payment flow: order creation with the gateway,
 * standalone payment verification, the renewal itself, the renewal ledger,
 * and the admin re-activation endpoint.
 */
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleCreateOrder opens a payment order for a project renewal.
func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id"`
		Amount    int64  `json:"amount"` // minor units
		Currency  string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.ProjectID, req.Amount, req.Currency)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "payment order created successfully", order)
}

// handleVerifyPayment checks a payment confirmation's signature without
// mutating any project.
func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentID string `json:"payment_id"`
		OrderID   string `json:"order_id"`
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	if err := h.service.VerifyPayment(r.Context(), req.PaymentID, req.OrderID, req.Signature); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "payment verified successfully", map[string]interface{}{
		"payment_id": req.PaymentID,
		"order_id":   req.OrderID,
		"verified":   true,
	})
}

// handleRenewProject renews a project after a verified payment.
func (h *Handler) handleRenewProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req struct {
		PaymentID     string     `json:"payment_id"`
		OrderID       string     `json:"order_id"`
		Signature     string     `json:"signature"`
		NewExpiryDate *time.Time `json:"new_expiry_date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", errorKindValidation)
		return
	}

	view, err := h.service.Renew(r.Context(), projectID, req.PaymentID, req.OrderID, req.Signature, req.NewExpiryDate)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "project renewed successfully", view)
}

// handleRenewalHistory returns a project's renewal ledger, oldest first.
func (h *Handler) handleRenewalHistory(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, err := h.service.RenewalHistory(r.Context(), projectID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "renewal history fetched successfully", map[string]interface{}{
		"project_id":      project.ProjectID,
		"name":            project.Name,
		"renewal_history": project.RenewalHistory,
	})
}

// handleActivateProject sets a project back to active.
func (h *Handler) handleActivateProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, err := h.service.ActivateProject(r.Context(), projectID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, "project activated successfully", map[string]interface{}{
		"project_id": project.ProjectID,
		"name":       project.Name,
		"status":     project.Status,
	})
}
