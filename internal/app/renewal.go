/**
 * @description
 * The renewal workflow: locate the project, prove the payment confirmation
 * came from the gateway, compute the new expiry, and commit the ledger
 * append plus status change as one atomic conditional update.
 *
 * Ordering is strict verify-then-mutate. A bad signature, missing field, or
 * unknown project returns before any write; the only mutation is the single
 * repository call that either fully applies the renewal or fails.
 */
package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/renewly/renewal-service/internal/domain"
)

// RenewedProjectView is the response shape of a successful renewal.
type RenewedProjectView struct {
	ProjectID  string    `json:"project_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	ExpiryDate time.Time `json:"expiry_date"`
	PaymentID  string    `json:"payment_id"`
	OrderID    string    `json:"order_id"`
}

// paymentSignature computes the gateway's HMAC-SHA256 signature over
// "orderId|paymentId" with the shared payment secret, hex encoded.
func paymentSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyPaymentSignature compares the supplied signature against the
// recomputed one in constant time. An unconfigured secret never verifies:
// the empty-key HMAC is computable by anyone.
func verifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" {
		return false
	}
	expected := paymentSignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyPayment checks a payment confirmation's signature without touching
// any project state.
func (s *Service) VerifyPayment(ctx context.Context, paymentID, orderID, signature string) error {
	if paymentID == "" || orderID == "" || signature == "" {
		return ErrMissingRenewalFields
	}
	if !verifyPaymentSignature(s.paymentSecret, orderID, paymentID, signature) {
		return ErrInvalidPaymentSignature
	}
	return nil
}

// Renew extends a project's term after a verified payment. The new expiry
// is the explicit date when supplied, otherwise one calendar year from the
// later of the current expiry and now. Exactly one of two concurrent
// renewals of the same project succeeds; the other sees a conflict from the
// repository and no partial state is ever observable.
func (s *Service) Renew(ctx context.Context, projectID, paymentID, orderID, signature string, explicitExpiry *time.Time) (*RenewedProjectView, error) {
	if paymentID == "" || orderID == "" || signature == "" {
		return nil, ErrMissingRenewalFields
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrValidation)
	}

	if s.limiter != nil && s.config.RenewRateLimit > 0 {
		window := time.Duration(s.config.RenewRateWindowSeconds) * time.Second
		count, _, err := s.limiter.ConsumeRateLimit(ctx, "renew", projectID, s.config.RenewRateLimit, window)
		if err != nil {
			s.logger.Error("renewal rate limiter unavailable, allowing request", "error", err)
		} else if count > s.config.RenewRateLimit {
			return nil, ErrRateLimited
		}
	}

	project, err := s.repo.FindProjectByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !verifyPaymentSignature(s.paymentSecret, orderID, paymentID, signature) {
		s.logger.Warn("renewal rejected: invalid payment signature", "project_id", project.ProjectID, "order_id", orderID)
		return nil, ErrInvalidPaymentSignature
	}

	now := time.Now()
	newExpiry := domain.NextRenewalExpiry(project.ExpiryDate, now, explicitExpiry)
	cost := project.RenewalCost
	record := domain.RenewalRecord{
		RenewedAt:          now,
		PaymentID:          paymentID,
		OrderID:            orderID,
		PreviousExpiryDate: project.ExpiryDate,
		NewExpiryDate:      newExpiry,
		Cost:               &cost,
	}

	renewed, err := s.repo.RenewProject(ctx, project.ProjectID, project.Version, record)
	if err != nil {
		return nil, err
	}

	s.logger.Info("project renewed",
		"project_id", renewed.ProjectID,
		"order_id", orderID,
		"previous_expiry", record.PreviousExpiryDate,
		"new_expiry", renewed.ExpiryDate,
	)
	s.publish(ctx, domain.EventProjectRenewed, domain.ProjectRenewedEvent{
		EventID:       uuid.NewString(),
		ProjectID:     renewed.ProjectID,
		ClientID:      renewed.AssignedTo,
		PaymentID:     paymentID,
		OrderID:       orderID,
		NewExpiryDate: renewed.ExpiryDate,
		RenewedAt:     now,
	})

	return &RenewedProjectView{
		ProjectID:  renewed.ProjectID,
		Name:       renewed.Name,
		Status:     renewed.Status,
		ExpiryDate: renewed.ExpiryDate,
		PaymentID:  paymentID,
		OrderID:    orderID,
	}, nil
}

// RenewalHistory returns a project's renewal ledger in insertion order,
// oldest first.
func (s *Service) RenewalHistory(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.repo.FindProjectByProjectID(ctx, projectID)
}

// CreateOrder opens a payment order with the gateway for a project's
// renewal. The amount is taken from the request when positive, otherwise
// derived from the project's renewal cost in minor units.
func (s *Service) CreateOrder(ctx context.Context, projectID string, amount int64, currency string) (*domain.PaymentOrder, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id and amount are required", ErrValidation)
	}

	project, err := s.repo.FindProjectByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if amount <= 0 {
		amount = int64(math.Round(project.RenewalCost * 100))
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: project id and amount are required", ErrValidation)
	}
	if currency == "" {
		currency = "INR"
	}

	order, err := s.gateway.CreateOrder(ctx, domain.PaymentOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  fmt.Sprintf("receipt_%s_%d", project.ProjectID, time.Now().UnixNano()),
		Notes: map[string]string{
			"project_id":   project.ProjectID,
			"project_name": project.Name,
		},
	})
	if err != nil {
		s.logger.Error("failed to create payment order", "project_id", project.ProjectID, "error", err)
		return nil, err
	}
	return order, nil
}
