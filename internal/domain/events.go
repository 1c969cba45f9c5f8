/**
 * @description
 * Domain events emitted on project lifecycle transitions. Events are
 * published to a topic exchange so downstream consumers (billing reports,
 * client notifications) can react without coupling to this service.
 */
package domain

import "time"

// Event routing keys.
const (
	EventProjectRenewed = "project.renewed"
	EventProjectExpired = "project.expired"
)

// ProjectRenewedEvent is published after a renewal commits.
type ProjectRenewedEvent struct {
	EventID       string    `json:"event_id"`
	ProjectID     string    `json:"project_id"`
	ClientID      string    `json:"client_id"`
	PaymentID     string    `json:"payment_id"`
	OrderID       string    `json:"order_id"`
	NewExpiryDate time.Time `json:"new_expiry_date"`
	RenewedAt     time.Time `json:"renewed_at"`
}

// ProjectsExpiredEvent is published after an expiry sweep marks one or more
// projects expired.
type ProjectsExpiredEvent struct {
	EventID   string    `json:"event_id"`
	Count     int       `json:"count"`
	SweptAt   time.Time `json:"swept_at"`
}
