/**
 * @description
 * This file defines the core domain model for projects and the pure lifecycle
 * rules that govern them: status derivation from the expiry deadline, the
 * days-until-expiry calculation, and the renewal expiry arithmetic.
 *
 * Keeping these rules as pure functions means every read path (single reads,
 * bulk listings, the expiry sweep) applies exactly the same policy without
 * needing side-effecting writes just to answer a query.
 */
package domain

import (
	"math"
	"time"
)

// Project statuses. "expired" is derived from the expiry date for active
// projects; "renewed" and "cancelled" only change through an explicit
// admin or renewal action.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusRenewed   = "renewed"
	StatusCancelled = "cancelled"
)

// ValidStatuses lists every status a project may hold.
var ValidStatuses = []string{StatusActive, StatusExpired, StatusRenewed, StatusCancelled}

// IsValidStatus reports whether s is a recognized project status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Project represents a billable service engagement with an expiry-based
// renewal lifecycle, owned by exactly one client.
type Project struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	AssignedTo      string          `json:"assigned_to"` // client_id of the owning client
	Status          string          `json:"status"`
	StartDate       time.Time       `json:"start_date"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	RenewalCost     float64         `json:"renewal_cost"`
	ServiceProvider *string         `json:"service_provider,omitempty"`
	LastPaymentID   *string         `json:"last_payment_id,omitempty"`
	LastOrderID     *string         `json:"last_order_id,omitempty"`
	RenewalHistory  []RenewalRecord `json:"renewal_history"`
	Version         int64           `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RenewalRecord is one immutable entry in a project's renewal ledger.
// Entries are append-only and kept in insertion order, newest last.
type RenewalRecord struct {
	RenewedAt          time.Time `json:"renewed_at"`
	PaymentID          string    `json:"payment_id"`
	OrderID            string    `json:"order_id"`
	PreviousExpiryDate time.Time `json:"previous_expiry_date"`
	NewExpiryDate      time.Time `json:"new_expiry_date"`
	Cost               *float64  `json:"cost,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
}

// DeriveStatus returns the status a project should present at the given
// instant. Cancelled and renewed are terminal for automation: only an
// explicit admin or renewal action changes them. An active project whose
// expiry date has passed presents as expired.
func DeriveStatus(p *Project, now time.Time) string {
	if p.Status == StatusCancelled || p.Status == StatusRenewed {
		return p.Status
	}
	if p.Status == StatusActive && p.ExpiryDate.Before(now) {
		return StatusExpired
	}
	return p.Status
}

// DaysUntilExpiry returns the number of whole days until the project's
// expiry, rounding up so "0 days left" and "1 day left" stay distinct.
// The result is negative once the expiry date has passed.
func DaysUntilExpiry(p *Project, now time.Time) int {
	diff := p.ExpiryDate.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}

// IsExpiringSoon reports whether the project is active and expires within
// the given window, exclusive of already-lapsed projects.
func IsExpiringSoon(p *Project, now time.Time, windowDays int) bool {
	if DeriveStatus(p, now) != StatusActive {
		return false
	}
	days := DaysUntilExpiry(p, now)
	return days > 0 && days <= windowDays
}

// NextRenewalExpiry computes the expiry date a renewal should set. An
// explicit date wins verbatim. Otherwise the new term extends one calendar
// year from the later of the current expiry and now: a lapsed project
// renewing today gets a full year from today, while an unexpired project
// keeps its remaining term and adds a year on top. Feb 29 plus one year
// normalizes to Mar 1.
func NextRenewalExpiry(currentExpiry, now time.Time, explicit *time.Time) time.Time {
	if explicit != nil {
		return *explicit
	}
	base := currentExpiry
	if now.After(base) {
		base = now
	}
	return base.AddDate(1, 0, 0)
}

// StatusCounts is the partition of a project set by presented status.
type StatusCounts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Expired   int `json:"expired"`
	Renewed   int `json:"renewed"`
	Cancelled int `json:"cancelled"`
}

// CountByStatus partitions projects by their derived status at the given
// instant.
func CountByStatus(projects []Project, now time.Time) StatusCounts {
	var counts StatusCounts
	counts.Total = len(projects)
	for i := range projects {
		switch DeriveStatus(&projects[i], now) {
		case StatusActive:
			counts.Active++
		case StatusExpired:
			counts.Expired++
		case StatusRenewed:
			counts.Renewed++
		case StatusCancelled:
			counts.Cancelled++
		}
	}
	return counts
}
