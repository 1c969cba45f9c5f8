/**
 * @description
 * Domain models for clients and administrators. A client owns an ordered set
 * of project references; the public-profile projection is what every API
 * response serializes, so the credential hash never leaves the store layer
 * by accident.
 */
package domain

import (
	"strings"
	"time"
)

// Client is an account that can log in to view and renew its own projects.
type Client struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	ProjectIDs   []string   `json:"project_ids"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ClientProfile is the credential-stripped projection of a client served to
// API consumers, optionally carrying the client's expanded projects.
type ClientProfile struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	ProjectCount int        `json:"project_count"`
	Projects     []Project  `json:"projects,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PublicProfile returns the credential-stripped view of the client.
func (c *Client) PublicProfile() ClientProfile {
	return ClientProfile{
		ID:           c.ID,
		ClientID:     c.ClientID,
		Name:         c.Name,
		Email:        c.Email,
		IsActive:     c.IsActive,
		LastLoginAt:  c.LastLoginAt,
		ProjectCount: len(c.ProjectIDs),
		CreatedAt:    c.CreatedAt,
	}
}

// NormalizeEmail lowercases and trims an email address so uniqueness checks
// and lookups always compare the same form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Admin is a back-office principal identified by a user ID rather than an
// email address.
type Admin struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
