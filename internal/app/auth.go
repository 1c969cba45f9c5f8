/**
 * @description
 * Credential and session logic: bcrypt password hashing, HS256 token
 * issuance for admins and clients, and the idempotent default-admin
 * bootstrap run once at startup.
 *
 * Login failures never distinguish "unknown principal" from "wrong
 * password"; both surface as ErrInvalidCredentials.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/renewly/renewal-service/internal/domain"
	"github.com/renewly/renewal-service/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Principal roles carried in token claims.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

func hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// issueToken signs an HS256 token carrying the principal and role.
func (s *Service) issueToken(subject, role string) (string, error) {
	ttl := time.Duration(s.config.TokenTTLHours) * time.Hour
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// AdminLoginResult is the response of a successful admin login.
type AdminLoginResult struct {
	Token string        `json:"token"`
	Admin *domain.Admin `json:"admin"`
}

// AdminLogin verifies an admin's credentials and issues a session token.
func (s *Service) AdminLogin(ctx context.Context, userID, password string) (*AdminLoginResult, error) {
	if userID == "" || password == "" {
		return nil, fmt.Errorf("%w: user id and password are required", ErrValidation)
	}

	admin, err := s.repo.FindAdminByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(admin.UserID, RoleAdmin)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.TouchAdminLogin(ctx, admin.UserID, now); err != nil {
		s.logger.Error("failed to record admin login time", "user_id", admin.UserID, "error", err)
	}
	admin.LastLoginAt = &now
	admin.PasswordHash = ""

	return &AdminLoginResult{Token: token, Admin: admin}, nil
}

// ClientLoginResult is the response of a successful client login.
type ClientLoginResult struct {
	Token  string                `json:"token"`
	Client *domain.ClientProfile `json:"client"`
}

// ClientLogin verifies a client's credentials and issues a session token.
func (s *Service) ClientLogin(ctx context.Context, clientID, password string) (*ClientLoginResult, error) {
	if clientID == "" || password == "" {
		return nil, fmt.Errorf("%w: client id and password are required", ErrValidation)
	}

	client, err := s.repo.FindClientCredentials(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrClientNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(password, client.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(client.ClientID, RoleClient)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.TouchClientLogin(ctx, client.ClientID, now); err != nil {
		s.logger.Error("failed to record client login time", "client_id", client.ClientID, "error", err)
	}
	client.LastLoginAt = &now

	profile := client.PublicProfile()
	profile.Projects = nil
	return &ClientLoginResult{Token: token, Client: &profile}, nil
}

// CreateAdmin registers a new admin principal.
func (s *Service) CreateAdmin(ctx context.Context, userID, password string) (*domain.Admin, error) {
	if userID == "" || password == "" {
		return nil, fmt.Errorf("%w: user id and password are required", ErrValidation)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	admin, err := s.repo.CreateAdmin(ctx, userID, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin created", "user_id", admin.UserID)
	return admin, nil
}

// EnsureDefaultAdmin creates the bootstrap admin once if configured. The
// existence check makes repeated startups a no-op, and nothing happens at
// all when the bootstrap credentials are absent from configuration.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	userID := s.config.DefaultAdminUserID
	password := s.config.DefaultAdminPassword
	if userID == "" || password == "" {
		s.logger.Info("default admin bootstrap skipped, credentials not configured")
		return nil
	}

	if _, err := s.repo.FindAdminByUserID(ctx, userID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrAdminNotFound) {
		return err
	}

	if _, err := s.CreateAdmin(ctx, userID, password); err != nil {
		// A concurrent replica may have created it between check and insert.
		if errors.Is(err, store.ErrDuplicateAdmin) {
			return nil
		}
		return err
	}
	s.logger.Info("default admin bootstrapped", "user_id", userID)
	return nil
}
