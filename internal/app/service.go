/**
 * @description
 * This file contains the core business logic for the renewal-service. The
 * Service layer orchestrates data from the repository and applies the
 * project lifecycle rules: identifier generation, expiry sweeping, status
 * derivation at the serving boundary, and the admin CRUD operations.
 *
 * Every listing read runs the expiry sweep first so a lapsed project can
 * never be served as "active", then applies the pure status derivation on
 * top so single reads and bulk reads present identical lifecycle facts.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/renewly/renewal-service/internal/config"
	"github.com/renewly/renewal-service/internal/domain"
	"github.com/renewly/renewal-service/internal/store"
)

// Sentinel errors surfaced by the service layer. Handlers map these onto
// HTTP statuses; everything unrecognized is treated as an upstream failure.
var (
	ErrValidation              = errors.New("validation failed")
	ErrMissingRenewalFields    = errors.New("payment id, order id, and signature are required")
	ErrInvalidPaymentSignature = errors.New("invalid payment signature")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrIDGenerationExhausted   = errors.New("identifier generation exhausted retries")
	ErrRateLimited             = errors.New("too many renewal attempts")
)

// ExpiringWindowDays is the default window for the expiring-soon query.
const ExpiringWindowDays = 30

// Repository defines the interface for database operations that the service
// needs. The concrete implementation lives in internal/store.
type Repository interface {
	// Admins
	FindAdminByUserID(ctx context.Context, userID string) (*domain.Admin, error)
	CreateAdmin(ctx context.Context, userID, passwordHash string) (*domain.Admin, error)
	TouchAdminLogin(ctx context.Context, userID string, at time.Time) error

	// Clients
	FindClientByClientID(ctx context.Context, clientID string) (*domain.Client, error)
	FindClientCredentials(ctx context.Context, clientID string) (*domain.Client, error)
	FindClientByEmail(ctx context.Context, email string) (*domain.Client, error)
	CreateClient(ctx context.Context, c *domain.Client) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	UpdateClientFields(ctx context.Context, clientID string, name, email *string) (*domain.Client, error)
	SetClientActive(ctx context.Context, clientID string, active bool) (*domain.Client, error)
	DeleteClient(ctx context.Context, clientID string) error
	TouchClientLogin(ctx context.Context, clientID string, at time.Time) error
	CountClients(ctx context.Context) (int, error)
	ClientIDExists(ctx context.Context, clientID string) (bool, error)

	// Projects
	CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error)
	FindProjectByProjectID(ctx context.Context, projectID string) (*domain.Project, error)
	FindProjectForClient(ctx context.Context, clientID, projectID string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListProjectsByClient(ctx context.Context, clientID string) ([]domain.Project, error)
	ListActiveProjectsExpiringBy(ctx context.Context, clientID string, now, before time.Time) ([]domain.Project, error)
	UpdateProjectFields(ctx context.Context, projectID string, upd store.ProjectUpdate) (*domain.Project, error)
	ReassignProject(ctx context.Context, projectID, newClientID string) (*domain.Project, error)
	SetProjectStatus(ctx context.Context, projectID, status string) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID string) (*domain.Project, error)
	CountProjects(ctx context.Context) (int, error)
	ProjectIDExists(ctx context.Context, projectID string) (bool, error)
	CountProjectsByStatus(ctx context.Context, clientID string) (domain.StatusCounts, error)

	// Renewal and sweep
	RenewProject(ctx context.Context, projectID string, expectedVersion int64, rec domain.RenewalRecord) (*domain.Project, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// PaymentGateway is the external order-creation collaborator.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req domain.PaymentOrderRequest) (*domain.PaymentOrder, error)
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
	Close()
}

// RateLimiter bounds how often a subject may hit a rate-limited operation.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// EventsExchange is the topic exchange domain events are published to.
const EventsExchange = "renewal.events"

// Service provides the business logic for client and project management.
type Service struct {
	repo          Repository
	gateway       PaymentGateway
	events        Publisher
	limiter       RateLimiter
	paymentSecret string
	logger        *slog.Logger
	config        config.Config
}

// NewService creates a new application service.
func NewService(repo Repository, gateway PaymentGateway, events Publisher, limiter RateLimiter, logger *slog.Logger, cfg config.Config) *Service {
	return &Service{
		repo:          repo,
		gateway:       gateway,
		events:        events,
		limiter:       limiter,
		paymentSecret: cfg.RazorpayPaymentSecret,
		logger:        logger,
		config:        cfg,
	}
}

// publish sends a domain event best-effort; a broker outage never fails the
// business operation that triggered it.
func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, EventsExchange, routingKey, body); err != nil {
		s.logger.Error("failed to publish event", "routing_key", routingKey, "error", err)
	}
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// CreateClient registers a new client with a generated identifier and a
// hashed credential.
func (s *Service) CreateClient(ctx context.Context, name, email, password string) (*domain.ClientProfile, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	email = domain.NormalizeEmail(email)
	if _, err := s.repo.FindClientByEmail(ctx, email); err == nil {
		return nil, store.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrClientNotFound) {
		return nil, err
	}

	clientID, err := s.nextClientID(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateClient(ctx, &domain.Client{
		ClientID:     clientID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("client created", "client_id", created.ClientID)
	profile := created.PublicProfile()
	return &profile, nil
}

// ListClients returns public profiles of all clients with their projects,
// post-sweep so project statuses are current.
func (s *Service) ListClients(ctx context.Context) ([]domain.ClientProfile, error) {
	now := time.Now()
	if _, err := s.SweepExpired(ctx, now); err != nil {
		return nil, err
	}

	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]domain.ClientProfile, 0, len(clients))
	for i := range clients {
		profile := clients[i].PublicProfile()
		projects, err := s.repo.ListProjectsByClient(ctx, clients[i].ClientID)
		if err != nil {
			return nil, err
		}
		presentStatuses(projects, now)
		profile.Projects = projects
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// GetClientProfile returns one client's public profile with projects.
func (s *Service) GetClientProfile(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	now := time.Now()
	if _, err := s.SweepExpired(ctx, now); err != nil {
		return nil, err
	}

	client, err := s.repo.FindClientByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	projects, err := s.repo.ListProjectsByClient(ctx, client.ClientID)
	if err != nil {
		return nil, err
	}
	presentStatuses(projects, now)

	profile := client.PublicProfile()
	profile.Projects = projects
	return &profile, nil
}

// UpdateClient applies a partial update to a client's name and email.
func (s *Service) UpdateClient(ctx context.Context, clientID string, name, email *string) (*domain.ClientProfile, error) {
	if name == nil && email == nil {
		return nil, fmt.Errorf("%w: at least one field must be provided for update", ErrValidation)
	}
	if name != nil && *name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if email != nil {
		normalized := domain.NormalizeEmail(*email)
		if normalized == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		email = &normalized
	}

	client, err := s.repo.UpdateClientFields(ctx, clientID, name, email)
	if err != nil {
		return nil, err
	}
	profile := client.PublicProfile()
	return &profile, nil
}

// SetClientActive flips a client's active flag.
func (s *Service) SetClientActive(ctx context.Context, clientID string, active bool) (*domain.ClientProfile, error) {
	client, err := s.repo.SetClientActive(ctx, clientID, active)
	if err != nil {
		return nil, err
	}
	profile := client.PublicProfile()
	return &profile, nil
}

// DeleteClient removes a client. Deletion is blocked while the client still
// owns projects; the caller must delete or reassign them first.
func (s *Service) DeleteClient(ctx context.Context, clientID string) error {
	if err := s.repo.DeleteClient(ctx, clientID); err != nil {
		return err
	}
	s.logger.Info("client deleted", "client_id", clientID)
	return nil
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// CreateProject creates a project for an existing client. The expiry date
// must be in the future at creation time; renewals may later extend from a
// past expiry, but a project cannot be born lapsed.
func (s *Service) CreateProject(ctx context.Context, clientID, name, description string, expiryDate time.Time, renewalCost float64, serviceProvider *string) (*domain.Project, error) {
	if clientID == "" || name == "" || description == "" {
		return nil, fmt.Errorf("%w: client id, name and description are required", ErrValidation)
	}
	if renewalCost < 0 {
		return nil, fmt.Errorf("%w: renewal cost cannot be negative", ErrValidation)
	}
	now := time.Now()
	if !expiryDate.After(now) {
		return nil, fmt.Errorf("%w: expiry date must be in the future", ErrValidation)
	}

	client, err := s.repo.FindClientByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	projectID, err := s.nextProjectID(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProject(ctx, &domain.Project{
		ProjectID:       projectID,
		Name:            name,
		Description:     description,
		AssignedTo:      client.ClientID,
		Status:          domain.StatusActive,
		StartDate:       now,
		ExpiryDate:      expiryDate,
		RenewalCost:     renewalCost,
		ServiceProvider: serviceProvider,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created", "project_id", created.ProjectID, "client_id", client.ClientID)
	return created, nil
}

// ListProjects returns all projects post-sweep.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	now := time.Now()
	if _, err := s.SweepExpired(ctx, now); err != nil {
		return nil, err
	}

	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	presentStatuses(projects, now)
	return projects, nil
}

// ListClientProjects returns one client's projects post-sweep.
func (s *Service) ListClientProjects(ctx context.Context, clientID string) ([]domain.Project, error) {
	now := time.Now()
	if _, err := s.SweepExpired(ctx, now); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindClientByClientID(ctx, clientID); err != nil {
		return nil, err
	}

	projects, err := s.repo.ListProjectsByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	presentStatuses(projects, now)
	return projects, nil
}

// GetClientProject returns a single project belonging to the client.
func (s *Service) GetClientProject(ctx context.Context, clientID, projectID string) (*domain.Project, error) {
	now := time.Now()
	if _, err := s.repo.FindClientByClientID(ctx, clientID); err != nil {
		return nil, err
	}

	project, err := s.repo.FindProjectForClient(ctx, clientID, projectID)
	if err != nil {
		return nil, err
	}
	project.Status = domain.DeriveStatus(project, now)
	return project, nil
}

// GetProject returns a single project by its identifier.
func (s *Service) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	project, err := s.repo.FindProjectByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	project.Status = domain.DeriveStatus(project, time.Now())
	return project, nil
}

// ProjectUpdateInput carries the optional fields of an admin project edit.
type ProjectUpdateInput struct {
	Name            *string
	AssignedTo      *string
	Description     *string
	ExpiryDate      *time.Time
	RenewalCost     *float64
	Status          *string
	ServiceProvider *string
	ClearProvider   bool
}

// UpdateProject applies a partial admin edit, validating each provided
// field. Reassignment moves the project reference between clients.
func (s *Service) UpdateProject(ctx context.Context, projectID string, input ProjectUpdateInput) (*domain.Project, error) {
	if input.Name == nil && input.AssignedTo == nil && input.Description == nil &&
		input.ExpiryDate == nil && input.RenewalCost == nil && input.Status == nil &&
		input.ServiceProvider == nil && !input.ClearProvider {
		return nil, fmt.Errorf("%w: at least one field must be provided for update", ErrValidation)
	}
	if input.Name != nil && *input.Name == "" {
		return nil, fmt.Errorf("%w: project name cannot be empty", ErrValidation)
	}
	if input.Description != nil && *input.Description == "" {
		return nil, fmt.Errorf("%w: project description cannot be empty", ErrValidation)
	}
	if input.RenewalCost != nil && *input.RenewalCost < 0 {
		return nil, fmt.Errorf("%w: renewal cost must be a valid non-negative number", ErrValidation)
	}
	if input.Status != nil && !domain.IsValidStatus(*input.Status) {
		return nil, fmt.Errorf("%w: status must be one of: active, expired, renewed, cancelled", ErrValidation)
	}

	if input.AssignedTo != nil {
		if _, err := s.repo.FindClientByClientID(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
		if _, err := s.repo.ReassignProject(ctx, projectID, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	return s.repo.UpdateProjectFields(ctx, projectID, store.ProjectUpdate{
		Name:          input.Name,
		Description:   input.Description,
		ExpiryDate:    input.ExpiryDate,
		RenewalCost:   input.RenewalCost,
		Status:        input.Status,
		Provider:      input.ServiceProvider,
		ClearProvider: input.ClearProvider,
	})
}

// ActivateProject sets a project back to active (admin action).
func (s *Service) ActivateProject(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.repo.SetProjectStatus(ctx, projectID, domain.StatusActive)
}

// DeleteProject removes a project and its reference in the owning client.
func (s *Service) DeleteProject(ctx context.Context, projectID string) (*domain.Project, error) {
	deleted, err := s.repo.DeleteProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("project deleted", "project_id", deleted.ProjectID, "client_id", deleted.AssignedTo)
	return deleted, nil
}

// DeleteProjects removes a batch of projects, reporting which identifiers
// were deleted and which were not found.
func (s *Service) DeleteProjects(ctx context.Context, projectIDs []string) (deleted []string, notFound []string, err error) {
	if len(projectIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: project ids array is required and cannot be empty", ErrValidation)
	}
	for _, id := range projectIDs {
		if _, delErr := s.repo.DeleteProject(ctx, id); delErr != nil {
			if errors.Is(delErr, store.ErrProjectNotFound) {
				notFound = append(notFound, id)
				continue
			}
			return deleted, notFound, delErr
		}
		deleted = append(deleted, id)
	}
	return deleted, notFound, nil
}

// ---------------------------------------------------------------------------
// Sweep and queries
// ---------------------------------------------------------------------------

// SweepExpired reconciles stored statuses with the expiry deadline in bulk.
// It is idempotent; the second run in a row is a no-op.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.SweepExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expiry sweep marked projects expired", "count", count)
		s.publish(ctx, domain.EventProjectExpired, domain.ProjectsExpiredEvent{
			EventID: uuid.NewString(),
			Count:   int(count),
			SweptAt: now,
		})
	}
	return count, nil
}

// ProjectStats returns the status partition of projects, optionally scoped
// to one client. The sweep runs first so stored statuses are current.
func (s *Service) ProjectStats(ctx context.Context, clientID string) (*domain.StatusCounts, error) {
	if _, err := s.SweepExpired(ctx, time.Now()); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountProjectsByStatus(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

// ExpiringProject pairs a project with its remaining days for the
// expiring-soon listing.
type ExpiringProject struct {
	domain.Project
	DaysUntilExpiry int `json:"days_until_expiry"`
}

// ExpiringSoon returns active projects expiring within the window, soonest
// first. An empty clientID spans all clients.
func (s *Service) ExpiringSoon(ctx context.Context, clientID string, windowDays int) ([]ExpiringProject, error) {
	if windowDays <= 0 {
		windowDays = ExpiringWindowDays
	}
	now := time.Now()
	if _, err := s.SweepExpired(ctx, now); err != nil {
		return nil, err
	}

	projects, err := s.repo.ListActiveProjectsExpiringBy(ctx, clientID, now, now.AddDate(0, 0, windowDays))
	if err != nil {
		return nil, err
	}

	expiring := make([]ExpiringProject, 0, len(projects))
	for i := range projects {
		days := domain.DaysUntilExpiry(&projects[i], now)
		if days <= 0 || days > windowDays {
			continue
		}
		expiring = append(expiring, ExpiringProject{Project: projects[i], DaysUntilExpiry: days})
	}
	return expiring, nil
}

// presentStatuses applies status derivation in place before serving a batch.
func presentStatuses(projects []domain.Project, now time.Time) {
	for i := range projects {
		projects[i].Status = domain.DeriveStatus(&projects[i], now)
	}
}
