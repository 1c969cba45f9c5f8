package app

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/renewly/renewal-service/internal/config"
	"github.com/renewly/renewal-service/internal/domain"
	"github.com/renewly/renewal-service/internal/store"
)

const testPaymentSecret = "test-payment-secret"

// newTestService wires a Service over the fake repository with quiet logging
// and deterministic configuration.
func newTestService(repo Repository) *Service {
	cfg := config.Config{
		JWTSecret:              "test-jwt-secret",
		TokenTTLHours:          1,
		RazorpayPaymentSecret:  testPaymentSecret,
		RenewRateLimit:         10,
		RenewRateWindowSeconds: 60,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, nil, nil, nil, logger, cfg)
}

func adminWithHash(userID, hash string) *domain.Admin {
	return &domain.Admin{
		ID:           userID,
		UserID:       userID,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
}

// seedClient inserts a client directly into the fake store.
func (f *fakeRepository) seedClient(clientID, name, email, passwordHash string) *domain.Client {
	id := strings.ToUpper(clientID)
	client := &domain.Client{
		ID:           id,
		ClientID:     id,
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		IsActive:     true,
		ProjectIDs:   []string{},
		CreatedAt:    time.Now(),
	}
	f.clients[id] = client
	return client
}

// seedProject inserts a project directly into the fake store and links it to
// its owning client when that client exists.
func (f *fakeRepository) seedProject(projectID, clientID, status string, expiry time.Time) *domain.Project {
	id := strings.ToUpper(projectID)
	project := &domain.Project{
		ID:             id,
		ProjectID:      id,
		Name:           "Project " + id,
		Description:    "seeded project",
		AssignedTo:     strings.ToUpper(clientID),
		Status:         status,
		StartDate:      expiry.AddDate(-1, 0, 0),
		ExpiryDate:     expiry,
		RenewalCost:    4999,
		RenewalHistory: []domain.RenewalRecord{},
		Version:        1,
		CreatedAt:      time.Now(),
	}
	f.projects[id] = project
	if client, ok := f.clients[project.AssignedTo]; ok {
		client.ProjectIDs = append(client.ProjectIDs, id)
	}
	return project
}

// fakeRepository is an in-memory Repository used across the service tests.
type fakeRepository struct {
	admins   map[string]*domain.Admin
	clients  map[string]*domain.Client
	projects map[string]*domain.Project

	renewCalls int
	sweepCalls int
	renewErr   error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		admins:   make(map[string]*domain.Admin),
		clients:  make(map[string]*domain.Client),
		projects: make(map[string]*domain.Project),
	}
}

func copyProject(p *domain.Project) *domain.Project {
	cp := *p
	cp.RenewalHistory = append([]domain.RenewalRecord(nil), p.RenewalHistory...)
	return &cp
}

func copyClient(c *domain.Client) *domain.Client {
	cp := *c
	cp.ProjectIDs = append([]string(nil), c.ProjectIDs...)
	return &cp
}

// --- Admins ---

func (f *fakeRepository) FindAdminByUserID(ctx context.Context, userID string) (*domain.Admin, error) {
	admin, ok := f.admins[userID]
	if !ok {
		return nil, store.ErrAdminNotFound
	}
	cp := *admin
	return &cp, nil
}

func (f *fakeRepository) CreateAdmin(ctx context.Context, userID, passwordHash string) (*domain.Admin, error) {
	if _, ok := f.admins[userID]; ok {
		return nil, store.ErrDuplicateAdmin
	}
	admin := &domain.Admin{ID: userID, UserID: userID, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.admins[userID] = admin
	cp := *admin
	return &cp, nil
}

func (f *fakeRepository) TouchAdminLogin(ctx context.Context, userID string, at time.Time) error {
	if admin, ok := f.admins[userID]; ok {
		admin.LastLoginAt = &at
	}
	return nil
}

// --- Clients ---

func (f *fakeRepository) FindClientByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	client, ok := f.clients[strings.ToUpper(clientID)]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	cp := copyClient(client)
	cp.PasswordHash = ""
	return cp, nil
}

func (f *fakeRepository) FindClientCredentials(ctx context.Context, clientID string) (*domain.Client, error) {
	client, ok := f.clients[strings.ToUpper(clientID)]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	return copyClient(client), nil
}

func (f *fakeRepository) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	for _, client := range f.clients {
		if client.Email == strings.ToLower(email) {
			return copyClient(client), nil
		}
	}
	return nil, store.ErrClientNotFound
}

func (f *fakeRepository) CreateClient(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	id := strings.ToUpper(c.ClientID)
	if _, ok := f.clients[id]; ok {
		return nil, store.ErrDuplicateClientID
	}
	client := copyClient(c)
	client.ID = id
	client.ClientID = id
	client.Email = strings.ToLower(c.Email)
	client.IsActive = true
	client.ProjectIDs = []string{}
	client.CreatedAt = time.Now()
	f.clients[id] = client
	return copyClient(client), nil
}

func (f *fakeRepository) ListClients(ctx context.Context) ([]domain.Client, error) {
	var out []domain.Client
	for _, client := range f.clients {
		out = append(out, *copyClient(client))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

func (f *fakeRepository) UpdateClientFields(ctx context.Context, clientID string, name, email *string) (*domain.Client, error) {
	client, ok := f.clients[strings.ToUpper(clientID)]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	if name != nil {
		client.Name = *name
	}
	if email != nil {
		client.Email = strings.ToLower(*email)
	}
	return copyClient(client), nil
}

func (f *fakeRepository) SetClientActive(ctx context.Context, clientID string, active bool) (*domain.Client, error) {
	client, ok := f.clients[strings.ToUpper(clientID)]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	client.IsActive = active
	return copyClient(client), nil
}

func (f *fakeRepository) DeleteClient(ctx context.Context, clientID string) error {
	client, ok := f.clients[strings.ToUpper(clientID)]
	if !ok {
		return store.ErrClientNotFound
	}
	if len(client.ProjectIDs) > 0 {
		return store.ErrClientHasProjects
	}
	delete(f.clients, client.ClientID)
	return nil
}

func (f *fakeRepository) TouchClientLogin(ctx context.Context, clientID string, at time.Time) error {
	if client, ok := f.clients[strings.ToUpper(clientID)]; ok {
		client.LastLoginAt = &at
	}
	return nil
}

func (f *fakeRepository) CountClients(ctx context.Context) (int, error) {
	return len(f.clients), nil
}

func (f *fakeRepository) ClientIDExists(ctx context.Context, clientID string) (bool, error) {
	_, ok := f.clients[strings.ToUpper(clientID)]
	return ok, nil
}

// --- Projects ---

func (f *fakeRepository) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	id := strings.ToUpper(p.ProjectID)
	if _, ok := f.projects[id]; ok {
		return nil, store.ErrDuplicateProjectID
	}
	client, ok := f.clients[strings.ToUpper(p.AssignedTo)]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	project := copyProject(p)
	project.ID = id
	project.ProjectID = id
	project.AssignedTo = client.ClientID
	project.Version = 1
	project.RenewalHistory = []domain.RenewalRecord{}
	project.CreatedAt = time.Now()
	f.projects[id] = project
	client.ProjectIDs = append(client.ProjectIDs, id)
	return copyProject(project), nil
}

func (f *fakeRepository) FindProjectByProjectID(ctx context.Context, projectID string) (*domain.Project, error) {
	project, ok := f.projects[strings.ToUpper(projectID)]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return copyProject(project), nil
}

func (f *fakeRepository) FindProjectForClient(ctx context.Context, clientID, projectID string) (*domain.Project, error) {
	project, ok := f.projects[strings.ToUpper(projectID)]
	if !ok || !strings.EqualFold(project.AssignedTo, clientID) {
		return nil, store.ErrProjectNotFound
	}
	return copyProject(project), nil
}

func (f *fakeRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	for _, project := range f.projects {
		out = append(out, *copyProject(project))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

func (f *fakeRepository) ListProjectsByClient(ctx context.Context, clientID string) ([]domain.Project, error) {
	var out []domain.Project
	for _, project := range f.projects {
		if strings.EqualFold(project.AssignedTo, clientID) {
			out = append(out, *copyProject(project))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

func (f *fakeRepository) ListActiveProjectsExpiringBy(ctx context.Context, clientID string, now, before time.Time) ([]domain.Project, error) {
	var out []domain.Project
	for _, project := range f.projects {
		if project.Status != domain.StatusActive {
			continue
		}
		if clientID != "" && !strings.EqualFold(project.AssignedTo, clientID) {
			continue
		}
		if project.ExpiryDate.After(now) && !project.ExpiryDate.After(before) {
			out = append(out, *copyProject(project))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (f *fakeRepository) UpdateProjectFields(ctx context.Context, projectID string, upd store.ProjectUpdate) (*domain.Project, error) {
	project, ok := f.projects[strings.ToUpper(projectID)]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	if upd.Name != nil {
		project.Name = *upd.Name
	}
	if upd.Description != nil {
		project.Description = *upd.Description
	}
	if upd.ExpiryDate != nil {
		project.ExpiryDate = *upd.ExpiryDate
	}
	if upd.RenewalCost != nil {
		project.RenewalCost = *upd.RenewalCost
	}
	if upd.Status != nil {
		project.Status = *upd.Status
	}
	if upd.ClearProvider {
		project.ServiceProvider = nil
	} else if upd.Provider != nil {
		project.ServiceProvider = upd.Provider
	}
	project.Version++
	return copyProject(project), nil
}

func (f *fakeRepository) ReassignProject(ctx context.Context, projectID, newClientID string) (*domain.Project, error) {
	project, ok := f.projects[strings.ToUpper(projectID)]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	newClient, ok := f.clients[strings.ToUpper(newClientID)]
	if !ok {
		return nil, store.ErrClientNotFound
	}
	if old, ok := f.clients[strings.ToUpper(project.AssignedTo)]; ok {
		refs := old.ProjectIDs[:0]
		for _, id := range old.ProjectIDs {
			if id != project.ProjectID {
				refs = append(refs, id)
			}
		}
		old.ProjectIDs = refs
	}
	project.AssignedTo = newClient.ClientID
	newClient.ProjectIDs = append(newClient.ProjectIDs, project.ProjectID)
	project.Version++
	return copyProject(project), nil
}

func (f *fakeRepository) SetProjectStatus(ctx context.Context, projectID, status string) (*domain.Project, error) {
	project, ok := f.projects[strings.ToUpper(projectID)]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	project.Status = status
	project.Version++
	return copyProject(project), nil
}

func (f *fakeRepository) DeleteProject(ctx context.Context, projectID string) (*domain.Project, error) {
	project, ok := f.projects[strings.ToUpper(projectID)]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	delete(f.projects, project.ProjectID)
	if client, ok := f.clients[strings.ToUpper(project.AssignedTo)]; ok {
		refs := client.ProjectIDs[:0]
		for _, id := range client.ProjectIDs {
			if id != project.ProjectID {
				refs = append(refs, id)
			}
		}
		client.ProjectIDs = refs
	}
	return project, nil
}

func (f *fakeRepository) CountProjects(ctx context.Context) (int, error) {
	return len(f.projects), nil
}

func (f *fakeRepository) ProjectIDExists(ctx context.Context, projectID string) (bool, error) {
	_, ok := f.projects[strings.ToUpper(projectID)]
	return ok, nil
}

func (f *fakeRepository) CountProjectsByStatus(ctx context.Context, clientID string) (domain.StatusCounts, error) {
	var counts domain.StatusCounts
	for _, project := range f.projects {
		if clientID != "" && !strings.EqualFold(project.AssignedTo, clientID) {
			continue
		}
		counts.Total++
		switch project.Status {
		case domain.StatusActive:
			counts.Active++
		case domain.StatusExpired:
			counts.Expired++
		case domain.StatusRenewed:
			counts.Renewed++
		case domain.StatusCancelled:
			counts.Cancelled++
		}
	}
	return counts, nil
}

// --- Renewal and sweep ---

func (f *fakeRepository) RenewProject(ctx context.Context, projectID string, expectedVersion int64, rec domain.RenewalRecord) (*domain.Project, error) {
	f.renewCalls++
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	project, ok := f.projects[strings.ToUpper(projectID)]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	if project.Version != expectedVersion {
		return nil, store.ErrConcurrentModification
	}
	project.Status = domain.StatusRenewed
	project.ExpiryDate = rec.NewExpiryDate
	project.LastPaymentID = &rec.PaymentID
	project.LastOrderID = &rec.OrderID
	project.RenewalHistory = append(project.RenewalHistory, rec)
	project.Version++
	return copyProject(project), nil
}

func (f *fakeRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	f.sweepCalls++
	var count int64
	for _, project := range f.projects {
		if project.Status == domain.StatusActive && project.ExpiryDate.Before(now) {
			project.Status = domain.StatusExpired
			count++
		}
	}
	return count, nil
}
