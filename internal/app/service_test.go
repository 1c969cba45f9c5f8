package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/renewly/renewal-service/internal/domain"
	"github.com/renewly/renewal-service/internal/store"
)

func TestSweepExpired_Idempotent(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 0, -5))
	repo.seedProject("PRJ0002", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 0, -1))
	repo.seedProject("PRJ0003", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 6, 0))
	repo.seedProject("PRJ0004", "CLI0001", domain.StatusCancelled, time.Now().AddDate(0, 0, -30))
	svc := newTestService(repo)

	count, err := svc.SweepExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if count != 2 {
		t.Errorf("first sweep marked %d projects, want 2", count)
	}
	if repo.projects["PRJ0001"].Status != domain.StatusExpired {
		t.Errorf("lapsed project not marked expired")
	}
	if repo.projects["PRJ0003"].Status != domain.StatusActive {
		t.Errorf("future project was marked expired")
	}
	if repo.projects["PRJ0004"].Status != domain.StatusCancelled {
		t.Errorf("cancelled project was touched by the sweep")
	}

	count, err = svc.SweepExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("second SweepExpired returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("second sweep marked %d projects, want 0", count)
	}
}

func TestListProjects_RunsSweepFirst(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 0, -3))
	svc := newTestService(repo)

	projects, err := svc.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects returned error: %v", err)
	}
	if repo.sweepCalls == 0 {
		t.Fatal("listing did not run the expiry sweep")
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	if projects[0].Status != domain.StatusExpired {
		t.Errorf("lapsed project served as %q, want %q", projects[0].Status, domain.StatusExpired)
	}
}

func TestProjectStats(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	repo.seedClient("CLI0002", "Globex", "globex@example.com", "")
	repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 6, 0))
	repo.seedProject("PRJ0002", "CLI0001", domain.StatusRenewed, time.Now().AddDate(1, 0, 0))
	repo.seedProject("PRJ0003", "CLI0002", domain.StatusCancelled, time.Now().AddDate(0, 1, 0))
	repo.seedProject("PRJ0004", "CLI0002", domain.StatusActive, time.Now().AddDate(0, 0, -2))
	svc := newTestService(repo)

	counts, err := svc.ProjectStats(context.Background(), "")
	if err != nil {
		t.Fatalf("ProjectStats returned error: %v", err)
	}
	// PRJ0004 lapsed, so the pre-stats sweep moves it to expired.
	want := domain.StatusCounts{Total: 4, Active: 1, Expired: 1, Renewed: 1, Cancelled: 1}
	if *counts != want {
		t.Errorf("ProjectStats = %+v, want %+v", *counts, want)
	}

	scoped, err := svc.ProjectStats(context.Background(), "CLI0001")
	if err != nil {
		t.Fatalf("scoped ProjectStats returned error: %v", err)
	}
	wantScoped := domain.StatusCounts{Total: 2, Active: 1, Renewed: 1}
	if *scoped != wantScoped {
		t.Errorf("scoped ProjectStats = %+v, want %+v", *scoped, wantScoped)
	}
}

func TestExpiringSoon(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	later := repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 0, 20))
	sooner := repo.seedProject("PRJ0002", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 0, 5))
	repo.seedProject("PRJ0003", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 3, 0))
	repo.seedProject("PRJ0004", "CLI0001", domain.StatusCancelled, time.Now().AddDate(0, 0, 10))
	repo.seedProject("PRJ0005", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 0, -2))
	svc := newTestService(repo)

	expiring, err := svc.ExpiringSoon(context.Background(), "", 30)
	if err != nil {
		t.Fatalf("ExpiringSoon returned error: %v", err)
	}
	if len(expiring) != 2 {
		t.Fatalf("expected 2 expiring projects, got %d", len(expiring))
	}
	if expiring[0].ProjectID != sooner.ProjectID || expiring[1].ProjectID != later.ProjectID {
		t.Errorf("expected soonest-first ordering, got %q then %q", expiring[0].ProjectID, expiring[1].ProjectID)
	}
	if expiring[0].DaysUntilExpiry <= 0 || expiring[0].DaysUntilExpiry > 5 {
		t.Errorf("unexpected days until expiry for soonest: %d", expiring[0].DaysUntilExpiry)
	}
	if expiring[1].DaysUntilExpiry <= expiring[0].DaysUntilExpiry {
		t.Errorf("ordering and day counts disagree: %d then %d", expiring[0].DaysUntilExpiry, expiring[1].DaysUntilExpiry)
	}
}

func TestCreateClient(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	profile, err := svc.CreateClient(context.Background(), "Acme Corp", "Contact@Acme.example", "hunter22")
	if err != nil {
		t.Fatalf("CreateClient returned error: %v", err)
	}
	if profile.ClientID != "CLI0001" {
		t.Errorf("expected generated id CLI0001, got %q", profile.ClientID)
	}
	if profile.Email != "contact@acme.example" {
		t.Errorf("email was not normalized: %q", profile.Email)
	}
	if !profile.IsActive {
		t.Error("new client should be active")
	}

	stored := repo.clients["CLI0001"]
	if stored.PasswordHash == "" || stored.PasswordHash == "hunter22" {
		t.Error("password was not stored hashed")
	}
	if !checkPassword("hunter22", stored.PasswordHash) {
		t.Error("stored hash does not verify the original password")
	}
}

func TestCreateClient_Validation(t *testing.T) {
	svc := newTestService(newFakeRepository())

	tests := []struct {
		name     string
		clientNm string
		email    string
		password string
	}{
		{"missing name", "", "a@b.example", "hunter22"},
		{"missing email", "Acme", "", "hunter22"},
		{"short password", "Acme", "a@b.example", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateClient(context.Background(), tt.clientNm, tt.email, tt.password); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateClient_DuplicateEmail(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "contact@acme.example", "")
	svc := newTestService(repo)

	_, err := svc.CreateClient(context.Background(), "Acme Again", "CONTACT@acme.example", "hunter22")
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestDeleteClient_BlockedWhileOwningProjects(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 6, 0))
	svc := newTestService(repo)

	if err := svc.DeleteClient(context.Background(), "CLI0001"); !errors.Is(err, store.ErrClientHasProjects) {
		t.Fatalf("expected ErrClientHasProjects, got %v", err)
	}
	if _, ok := repo.clients["CLI0001"]; !ok {
		t.Fatal("blocked deletion removed the client")
	}

	if _, err := svc.DeleteProject(context.Background(), "PRJ0001"); err != nil {
		t.Fatalf("DeleteProject returned error: %v", err)
	}
	if err := svc.DeleteClient(context.Background(), "CLI0001"); err != nil {
		t.Fatalf("deletion after removing projects failed: %v", err)
	}
}

func TestCreateProject(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	svc := newTestService(repo)

	expiry := time.Now().AddDate(1, 0, 0)
	project, err := svc.CreateProject(context.Background(), "cli0001", "Website", "Hosting and upkeep", expiry, 4999, nil)
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}
	if project.ProjectID != "PRJ0001" {
		t.Errorf("expected generated id PRJ0001, got %q", project.ProjectID)
	}
	if project.Status != domain.StatusActive {
		t.Errorf("new project status = %q, want %q", project.Status, domain.StatusActive)
	}
	if project.AssignedTo != "CLI0001" {
		t.Errorf("project assigned to %q", project.AssignedTo)
	}

	client := repo.clients["CLI0001"]
	if len(client.ProjectIDs) != 1 || client.ProjectIDs[0] != "PRJ0001" {
		t.Errorf("client project refs = %v, want [PRJ0001]", client.ProjectIDs)
	}
}

func TestCreateProject_Validation(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	svc := newTestService(repo)
	future := time.Now().AddDate(0, 6, 0)

	if _, err := svc.CreateProject(context.Background(), "CLI0001", "Website", "desc", time.Now().AddDate(0, 0, -1), 100, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("past expiry: expected ErrValidation, got %v", err)
	}
	if _, err := svc.CreateProject(context.Background(), "CLI0001", "Website", "desc", future, -5, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("negative cost: expected ErrValidation, got %v", err)
	}
	if _, err := svc.CreateProject(context.Background(), "CLI0001", "", "desc", future, 100, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("missing name: expected ErrValidation, got %v", err)
	}
	if _, err := svc.CreateProject(context.Background(), "CLI9999", "Website", "desc", future, 100, nil); !errors.Is(err, store.ErrClientNotFound) {
		t.Errorf("unknown client: expected ErrClientNotFound, got %v", err)
	}
}

func TestUpdateProject(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	repo.seedClient("CLI0002", "Globex", "globex@example.com", "")
	repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 6, 0))
	svc := newTestService(repo)

	badStatus := "paused"
	if _, err := svc.UpdateProject(context.Background(), "PRJ0001", ProjectUpdateInput{Status: &badStatus}); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid status: expected ErrValidation, got %v", err)
	}
	if _, err := svc.UpdateProject(context.Background(), "PRJ0001", ProjectUpdateInput{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty update: expected ErrValidation, got %v", err)
	}

	newOwner := "CLI0002"
	newName := "Website v2"
	updated, err := svc.UpdateProject(context.Background(), "PRJ0001", ProjectUpdateInput{Name: &newName, AssignedTo: &newOwner})
	if err != nil {
		t.Fatalf("UpdateProject returned error: %v", err)
	}
	if updated.Name != "Website v2" {
		t.Errorf("name = %q, want %q", updated.Name, "Website v2")
	}
	if updated.AssignedTo != "CLI0002" {
		t.Errorf("assigned to %q after reassignment", updated.AssignedTo)
	}
	if refs := repo.clients["CLI0001"].ProjectIDs; len(refs) != 0 {
		t.Errorf("old owner still references %v", refs)
	}
	if refs := repo.clients["CLI0002"].ProjectIDs; len(refs) != 1 || refs[0] != "PRJ0001" {
		t.Errorf("new owner references %v, want [PRJ0001]", refs)
	}
}

func TestDeleteProjects_Batch(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "")
	repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 6, 0))
	repo.seedProject("PRJ0002", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 6, 0))
	svc := newTestService(repo)

	if _, _, err := svc.DeleteProjects(context.Background(), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty batch: expected ErrValidation, got %v", err)
	}

	deleted, notFound, err := svc.DeleteProjects(context.Background(), []string{"PRJ0001", "PRJ9999", "PRJ0002"})
	if err != nil {
		t.Fatalf("DeleteProjects returned error: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted = %v, want 2 entries", deleted)
	}
	if len(notFound) != 1 || notFound[0] != "PRJ9999" {
		t.Errorf("notFound = %v, want [PRJ9999]", notFound)
	}
	if len(repo.projects) != 0 {
		t.Errorf("%d projects remain after batch delete", len(repo.projects))
	}
}

func TestGetClientProfile(t *testing.T) {
	repo := newFakeRepository()
	repo.seedClient("CLI0001", "Acme", "acme@example.com", "secret-hash")
	repo.seedProject("PRJ0001", "CLI0001", domain.StatusActive, time.Now().AddDate(0, 0, -1))
	svc := newTestService(repo)

	profile, err := svc.GetClientProfile(context.Background(), "CLI0001")
	if err != nil {
		t.Fatalf("GetClientProfile returned error: %v", err)
	}
	if profile.ProjectCount != 1 {
		t.Errorf("project count = %d, want 1", profile.ProjectCount)
	}
	if len(profile.Projects) != 1 {
		t.Fatalf("expected 1 expanded project, got %d", len(profile.Projects))
	}
	if profile.Projects[0].Status != domain.StatusExpired {
		t.Errorf("lapsed project served as %q in profile", profile.Projects[0].Status)
	}

	if _, err := svc.GetClientProfile(context.Background(), "CLI9999"); !errors.Is(err, store.ErrClientNotFound) {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
}
