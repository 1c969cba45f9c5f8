/**
 * @description
 * This file provides the PostgreSQL implementation of the repository used by
 * the application service. It contains all the SQL for clients, projects,
 * admins, the renewal ledger, and the expiry sweep.
 *
 * The renewal ledger lives in a jsonb column on the projects row so a
 * renewal commits as a single UPDATE: history append, status, expiry and
 * payment references either all land or none do. A version column guards
 * the update so concurrent renewals of the same project cannot interleave;
 * the loser sees ErrConcurrentModification.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/renewly/renewal-service/internal/domain"
)

var (
	ErrAdminNotFound          = errors.New("admin not found")
	ErrClientNotFound         = errors.New("client not found")
	ErrProjectNotFound        = errors.New("project not found")
	ErrDuplicateAdmin         = errors.New("admin with this user id already exists")
	ErrDuplicateEmail         = errors.New("client with this email already exists")
	ErrDuplicateClientID      = errors.New("client id already exists")
	ErrDuplicateProjectID     = errors.New("project id already exists")
	ErrClientHasProjects      = errors.New("client still owns projects")
	ErrConcurrentModification = errors.New("project was modified concurrently")
)

const clientColumns = `id, client_id, name, email, is_active, last_login_at, project_ids, created_at, updated_at`

const projectColumns = `id, project_id, name, description, assigned_to, status, start_date, expiry_date,
	renewal_cost, service_provider, last_payment_id, last_order_id, renewal_history, version, created_at, updated_at`

// PostgresRepository is the concrete pgx-backed repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// clientUniqueError maps a unique violation on the clients table to the
// sentinel for the constraint that fired, or nil for other errors. The
// clients table has two unique keys: a concurrent creation can slip past the
// identifier re-check and land on client_id, which must not be reported as a
// duplicate email.
func clientUniqueError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "client_id") {
		return ErrDuplicateClientID
	}
	return ErrDuplicateEmail
}

// ---------------------------------------------------------------------------
// Admins
// ---------------------------------------------------------------------------

// FindAdminByUserID retrieves an admin, including the password hash, for
// credential verification.
func (r *PostgresRepository) FindAdminByUserID(ctx context.Context, userID string) (*domain.Admin, error) {
	var admin domain.Admin
	query := `SELECT id, user_id, password_hash, last_login_at, created_at FROM admins WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&admin.ID,
		&admin.UserID,
		&admin.PasswordHash,
		&admin.LastLoginAt,
		&admin.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// CreateAdmin inserts a new admin principal.
func (r *PostgresRepository) CreateAdmin(ctx context.Context, userID, passwordHash string) (*domain.Admin, error) {
	var admin domain.Admin
	query := `
		INSERT INTO admins (user_id, password_hash)
		VALUES ($1, $2)
		RETURNING id, user_id, last_login_at, created_at
	`
	err := r.db.QueryRow(ctx, query, userID, passwordHash).Scan(
		&admin.ID,
		&admin.UserID,
		&admin.LastLoginAt,
		&admin.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAdmin
		}
		return nil, err
	}
	return &admin, nil
}

// TouchAdminLogin records a successful admin login.
func (r *PostgresRepository) TouchAdminLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE admins SET last_login_at = $2 WHERE user_id = $1`, userID, at)
	return err
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

func scanClient(row pgx.Row, c *domain.Client) error {
	return row.Scan(
		&c.ID,
		&c.ClientID,
		&c.Name,
		&c.Email,
		&c.IsActive,
		&c.LastLoginAt,
		&c.ProjectIDs,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// FindClientByClientID retrieves a client without its credential hash.
func (r *PostgresRepository) FindClientByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	var c domain.Client
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE client_id = upper($1)`, clientColumns)
	if err := scanClient(r.db.QueryRow(ctx, query, clientID), &c); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindClientCredentials retrieves a client including the password hash.
// Used only by the login flow.
func (r *PostgresRepository) FindClientCredentials(ctx context.Context, clientID string) (*domain.Client, error) {
	var c domain.Client
	query := `
		SELECT id, client_id, name, email, password_hash, is_active, last_login_at, project_ids, created_at, updated_at
		FROM clients
		WHERE client_id = upper($1)
	`
	err := r.db.QueryRow(ctx, query, clientID).Scan(
		&c.ID,
		&c.ClientID,
		&c.Name,
		&c.Email,
		&c.PasswordHash,
		&c.IsActive,
		&c.LastLoginAt,
		&c.ProjectIDs,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindClientByEmail retrieves a client by normalized email.
func (r *PostgresRepository) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	var c domain.Client
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE email = lower($1)`, clientColumns)
	if err := scanClient(r.db.QueryRow(ctx, query, email), &c); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateClient inserts a new client record.
func (r *PostgresRepository) CreateClient(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	var created domain.Client
	query := `
		INSERT INTO clients (client_id, name, email, password_hash, is_active, project_ids)
		VALUES (upper($1), $2, lower($3), $4, TRUE, '{}')
		RETURNING ` + clientColumns
	if err := scanClient(r.db.QueryRow(ctx, query, c.ClientID, c.Name, c.Email, c.PasswordHash), &created); err != nil {
		if uniqueErr := clientUniqueError(err); uniqueErr != nil {
			return nil, uniqueErr
		}
		return nil, err
	}
	return &created, nil
}

// ListClients returns all clients, newest first.
func (r *PostgresRepository) ListClients(ctx context.Context) ([]domain.Client, error) {
	query := fmt.Sprintf(`SELECT %s FROM clients ORDER BY created_at DESC`, clientColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := scanClient(rows, &c); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdateClientFields applies a partial update to a client's name and email.
func (r *PostgresRepository) UpdateClientFields(ctx context.Context, clientID string, name, email *string) (*domain.Client, error) {
	var c domain.Client
	query := `
		UPDATE clients
		SET name = COALESCE($2, name),
		    email = COALESCE(lower($3), email),
		    updated_at = NOW()
		WHERE client_id = upper($1)
		RETURNING ` + clientColumns
	if err := scanClient(r.db.QueryRow(ctx, query, clientID, name, email), &c); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrClientNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &c, nil
}

// SetClientActive flips a client's active flag.
func (r *PostgresRepository) SetClientActive(ctx context.Context, clientID string, active bool) (*domain.Client, error) {
	var c domain.Client
	query := `
		UPDATE clients SET is_active = $2, updated_at = NOW()
		WHERE client_id = upper($1)
		RETURNING ` + clientColumns
	if err := scanClient(r.db.QueryRow(ctx, query, clientID, active), &c); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// DeleteClient removes a client. Deletion is blocked while the client still
// owns projects so project rows can never dangle.
func (r *PostgresRepository) DeleteClient(ctx context.Context, clientID string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM clients
		WHERE client_id = upper($1) AND cardinality(project_ids) = 0
	`, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "missing" from "still owns projects".
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = upper($1))`, clientID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrClientHasProjects
		}
		return ErrClientNotFound
	}
	return nil
}

// TouchClientLogin records a successful client login.
func (r *PostgresRepository) TouchClientLogin(ctx context.Context, clientID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE clients SET last_login_at = $2 WHERE client_id = upper($1)`, clientID, at)
	return err
}

// CountClients returns the total number of clients, used as the sequence
// hint for identifier generation.
func (r *PostgresRepository) CountClients(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count)
	return count, err
}

// ClientIDExists checks identifier uniqueness before committing to it.
func (r *PostgresRepository) ClientIDExists(ctx context.Context, clientID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = upper($1))`, clientID).Scan(&exists)
	return exists, err
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func scanProject(row pgx.Row, p *domain.Project) error {
	var history []byte
	err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.Name,
		&p.Description,
		&p.AssignedTo,
		&p.Status,
		&p.StartDate,
		&p.ExpiryDate,
		&p.RenewalCost,
		&p.ServiceProvider,
		&p.LastPaymentID,
		&p.LastOrderID,
		&history,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.RenewalHistory); err != nil {
			return fmt.Errorf("failed to decode renewal history for %s: %w", p.ProjectID, err)
		}
	}
	return nil
}

// CreateProject inserts a project and links it to the owning client in one
// transaction.
func (r *PostgresRepository) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var created domain.Project
	query := `
		INSERT INTO projects (project_id, name, description, assigned_to, status, start_date, expiry_date, renewal_cost, service_provider, renewal_history)
		VALUES (upper($1), $2, $3, upper($4), $5, $6, $7, $8, $9, '[]')
		RETURNING ` + projectColumns
	err = scanProject(tx.QueryRow(ctx, query,
		p.ProjectID,
		p.Name,
		p.Description,
		p.AssignedTo,
		p.Status,
		p.StartDate,
		p.ExpiryDate,
		p.RenewalCost,
		p.ServiceProvider,
	), &created)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateProjectID
		}
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE clients SET project_ids = array_append(project_ids, $2), updated_at = NOW()
		WHERE client_id = upper($1)
	`, p.AssignedTo, created.ProjectID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrClientNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindProjectByProjectID retrieves a single project.
func (r *PostgresRepository) FindProjectByProjectID(ctx context.Context, projectID string) (*domain.Project, error) {
	var p domain.Project
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE project_id = upper($1)`, projectColumns)
	if err := scanProject(r.db.QueryRow(ctx, query, projectID), &p); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindProjectForClient retrieves a project only if it belongs to the client.
func (r *PostgresRepository) FindProjectForClient(ctx context.Context, clientID, projectID string) (*domain.Project, error) {
	var p domain.Project
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE project_id = upper($1) AND assigned_to = upper($2)`, projectColumns)
	if err := scanProject(r.db.QueryRow(ctx, query, projectID, clientID), &p); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) queryProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListProjects returns all projects, newest first.
func (r *PostgresRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects ORDER BY created_at DESC`, projectColumns)
	return r.queryProjects(ctx, query)
}

// ListProjectsByClient returns a client's projects, newest first.
func (r *PostgresRepository) ListProjectsByClient(ctx context.Context, clientID string) ([]domain.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE assigned_to = upper($1) ORDER BY created_at DESC`, projectColumns)
	return r.queryProjects(ctx, query, clientID)
}

// ListActiveProjectsExpiringBy returns active projects whose expiry falls in
// (now, before], soonest first. An empty clientID matches all clients.
func (r *PostgresRepository) ListActiveProjectsExpiringBy(ctx context.Context, clientID string, now, before time.Time) ([]domain.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM projects
		WHERE status = 'active'
		  AND expiry_date > $1
		  AND expiry_date <= $2
		  AND ($3 = '' OR assigned_to = upper($3))
		ORDER BY expiry_date ASC
	`, projectColumns)
	return r.queryProjects(ctx, query, now, before, clientID)
}

// ProjectUpdate carries the optional fields of a partial project update.
// Nil means "leave unchanged"; ClearProvider empties service_provider.
type ProjectUpdate struct {
	Name          *string
	Description   *string
	ExpiryDate    *time.Time
	RenewalCost   *float64
	Status        *string
	Provider      *string
	ClearProvider bool
}

// UpdateProjectFields applies a partial update to a project.
func (r *PostgresRepository) UpdateProjectFields(ctx context.Context, projectID string, upd ProjectUpdate) (*domain.Project, error) {
	var p domain.Project
	query := `
		UPDATE projects
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    expiry_date = COALESCE($4, expiry_date),
		    renewal_cost = COALESCE($5, renewal_cost),
		    status = COALESCE($6, status),
		    service_provider = CASE WHEN $8 THEN NULL ELSE COALESCE($7, service_provider) END,
		    version = version + 1,
		    updated_at = NOW()
		WHERE project_id = upper($1)
		RETURNING ` + projectColumns
	err := scanProject(r.db.QueryRow(ctx, query,
		projectID,
		upd.Name,
		upd.Description,
		upd.ExpiryDate,
		upd.RenewalCost,
		upd.Status,
		upd.Provider,
		upd.ClearProvider,
	), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ReassignProject moves a project to another client, keeping both clients'
// reference arrays consistent in one transaction.
func (r *PostgresRepository) ReassignProject(ctx context.Context, projectID, newClientID string) (*domain.Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var p domain.Project
	query := `
		UPDATE projects SET assigned_to = upper($2), version = version + 1, updated_at = NOW()
		WHERE project_id = upper($1)
		RETURNING ` + projectColumns
	if err := scanProject(tx.QueryRow(ctx, query, projectID, newClientID), &p); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE clients SET project_ids = array_remove(project_ids, $1), updated_at = NOW()
		WHERE $1 = ANY(project_ids) AND client_id <> upper($2)
	`, p.ProjectID, newClientID); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE clients SET project_ids = array_append(project_ids, $2), updated_at = NOW()
		WHERE client_id = upper($1) AND NOT ($2 = ANY(project_ids))
	`, newClientID, p.ProjectID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Either the target client is missing or the ref already exists;
		// verify the client before committing.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = upper($1))`, newClientID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrClientNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetProjectStatus sets a project's status directly (admin action).
func (r *PostgresRepository) SetProjectStatus(ctx context.Context, projectID, status string) (*domain.Project, error) {
	var p domain.Project
	query := `
		UPDATE projects SET status = $2, version = version + 1, updated_at = NOW()
		WHERE project_id = upper($1)
		RETURNING ` + projectColumns
	if err := scanProject(r.db.QueryRow(ctx, query, projectID, status), &p); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes a project and pulls its reference from the owning
// client in the same transaction.
func (r *PostgresRepository) DeleteProject(ctx context.Context, projectID string) (*domain.Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var p domain.Project
	query := `DELETE FROM projects WHERE project_id = upper($1) RETURNING ` + projectColumns
	if err := scanProject(tx.QueryRow(ctx, query, projectID), &p); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE clients SET project_ids = array_remove(project_ids, $2), updated_at = NOW()
		WHERE client_id = upper($1)
	`, p.AssignedTo, p.ProjectID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// CountProjects returns the total number of projects, used as the sequence
// hint for identifier generation.
func (r *PostgresRepository) CountProjects(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}

// ProjectIDExists checks identifier uniqueness before committing to it.
func (r *PostgresRepository) ProjectIDExists(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE project_id = upper($1))`, projectID).Scan(&exists)
	return exists, err
}

// CountProjectsByStatus partitions projects by stored status, optionally
// scoped to one client. Callers run the expiry sweep first so stored
// statuses are current.
func (r *PostgresRepository) CountProjectsByStatus(ctx context.Context, clientID string) (domain.StatusCounts, error) {
	var counts domain.StatusCounts
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*) FROM projects
		WHERE ($1 = '' OR assigned_to = upper($1))
		GROUP BY status
	`, clientID)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		counts.Total += n
		switch status {
		case domain.StatusActive:
			counts.Active = n
		case domain.StatusExpired:
			counts.Expired = n
		case domain.StatusRenewed:
			counts.Renewed = n
		case domain.StatusCancelled:
			counts.Cancelled = n
		}
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------------------------
// Renewal and sweep
// ---------------------------------------------------------------------------

// RenewProject commits a renewal as one conditional UPDATE: the ledger
// append, status, expiry and payment references land atomically, guarded by
// the version the caller read. A zero row count with the project still
// present means another writer won the race.
func (r *PostgresRepository) RenewProject(ctx context.Context, projectID string, expectedVersion int64, rec domain.RenewalRecord) (*domain.Project, error) {
	entry, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode renewal record: %w", err)
	}

	var p domain.Project
	query := `
		UPDATE projects
		SET status = 'renewed',
		    expiry_date = $3,
		    last_payment_id = $4,
		    last_order_id = $5,
		    renewal_history = renewal_history || $6::jsonb,
		    version = version + 1,
		    updated_at = NOW()
		WHERE project_id = upper($1) AND version = $2
		RETURNING ` + projectColumns
	err = scanProject(r.db.QueryRow(ctx, query,
		projectID,
		expectedVersion,
		rec.NewExpiryDate,
		rec.PaymentID,
		rec.OrderID,
		entry,
	), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			exists, existsErr := r.ProjectIDExists(ctx, projectID)
			if existsErr != nil {
				return nil, existsErr
			}
			if exists {
				return nil, ErrConcurrentModification
			}
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SweepExpired marks every lapsed active project as expired in bulk.
// Running it twice in a row changes nothing the second time.
func (r *PostgresRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE projects SET status = 'expired', updated_at = NOW()
		WHERE expiry_date < $1 AND status = 'active'
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
