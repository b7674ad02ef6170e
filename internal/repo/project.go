package repo

import (
	"context"
	"errors"
	"fmt"

	"unitrack-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrProjectNotFound indicates the project does not exist
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectCodeExists indicates the code is already used in the program
	ErrProjectCodeExists = errors.New("project code already exists in program")
)

// ProjectRepo handles database operations for projects.
type ProjectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepo creates a new ProjectRepo
func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

// ListByProgram returns every project belonging to the program, ordered by
// name. Tenant filtering by program id happens here, never in the handler.
func (r *ProjectRepo) ListByProgram(ctx context.Context, programID string) ([]domain.Project, error) {
	query := `
		SELECT id, program_id, name, code, status, created_by, created_at, updated_at
		FROM projects
		WHERE program_id = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		err := rows.Scan(&p.ID, &p.ProgramID, &p.Name, &p.Code, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// GetByID returns one project scoped to its program. A project id from
// another program yields ErrProjectNotFound, not a leak.
func (r *ProjectRepo) GetByID(ctx context.Context, programID, projectID string) (*domain.Project, error) {
	query := `
		SELECT id, program_id, name, code, status, created_by, created_at, updated_at
		FROM projects
		WHERE id = $1 AND program_id = $2
	`

	var p domain.Project
	err := r.pool.QueryRow(ctx, query, projectID, programID).Scan(
		&p.ID, &p.ProgramID, &p.Name, &p.Code, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("query project: %w", err)
	}
	return &p, nil
}

// Create inserts a new project. Codes are unique per program; a duplicate
// maps to ErrProjectCodeExists.
func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `
		INSERT INTO projects (id, program_id, name, code, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.ProgramID, p.Name, p.Code, p.Status, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProjectCodeExists
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a project.
func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $3, status = $4, updated_at = now()
		WHERE id = $1 AND program_id = $2
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, p.ID, p.ProgramID, p.Name, p.Status).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// Delete removes a project. Grant rows pointing at it go with it via the
// foreign key cascade.
func (r *ProjectRepo) Delete(ctx context.Context, programID, projectID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND program_id = $2`, projectID, programID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}
