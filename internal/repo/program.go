package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"unitrack-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrProgramNotFound indicates the program does not exist
	ErrProgramNotFound = errors.New("program not found")

	// ErrProgramCodeExists indicates the program code is already taken
	ErrProgramCodeExists = errors.New("program code already exists")
)

// ProgramRepo handles database operations for programs. It also serves as
// the access.ProgramRegistry feeding sessions their available-program set.
type ProgramRepo struct {
	pool *pgxpool.Pool
}

// NewProgramRepo creates a new ProgramRepo
func NewProgramRepo(pool *pgxpool.Pool) *ProgramRepo {
	return &ProgramRepo{pool: pool}
}

// ListPrograms returns all non-archived programs ordered by name.
func (r *ProgramRepo) ListPrograms(ctx context.Context) ([]domain.Program, error) {
	query := `
		SELECT id, name, code, status, settings, created_by, created_at, updated_at
		FROM programs
		WHERE status != $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, domain.ProgramStatusArchived)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer rows.Close()

	var programs []domain.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}

	return programs, nil
}

// GetByID returns one program, archived included.
func (r *ProgramRepo) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	query := `
		SELECT id, name, code, status, settings, created_by, created_at, updated_at
		FROM programs
		WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new program. A duplicate code maps to ErrProgramCodeExists.
func (r *ProgramRepo) Create(ctx context.Context, p *domain.Program) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("marshal program settings: %w", err)
	}

	query := `
		INSERT INTO programs (id, name, code, status, settings, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		p.ID, p.Name, p.Code, p.Status, settings, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProgramCodeExists
		}
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a program.
func (r *ProgramRepo) Update(ctx context.Context, p *domain.Program) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("marshal program settings: %w", err)
	}

	query := `
		UPDATE programs
		SET name = $2, status = $3, settings = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Status, settings).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProgramNotFound
		}
		return fmt.Errorf("update program: %w", err)
	}
	return nil
}

// Archive moves a program to the archived status. Archived programs keep
// their grant records but disappear from ListPrograms.
func (r *ProgramRepo) Archive(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE programs SET status = $2, updated_at = now() WHERE id = $1`,
		id, domain.ProgramStatusArchived)
	if err != nil {
		return fmt.Errorf("archive program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProgramNotFound
	}
	return nil
}

func scanProgram(row pgx.Row) (domain.Program, error) {
	var p domain.Program
	var settings []byte
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Status, &settings, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan program: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &p.Settings); err != nil {
			return p, fmt.Errorf("unmarshal program settings: %w", err)
		}
	}
	return p, nil
}
