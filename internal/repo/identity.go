package repo

import (
	"context"
	"errors"
	"fmt"

	"unitrack-api/internal/access"
	"unitrack-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdentityRepo resolves authenticated identities together with their grant
// records. It is the database-backed access.IdentityProvider.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

// NewIdentityRepo creates a new IdentityRepo
func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// ResolveIdentity loads the user row and both grant tables, assembling the
// project grants under their owning program grant. A missing user is
// reported as access.ErrIdentityUnavailable so the session lands in the
// denied state rather than treating it as an infrastructure failure.
func (r *IdentityRepo) ResolveIdentity(ctx context.Context, userID string) (*access.Identity, error) {
	query := `
		SELECT id, display_name, email, role, status, is_system_admin
		FROM users
		WHERE id = $1
	`

	ident := &access.Identity{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&ident.ID, &ident.DisplayName, &ident.Email,
		&ident.Role, &ident.Status, &ident.IsSystemAdmin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, access.ErrIdentityUnavailable)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	grants, err := r.loadGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	ident.Grants = grants

	return ident, nil
}

// loadGrants reads program grants and nests the project grants under them.
// Project grants whose program grant is gone are dropped: without a program
// membership they must not contribute visibility.
func (r *IdentityRepo) loadGrants(ctx context.Context, userID string) ([]domain.ProgramAccess, error) {
	programQuery := `
		SELECT program_id, role, access_level, granted_by, granted_at, expires_at
		FROM program_access
		WHERE user_id = $1
		ORDER BY granted_at
	`

	rows, err := r.pool.Query(ctx, programQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query program grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.ProgramAccess
	index := make(map[string]int)
	for rows.Next() {
		var pa domain.ProgramAccess
		err := rows.Scan(&pa.ProgramID, &pa.Role, &pa.AccessLevel, &pa.GrantedBy, &pa.GrantedAt, &pa.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("scan program grant: %w", err)
		}
		index[pa.ProgramID] = len(grants)
		grants = append(grants, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate program grants: %w", err)
	}

	projectQuery := `
		SELECT program_id, project_id, access_level, granted_by, granted_at, expires_at
		FROM project_access
		WHERE user_id = $1
		ORDER BY granted_at
	`

	projRows, err := r.pool.Query(ctx, projectQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query project grants: %w", err)
	}
	defer projRows.Close()

	for projRows.Next() {
		var programID string
		var pj domain.ProjectAccess
		err := projRows.Scan(&programID, &pj.ProjectID, &pj.AccessLevel, &pj.GrantedBy, &pj.GrantedAt, &pj.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("scan project grant: %w", err)
		}
		if i, ok := index[programID]; ok {
			pj.Role = grants[i].Role
			grants[i].Projects = append(grants[i].Projects, pj)
		}
	}
	if err := projRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project grants: %w", err)
	}

	return grants, nil
}
