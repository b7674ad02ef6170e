package repo

import (
	"context"
	"errors"
	"fmt"

	"unitrack-api/internal/access"
	"unitrack-api/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrGrantNotFound indicates the grant to revoke does not exist
	ErrGrantNotFound = errors.New("grant not found")

	// ErrRequestNotFound indicates there is no pending access request for the user
	ErrRequestNotFound = errors.New("access request not found")
)

// GrantRepo persists grant records and access requests. It is the
// database-backed access.GrantStore; every mutation also lands in the audit
// trail, best effort, without failing the mutation itself.
type GrantRepo struct {
	pool  *pgxpool.Pool
	audit *AuditRepo
}

// NewGrantRepo creates a new GrantRepo
func NewGrantRepo(pool *pgxpool.Pool, audit *AuditRepo) *GrantRepo {
	return &GrantRepo{pool: pool, audit: audit}
}

// ListUsers returns the user directory ordered by display name.
func (r *GrantRepo) ListUsers(ctx context.Context) ([]access.UserSummary, error) {
	query := `
		SELECT id, display_name, email, role, status
		FROM users
		ORDER BY display_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []access.UserSummary
	for rows.Next() {
		var u access.UserSummary
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Email, &u.Role, &u.Status); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// ListPendingAccessRequests returns users awaiting an approval decision,
// oldest request first.
func (r *GrantRepo) ListPendingAccessRequests(ctx context.Context) ([]access.PendingAccessRequest, error) {
	query := `
		SELECT ar.user_id, u.display_name, u.email, ar.requested_at, ar.notes
		FROM access_requests ar
		JOIN users u ON u.id = ar.user_id
		WHERE ar.status = 'pending'
		ORDER BY ar.requested_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query access requests: %w", err)
	}
	defer rows.Close()

	var requests []access.PendingAccessRequest
	for rows.Next() {
		var req access.PendingAccessRequest
		if err := rows.Scan(&req.UserID, &req.DisplayName, &req.Email, &req.RequestedAt, &req.Notes); err != nil {
			return nil, fmt.Errorf("scan access request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access requests: %w", err)
	}

	return requests, nil
}

// CreateProgramGrant upserts a program grant. A re-grant for the same
// user/program pair replaces the previous record: last write wins.
func (r *GrantRepo) CreateProgramGrant(ctx context.Context, grant access.ProgramGrant) error {
	query := `
		INSERT INTO program_access (user_id, program_id, role, access_level, granted_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, program_id) DO UPDATE SET
			role = EXCLUDED.role,
			access_level = EXCLUDED.access_level,
			granted_by = EXCLUDED.granted_by,
			granted_at = now(),
			expires_at = EXCLUDED.expires_at
	`

	_, err := r.pool.Exec(ctx, query,
		grant.UserID, grant.ProgramID, grant.Role, grant.AccessLevel, grant.GrantedBy, grant.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create program grant: %w", err)
	}

	r.logEvent(ctx, grant.GrantedBy, grant.UserID, "program_grant_created", &grant.ProgramID, nil,
		map[string]interface{}{"access_level": string(grant.AccessLevel), "role": string(grant.Role)})
	return nil
}

// CreateProjectGrant upserts a project grant, last write wins.
func (r *GrantRepo) CreateProjectGrant(ctx context.Context, grant access.ProjectGrant) error {
	query := `
		INSERT INTO project_access (user_id, project_id, program_id, access_level, granted_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, project_id) DO UPDATE SET
			program_id = EXCLUDED.program_id,
			access_level = EXCLUDED.access_level,
			granted_by = EXCLUDED.granted_by,
			granted_at = now(),
			expires_at = EXCLUDED.expires_at
	`

	_, err := r.pool.Exec(ctx, query,
		grant.UserID, grant.ProjectID, grant.ProgramID, grant.AccessLevel, grant.GrantedBy, grant.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create project grant: %w", err)
	}

	r.logEvent(ctx, grant.GrantedBy, grant.UserID, "project_grant_created", &grant.ProgramID, &grant.ProjectID,
		map[string]interface{}{"access_level": string(grant.AccessLevel)})
	return nil
}

// DeleteProgramGrant revokes a program grant and the project grants that
// depended on it, in one transaction.
func (r *GrantRepo) DeleteProgramGrant(ctx context.Context, userID, programID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin revoke: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM program_access WHERE user_id = $1 AND program_id = $2`, userID, programID)
	if err != nil {
		return fmt.Errorf("delete program grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM project_access WHERE user_id = $1 AND program_id = $2`, userID, programID)
	if err != nil {
		return fmt.Errorf("delete dependent project grants: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit revoke: %w", err)
	}

	r.logEvent(ctx, "", userID, "program_grant_revoked", &programID, nil, nil)
	return nil
}

// DeleteProjectGrant revokes a single project grant.
func (r *GrantRepo) DeleteProjectGrant(ctx context.Context, userID, projectID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM project_access WHERE user_id = $1 AND project_id = $2`, userID, projectID)
	if err != nil {
		return fmt.Errorf("delete project grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}

	r.logEvent(ctx, "", userID, "project_grant_revoked", nil, &projectID, nil)
	return nil
}

// ApproveAccessRequest activates the user with the decided role and marks
// the request approved, atomically.
func (r *GrantRepo) ApproveAccessRequest(ctx context.Context, userID string, role domain.Role, notes string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin approve: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE access_requests
		SET status = 'approved', decided_at = now(), notes = $2
		WHERE user_id = $1 AND status = 'pending'
	`, userID, notes)
	if err != nil {
		return fmt.Errorf("approve access request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET role = $2, status = $3, updated_at = now()
		WHERE id = $1
	`, userID, role, domain.UserStatusActive)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit approve: %w", err)
	}

	r.logEvent(ctx, "", userID, "access_request_approved", nil, nil,
		map[string]interface{}{"role": string(role), "notes": notes})
	return nil
}

// DenyAccessRequest marks the request denied and suspends the account.
func (r *GrantRepo) DenyAccessRequest(ctx context.Context, userID string, notes string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deny: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE access_requests
		SET status = 'denied', decided_at = now(), notes = $2
		WHERE user_id = $1 AND status = 'pending'
	`, userID, notes)
	if err != nil {
		return fmt.Errorf("deny access request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, userID, domain.UserStatusSuspended)
	if err != nil {
		return fmt.Errorf("suspend user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deny: %w", err)
	}

	r.logEvent(ctx, "", userID, "access_request_denied", nil, nil,
		map[string]interface{}{"notes": notes})
	return nil
}

// CleanupExpiredGrants deletes grant rows whose expiry has passed. Sessions
// already ignore expired grants at profile build time; this removes the dead
// rows so identity loading stops paying for them.
func (r *GrantRepo) CleanupExpiredGrants(ctx context.Context) (int64, error) {
	projTag, err := r.pool.Exec(ctx,
		`DELETE FROM project_access WHERE expires_at IS NOT NULL AND expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup project grants: %w", err)
	}

	progTag, err := r.pool.Exec(ctx,
		`DELETE FROM program_access WHERE expires_at IS NOT NULL AND expires_at < now()`)
	if err != nil {
		return projTag.RowsAffected(), fmt.Errorf("cleanup program grants: %w", err)
	}

	return projTag.RowsAffected() + progTag.RowsAffected(), nil
}

// logEvent writes an audit row without propagating its failure: losing an
// audit line must not undo a committed grant mutation.
func (r *GrantRepo) logEvent(ctx context.Context, actorID, subjectID, action string, programID, projectID *string, detail map[string]interface{}) {
	if r.audit == nil {
		return
	}
	_ = r.audit.LogAccessEvent(ctx, actorID, subjectID, action, programID, projectID, detail)
}
