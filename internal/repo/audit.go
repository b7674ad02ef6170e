package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepo appends access-control events to the audit trail. Every grant
// mutation and approval decision is recorded with the acting and affected
// user.
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepo creates a new AuditRepo
func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// LogAccessEvent records one audit row. Detail is optional structured
// context (grant level, notes); program and project ids are nil for
// system-level events.
func (r *AuditRepo) LogAccessEvent(
	ctx context.Context,
	actorID, subjectID, action string,
	programID, projectID *string,
	detail map[string]interface{},
) error {
	var detailJSON []byte
	var err error

	if detail != nil {
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("failed to marshal detail: %w", err)
		}
	} else {
		detailJSON = []byte(`{}`)
	}

	query := `
		INSERT INTO access_audit (actor_id, subject_id, action, program_id, project_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query, actorID, subjectID, action, programID, projectID, detailJSON)
	if err != nil {
		return fmt.Errorf("failed to log access event: %w", err)
	}

	return nil
}
