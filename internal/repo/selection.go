package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SelectionRepo persists each user's current program choice so a later
// session can restore it. It is the database-backed access.SelectionStore.
type SelectionRepo struct {
	pool *pgxpool.Pool
}

// NewSelectionRepo creates a new SelectionRepo
func NewSelectionRepo(pool *pgxpool.Pool) *SelectionRepo {
	return &SelectionRepo{pool: pool}
}

// SaveProgramSelection upserts the selection for the user.
func (r *SelectionRepo) SaveProgramSelection(ctx context.Context, userID, programID string) error {
	query := `
		INSERT INTO program_selections (user_id, program_id, selected_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			program_id = EXCLUDED.program_id,
			selected_at = now()
	`

	if _, err := r.pool.Exec(ctx, query, userID, programID); err != nil {
		return fmt.Errorf("save program selection: %w", err)
	}
	return nil
}

// LoadProgramSelection returns the stored selection, or empty when the user
// has never selected a program.
func (r *SelectionRepo) LoadProgramSelection(ctx context.Context, userID string) (string, error) {
	var programID string
	err := r.pool.QueryRow(ctx,
		`SELECT program_id FROM program_selections WHERE user_id = $1`, userID).Scan(&programID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load program selection: %w", err)
	}
	return programID, nil
}
