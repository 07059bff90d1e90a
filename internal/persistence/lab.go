package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// LabRepo is the repository for Lab rows.
type LabRepo struct{ db DB }

func (r *LabRepo) Create(ctx context.Context, l *models.Lab) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO labs (id, name, owner_id, provider, state, state_error, workspace_path, default_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.Name, l.OwnerID, l.Provider, l.State, l.StateError, l.WorkspacePath, l.DefaultAgent)
	return err
}

func (r *LabRepo) Get(ctx context.Context, id string) (*models.Lab, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, owner_id, provider, state, state_error, workspace_path, default_agent, created_at, updated_at
		FROM labs WHERE id = $1`, id)
	var l models.Lab
	err := row.Scan(&l.ID, &l.Name, &l.OwnerID, &l.Provider, &l.State, &l.StateError, &l.WorkspacePath, &l.DefaultAgent, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LabRepo) SetState(ctx context.Context, id string, state models.LabState, stateError string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE labs SET state = $2, state_error = $3, updated_at = now() WHERE id = $1`,
		id, state, stateError)
	return err
}

func (r *LabRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM labs WHERE id = $1`, id)
	return err
}

func (r *LabRepo) List(ctx context.Context, ownerID string) ([]*models.Lab, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, owner_id, provider, state, state_error, workspace_path, default_agent, created_at, updated_at
		FROM labs WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLabRows(rows)
}

// ListAll returns every lab regardless of owner, used by background
// passes (reconciliation, cleanup) that operate across the whole fleet.
func (r *LabRepo) ListAll(ctx context.Context) ([]*models.Lab, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, owner_id, provider, state, state_error, workspace_path, default_agent, created_at, updated_at
		FROM labs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLabRows(rows)
}

func scanLabRows(rows pgx.Rows) ([]*models.Lab, error) {
	var out []*models.Lab
	for rows.Next() {
		var l models.Lab
		if err := rows.Scan(&l.ID, &l.Name, &l.OwnerID, &l.Provider, &l.State, &l.StateError, &l.WorkspacePath, &l.DefaultAgent, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
