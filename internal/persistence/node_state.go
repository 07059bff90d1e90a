package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/statemachine"
)

// NodeStateRepo is the repository for NodeState rows, keyed by (lab, node).
type NodeStateRepo struct{ db DB }

func (r *NodeStateRepo) Upsert(ctx context.Context, ns *models.NodeState) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO node_states (lab_id, node_id, desired_state, actual_state, is_ready, host_id, entered_state_at, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
		ON CONFLICT (lab_id, node_id) DO UPDATE SET
			desired_state = EXCLUDED.desired_state,
			actual_state  = EXCLUDED.actual_state,
			is_ready      = EXCLUDED.is_ready,
			host_id       = EXCLUDED.host_id,
			last_error    = EXCLUDED.last_error,
			updated_at    = now()`,
		ns.LabID, ns.NodeID, ns.DesiredState, ns.ActualState, ns.IsReady, ns.HostID, ns.LastError)
	return err
}

func (r *NodeStateRepo) Get(ctx context.Context, labID, nodeID string) (*models.NodeState, error) {
	row := r.db.QueryRow(ctx, `
		SELECT lab_id, node_id, desired_state, actual_state, is_ready, enforcement_attempts,
		       enforcement_failed_at, host_id, entered_state_at, last_error,
		       image_sync_status, image_sync_progress, created_at, updated_at
		FROM node_states WHERE lab_id = $1 AND node_id = $2`, labID, nodeID)
	ns, err := scanNodeState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	return ns, err
}

func (r *NodeStateRepo) ListByLab(ctx context.Context, labID string) ([]*models.NodeState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT lab_id, node_id, desired_state, actual_state, is_ready, enforcement_attempts,
		       enforcement_failed_at, host_id, entered_state_at, last_error,
		       image_sync_status, image_sync_progress, created_at, updated_at
		FROM node_states WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.NodeState
	for rows.Next() {
		ns, err := scanNodeState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// TransitionActualState updates actual_state, validating the move is legal
// per the StateMachine transition table (spec invariant 3 / §4.4).
func (r *NodeStateRepo) TransitionActualState(ctx context.Context, labID, nodeID string, to models.NodeActualState, errMsg string) error {
	current, err := r.Get(ctx, labID, nodeID)
	if err != nil {
		return err
	}
	if !statemachine.NodeTransitionAllowed(current.ActualState, to) {
		return apierrors.New(models.CategoryConflict, "illegal node state transition", map[string]any{
			"from": current.ActualState, "to": to,
		})
	}
	_, err = r.db.Exec(ctx, `
		UPDATE node_states SET actual_state = $3, last_error = $4, entered_state_at = now(), updated_at = now()
		WHERE lab_id = $1 AND node_id = $2`, labID, nodeID, to, errMsg)
	return err
}

func (r *NodeStateRepo) IncrementEnforcementAttempts(ctx context.Context, labID, nodeID string, failedAtLimit bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE node_states SET
			enforcement_attempts = enforcement_attempts + 1,
			enforcement_failed_at = CASE WHEN $3 THEN now() ELSE enforcement_failed_at END,
			updated_at = now()
		WHERE lab_id = $1 AND node_id = $2`, labID, nodeID, failedAtLimit)
	return err
}

func (r *NodeStateRepo) ClearEnforcementFailure(ctx context.Context, labID, nodeID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE node_states SET enforcement_attempts = 0, enforcement_failed_at = NULL, updated_at = now()
		WHERE lab_id = $1 AND node_id = $2`, labID, nodeID)
	return err
}

func (r *NodeStateRepo) SetDesiredState(ctx context.Context, labID, nodeID string, desired models.NodeDesiredState) error {
	_, err := r.db.Exec(ctx, `
		UPDATE node_states SET desired_state = $3, updated_at = now() WHERE lab_id = $1 AND node_id = $2`,
		labID, nodeID, desired)
	return err
}

func (r *NodeStateRepo) Delete(ctx context.Context, labID, nodeID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM node_states WHERE lab_id = $1 AND node_id = $2`, labID, nodeID)
	return err
}

func scanNodeState(row rowScanner) (*models.NodeState, error) {
	var ns models.NodeState
	if err := row.Scan(&ns.LabID, &ns.NodeID, &ns.DesiredState, &ns.ActualState, &ns.IsReady,
		&ns.EnforcementAttempts, &ns.EnforcementFailedAt, &ns.HostID, &ns.EnteredStateAt, &ns.LastError,
		&ns.ImageSyncStatus, &ns.ImageSyncProgress, &ns.CreatedAt, &ns.UpdatedAt); err != nil {
		return nil, err
	}
	return &ns, nil
}
