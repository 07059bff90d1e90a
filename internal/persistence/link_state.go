package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// LinkStateRepo is the repository for LinkState rows. ClaimNeedingReconciliation uses
// SELECT ... FOR UPDATE SKIP LOCKED so that a slow reconciler pass never
// blocks, and never double-processes, a row another pass already holds
// (spec §4.1, §4.7, §9, §5 "row-level locking").
type LinkStateRepo struct{ db DB }

func (r *LinkStateRepo) Upsert(ctx context.Context, ls *models.LinkState) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO link_states (
			lab_id, link_id, desired_state, actual_state, error_message, is_cross_host,
			source_host_id, target_host_id, source_vxlan_attached, target_vxlan_attached,
			source_carrier_state, target_carrier_state, vni, source_vlan_tag, target_vlan_tag,
			source_oper_state, source_oper_reason, target_oper_state, target_oper_reason, oper_epoch)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (lab_id, link_id) DO UPDATE SET
			desired_state = EXCLUDED.desired_state,
			actual_state = EXCLUDED.actual_state,
			error_message = EXCLUDED.error_message,
			is_cross_host = EXCLUDED.is_cross_host,
			source_host_id = EXCLUDED.source_host_id,
			target_host_id = EXCLUDED.target_host_id,
			source_vxlan_attached = EXCLUDED.source_vxlan_attached,
			target_vxlan_attached = EXCLUDED.target_vxlan_attached,
			source_carrier_state = EXCLUDED.source_carrier_state,
			target_carrier_state = EXCLUDED.target_carrier_state,
			vni = EXCLUDED.vni,
			source_vlan_tag = EXCLUDED.source_vlan_tag,
			target_vlan_tag = EXCLUDED.target_vlan_tag,
			source_oper_state = EXCLUDED.source_oper_state,
			source_oper_reason = EXCLUDED.source_oper_reason,
			target_oper_state = EXCLUDED.target_oper_state,
			target_oper_reason = EXCLUDED.target_oper_reason,
			oper_epoch = EXCLUDED.oper_epoch,
			updated_at = now()`,
		ls.LabID, ls.LinkID, ls.DesiredState, ls.ActualState, ls.ErrorMessage, ls.IsCrossHost,
		ls.SourceHostID, ls.TargetHostID, ls.SourceVxlanAttached, ls.TargetVxlanAttached,
		ls.SourceCarrierState, ls.TargetCarrierState, ls.VNI, ls.SourceVlanTag, ls.TargetVlanTag,
		ls.SourceOperState, ls.SourceOperReason, ls.TargetOperState, ls.TargetOperReason, ls.OperEpoch)
	return err
}

func (r *LinkStateRepo) Get(ctx context.Context, labID, linkID string) (*models.LinkState, error) {
	row := r.db.QueryRow(ctx, linkStateSelect+` WHERE lab_id = $1 AND link_id = $2`, labID, linkID)
	ls, err := scanLinkState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	return ls, err
}

func (r *LinkStateRepo) ListByLab(ctx context.Context, labID string) ([]*models.LinkState, error) {
	rows, err := r.db.Query(ctx, linkStateSelect+` WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinkStateRows(rows)
}

// ClaimNeedingReconciliation selects link states matching spec §4.7's query
// pattern — desired=up AND (actual IN (up, error) OR cross-host with a
// partial attachment) — locking each returned row FOR UPDATE SKIP LOCKED
// so a concurrent pass gets a disjoint subset. Must be called inside a
// transaction; caller is responsible for committing once repair attempts
// for the batch are done.
func (r *LinkStateRepo) ClaimNeedingReconciliation(ctx context.Context, tx pgx.Tx, limit int) ([]*models.LinkState, error) {
	rows, err := tx.Query(ctx, linkStateSelect+`
		WHERE desired_state = 'up'
		  AND (actual_state IN ('up', 'error')
		       OR (is_cross_host AND (NOT source_vxlan_attached OR NOT target_vxlan_attached)))
		ORDER BY updated_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinkStateRows(rows)
}

func (r *LinkStateRepo) Delete(ctx context.Context, labID, linkID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM link_states WHERE lab_id = $1 AND link_id = $2`, labID, linkID)
	return err
}

// ListOrphans returns link states whose link declaration no longer exists
// (link_definition_id=null equivalent: no row in links) and whose actual
// state is not up, per spec §4.7 orphan cleanup.
func (r *LinkStateRepo) ListOrphans(ctx context.Context, labID string) ([]*models.LinkState, error) {
	rows, err := r.db.Query(ctx, linkStateSelect+`
		WHERE lab_id = $1 AND actual_state <> 'up'
		  AND NOT EXISTS (SELECT 1 FROM links l WHERE l.id = link_states.link_id)`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinkStateRows(rows)
}

const linkStateSelect = `
	SELECT lab_id, link_id, desired_state, actual_state, error_message, is_cross_host,
	       source_host_id, target_host_id, source_vxlan_attached, target_vxlan_attached,
	       source_carrier_state, target_carrier_state, vni, source_vlan_tag, target_vlan_tag,
	       source_oper_state, source_oper_reason, target_oper_state, target_oper_reason,
	       oper_epoch, created_at, updated_at
	FROM link_states`

func scanLinkState(row rowScanner) (*models.LinkState, error) {
	var ls models.LinkState
	if err := row.Scan(&ls.LabID, &ls.LinkID, &ls.DesiredState, &ls.ActualState, &ls.ErrorMessage, &ls.IsCrossHost,
		&ls.SourceHostID, &ls.TargetHostID, &ls.SourceVxlanAttached, &ls.TargetVxlanAttached,
		&ls.SourceCarrierState, &ls.TargetCarrierState, &ls.VNI, &ls.SourceVlanTag, &ls.TargetVlanTag,
		&ls.SourceOperState, &ls.SourceOperReason, &ls.TargetOperState, &ls.TargetOperReason,
		&ls.OperEpoch, &ls.CreatedAt, &ls.UpdatedAt); err != nil {
		return nil, err
	}
	return &ls, nil
}

func scanLinkStateRows(rows pgx.Rows) ([]*models.LinkState, error) {
	var out []*models.LinkState
	for rows.Next() {
		ls, err := scanLinkState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}
