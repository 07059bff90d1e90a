package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// VxlanTunnelRepo is the repository for VxlanTunnel rows.
type VxlanTunnelRepo struct{ db DB }

func (r *VxlanTunnelRepo) Create(ctx context.Context, t *models.VxlanTunnel) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO vxlan_tunnels (id, link_state_id, lab_id, link_id, agent_a, agent_b, vni, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.LinkStateID, t.LabID, t.LinkID, t.AgentA, t.AgentB, t.VNI, t.Status)
	return err
}

func (r *VxlanTunnelRepo) Get(ctx context.Context, id string) (*models.VxlanTunnel, error) {
	row := r.db.QueryRow(ctx, tunnelSelect+` WHERE id = $1`, id)
	t, err := scanTunnel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	return t, err
}

func (r *VxlanTunnelRepo) ListByLab(ctx context.Context, labID string) ([]*models.VxlanTunnel, error) {
	rows, err := r.db.Query(ctx, tunnelSelect+` WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTunnelRows(rows)
}

// ListActiveNonCleanup returns every tunnel row not in cleanup status,
// used by the duplicate-tunnel detector (spec §4.7).
func (r *VxlanTunnelRepo) ListActiveNonCleanup(ctx context.Context) ([]*models.VxlanTunnel, error) {
	rows, err := r.db.Query(ctx, tunnelSelect+` WHERE status <> 'cleanup'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTunnelRows(rows)
}

func (r *VxlanTunnelRepo) SetStatus(ctx context.Context, id string, status models.VxlanTunnelStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE vxlan_tunnels SET status = $2 WHERE id = $1`, id, status)
	return err
}

func (r *VxlanTunnelRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM vxlan_tunnels WHERE id = $1`, id)
	return err
}

func (r *VxlanTunnelRepo) DeleteByLab(ctx context.Context, labID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM vxlan_tunnels WHERE lab_id = $1`, labID)
	return err
}

const tunnelSelect = `
	SELECT id, link_state_id, lab_id, link_id, agent_a, agent_b, vni, status, created_at
	FROM vxlan_tunnels`

func scanTunnel(row rowScanner) (*models.VxlanTunnel, error) {
	var t models.VxlanTunnel
	if err := row.Scan(&t.ID, &t.LinkStateID, &t.LabID, &t.LinkID, &t.AgentA, &t.AgentB, &t.VNI, &t.Status, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTunnelRows(rows pgx.Rows) ([]*models.VxlanTunnel, error) {
	var out []*models.VxlanTunnel
	for rows.Next() {
		t, err := scanTunnel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
