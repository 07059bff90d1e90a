package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// PlacementRepo is the repository for Placement rows, the authoritative
// (lab, node-name) → host-id map (spec §3, §6 uniqueness constraints).
type PlacementRepo struct{ db DB }

func (r *PlacementRepo) Set(ctx context.Context, p *models.Placement) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO placements (lab_id, node_name, host_id) VALUES ($1,$2,$3)
		ON CONFLICT (lab_id, node_name) DO UPDATE SET host_id = EXCLUDED.host_id`,
		p.LabID, p.NodeName, p.HostID)
	return err
}

func (r *PlacementRepo) Get(ctx context.Context, labID, nodeName string) (*models.Placement, error) {
	row := r.db.QueryRow(ctx, `SELECT lab_id, node_name, host_id FROM placements WHERE lab_id = $1 AND node_name = $2`, labID, nodeName)
	var p models.Placement
	err := row.Scan(&p.LabID, &p.NodeName, &p.HostID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlacementRepo) ListByLab(ctx context.Context, labID string) ([]*models.Placement, error) {
	rows, err := r.db.Query(ctx, `SELECT lab_id, node_name, host_id FROM placements WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Placement
	for rows.Next() {
		var p models.Placement
		if err := rows.Scan(&p.LabID, &p.NodeName, &p.HostID); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PlacementRepo) DeleteByNode(ctx context.Context, labID, nodeName string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM placements WHERE lab_id = $1 AND node_name = $2`, labID, nodeName)
	return err
}

func (r *PlacementRepo) DeleteByLab(ctx context.Context, labID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM placements WHERE lab_id = $1`, labID)
	return err
}

// CountByLab returns how many placement rows still mention labID.
func (r *PlacementRepo) CountByLab(ctx context.Context, labID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM placements WHERE lab_id = $1`, labID).Scan(&n)
	return n, err
}
