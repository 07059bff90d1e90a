package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// NodeRepo is the repository for Node declarations.
type NodeRepo struct{ db DB }

func (r *NodeRepo) Create(ctx context.Context, n *models.Node) error {
	overrides, err := json.Marshal(n.HardwareOverrides)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO nodes (id, lab_id, display_name, container_name, kind, image_ref, hardware_overrides)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.LabID, n.DisplayName, n.ContainerName, n.Kind, n.ImageRef, overrides)
	return err
}

func (r *NodeRepo) Get(ctx context.Context, id string) (*models.Node, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, lab_id, display_name, container_name, kind, image_ref, hardware_overrides
		FROM nodes WHERE id = $1`, id)
	n, err := scanNode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	return n, err
}

func (r *NodeRepo) ListByLab(ctx context.Context, labID string) ([]*models.Node, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, lab_id, display_name, container_name, kind, image_ref, hardware_overrides
		FROM nodes WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NodeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var n models.Node
	var overrides []byte
	if err := row.Scan(&n.ID, &n.LabID, &n.DisplayName, &n.ContainerName, &n.Kind, &n.ImageRef, &overrides); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &n.HardwareOverrides); err != nil {
			return nil, err
		}
	}
	return &n, nil
}
