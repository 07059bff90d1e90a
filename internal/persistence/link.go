package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// LinkRepo is the repository for Link declarations.
type LinkRepo struct{ db DB }

func (r *LinkRepo) Create(ctx context.Context, l *models.Link) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO links (id, lab_id, name, endpoint_a_node, endpoint_a_if, endpoint_b_node, endpoint_b_if, mtu, ip_hint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.LabID, l.Name, l.EndpointA.NodeID, l.EndpointA.IfName, l.EndpointB.NodeID, l.EndpointB.IfName, l.MTU, l.IPHint)
	return err
}

func (r *LinkRepo) Get(ctx context.Context, id string) (*models.Link, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, lab_id, name, endpoint_a_node, endpoint_a_if, endpoint_b_node, endpoint_b_if, mtu, ip_hint
		FROM links WHERE id = $1`, id)
	l, err := scanLink(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	return l, err
}

func (r *LinkRepo) ListByLab(ctx context.Context, labID string) ([]*models.Link, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, lab_id, name, endpoint_a_node, endpoint_a_if, endpoint_b_node, endpoint_b_if, mtu, ip_hint
		FROM links WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LinkRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	return err
}

func scanLink(row rowScanner) (*models.Link, error) {
	var l models.Link
	if err := row.Scan(&l.ID, &l.LabID, &l.Name, &l.EndpointA.NodeID, &l.EndpointA.IfName,
		&l.EndpointB.NodeID, &l.EndpointB.IfName, &l.MTU, &l.IPHint); err != nil {
		return nil, err
	}
	return &l, nil
}
