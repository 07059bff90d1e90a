package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/models"
)

// ReservationRepo is the low-level CRUD layer over
// link_endpoint_reservations. Claim/release/conflict-resolution semantics
// live one layer up in internal/reservations; this repo only knows how to
// insert, delete, and scan rows.
type ReservationRepo struct{ db DB }

func (r *ReservationRepo) Insert(ctx context.Context, tx pgx.Tx, res *models.LinkEndpointReservation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO link_endpoint_reservations (id, lab_id, node_id, normalised_if_name, link_id)
		VALUES ($1,$2,$3,$4,$5)`,
		res.ID, res.LabID, res.NodeID, res.NormalisedIfName, res.LinkID)
	return err
}

func (r *ReservationRepo) DeleteByLink(ctx context.Context, db DB, linkID string) error {
	_, err := db.Exec(ctx, `DELETE FROM link_endpoint_reservations WHERE link_id = $1`, linkID)
	return err
}

func (r *ReservationRepo) ListByLink(ctx context.Context, linkID string) ([]*models.LinkEndpointReservation, error) {
	rows, err := r.db.Query(ctx, reservationSelect+` WHERE link_id = $1`, linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservationRows(rows)
}

func (r *ReservationRepo) ListByLab(ctx context.Context, labID string) ([]*models.LinkEndpointReservation, error) {
	rows, err := r.db.Query(ctx, reservationSelect+` WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservationRows(rows)
}

// FindConflict returns the reservation (if any) already claiming (lab,
// node, normalisedIf) by a link other than excludeLinkID.
func (r *ReservationRepo) FindConflict(ctx context.Context, db DB, labID, nodeID, normalisedIf, excludeLinkID string) (*models.LinkEndpointReservation, error) {
	row := db.QueryRow(ctx, reservationSelect+`
		WHERE lab_id = $1 AND node_id = $2 AND normalised_if_name = $3 AND link_id <> $4`,
		labID, nodeID, normalisedIf, excludeLinkID)
	var res models.LinkEndpointReservation
	err := row.Scan(&res.ID, &res.LabID, &res.NodeID, &res.NormalisedIfName, &res.LinkID, &res.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

const reservationSelect = `SELECT id, lab_id, node_id, normalised_if_name, link_id, created_at FROM link_endpoint_reservations`

func scanReservationRows(rows pgx.Rows) ([]*models.LinkEndpointReservation, error) {
	var out []*models.LinkEndpointReservation
	for rows.Next() {
		var res models.LinkEndpointReservation
		if err := rows.Scan(&res.ID, &res.LabID, &res.NodeID, &res.NormalisedIfName, &res.LinkID, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
