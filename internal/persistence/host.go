package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// HostRepo is the repository for Host (agent) rows.
type HostRepo struct{ db DB }

func (r *HostRepo) Upsert(ctx context.Context, h *models.Host) error {
	caps, err := json.Marshal(h.Capabilities)
	if err != nil {
		return err
	}
	usage, err := json.Marshal(h.ResourceUsage)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO hosts (id, address, capabilities, image_sync_strategy, last_heartbeat, status, resource_usage, last_error, error_since)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			capabilities = EXCLUDED.capabilities,
			image_sync_strategy = EXCLUDED.image_sync_strategy,
			last_heartbeat = EXCLUDED.last_heartbeat,
			status = EXCLUDED.status,
			resource_usage = EXCLUDED.resource_usage,
			last_error = EXCLUDED.last_error,
			error_since = EXCLUDED.error_since,
			updated_at = now()`,
		h.ID, h.Address, caps, h.ImageSyncStrategy, h.LastHeartbeat, h.Status, usage, h.LastError, h.ErrorSince)
	return err
}

func (r *HostRepo) Get(ctx context.Context, id string) (*models.Host, error) {
	row := r.db.QueryRow(ctx, hostSelect+` WHERE id = $1`, id)
	h, err := scanHost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	return h, err
}

func (r *HostRepo) List(ctx context.Context) ([]*models.Host, error) {
	rows, err := r.db.Query(ctx, hostSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Host
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *HostRepo) SetStatus(ctx context.Context, id string, status models.HostStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE hosts SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (r *HostRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE hosts SET last_heartbeat = $2, status = 'online', updated_at = now() WHERE id = $1`, id, at)
	return err
}

const hostSelect = `
	SELECT id, address, capabilities, image_sync_strategy, last_heartbeat, status, resource_usage,
	       last_error, error_since, created_at, updated_at
	FROM hosts`

func scanHost(row rowScanner) (*models.Host, error) {
	var h models.Host
	var caps, usage []byte
	if err := row.Scan(&h.ID, &h.Address, &caps, &h.ImageSyncStrategy, &h.LastHeartbeat, &h.Status, &usage,
		&h.LastError, &h.ErrorSince, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &h.Capabilities); err != nil {
			return nil, err
		}
	}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &h.ResourceUsage); err != nil {
			return nil, err
		}
	}
	return &h, nil
}
