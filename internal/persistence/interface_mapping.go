package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/models"
)

// InterfaceMappingRepo is the repository for InterfaceMapping rows.
// Upsert inserts or refreshes one mapping and DeleteByLab removes a lab's
// mappings; the reconciler only reads them.
type InterfaceMappingRepo struct{ db DB }

func (r *InterfaceMappingRepo) Upsert(ctx context.Context, m *models.InterfaceMapping) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO interface_mappings (lab_id, node_id, linux_if_name, ovs_port, bridge, vlan_tag, vendor_if_name, last_verified_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		ON CONFLICT (lab_id, node_id, linux_if_name) DO UPDATE SET
			ovs_port = EXCLUDED.ovs_port,
			bridge = EXCLUDED.bridge,
			vlan_tag = EXCLUDED.vlan_tag,
			vendor_if_name = EXCLUDED.vendor_if_name,
			last_verified_at = now()`,
		m.LabID, m.NodeID, m.LinuxIfName, m.OVSPort, m.Bridge, m.VlanTag, m.VendorIfName)
	return err
}

func (r *InterfaceMappingRepo) Get(ctx context.Context, labID, nodeID, ifName string) (*models.InterfaceMapping, error) {
	row := r.db.QueryRow(ctx, `
		SELECT lab_id, node_id, linux_if_name, ovs_port, bridge, vlan_tag, vendor_if_name, last_verified_at
		FROM interface_mappings WHERE lab_id = $1 AND node_id = $2 AND linux_if_name = $3`, labID, nodeID, ifName)
	var m models.InterfaceMapping
	if err := row.Scan(&m.LabID, &m.NodeID, &m.LinuxIfName, &m.OVSPort, &m.Bridge, &m.VlanTag, &m.VendorIfName, &m.LastVerifiedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *InterfaceMappingRepo) ListByLab(ctx context.Context, labID string) ([]*models.InterfaceMapping, error) {
	rows, err := r.db.Query(ctx, `
		SELECT lab_id, node_id, linux_if_name, ovs_port, bridge, vlan_tag, vendor_if_name, last_verified_at
		FROM interface_mappings WHERE lab_id = $1`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.InterfaceMapping
	for rows.Next() {
		var m models.InterfaceMapping
		if err := scanRowsInto(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func scanRowsInto(rows pgx.Rows, m *models.InterfaceMapping) error {
	return rows.Scan(&m.LabID, &m.NodeID, &m.LinuxIfName, &m.OVSPort, &m.Bridge, &m.VlanTag, &m.VendorIfName, &m.LastVerifiedAt)
}

func (r *InterfaceMappingRepo) DeleteByLab(ctx context.Context, labID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM interface_mappings WHERE lab_id = $1`, labID)
	return err
}
