package models

import "time"

// VxlanTunnelStatus tracks the lifecycle of the overlay tunnel backing a
// cross-host LinkState.
type VxlanTunnelStatus string

const (
	VxlanPending VxlanTunnelStatus = "pending"
	VxlanActive  VxlanTunnelStatus = "active"
	VxlanCleanup VxlanTunnelStatus = "cleanup"
)

// VxlanTunnel is one per cross-host LinkState. AgentA/AgentB are stored in
// canonical (sorted) order so that duplicate-tunnel detection can group by
// (agentA, agentB, vni) without worrying about endpoint ordering.
type VxlanTunnel struct {
	ID          string
	LinkStateID string // empty when the tunnel has been orphaned
	LabID       string
	LinkID      string

	AgentA string
	AgentB string
	VNI    int

	Status VxlanTunnelStatus

	CreatedAt time.Time
}
