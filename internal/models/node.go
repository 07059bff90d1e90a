package models

import "time"

// NodeActualState is the observed lifecycle state of a Node's container.
type NodeActualState string

const (
	NodeUndeployed NodeActualState = "undeployed"
	NodePending    NodeActualState = "pending"
	NodeStarting   NodeActualState = "starting"
	NodeRunning    NodeActualState = "running"
	NodeStopping   NodeActualState = "stopping"
	NodeStopped    NodeActualState = "stopped"
	NodeExited     NodeActualState = "exited"
	NodeError      NodeActualState = "error"
)

// NodeDesiredState is the user's intent for a node.
type NodeDesiredState string

const (
	NodeDesiredRunning NodeDesiredState = "running"
	NodeDesiredStopped NodeDesiredState = "stopped"
)

// Node is the logical device declaration referenced by Links.
type Node struct {
	ID            string
	LabID         string
	DisplayName   string
	ContainerName string
	Kind          string
	ImageRef      string
	HardwareOverrides map[string]string
}

// NodeState is the observed/declared pair for a Node, keyed by (lab, node).
type NodeState struct {
	LabID  string
	NodeID string

	DesiredState NodeDesiredState
	ActualState  NodeActualState

	IsReady            bool
	EnforcementAttempts int
	EnforcementFailedAt *time.Time

	HostID string

	EnteredStateAt time.Time
	LastError      string

	ImageSyncStatus   string
	ImageSyncProgress int

	CreatedAt time.Time
	UpdatedAt time.Time
}
