// Package models holds the plain data types shared across the control
// plane: labs, nodes, links, hosts, jobs, and the join tables that track
// placement and overlay state.
package models

import "time"

// LabState is the aggregate declared state of a Lab.
type LabState string

const (
	LabStopped  LabState = "stopped"
	LabStarting LabState = "starting"
	LabRunning  LabState = "running"
	LabStopping LabState = "stopping"
	LabError    LabState = "error"
)

// Provider is the tagged-union discriminator for which backend a Lab's
// nodes are scheduled onto, replacing the source's untyped provider
// string.
type Provider string

const (
	ProviderDocker  Provider = "docker"
	ProviderLibvirt Provider = "libvirt"
)

// Lab is a user-owned network topology scheduled onto one or more agents.
type Lab struct {
	ID            string
	Name          string
	OwnerID       string
	Provider      Provider
	State         LabState
	StateError    string
	WorkspacePath string
	DefaultAgent  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
