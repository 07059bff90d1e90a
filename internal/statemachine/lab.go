package statemachine

import "github.com/netlab-io/controller/internal/models"

// NodeStateCounts tallies NodeState.actual_state across one lab's nodes for
// lab-aggregate derivation.
type NodeStateCounts struct {
	Running    int
	Stopped    int
	Undeployed int
	Error      int
	Pending    int
	Starting   int
	Stopping   int
}

// Total returns the number of nodes counted.
func (c NodeStateCounts) Total() int {
	return c.Running + c.Stopped + c.Undeployed + c.Error + c.Pending + c.Starting + c.Stopping
}

// LabAggregateState derives a Lab's aggregate state from its NodeState
// counts (spec §4.4 / invariant 5). Rules, checked in order:
//  1. Any error → error.
//  2. Any stopping → stopping. Any starting|pending → starting.
//  3. Pure running → running. Pure stopped/undeployed → stopped.
//  4. Mixed running/stopped → running.
//  5. Empty → stopped.
func LabAggregateState(c NodeStateCounts) models.LabState {
	if c.Total() == 0 {
		return models.LabStopped
	}
	if c.Error > 0 {
		return models.LabError
	}
	if c.Stopping > 0 {
		return models.LabStopping
	}
	if c.Starting > 0 || c.Pending > 0 {
		return models.LabStarting
	}
	stoppedLike := c.Stopped + c.Undeployed
	switch {
	case c.Running > 0 && stoppedLike == 0:
		return models.LabRunning
	case c.Running == 0 && stoppedLike > 0:
		return models.LabStopped
	case c.Running > 0 && stoppedLike > 0:
		return models.LabRunning
	default:
		return models.LabStopped
	}
}
