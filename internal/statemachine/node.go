// Package statemachine holds the pure, side-effect-free transition and
// enforcement logic for nodes, links, and lab aggregates (spec §4.4). No
// function here performs I/O; all of it is table lookups over closed sets.
package statemachine

import "github.com/netlab-io/controller/internal/models"

// nodeLegalTransitions is the origin → permitted-destinations table.
// Self-transitions are always permitted and are checked separately.
var nodeLegalTransitions = map[models.NodeActualState][]models.NodeActualState{
	models.NodeUndeployed: {models.NodePending, models.NodeError},
	models.NodePending:    {models.NodeStarting, models.NodeRunning, models.NodeUndeployed, models.NodeError},
	models.NodeStarting:   {models.NodeRunning, models.NodeStopped, models.NodeError},
	models.NodeRunning:    {models.NodeStopping, models.NodeStopped, models.NodeError},
	models.NodeStopping:   {models.NodeStopped, models.NodeError},
	models.NodeStopped:    {models.NodeStarting, models.NodePending, models.NodeUndeployed, models.NodeError},
	models.NodeExited:     {models.NodeStarting, models.NodePending, models.NodeStopped, models.NodeError},
	models.NodeError:      {models.NodePending, models.NodeStarting, models.NodeStopped, models.NodeUndeployed},
}

// Terminal states: no transition is pending into or out of them absent a
// new desired state.
var terminalNodeStates = map[models.NodeActualState]bool{
	models.NodeRunning:    true,
	models.NodeStopped:    true,
	models.NodeError:      true,
	models.NodeUndeployed: true,
}

// StoppedEquivalent states are all treated as "not running" for enforcement.
var stoppedEquivalentNodeStates = map[models.NodeActualState]bool{
	models.NodeStopped:    true,
	models.NodeExited:     true,
	models.NodeUndeployed: true,
	models.NodePending:    true,
}

// TransitionalNodeStates are in-flight states where no enforcement action
// should be issued; the caller should wait for the next observation.
var transitionalNodeStates = map[models.NodeActualState]bool{
	models.NodePending:  true,
	models.NodeStarting: true,
	models.NodeStopping: true,
}

// NodeTransitionAllowed reports whether s2 is a legal destination from s1,
// including the implicit self-transition.
func NodeTransitionAllowed(s1, s2 models.NodeActualState) bool {
	if s1 == s2 {
		return true
	}
	for _, dest := range nodeLegalTransitions[s1] {
		if dest == s2 {
			return true
		}
	}
	return false
}

// IsTerminalNodeState reports membership in the terminal class.
func IsTerminalNodeState(s models.NodeActualState) bool { return terminalNodeStates[s] }

// IsStoppedEquivalent reports membership in the stopped-equivalent class.
func IsStoppedEquivalent(s models.NodeActualState) bool { return stoppedEquivalentNodeStates[s] }

// IsTransitionalNodeState reports membership in the transitional class.
func IsTransitionalNodeState(s models.NodeActualState) bool { return transitionalNodeStates[s] }

// EnforcementAction is the action NodeReconciler should issue, or "" for
// no action (the node is transitional or already matches its desired
// state).
type EnforcementAction string

const (
	ActionStart EnforcementAction = "start"
	ActionStop  EnforcementAction = "stop"
	ActionNone  EnforcementAction = ""
)

// NeedsEnforcement reports whether actual is terminal and mismatched with
// desired (spec §4.8).
func NeedsEnforcement(actual models.NodeActualState, desired models.NodeDesiredState) bool {
	if !IsTerminalNodeState(actual) {
		return false
	}
	return GetEnforcementAction(actual, desired) != ActionNone
}

// GetEnforcementAction derives the enforcement action for (actual, desired)
// per spec §4.4:
//   - desired=running, actual in stopped-equivalent ∪ {error} → start
//   - desired=stopped, actual=running → stop
//   - actual transitional → none (wait)
//   - else → none
func GetEnforcementAction(actual models.NodeActualState, desired models.NodeDesiredState) EnforcementAction {
	if IsTransitionalNodeState(actual) {
		return ActionNone
	}
	switch {
	case desired == models.NodeDesiredRunning && (IsStoppedEquivalent(actual) || actual == models.NodeError):
		return ActionStart
	case desired == models.NodeDesiredStopped && actual == models.NodeRunning:
		return ActionStop
	default:
		return ActionNone
	}
}

// DisplayState is the 5-value collapse of the 8 actual states used by the
// UI (spec §4.4).
type DisplayState string

const (
	DisplayStarting DisplayState = "starting"
	DisplayRunning  DisplayState = "running"
	DisplayStopping DisplayState = "stopping"
	DisplayStopped  DisplayState = "stopped"
	DisplayError    DisplayState = "error"
)

// DisplayStateOf collapses (actual, desired) into the UI's 5-state view.
func DisplayStateOf(actual models.NodeActualState, desired models.NodeDesiredState) DisplayState {
	switch {
	case actual == models.NodePending && desired == models.NodeDesiredRunning:
		return DisplayStarting
	case actual == models.NodePending && desired == models.NodeDesiredStopped:
		return DisplayStopped
	case actual == models.NodeRunning && desired == models.NodeDesiredStopped:
		return DisplayStopping
	case (actual == models.NodeStopped || actual == models.NodeExited || actual == models.NodeUndeployed) && desired == models.NodeDesiredRunning:
		return DisplayStarting
	case actual == models.NodeError:
		return DisplayError
	}
	// Identity otherwise, mapped onto the 5-value set where possible.
	switch actual {
	case models.NodeRunning:
		return DisplayRunning
	case models.NodeStopped, models.NodeExited, models.NodeUndeployed:
		return DisplayStopped
	case models.NodeStarting:
		return DisplayStarting
	case models.NodeStopping:
		return DisplayStopping
	default:
		return DisplayError
	}
}

// MatchesDesired reports whether actual is already the steady state implied
// by desired, used by §8 invariant 6 (display_state(a,d) == d except for
// the transitional mappings).
func MatchesDesired(actual models.NodeActualState, desired models.NodeDesiredState) bool {
	switch desired {
	case models.NodeDesiredRunning:
		return actual == models.NodeRunning
	case models.NodeDesiredStopped:
		return actual == models.NodeStopped
	default:
		return false
	}
}

// BulkClassification is the per-node outcome of a bulk start/stop-all
// request (spec §4.4).
type BulkClassification string

const (
	BulkSkipTransitional  BulkClassification = "skip_transitional"
	BulkAlreadyInState    BulkClassification = "already_in_state"
	BulkResetAndProceed   BulkClassification = "reset_and_proceed"
	BulkProceed           BulkClassification = "proceed"
)

// ClassifyBulkCommand classifies a single node for a bulk start/stop
// request targeting desired.
func ClassifyBulkCommand(actual models.NodeActualState, desired models.NodeDesiredState) BulkClassification {
	if IsTransitionalNodeState(actual) {
		return BulkSkipTransitional
	}
	if MatchesDesired(actual, desired) {
		return BulkAlreadyInState
	}
	if actual == models.NodeError && desired == models.NodeDesiredRunning {
		return BulkResetAndProceed
	}
	return BulkProceed
}
