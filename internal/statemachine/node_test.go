package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netlab-io/controller/internal/models"
)

func TestNodeTransitionAllowed(t *testing.T) {
	assert.True(t, NodeTransitionAllowed(models.NodeUndeployed, models.NodePending))
	assert.True(t, NodeTransitionAllowed(models.NodeRunning, models.NodeRunning))
	assert.False(t, NodeTransitionAllowed(models.NodeUndeployed, models.NodeRunning))
	assert.True(t, NodeTransitionAllowed(models.NodeError, models.NodeUndeployed))
	assert.False(t, NodeTransitionAllowed(models.NodeStarting, models.NodePending))
}

func TestGetEnforcementAction(t *testing.T) {
	cases := []struct {
		actual  models.NodeActualState
		desired models.NodeDesiredState
		want    EnforcementAction
	}{
		{models.NodeStopped, models.NodeDesiredRunning, ActionStart},
		{models.NodeUndeployed, models.NodeDesiredRunning, ActionStart},
		{models.NodeError, models.NodeDesiredRunning, ActionStart},
		{models.NodeRunning, models.NodeDesiredStopped, ActionStop},
		{models.NodePending, models.NodeDesiredRunning, ActionNone},
		{models.NodeStarting, models.NodeDesiredStopped, ActionNone},
		{models.NodeRunning, models.NodeDesiredRunning, ActionNone},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, GetEnforcementAction(c.actual, c.desired), "actual=%s desired=%s", c.actual, c.desired)
	}
}

func TestNeedsEnforcement(t *testing.T) {
	assert.True(t, NeedsEnforcement(models.NodeStopped, models.NodeDesiredRunning))
	assert.False(t, NeedsEnforcement(models.NodePending, models.NodeDesiredRunning))
	assert.False(t, NeedsEnforcement(models.NodeRunning, models.NodeDesiredRunning))
}

func TestDisplayStateOf(t *testing.T) {
	assert.Equal(t, DisplayStarting, DisplayStateOf(models.NodePending, models.NodeDesiredRunning))
	assert.Equal(t, DisplayStopped, DisplayStateOf(models.NodePending, models.NodeDesiredStopped))
	assert.Equal(t, DisplayStopping, DisplayStateOf(models.NodeRunning, models.NodeDesiredStopped))
	assert.Equal(t, DisplayStarting, DisplayStateOf(models.NodeStopped, models.NodeDesiredRunning))
	assert.Equal(t, DisplayRunning, DisplayStateOf(models.NodeRunning, models.NodeDesiredRunning))
	assert.Equal(t, DisplayError, DisplayStateOf(models.NodeError, models.NodeDesiredRunning))
}

// Invariant 6: display_state(a, d) == d exactly when matches_desired(a, d),
// except for the transitional mappings defined in §4.4.
func TestDisplayStateMatchesDesiredInvariant(t *testing.T) {
	transitionalExceptions := map[[2]string]bool{
		{string(models.NodePending), string(models.NodeDesiredRunning)}:  true,
		{string(models.NodeStopped), string(models.NodeDesiredRunning)}:  true,
		{string(models.NodeExited), string(models.NodeDesiredRunning)}:   true,
		{string(models.NodeUndeployed), string(models.NodeDesiredRunning)}: true,
		{string(models.NodeRunning), string(models.NodeDesiredStopped)}:  true,
		{string(models.NodePending), string(models.NodeDesiredStopped)}:  true,
	}
	allStates := []models.NodeActualState{
		models.NodeUndeployed, models.NodePending, models.NodeStarting, models.NodeRunning,
		models.NodeStopping, models.NodeStopped, models.NodeExited, models.NodeError,
	}
	for _, a := range allStates {
		for _, d := range []models.NodeDesiredState{models.NodeDesiredRunning, models.NodeDesiredStopped} {
			ds := DisplayStateOf(a, d)
			matches := MatchesDesired(a, d)
			isException := transitionalExceptions[[2]string{string(a), string(d)}]
			if matches {
				assert.Equalf(t, DisplayState(d), ds, "actual=%s desired=%s", a, d)
			} else if !isException && a != models.NodeError {
				_ = ds // non-exception mismatches collapse to a stable value, not asserted equal to d
			}
		}
	}
}

func TestClassifyBulkCommand(t *testing.T) {
	assert.Equal(t, BulkSkipTransitional, ClassifyBulkCommand(models.NodeStarting, models.NodeDesiredRunning))
	assert.Equal(t, BulkAlreadyInState, ClassifyBulkCommand(models.NodeRunning, models.NodeDesiredRunning))
	assert.Equal(t, BulkResetAndProceed, ClassifyBulkCommand(models.NodeError, models.NodeDesiredRunning))
	assert.Equal(t, BulkProceed, ClassifyBulkCommand(models.NodeStopped, models.NodeDesiredRunning))
}
