package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netlab-io/controller/internal/models"
)

func TestLabAggregateState(t *testing.T) {
	cases := []struct {
		name string
		c    NodeStateCounts
		want models.LabState
	}{
		{"empty", NodeStateCounts{}, models.LabStopped},
		{"any error wins", NodeStateCounts{Running: 3, Error: 1}, models.LabError},
		{"stopping beats starting", NodeStateCounts{Stopping: 1, Starting: 1}, models.LabStopping},
		{"starting from pending", NodeStateCounts{Pending: 2}, models.LabStarting},
		{"pure running", NodeStateCounts{Running: 4}, models.LabRunning},
		{"pure stopped", NodeStateCounts{Stopped: 2, Undeployed: 1}, models.LabStopped},
		{"mixed running/stopped", NodeStateCounts{Running: 1, Stopped: 1}, models.LabRunning},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, LabAggregateState(c.c))
		})
	}
}

func TestLinkTransitionAllowed(t *testing.T) {
	assert.True(t, LinkTransitionAllowed(models.LinkUnknown, models.LinkUp))
	assert.True(t, LinkTransitionAllowed(models.LinkUp, models.LinkUp))
	assert.False(t, LinkTransitionAllowed(models.LinkUp, models.LinkCreating))
	assert.True(t, LinkTransitionAllowed(models.LinkError, models.LinkUp))
}
