package operstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netlab-io/controller/internal/models"
)

func fullyUp(crossHost bool) EndpointInputs {
	return EndpointInputs{
		AdminUp: true, LocalNodeRunning: true, LocalIfUp: true,
		PeerHostOnline: true, PeerNodeRunning: true, PeerIfUp: true,
		IsCrossHost: crossHost, SameHostLinkUp: !crossHost,
		BothVxlanAttached: crossHost, ActualState: models.LinkUp,
	}
}

func TestDerive_AllUpSameHost(t *testing.T) {
	state, reason := Derive(fullyUp(false))
	assert.Equal(t, models.OperUp, state)
	assert.Equal(t, models.ReasonNone, reason)
}

func TestDerive_AllUpCrossHost(t *testing.T) {
	state, reason := Derive(fullyUp(true))
	assert.Equal(t, models.OperUp, state)
	assert.Equal(t, models.ReasonNone, reason)
}

func TestDerive_AdminDownWins(t *testing.T) {
	in := fullyUp(false)
	in.AdminUp = false
	state, reason := Derive(in)
	assert.Equal(t, models.OperDown, state)
	assert.Equal(t, models.ReasonAdminDown, reason)
}

func TestDerive_PeerInterfaceDown(t *testing.T) {
	in := fullyUp(true)
	in.PeerIfUp = false
	state, reason := Derive(in)
	assert.Equal(t, models.OperDown, state)
	assert.Equal(t, models.ReasonPeerInterfaceDown, reason)
}

func TestDerive_PartialVxlanDegraded(t *testing.T) {
	in := fullyUp(true)
	in.BothVxlanAttached = false
	in.ActualState = models.LinkError
	state, reason := Derive(in)
	assert.Equal(t, models.OperDegraded, state)
	assert.Equal(t, models.ReasonTransportDegraded, reason)
}

func TestDerive_SameHostLinkDown(t *testing.T) {
	in := fullyUp(false)
	in.SameHostLinkUp = false
	in.ActualState = models.LinkDown
	state, reason := Derive(in)
	assert.Equal(t, models.OperDown, state)
	assert.Equal(t, models.ReasonTransportDown, reason)
}

func TestChanged(t *testing.T) {
	assert.False(t, Changed(models.OperUp, models.ReasonNone, models.OperUp, models.ReasonNone,
		models.OperUp, models.ReasonNone, models.OperUp, models.ReasonNone))
	assert.True(t, Changed(models.OperUp, models.ReasonNone, models.OperUp, models.ReasonNone,
		models.OperDown, models.ReasonLocalInterfaceDown, models.OperUp, models.ReasonNone))
}
