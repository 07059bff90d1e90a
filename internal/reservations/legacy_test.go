package reservations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netlab-io/controller/internal/models"
)

func TestLegacyConflict(t *testing.T) {
	l1 := &models.Link{ID: "l1", Name: "l1", EndpointA: models.Endpoint{NodeID: "r1", IfName: "eth1"}, EndpointB: models.Endpoint{NodeID: "r2", IfName: "eth1"}}
	l2 := &models.Link{ID: "l2", Name: "l2", EndpointA: models.Endpoint{NodeID: "r1", IfName: "Ethernet1"}, EndpointB: models.Endpoint{NodeID: "r3", IfName: "eth1"}}
	l3 := &models.Link{ID: "l3", Name: "l3", EndpointA: models.Endpoint{NodeID: "r4", IfName: "eth1"}, EndpointB: models.Endpoint{NodeID: "r5", IfName: "eth1"}}

	conflicts := LegacyConflict(l2, []*models.Link{l1, l3}, DefaultNormalizer)
	if assert.Len(t, conflicts, 1) {
		assert.Equal(t, "l1", conflicts[0].ID)
	}
}
