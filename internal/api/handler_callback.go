package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/operstate"
)

// CarrierStateCallback handles POST /callbacks/carrier-state (spec §6):
// an agent reports carrier on/off for one (node, interface); this updates
// the matching LinkState endpoint, recomputes oper state for both
// endpoints, propagates the change to the peer agent, and broadcasts the
// result.
func (s *Server) CarrierStateCallback(c *gin.Context) {
	var req carrierStateCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	links, err := s.store.Links.ListByLab(ctx, req.LabID)
	if err != nil {
		respondError(c, err)
		return
	}

	var link *models.Link
	var isSource bool
	for _, l := range links {
		if l.EndpointA.NodeID == req.Node && l.EndpointA.IfName == req.Interface {
			link, isSource = l, true
			break
		}
		if l.EndpointB.NodeID == req.Node && l.EndpointB.IfName == req.Interface {
			link, isSource = l, false
			break
		}
	}
	if link == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no link matches that node/interface"})
		return
	}

	ls, err := s.store.LinkStates.Get(ctx, req.LabID, link.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if isSource {
		ls.SourceCarrierState = req.CarrierState
	} else {
		ls.TargetCarrierState = req.CarrierState
	}

	sourceNS, _ := s.store.NodeStates.Get(ctx, req.LabID, link.EndpointA.NodeID)
	targetNS, _ := s.store.NodeStates.Get(ctx, req.LabID, link.EndpointB.NodeID)
	sourceHost, _ := s.store.Hosts.Get(ctx, ls.SourceHostID)
	targetHost, _ := s.store.Hosts.Get(ctx, ls.TargetHostID)

	oldSrcState, oldSrcReason := ls.SourceOperState, ls.SourceOperReason
	oldDstState, oldDstReason := ls.TargetOperState, ls.TargetOperReason

	ls.SourceOperState, ls.SourceOperReason = operstate.Derive(operstate.EndpointInputs{
		AdminUp:           ls.DesiredState == models.LinkDesiredUp,
		LocalNodeRunning:  sourceNS != nil && sourceNS.ActualState == models.NodeRunning,
		LocalIfUp:         ls.SourceCarrierState == "on",
		PeerHostOnline:    targetHost != nil && targetHost.Status != models.HostOffline,
		PeerNodeRunning:   targetNS != nil && targetNS.ActualState == models.NodeRunning,
		PeerIfUp:          ls.TargetCarrierState == "on",
		IsCrossHost:       ls.IsCrossHost,
		SameHostLinkUp:    !ls.IsCrossHost && ls.ActualState == models.LinkUp,
		BothVxlanAttached: ls.SourceVxlanAttached && ls.TargetVxlanAttached,
		ActualState:       ls.ActualState,
	})
	ls.TargetOperState, ls.TargetOperReason = operstate.Derive(operstate.EndpointInputs{
		AdminUp:           ls.DesiredState == models.LinkDesiredUp,
		LocalNodeRunning:  targetNS != nil && targetNS.ActualState == models.NodeRunning,
		LocalIfUp:         ls.TargetCarrierState == "on",
		PeerHostOnline:    sourceHost != nil && sourceHost.Status != models.HostOffline,
		PeerNodeRunning:   sourceNS != nil && sourceNS.ActualState == models.NodeRunning,
		PeerIfUp:          ls.SourceCarrierState == "on",
		IsCrossHost:       ls.IsCrossHost,
		SameHostLinkUp:    !ls.IsCrossHost && ls.ActualState == models.LinkUp,
		BothVxlanAttached: ls.SourceVxlanAttached && ls.TargetVxlanAttached,
		ActualState:       ls.ActualState,
	})

	if operstate.Changed(oldSrcState, oldSrcReason, oldDstState, oldDstReason, ls.SourceOperState, ls.SourceOperReason, ls.TargetOperState, ls.TargetOperReason) {
		ls.OperEpoch++
	}

	if err := s.store.LinkStates.Upsert(ctx, ls); err != nil {
		respondError(c, err)
		return
	}

	s.propagateCarrierToPeer(ctx, req, link, ls, isSource)

	if s.publisher != nil {
		s.publisher.PublishLinkState(ctx, req.LabID, ls)
	}
	c.Status(http.StatusNoContent)
}

// propagateCarrierToPeer tells the peer agent to reflect the same
// carrier state on its own endpoint (spec §6, scenario S6). Best-effort:
// a peer that can't be reached logs rather than failing the callback,
// since the reporting agent's side already updated successfully.
func (s *Server) propagateCarrierToPeer(ctx context.Context, req carrierStateCallbackRequest, link *models.Link, ls *models.LinkState, isSource bool) {
	peerNode, peerIfName, peerHostID := link.EndpointB.NodeID, link.EndpointB.IfName, ls.TargetHostID
	if !isSource {
		peerNode, peerIfName, peerHostID = link.EndpointA.NodeID, link.EndpointA.IfName, ls.SourceHostID
	}
	if peerHostID == "" {
		return
	}

	host, err := s.store.Hosts.Get(ctx, peerHostID)
	if err != nil {
		slog.Warn("api: carrier-state propagation: peer host lookup failed", "lab_id", req.LabID, "link_id", link.ID, "host_id", peerHostID, "error", err)
		return
	}
	client := s.agents.Get(host.ID, host.Address)
	if client == nil {
		return
	}
	if err := client.SetCarrierState(ctx, agentpb.SetCarrierStateRequest{
		LabID: req.LabID, Node: peerNode, Interface: peerIfName, CarrierState: req.CarrierState,
	}); err != nil {
		slog.Warn("api: carrier-state propagation to peer agent failed", "lab_id", req.LabID, "link_id", link.ID, "peer_node", peerNode, "error", err)
	}
}
