package linkmanager

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/events"
	"github.com/netlab-io/controller/internal/models"
)

// AgentResolver looks up the AgentClient for a host id plus the host's
// base URL, matching how the ClientPool is consulted elsewhere.
type AgentResolver interface {
	Get(agentID, baseURL string) agentclient.AgentClient
}

// HostAddresser resolves a host id to its RPC base URL.
type HostAddresser interface {
	Get(ctx context.Context, id string) (*models.Host, error)
}

// LinkStore is the subset of LinkRepo the manager needs.
type LinkStore interface {
	ListByLab(ctx context.Context, labID string) ([]*models.Link, error)
}

// LinkStateStore is the subset of LinkStateRepo the manager needs.
type LinkStateStore interface {
	Upsert(ctx context.Context, ls *models.LinkState) error
	ListByLab(ctx context.Context, labID string) ([]*models.LinkState, error)
}

// VxlanTunnelStore is the subset of VxlanTunnelRepo the manager needs.
type VxlanTunnelStore interface {
	Create(ctx context.Context, t *models.VxlanTunnel) error
	ListByLab(ctx context.Context, labID string) ([]*models.VxlanTunnel, error)
	SetStatus(ctx context.Context, id string, status models.VxlanTunnelStatus) error
	DeleteByLab(ctx context.Context, labID string) error
}

// Manager creates/tears down same-host and cross-host links, allocates
// deterministic VNIs, and manages VxlanTunnel records (spec §4.6).
type Manager struct {
	links        LinkStore
	linkStates   LinkStateStore
	vxlanTunnels VxlanTunnelStore
	agents       AgentResolver
	hosts        HostAddresser
	publisher    *events.EventPublisher
}

// New constructs a Manager against the three repositories it touches,
// not the whole Store, so it can be exercised against fakes in tests.
func New(links LinkStore, linkStates LinkStateStore, vxlanTunnels VxlanTunnelStore, agents AgentResolver, hosts HostAddresser, publisher *events.EventPublisher) *Manager {
	return &Manager{links: links, linkStates: linkStates, vxlanTunnels: vxlanTunnels, agents: agents, hosts: hosts, publisher: publisher}
}

func (m *Manager) clientFor(ctx context.Context, hostID string) (agentclient.AgentClient, error) {
	h, err := m.hosts.Get(ctx, hostID)
	if err != nil {
		return nil, err
	}
	return m.agents.Get(h.ID, h.Address), nil
}

// CreateSameHost realises a link whose endpoints are on the same agent
// (spec §4.6): call agent create-link with both container/interface
// tuples so it can bridge both ports into a shared local VLAN; the
// controller records the tag the agent picked and marks the link up.
func (m *Manager) CreateSameHost(ctx context.Context, link *models.Link, hostID string) (*models.LinkState, error) {
	client, err := m.clientFor(ctx, hostID)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateLink(ctx, agentpb.CreateLinkRequest{
		LinkID:      link.ID,
		ContainerA:  link.EndpointA.NodeID,
		InterfaceA:  link.EndpointA.IfName,
		ContainerB:  link.EndpointB.NodeID,
		InterfaceB:  link.EndpointB.IfName,
		MTU:         link.MTU,
	})
	if err != nil {
		return m.failLink(ctx, link, hostID, hostID, err)
	}

	ls := &models.LinkState{
		LabID: link.LabID, LinkID: link.ID,
		DesiredState: models.LinkDesiredUp, ActualState: models.LinkUp,
		IsCrossHost:         false,
		SourceHostID:        hostID, TargetHostID: hostID,
		SourceVlanTag:       resp.VlanTag,
		TargetVlanTag:       resp.VlanTag,
		SourceCarrierState:  "on",
		TargetCarrierState:  "on",
	}
	if err := m.linkStates.Upsert(ctx, ls); err != nil {
		return nil, err
	}
	m.publisher.PublishLinkState(ctx, link.LabID, ls)
	return ls, nil
}

// CreateCrossHost realises a link spanning two agents (spec §4.6): it
// allocates a VNI, calls attach-overlay on both agents in parallel via
// errgroup, and creates a VxlanTunnel row with the canonical-ordered
// agent pair.
func (m *Manager) CreateCrossHost(ctx context.Context, link *models.Link, sourceHost, targetHost, localIPSource, localIPTarget string) (*models.LinkState, error) {
	vni := AllocateVNI(link.LabID, link.Name)

	sourceClient, err := m.clientFor(ctx, sourceHost)
	if err != nil {
		return nil, err
	}
	targetClient, err := m.clientFor(ctx, targetHost)
	if err != nil {
		return nil, err
	}

	var sourceVlan, targetVlan int
	var sourceAttached, targetAttached bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := sourceClient.AttachOverlay(gctx, agentpb.AttachOverlayRequest{
			Container: link.EndpointA.NodeID, Interface: link.EndpointA.IfName,
			VNI: vni, LocalIP: localIPSource, RemoteIP: localIPTarget, LinkID: link.ID, MTU: link.MTU,
		})
		if err != nil {
			return fmt.Errorf("source attach: %w", err)
		}
		sourceVlan = resp.VlanTag
		sourceAttached = true
		return nil
	})
	g.Go(func() error {
		resp, err := targetClient.AttachOverlay(gctx, agentpb.AttachOverlayRequest{
			Container: link.EndpointB.NodeID, Interface: link.EndpointB.IfName,
			VNI: vni, LocalIP: localIPTarget, RemoteIP: localIPSource, LinkID: link.ID, MTU: link.MTU,
		})
		if err != nil {
			return fmt.Errorf("target attach: %w", err)
		}
		targetVlan = resp.VlanTag
		targetAttached = true
		return nil
	})

	attachErr := g.Wait()

	ls := &models.LinkState{
		LabID: link.LabID, LinkID: link.ID,
		DesiredState: models.LinkDesiredUp,
		IsCrossHost:  true,
		SourceHostID: sourceHost, TargetHostID: targetHost,
		VNI:                 vni,
		SourceVlanTag:       sourceVlan,
		TargetVlanTag:       targetVlan,
		SourceVxlanAttached: sourceAttached,
		TargetVxlanAttached: targetAttached,
	}

	if attachErr != nil {
		ls.ActualState = models.LinkError
		ls.ErrorMessage = attachErr.Error()
		if err := m.linkStates.Upsert(ctx, ls); err != nil {
			return nil, err
		}
		m.publisher.PublishLinkState(ctx, link.LabID, ls)
		return ls, apierrors.Wrap(models.CategoryAgent, "cross-host attach failed", attachErr)
	}

	ls.ActualState = models.LinkUp
	ls.SourceCarrierState, ls.TargetCarrierState = "on", "on"
	if err := m.linkStates.Upsert(ctx, ls); err != nil {
		return nil, err
	}

	agentA, agentB := canonicalPair(sourceHost, targetHost)
	tunnel := &models.VxlanTunnel{
		ID: uuid.NewString(), LinkStateID: link.ID, LabID: link.LabID, LinkID: link.ID,
		AgentA: agentA, AgentB: agentB, VNI: vni, Status: models.VxlanActive,
	}
	if err := m.vxlanTunnels.Create(ctx, tunnel); err != nil {
		return nil, err
	}

	m.publisher.PublishLinkState(ctx, link.LabID, ls)
	return ls, nil
}

func (m *Manager) failLink(ctx context.Context, link *models.Link, sourceHost, targetHost string, cause error) (*models.LinkState, error) {
	ls := &models.LinkState{
		LabID: link.LabID, LinkID: link.ID,
		DesiredState: models.LinkDesiredUp, ActualState: models.LinkError,
		SourceHostID: sourceHost, TargetHostID: targetHost,
		ErrorMessage: cause.Error(),
	}
	if err := m.linkStates.Upsert(ctx, ls); err != nil {
		return nil, err
	}
	m.publisher.PublishLinkState(ctx, link.LabID, ls)
	return ls, apierrors.Wrap(models.CategoryAgent, "link creation failed", cause)
}

// canonicalPair returns (a, b) sorted lexicographically so duplicate
// detection and teardown never care about call order (spec §4.6, §4.7).
func canonicalPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// DeployLabLinks iterates a lab's declared links after container deploy
// completes, creating each using the right path for its placement. A
// link whose endpoint placement is unknown fails fast (spec §4.6).
func (m *Manager) DeployLabLinks(ctx context.Context, labID string, placements map[string]string) error {
	links, err := m.links.ListByLab(ctx, labID)
	if err != nil {
		return err
	}

	for _, link := range links {
		sourceHost, sourceKnown := placements[link.EndpointA.NodeID]
		targetHost, targetKnown := placements[link.EndpointB.NodeID]
		if !sourceKnown || !targetKnown || sourceHost == "" || targetHost == "" {
			ls := &models.LinkState{
				LabID: labID, LinkID: link.ID, ActualState: models.LinkError,
				ErrorMessage: "Missing host placement",
			}
			if err := m.linkStates.Upsert(ctx, ls); err != nil {
				return err
			}
			m.publisher.PublishLinkState(ctx, labID, ls)
			continue
		}

		if sourceHost == targetHost {
			if _, err := m.CreateSameHost(ctx, link, sourceHost); err != nil {
				continue // per-link failures don't abort the batch (spec §7)
			}
		} else {
			if _, err := m.CreateCrossHost(ctx, link, sourceHost, targetHost, "", ""); err != nil {
				continue
			}
		}
	}
	return nil
}

// Teardown marks every VxlanTunnel for a lab as cleanup, calls
// cleanup-overlay on each unique participating agent, deletes tunnel
// rows, and resets LinkState carrier/VLAN/VNI fields (spec §4.6).
func (m *Manager) Teardown(ctx context.Context, labID string) error {
	tunnels, err := m.vxlanTunnels.ListByLab(ctx, labID)
	if err != nil {
		return err
	}

	agentsNotified := map[string]bool{}
	for _, t := range tunnels {
		if err := m.vxlanTunnels.SetStatus(ctx, t.ID, models.VxlanCleanup); err != nil {
			return err
		}
		for _, agentID := range []string{t.AgentA, t.AgentB} {
			if agentsNotified[agentID] {
				continue
			}
			agentsNotified[agentID] = true
			client, err := m.clientFor(ctx, agentID)
			if err != nil {
				continue // best-effort: agent may be offline
			}
			_ = client.DetachOverlay(ctx, agentpb.DetachOverlayRequest{LinkID: t.LinkID})
		}
	}

	if err := m.vxlanTunnels.DeleteByLab(ctx, labID); err != nil {
		return err
	}

	states, err := m.linkStates.ListByLab(ctx, labID)
	if err != nil {
		return err
	}
	for _, ls := range states {
		ls.SourceVlanTag, ls.TargetVlanTag = 0, 0
		ls.VNI = 0
		ls.SourceVxlanAttached, ls.TargetVxlanAttached = false, false
		ls.SourceCarrierState, ls.TargetCarrierState = "off", "off"
		ls.ActualState = models.LinkDown
		if err := m.linkStates.Upsert(ctx, ls); err != nil {
			return err
		}
	}
	return nil
}
