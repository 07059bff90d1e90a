package linkmanager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/events"
	"github.com/netlab-io/controller/internal/models"
)

// fakeAgentClient is a hand-rolled stub satisfying agentclient.AgentClient,
// used in place of the real HTTP implementation so link creation logic can
// be exercised without a live agent.
type fakeAgentClient struct {
	attachVlan     int
	attachErr      error
	detachCalled   bool
	createLinkVlan int
	createLinkErr  error
	lastCreateLink agentpb.CreateLinkRequest
}

func (f *fakeAgentClient) Deploy(ctx context.Context, req agentpb.DeployRequest) (*agentpb.DeployResponse, error) {
	return &agentpb.DeployResponse{Accepted: true}, nil
}
func (f *fakeAgentClient) Destroy(ctx context.Context, req agentpb.DestroyRequest) (*agentpb.DestroyResponse, error) {
	return &agentpb.DestroyResponse{Accepted: true}, nil
}
func (f *fakeAgentClient) NodeAction(ctx context.Context, req agentpb.NodeActionRequest) (*agentpb.NodeActionResponse, error) {
	return &agentpb.NodeActionResponse{Accepted: true}, nil
}
func (f *fakeAgentClient) Status(ctx context.Context, req agentpb.StatusRequest) (*agentpb.StatusResponse, error) {
	return &agentpb.StatusResponse{}, nil
}
func (f *fakeAgentClient) Health(ctx context.Context) (*agentpb.HealthResponse, error) {
	return &agentpb.HealthResponse{OK: true}, nil
}
func (f *fakeAgentClient) DiscoverLabs(ctx context.Context) (*agentpb.DiscoverLabsResponse, error) {
	return &agentpb.DiscoverLabsResponse{}, nil
}
func (f *fakeAgentClient) CleanupOrphans(ctx context.Context, req agentpb.CleanupOrphansRequest) error {
	return nil
}
func (f *fakeAgentClient) CreateLink(ctx context.Context, req agentpb.CreateLinkRequest) (*agentpb.CreateLinkResponse, error) {
	f.lastCreateLink = req
	if f.createLinkErr != nil {
		return nil, f.createLinkErr
	}
	return &agentpb.CreateLinkResponse{VlanTag: f.createLinkVlan}, nil
}
func (f *fakeAgentClient) SetCarrierState(ctx context.Context, req agentpb.SetCarrierStateRequest) error {
	return nil
}
func (f *fakeAgentClient) AttachOverlay(ctx context.Context, req agentpb.AttachOverlayRequest) (*agentpb.AttachOverlayResponse, error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	return &agentpb.AttachOverlayResponse{VlanTag: f.attachVlan}, nil
}
func (f *fakeAgentClient) DetachOverlay(ctx context.Context, req agentpb.DetachOverlayRequest) error {
	f.detachCalled = true
	return nil
}
func (f *fakeAgentClient) SetPortVlan(ctx context.Context, req agentpb.SetPortVlanRequest) error {
	return nil
}
func (f *fakeAgentClient) GetPortVlan(ctx context.Context, port string) (*agentpb.GetPortVlanResponse, error) {
	return &agentpb.GetPortVlanResponse{Port: port}, nil
}
func (f *fakeAgentClient) ReconcileVxlanPorts(ctx context.Context, req agentpb.ReconcileVxlanPortsRequest) error {
	return nil
}
func (f *fakeAgentClient) DeclarePortState(ctx context.Context, lab string, req agentpb.DeclarePortStateRequest) error {
	return nil
}

var _ agentclient.AgentClient = (*fakeAgentClient)(nil)

// fakeResolver hands out pre-registered fakeAgentClients keyed by agent id.
type fakeResolver struct {
	byID map[string]*fakeAgentClient
}

func (r *fakeResolver) Get(agentID, baseURL string) agentclient.AgentClient {
	return r.byID[agentID]
}

// fakeHosts resolves every host id to itself as an address.
type fakeHosts struct{}

func (fakeHosts) Get(ctx context.Context, id string) (*models.Host, error) {
	return &models.Host{ID: id, Address: "http://" + id}, nil
}

// fakeLinkStateStore is an in-memory stand-in for LinkStateRepo.
type fakeLinkStateStore struct {
	upserted []*models.LinkState
}

func (f *fakeLinkStateStore) Upsert(ctx context.Context, ls *models.LinkState) error {
	f.upserted = append(f.upserted, ls)
	return nil
}
func (f *fakeLinkStateStore) ListByLab(ctx context.Context, labID string) ([]*models.LinkState, error) {
	return f.upserted, nil
}

// fakeVxlanTunnelStore is an in-memory stand-in for VxlanTunnelRepo; unused
// by the same-host path but required to satisfy VxlanTunnelStore.
type fakeVxlanTunnelStore struct{}

func (fakeVxlanTunnelStore) Create(ctx context.Context, t *models.VxlanTunnel) error { return nil }
func (fakeVxlanTunnelStore) ListByLab(ctx context.Context, labID string) ([]*models.VxlanTunnel, error) {
	return nil, nil
}
func (fakeVxlanTunnelStore) SetStatus(ctx context.Context, id string, status models.VxlanTunnelStatus) error {
	return nil
}
func (fakeVxlanTunnelStore) DeleteByLab(ctx context.Context, labID string) error { return nil }

func TestCanonicalPair(t *testing.T) {
	a, b := canonicalPair("host-b", "host-a")
	assert.Equal(t, "host-a", a)
	assert.Equal(t, "host-b", b)

	a, b = canonicalPair("host-a", "host-a")
	assert.Equal(t, "host-a", a)
	assert.Equal(t, "host-a", b)
}

func TestCreateSameHost_Success(t *testing.T) {
	agent := &fakeAgentClient{createLinkVlan: 42}
	resolver := &fakeResolver{byID: map[string]*fakeAgentClient{"host-1": agent}}
	linkStates := &fakeLinkStateStore{}
	m := New(nil, linkStates, fakeVxlanTunnelStore{}, resolver, fakeHosts{}, events.NewEventPublisher(nil))

	link := &models.Link{
		ID: "link-1", LabID: "lab-1", Name: "r1:eth1-r2:eth1",
		EndpointA: models.Endpoint{NodeID: "r1", IfName: "eth1"},
		EndpointB: models.Endpoint{NodeID: "r2", IfName: "eth1"},
	}

	ls, err := m.CreateSameHost(context.Background(), link, "host-1")
	require.NoError(t, err)
	assert.Equal(t, 42, ls.SourceVlanTag)
	assert.Equal(t, 42, ls.TargetVlanTag)
	assert.Equal(t, models.LinkUp, ls.ActualState)
	require.Len(t, linkStates.upserted, 1)
	assert.Equal(t, "link-1", linkStates.upserted[0].LinkID)
}

func TestCreateSameHost_BothEndpointsSentToAgent(t *testing.T) {
	agent := &fakeAgentClient{createLinkVlan: 7}
	resolver := &fakeResolver{byID: map[string]*fakeAgentClient{"host-1": agent}}
	m := New(nil, &fakeLinkStateStore{}, fakeVxlanTunnelStore{}, resolver, fakeHosts{}, events.NewEventPublisher(nil))

	link := &models.Link{
		ID: "link-2", LabID: "lab-1", Name: "r1:eth2-r2:eth2",
		EndpointA: models.Endpoint{NodeID: "r1", IfName: "eth2"},
		EndpointB: models.Endpoint{NodeID: "r2", IfName: "eth2"},
	}

	_, err := m.CreateSameHost(context.Background(), link, "host-1")
	require.NoError(t, err)

	assert.Equal(t, "r1", agent.lastCreateLink.ContainerA)
	assert.Equal(t, "eth2", agent.lastCreateLink.InterfaceA)
	assert.Equal(t, "r2", agent.lastCreateLink.ContainerB)
	assert.Equal(t, "eth2", agent.lastCreateLink.InterfaceB)
}

func TestAttachOverlayError_Propagates(t *testing.T) {
	wantErr := errors.New("agent unreachable")
	client := &fakeAgentClient{attachErr: wantErr}
	_, err := client.AttachOverlay(context.Background(), agentpb.AttachOverlayRequest{})
	assert.ErrorIs(t, err, wantErr)
}

func TestDetachOverlay_MarksCalled(t *testing.T) {
	client := &fakeAgentClient{}
	err := client.DetachOverlay(context.Background(), agentpb.DetachOverlayRequest{LinkID: "link-1"})
	require.NoError(t, err)
	assert.True(t, client.detachCalled)
}
