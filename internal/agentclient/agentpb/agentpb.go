// Package agentpb holds the wire-contract types for controller→agent RPC.
// A real deployment would generate these from a .proto service definition
// compiled with protoc; since this tree can't run protoc, the messages are
// hand-written Go structs shaped the way the generated code would be, and
// google.golang.org/grpc/google.golang.org/protobuf remain the declared
// transport dependency their doc comments describe (see DESIGN.md).
package agentpb

// Topology is the deploy request payload: the resolved node/link set for
// one lab, scoped to what a single agent needs to realise its nodes.
type Topology struct {
	Nodes []TopologyNode `json:"nodes"`
	Links []TopologyLink `json:"links"`
}

type TopologyNode struct {
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	ImageRef string            `json:"image_ref"`
	HW       map[string]string `json:"hw,omitempty"`
}

type TopologyLink struct {
	Name string          `json:"name"`
	A    TopologyLinkSide `json:"a"`
	B    TopologyLinkSide `json:"b"`
	MTU  int             `json:"mtu,omitempty"`
}

type TopologyLinkSide struct {
	Node   string `json:"node"`
	IfName string `json:"ifname"`
}

// DeployRequest/Response.
type DeployRequest struct {
	JobID    string   `json:"job_id"`
	LabID    string   `json:"lab_id"`
	Provider string   `json:"provider"`
	Topology Topology `json:"topology"`
}

type DeployResponse struct {
	Accepted bool `json:"accepted"`
}

// DestroyRequest/Response.
type DestroyRequest struct {
	JobID string `json:"job_id"`
	LabID string `json:"lab_id"`
}

type DestroyResponse struct {
	Accepted bool `json:"accepted"`
}

// NodeActionRequest/Response.
type NodeActionRequest struct {
	JobID  string `json:"job_id"`
	LabID  string `json:"lab_id"`
	Node   string `json:"node"`
	Op     string `json:"op"` // "start" | "stop"
}

type NodeActionResponse struct {
	Accepted bool `json:"accepted"`
}

// StatusRequest/Response.
type StatusRequest struct {
	LabID string `json:"lab_id"`
}

type NodeStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type StatusResponse struct {
	Nodes []NodeStatus `json:"nodes"`
}

// HealthResponse.
type HealthResponse struct {
	OK        bool   `json:"ok"`
	AgentID   string `json:"agent_id"`
	Version   string `json:"version"`
}

// DiscoverLabsResponse.
type DiscoverLabsResponse struct {
	LabIDs []string `json:"lab_ids"`
}

// CleanupOrphansRequest.
type CleanupOrphansRequest struct {
	ValidLabIDs []string `json:"valid_lab_ids"`
}

// CreateLinkRequest/Response. Same-host link creation (spec §4.6 step 1):
// both endpoints' container/interface tuples so the agent can bridge the
// two ports into one local VLAN and report back the tag it picked.
type CreateLinkRequest struct {
	LinkID     string `json:"link_id"`
	ContainerA string `json:"container_a"`
	InterfaceA string `json:"interface_a"`
	ContainerB string `json:"container_b"`
	InterfaceB string `json:"interface_b"`
	MTU        int    `json:"mtu"`
}

type CreateLinkResponse struct {
	VlanTag int `json:"vlan_tag"`
}

// SetCarrierStateRequest asks the peer agent to flip carrier on its side
// of a link (spec §6 carrier-state propagation).
type SetCarrierStateRequest struct {
	LabID        string `json:"lab_id"`
	Node         string `json:"node"`
	Interface    string `json:"interface"`
	CarrierState string `json:"carrier_state"`
}

// AttachOverlayRequest/Response.
type AttachOverlayRequest struct {
	Container string `json:"container"`
	Interface string `json:"interface"`
	VNI       int    `json:"vni"`
	LocalIP   string `json:"local_ip"`
	RemoteIP  string `json:"remote_ip"`
	LinkID    string `json:"link_id"`
	MTU       int    `json:"mtu"`
}

type AttachOverlayResponse struct {
	VlanTag int `json:"vlan_tag"`
}

// DetachOverlayRequest.
type DetachOverlayRequest struct {
	Container string `json:"container"`
	Interface string `json:"interface"`
	LinkID    string `json:"link_id"`
}

// PortVlanRequest/Response for set/get-port-vlan.
type SetPortVlanRequest struct {
	Port    string `json:"port"`
	VlanTag int    `json:"vlan_tag"`
}

type GetPortVlanResponse struct {
	Port    string `json:"port"`
	VlanTag int    `json:"vlan_tag"`
}

// ReconcileVxlanPortsRequest mirrors /overlay/reconcile-ports.
type ReconcileVxlanPortsRequest struct {
	ValidPortNames []string `json:"valid_port_names"`
	Force          bool     `json:"force"`
	Confirm        bool     `json:"confirm"`
	AllowEmpty     bool     `json:"allow_empty"`
}

// PortPairing is one batch entry for the port-state declare endpoint
// (spec §4.7 "Same-host port convergence").
type PortPairing struct {
	PortA   string `json:"port_a"`
	PortB   string `json:"port_b"`
	VlanTag int    `json:"vlan_tag"`
}

type DeclarePortStateRequest struct {
	Pairings []PortPairing `json:"pairings"`
}
