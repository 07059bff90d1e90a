package topology

import "encoding/json"

// ConnectionType is the tagged-union discriminator for a link's transport,
// replacing the source's untyped connection-type string (spec REDESIGN
// FLAGS "Dynamic-typing removal").
type ConnectionType string

const (
	ConnVeth  ConnectionType = "veth"
	ConnVxlan ConnectionType = "vxlan"
	ConnMacvlan ConnectionType = "macvlan"
)

// graphNode is one node.id/data pair in the graph-JSON wire form used by
// visual topology editors.
type graphNode struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Data graphNodeData `json:"data"`
}

type graphNodeData struct {
	ImageRef string            `json:"image,omitempty"`
	HW       map[string]string `json:"hw,omitempty"`
}

// graphEdge is one edge between two node ids in the graph-JSON wire form.
type graphEdge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	SourcePort string         `json:"source_port"`
	Target     string         `json:"target"`
	TargetPort string         `json:"target_port"`
	Connection ConnectionType `json:"connection_type"`
	MTU        int            `json:"mtu,omitempty"`
}

// Graph is the nodes/edges wire form (spec §6 "topology import/export
// (YAML and graph-JSON variants)").
type Graph struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

// ToGraphJSON converts t into its graph-JSON representation. Every edge
// is written with a veth connection type: the cross-host/same-host
// distinction is a deployment-time placement decision, not part of the
// declared topology, and ParseGraphJSON ignores the connection type.
func (t *Topology) ToGraphJSON() ([]byte, error) {
	g := Graph{Nodes: make([]graphNode, 0, len(t.Nodes)), Edges: make([]graphEdge, 0, len(t.Links))}
	for _, n := range t.Nodes {
		g.Nodes = append(g.Nodes, graphNode{ID: n.Name, Kind: n.Kind, Data: graphNodeData{ImageRef: n.ImageRef, HW: n.HW}})
	}
	for _, l := range t.Links {
		a, b := l.Endpoints[0], l.Endpoints[1]
		g.Edges = append(g.Edges, graphEdge{
			ID:         l.LinkName(),
			Source:     a.Node,
			SourcePort: a.IfName,
			Target:     b.Node,
			TargetPort: b.IfName,
			Connection: ConnVeth,
			MTU:        l.MTU,
		})
	}
	return json.Marshal(g)
}

// ParseGraphJSON converts graph-JSON back into a Topology. Edge IDs that
// match the deterministic "node:ifname-node:ifname" shape LinkName
// produces are treated as unnamed (Name left empty) so re-exporting to
// YAML reproduces the original, un-annotated link declaration.
func ParseGraphJSON(data []byte) (*Topology, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}

	t := &Topology{Nodes: make([]Node, 0, len(g.Nodes)), Links: make([]Link, 0, len(g.Edges))}
	for _, n := range g.Nodes {
		t.Nodes = append(t.Nodes, Node{Name: n.ID, Kind: n.Kind, ImageRef: n.Data.ImageRef, HW: n.Data.HW})
	}
	for _, e := range g.Edges {
		l := Link{
			Endpoints: [2]Endpoint{
				{Node: e.Source, IfName: e.SourcePort},
				{Node: e.Target, IfName: e.TargetPort},
			},
			MTU: e.MTU,
		}
		if e.ID != l.LinkName() {
			l.Name = e.ID
		}
		t.Links = append(t.Links, l)
	}
	return t, nil
}
