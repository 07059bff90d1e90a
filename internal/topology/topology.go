// Package topology parses and serialises lab topology declarations in
// both of spec §6's wire variants: a human-authored YAML form and a
// graph-JSON form (nodes/edges) suited to visual editors. Both round-trip
// through the same in-memory Topology value (spec §8 "Parse topology YAML
// → graph JSON → YAML produces the same YAML").
package topology

// NodeKind is a tagged-union discriminator replacing the source's
// untyped dict payload for node declarations (spec §9 "Dynamic-typing
// removal").
type NodeKind string

const (
	KindLinux    NodeKind = "linux"
	KindVM       NodeKind = "vm"
	KindRouter   NodeKind = "router"
	KindSwitch   NodeKind = "switch"
	KindExternal NodeKind = "external"
)

// Node is one declared topology node.
type Node struct {
	Name     string            `yaml:"name" json:"name"`
	Kind     NodeKind          `yaml:"kind" json:"kind"`
	ImageRef string            `yaml:"image,omitempty" json:"image,omitempty"`
	HW       map[string]string `yaml:"hw,omitempty" json:"hw,omitempty"`
}

// Endpoint is one side of a Link declaration.
type Endpoint struct {
	Node   string `yaml:"node" json:"node"`
	IfName string `yaml:"ifname" json:"ifname"`
}

// Link is one declared topology link between exactly two endpoints.
type Link struct {
	Name      string     `yaml:"name,omitempty" json:"name,omitempty"`
	Endpoints [2]Endpoint `yaml:"endpoints" json:"endpoints"`
	MTU       int        `yaml:"mtu,omitempty" json:"mtu,omitempty"`
}

// Topology is the full declaration for one lab: nodes plus the links
// between them.
type Topology struct {
	Nodes []Node `yaml:"nodes" json:"nodes"`
	Links []Link `yaml:"links" json:"links"`
}

// LinkName returns l's explicit name, or a deterministic derived one when
// unset, matching the "r1:eth1-r2:eth1" shape used elsewhere for hashing
// (spec §4.6).
func (l Link) LinkName() string {
	if l.Name != "" {
		return l.Name
	}
	a, b := l.Endpoints[0], l.Endpoints[1]
	return a.Node + ":" + a.IfName + "-" + b.Node + ":" + b.IfName
}
