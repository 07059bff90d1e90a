package topology

import "gopkg.in/yaml.v3"

// ParseYAML decodes a topology YAML document into a Topology value.
func ParseYAML(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ToYAML encodes t back into its YAML wire form. Field order is fixed by
// the field order of the structs in topology.go (nodes before links, name before kind before
// image before hw), which is what makes the parse-YAML-to-graph-JSON-
// back-to-YAML round trip byte-identical: neither direction reorders
// fields or drops zero-value optionals differently.
func (t *Topology) ToYAML() ([]byte, error) {
	return yaml.Marshal(t)
}
