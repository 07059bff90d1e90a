package topology

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `nodes:
    - name: r1
      kind: linux
    - name: r2
      kind: linux
links:
    - endpoints:
        - node: r1
          ifname: eth1
        - node: r2
          ifname: eth1
`

func TestRoundTrip_YAMLToGraphJSONToYAML(t *testing.T) {
	parsed, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	graphBytes, err := parsed.ToGraphJSON()
	require.NoError(t, err)

	rebuilt, err := ParseGraphJSON(graphBytes)
	require.NoError(t, err)

	out, err := rebuilt.ToYAML()
	require.NoError(t, err)

	assert.Equal(t, sampleYAML, string(out))
}

func TestLinkName_DerivedWhenUnnamed(t *testing.T) {
	l := Link{Endpoints: [2]Endpoint{{Node: "r1", IfName: "eth1"}, {Node: "r2", IfName: "eth1"}}}
	assert.Equal(t, "r1:eth1-r2:eth1", l.LinkName())
}

func TestLinkName_ExplicitNamePreserved(t *testing.T) {
	l := Link{Name: "uplink", Endpoints: [2]Endpoint{{Node: "r1", IfName: "eth1"}, {Node: "r2", IfName: "eth1"}}}
	assert.Equal(t, "uplink", l.LinkName())
}

func TestParseGraphJSON_PreservesExplicitEdgeName(t *testing.T) {
	g := Graph{
		Nodes: []graphNode{{ID: "r1", Kind: KindLinux}, {ID: "r2", Kind: KindLinux}},
		Edges: []graphEdge{{ID: "uplink", Source: "r1", SourcePort: "eth1", Target: "r2", TargetPort: "eth1", Connection: ConnVeth}},
	}
	data, err := json.Marshal(g)
	require.NoError(t, err)

	top, err := ParseGraphJSON(data)
	require.NoError(t, err)
	require.Len(t, top.Links, 1)
	assert.Equal(t, "uplink", top.Links[0].Name)
}
