package linkmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocateVNI_Deterministic(t *testing.T) {
	a := AllocateVNI("lab1", "r1:eth1-r2:eth1")
	b := AllocateVNI("lab1", "r1:eth1-r2:eth1")
	assert.Equal(t, a, b)
}

func TestAllocateVNI_Range(t *testing.T) {
	for _, name := range []string{"a", "b", "c", "r1:eth1-r2:eth1", ""} {
		vni := AllocateVNI("lab1", name)
		assert.GreaterOrEqual(t, vni, 1000)
		assert.Less(t, vni, 16_001_000)
	}
}

func TestAllocateVNI_DistinctLinksDiffer(t *testing.T) {
	a := AllocateVNI("lab1", "link-a")
	b := AllocateVNI("lab1", "link-b")
	assert.NotEqual(t, a, b)
}

func TestComputeVxlanPortName_Deterministic(t *testing.T) {
	a := ComputeVxlanPortName("lab1", "r1:eth1-r2:eth1")
	b := ComputeVxlanPortName("lab1", "r1:eth1-r2:eth1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 14)
	assert.Contains(t, a, "vxlan-")
}
