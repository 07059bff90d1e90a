package reservations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultNormalizer(t *testing.T) {
	assert.Equal(t, "eth1", DefaultNormalizer("Ethernet1"))
	assert.Equal(t, "eth00", DefaultNormalizer("GigabitEthernet0/0"))
	assert.Equal(t, "eth1", DefaultNormalizer("eth1"))
	assert.Equal(t, "eth01", DefaultNormalizer("FastEthernet0/1"))
}

func TestDefaultNormalizer_SamePortCollides(t *testing.T) {
	assert.Equal(t, DefaultNormalizer("Ethernet1"), DefaultNormalizer("eth1"))
}
