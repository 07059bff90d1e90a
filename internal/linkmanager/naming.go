// Package linkmanager allocates deterministic VNIs and VXLAN port names,
// and drives same-host and cross-host link creation/teardown against
// agents (spec §4.6).
package linkmanager

import (
	"crypto/md5" //nolint:gosec // dispersal only, not security (spec §9)
	"encoding/binary"
	"encoding/hex"
)

const (
	vniSpace = 16_000_000
	vniBase  = 1000
)

// key is the canonical "lab_id:link_name" string both allocate_vni and
// compute_vxlan_port_name hash over.
func key(labID, linkName string) string {
	return labID + ":" + linkName
}

// AllocateVNI deterministically derives a VNI from (lab, link): the same
// pair always yields the same VNI across controller restarts, and
// distinct links get distinct VNIs with overwhelming probability.
// Collisions are non-catastrophic: the duplicate-tunnel detector (spec
// §4.7) surfaces them. Result is always in [1000, 16_001_000) (spec §8
// invariant 5).
func AllocateVNI(labID, linkName string) int {
	sum := md5.Sum([]byte(key(labID, linkName))) //nolint:gosec
	h := binary.BigEndian.Uint32(sum[:4])
	return int(h%vniSpace) + vniBase
}

// ComputeVxlanPortName deterministically derives the OVS port name for a
// link: "vxlan-" + first 8 hex chars of md5(lab_id:link_name) — 14
// characters total, within OVS interface-name limits (spec §4.6). MD5 is
// used purely for dispersal here, not as a security primitive (spec §9).
func ComputeVxlanPortName(labID, linkName string) string {
	sum := md5.Sum([]byte(key(labID, linkName))) //nolint:gosec
	return "vxlan-" + hex.EncodeToString(sum[:])[:8]
}
