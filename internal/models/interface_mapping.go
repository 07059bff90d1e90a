package models

import "time"

// InterfaceMapping records observed OVS state for a (lab, node, linux-if)
// triple, refreshed by the reconciler.
type InterfaceMapping struct {
	LabID       string
	NodeID      string
	LinuxIfName string

	OVSPort     string
	Bridge      string
	VlanTag     int
	VendorIfName string

	LastVerifiedAt time.Time
}
