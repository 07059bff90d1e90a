package models

import "time"

// LinkEndpointReservation enforces the invariant that an (endpoint,
// interface) pair is claimed by at most one active link. Unique key is
// (lab, node, normalised-interface).
type LinkEndpointReservation struct {
	ID               string
	LabID            string
	NodeID           string
	NormalisedIfName string
	LinkID           string
	CreatedAt        time.Time
}
