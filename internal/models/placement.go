package models

// Placement is the authoritative map of which agent owns which container,
// keyed by (lab, node-name).
type Placement struct {
	LabID    string
	NodeName string
	HostID   string
}
