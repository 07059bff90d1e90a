// Package operstate computes the derived per-endpoint operational state
// described in spec §4.9. It is pure: no I/O, no clock reads beyond what
// the caller passes in for oper_epoch bookkeeping.
package operstate

import "github.com/netlab-io/controller/internal/models"

// EndpointInputs are the prerequisite booleans strict-ANDed to derive an
// endpoint's oper state.
type EndpointInputs struct {
	AdminUp          bool
	LocalNodeRunning bool
	LocalIfUp        bool
	PeerHostOnline   bool
	PeerNodeRunning  bool
	PeerIfUp         bool

	// Transport describes the link-level transport backing this endpoint.
	IsCrossHost       bool
	SameHostLinkUp    bool
	BothVxlanAttached bool
	ActualState       models.LinkActualState
}

// transportState derives the "transport-up" predicate: same-host link
// up → up; both VXLAN sides attached and actual=up → up; actual=error →
// degraded; else down. The inputs carry only whether both VXLAN sides are
// attached, so a cross-host link with one side attached and actual=up is
// reported down, not degraded.
func transportState(in EndpointInputs) models.OperState {
	if !in.IsCrossHost {
		if in.SameHostLinkUp {
			return models.OperUp
		}
		if in.ActualState == models.LinkError {
			return models.OperDegraded
		}
		return models.OperDown
	}
	switch {
	case in.BothVxlanAttached && in.ActualState == models.LinkUp:
		return models.OperUp
	case in.ActualState == models.LinkError:
		return models.OperDegraded
	default:
		return models.OperDown
	}
}

// Derive computes (oper_state, oper_reason) for one endpoint from the
// strict AND of its prerequisites, per spec §4.9.
func Derive(in EndpointInputs) (models.OperState, models.OperReason) {
	switch {
	case !in.AdminUp:
		return models.OperDown, models.ReasonAdminDown
	case !in.LocalNodeRunning:
		return models.OperDown, models.ReasonLocalNodeDown
	case !in.LocalIfUp:
		return models.OperDown, models.ReasonLocalInterfaceDown
	case !in.PeerHostOnline:
		return models.OperDown, models.ReasonPeerHostOffline
	case !in.PeerNodeRunning:
		return models.OperDown, models.ReasonPeerNodeDown
	case !in.PeerIfUp:
		return models.OperDown, models.ReasonPeerInterfaceDown
	}

	transport := transportState(in)
	switch transport {
	case models.OperUp:
		return models.OperUp, models.ReasonNone
	case models.OperDegraded:
		return models.OperDegraded, models.ReasonTransportDegraded
	default:
		return models.OperDown, models.ReasonTransportDown
	}
}

// Changed reports whether any of the four tracked fields differ between
// old and new, which is the trigger for bumping oper_epoch and emitting a
// link_oper_transition event (spec §4.9).
func Changed(oldSourceState models.OperState, oldSourceReason models.OperReason, oldTargetState models.OperState, oldTargetReason models.OperReason,
	newSourceState models.OperState, newSourceReason models.OperReason, newTargetState models.OperState, newTargetReason models.OperReason) bool {
	return oldSourceState != newSourceState ||
		oldSourceReason != newSourceReason ||
		oldTargetState != newTargetState ||
		oldTargetReason != newTargetReason
}
