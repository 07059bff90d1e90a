// Package agentclient is the typed façade over each agent's API (spec
// §4.2): timeouts and retriability per operation, a closed error-category
// set, exponential backoff capped at 10s with at most 3 attempts, and
// connection pooling keyed by agent id. Transport is JSON-over-HTTP per
// spec §6; agents that report a grpc status code in their error body are
// categorised via status.Code (see errors.go), letting this package
// exercise google.golang.org/grpc/protobuf's status/codes vocabulary even
// though the request path itself is a plain HTTP call, not a live .proto
// service (see DESIGN.md).
package agentclient

import (
	"context"
	"time"

	"github.com/netlab-io/controller/internal/agentclient/agentpb"
)

// AgentClient is the operation set the core uses against one agent (spec
// §4.2's table).
type AgentClient interface {
	Deploy(ctx context.Context, req agentpb.DeployRequest) (*agentpb.DeployResponse, error)
	Destroy(ctx context.Context, req agentpb.DestroyRequest) (*agentpb.DestroyResponse, error)
	NodeAction(ctx context.Context, req agentpb.NodeActionRequest) (*agentpb.NodeActionResponse, error)
	Status(ctx context.Context, req agentpb.StatusRequest) (*agentpb.StatusResponse, error)
	Health(ctx context.Context) (*agentpb.HealthResponse, error)
	DiscoverLabs(ctx context.Context) (*agentpb.DiscoverLabsResponse, error)
	CleanupOrphans(ctx context.Context, req agentpb.CleanupOrphansRequest) error
	CreateLink(ctx context.Context, req agentpb.CreateLinkRequest) (*agentpb.CreateLinkResponse, error)
	SetCarrierState(ctx context.Context, req agentpb.SetCarrierStateRequest) error
	AttachOverlay(ctx context.Context, req agentpb.AttachOverlayRequest) (*agentpb.AttachOverlayResponse, error)
	DetachOverlay(ctx context.Context, req agentpb.DetachOverlayRequest) error
	SetPortVlan(ctx context.Context, req agentpb.SetPortVlanRequest) error
	GetPortVlan(ctx context.Context, port string) (*agentpb.GetPortVlanResponse, error)
	ReconcileVxlanPorts(ctx context.Context, req agentpb.ReconcileVxlanPortsRequest) error
	DeclarePortState(ctx context.Context, lab string, req agentpb.DeclarePortStateRequest) error
}

// operationSpec is the per-operation timeout/retriability table from
// spec §4.2.
type operationSpec struct {
	timeout          time.Duration
	retriesConnOnly  bool // "connection errors only"
	retryOnceNoMatterWhat bool // status(): "once"
}

var operationSpecs = map[string]operationSpec{
	"deploy":                 {timeout: 900 * time.Second, retriesConnOnly: true},
	"destroy":                {timeout: 300 * time.Second, retriesConnOnly: true},
	"node-action":            {timeout: 60 * time.Second, retriesConnOnly: true},
	"status":                 {timeout: 30 * time.Second, retryOnceNoMatterWhat: true},
	"health":                 {timeout: 5 * time.Second},
	"discover-labs":          {timeout: 30 * time.Second},
	"cleanup-orphans":        {timeout: 120 * time.Second},
	"create-link":            {timeout: 60 * time.Second},
	"set-carrier-state":      {timeout: 30 * time.Second},
	"attach-overlay":         {timeout: 60 * time.Second},
	"detach-overlay":         {timeout: 60 * time.Second},
	"set-port-vlan":          {timeout: 30 * time.Second},
	"get-port-vlan":          {timeout: 30 * time.Second},
	"reconcile-vxlan-ports":  {timeout: 60 * time.Second},
	"declare-port-state":     {timeout: 60 * time.Second},
}

// IsRetriable reports whether err's category is a transient one. Only
// network and timeout categories are considered transient; HTTP 4xx/5xx
// application errors are not. JobRunner's health monitor does not call it.
func IsRetriable(err error) bool {
	return CategoryOf(err).Retriable()
}

// backoffDelay returns the exponential backoff for attempt (0-indexed),
// capped at cap.
func backoffDelay(attempt int, cap time.Duration) time.Duration {
	d := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if d > cap {
		return cap
	}
	return d
}
