package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// httpAgentClient is the JSON-over-HTTP implementation of AgentClient for
// a single agent, sharing one underlying *http.Client across every call.
type httpAgentClient struct {
	agentID    string
	baseURL    string
	httpClient *http.Client
	backoffCap time.Duration
	maxAttempts int
}

func newHTTPAgentClient(agentID, baseURL string, httpClient *http.Client, backoffCap time.Duration, maxAttempts int) *httpAgentClient {
	return &httpAgentClient{
		agentID: agentID, baseURL: baseURL, httpClient: httpClient,
		backoffCap: backoffCap, maxAttempts: maxAttempts,
	}
}

func (c *httpAgentClient) do(ctx context.Context, opName, method, path string, body, out any, spec operationSpec) error {
	ctx, cancel := context.WithTimeout(ctx, spec.timeout)
	defer cancel()

	attempts := 1
	if spec.retriesConnOnly {
		attempts = c.maxAttempts
	} else if spec.retryOnceNoMatterWhat {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt-1, c.backoffCap)):
			case <-ctx.Done():
				return c.wrapTimeout(opName, ctx.Err())
			}
		}

		err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		cat := CategoryOf(err)
		if spec.retriesConnOnly && cat != models.CategoryNetwork {
			break
		}
		if !spec.retriesConnOnly && !spec.retryOnceNoMatterWhat {
			break
		}
	}
	return c.tagged(opName, lastErr)
}

func (c *httpAgentClient) doOnce(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apierrors.Wrap(models.CategoryValidation, "marshal request", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apierrors.Wrap(models.CategoryValidation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return c.wrapTimeout("", ctx.Err())
		}
		return apierrors.Wrap(models.CategoryNetwork, "agent unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &eb)

		cat := categorizeHTTPStatus(resp.StatusCode)
		if eb.AgentCode != "" {
			cat = categorizeGRPCCode(eb.AgentCode)
		}
		msg := eb.Message
		if msg == "" {
			msg = fmt.Sprintf("agent returned status %d", resp.StatusCode)
		}
		return apierrors.New(cat, msg, map[string]any{"status": resp.StatusCode})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apierrors.Wrap(models.CategoryServer, "decode response", err)
		}
	}
	return nil
}

func (c *httpAgentClient) wrapTimeout(opName string, err error) error {
	return apierrors.Wrap(models.CategoryTimeout, fmt.Sprintf("agent %s: %s timed out", c.agentID, opName), err)
}

func (c *httpAgentClient) tagged(opName string, err error) error {
	if err == nil {
		return nil
	}
	var ce *apierrors.CategorizedError
	if ceErr, ok := err.(*apierrors.CategorizedError); ok {
		ce = ceErr
	} else {
		ce = apierrors.Wrap(CategoryOf(err), "agent call failed", err)
	}
	if ce.Details == nil {
		ce.Details = map[string]any{}
	}
	ce.Details["agent_id"] = c.agentID
	ce.Details["operation"] = opName
	slog.Debug("agentclient: call finished with error", "agent_id", c.agentID, "operation", opName, "category", ce.Category, "message", ce.Message)
	return ce
}

func (c *httpAgentClient) Deploy(ctx context.Context, req agentpb.DeployRequest) (*agentpb.DeployResponse, error) {
	var out agentpb.DeployResponse
	err := c.do(ctx, "deploy", http.MethodPost, "/jobs/deploy", req, &out, operationSpecs["deploy"])
	return &out, err
}

func (c *httpAgentClient) Destroy(ctx context.Context, req agentpb.DestroyRequest) (*agentpb.DestroyResponse, error) {
	var out agentpb.DestroyResponse
	err := c.do(ctx, "destroy", http.MethodPost, "/jobs/destroy", req, &out, operationSpecs["destroy"])
	return &out, err
}

func (c *httpAgentClient) NodeAction(ctx context.Context, req agentpb.NodeActionRequest) (*agentpb.NodeActionResponse, error) {
	var out agentpb.NodeActionResponse
	err := c.do(ctx, "node-action", http.MethodPost, "/jobs/node-action", req, &out, operationSpecs["node-action"])
	return &out, err
}

func (c *httpAgentClient) Status(ctx context.Context, req agentpb.StatusRequest) (*agentpb.StatusResponse, error) {
	var out agentpb.StatusResponse
	err := c.do(ctx, "status", http.MethodPost, "/labs/status", req, &out, operationSpecs["status"])
	return &out, err
}

func (c *httpAgentClient) Health(ctx context.Context) (*agentpb.HealthResponse, error) {
	var out agentpb.HealthResponse
	err := c.do(ctx, "health", http.MethodGet, "/health", nil, &out, operationSpecs["health"])
	return &out, err
}

func (c *httpAgentClient) DiscoverLabs(ctx context.Context) (*agentpb.DiscoverLabsResponse, error) {
	var out agentpb.DiscoverLabsResponse
	err := c.do(ctx, "discover-labs", http.MethodGet, "/discover-labs", nil, &out, operationSpecs["discover-labs"])
	return &out, err
}

func (c *httpAgentClient) CleanupOrphans(ctx context.Context, req agentpb.CleanupOrphansRequest) error {
	return c.do(ctx, "cleanup-orphans", http.MethodPost, "/cleanup-orphans", req, nil, operationSpecs["cleanup-orphans"])
}

func (c *httpAgentClient) CreateLink(ctx context.Context, req agentpb.CreateLinkRequest) (*agentpb.CreateLinkResponse, error) {
	var out agentpb.CreateLinkResponse
	err := c.do(ctx, "create-link", http.MethodPost, "/overlay/create-link", req, &out, operationSpecs["create-link"])
	return &out, err
}

func (c *httpAgentClient) SetCarrierState(ctx context.Context, req agentpb.SetCarrierStateRequest) error {
	return c.do(ctx, "set-carrier-state", http.MethodPost, "/overlay/set-carrier-state", req, nil, operationSpecs["set-carrier-state"])
}

func (c *httpAgentClient) AttachOverlay(ctx context.Context, req agentpb.AttachOverlayRequest) (*agentpb.AttachOverlayResponse, error) {
	var out agentpb.AttachOverlayResponse
	err := c.do(ctx, "attach-overlay", http.MethodPost, "/overlay/attach", req, &out, operationSpecs["attach-overlay"])
	return &out, err
}

func (c *httpAgentClient) DetachOverlay(ctx context.Context, req agentpb.DetachOverlayRequest) error {
	return c.do(ctx, "detach-overlay", http.MethodPost, "/overlay/detach", req, nil, operationSpecs["detach-overlay"])
}

func (c *httpAgentClient) SetPortVlan(ctx context.Context, req agentpb.SetPortVlanRequest) error {
	return c.do(ctx, "set-port-vlan", http.MethodPost, "/overlay/set-port-vlan", req, nil, operationSpecs["set-port-vlan"])
}

func (c *httpAgentClient) GetPortVlan(ctx context.Context, port string) (*agentpb.GetPortVlanResponse, error) {
	var out agentpb.GetPortVlanResponse
	path := "/overlay/get-port-vlan?port=" + url.QueryEscape(port)
	err := c.do(ctx, "get-port-vlan", http.MethodGet, path, nil, &out, operationSpecs["get-port-vlan"])
	return &out, err
}

func (c *httpAgentClient) ReconcileVxlanPorts(ctx context.Context, req agentpb.ReconcileVxlanPortsRequest) error {
	return c.do(ctx, "reconcile-vxlan-ports", http.MethodPost, "/overlay/reconcile-ports", req, nil, operationSpecs["reconcile-vxlan-ports"])
}

func (c *httpAgentClient) DeclarePortState(ctx context.Context, lab string, req agentpb.DeclarePortStateRequest) error {
	path := fmt.Sprintf("/labs/%s/port-state/declare", url.PathEscape(lab))
	return c.do(ctx, "declare-port-state", http.MethodPost, path, req, nil, operationSpecs["declare-port-state"])
}
