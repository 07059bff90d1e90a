// Package jobrunner drives Job execution: a claim-and-dispatch worker
// pool plus a health-monitor loop, ported from the teacher's pkg/queue
// (WorkerPool, Worker, orphan-detection) onto this domain's deploy/
// destroy/sync/node-action action set (spec §4.10).
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/agentclient/agentpb"
	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/config"
	"github.com/netlab-io/controller/internal/events"
	"github.com/netlab-io/controller/internal/linkmanager"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/nodereconciler"
	"github.com/netlab-io/controller/internal/persistence"
)

// AgentResolver looks up a host's AgentClient.
type AgentResolver interface {
	Get(agentID, baseURL string) agentclient.AgentClient
}

// Runner owns job claiming, execution, and the health-monitor loop.
type Runner struct {
	store    *persistence.Store
	agents   AgentResolver
	nodes    *nodereconciler.Reconciler
	links    *linkmanager.Manager
	publish  *events.EventPublisher
	cfg      config.JobRunnerConfig

	pollInterval time.Duration
	batchSize    int
}

// New constructs a Runner.
func New(store *persistence.Store, agents AgentResolver, nodes *nodereconciler.Reconciler, links *linkmanager.Manager, publish *events.EventPublisher, cfg config.JobRunnerConfig) *Runner {
	return &Runner{store: store, agents: agents, nodes: nodes, links: links, publish: publish, cfg: cfg, pollInterval: 2 * time.Second, batchSize: 10}
}

// actionKind classifies a Job.Action string for deadline lookup and
// dispatch; "sync:node:<id>" and "node:<name>:<op>" share prefixes with
// their coarser kinds.
func actionKind(action string) string {
	switch {
	case action == "up":
		return "deploy"
	case action == "down":
		return "destroy"
	case action == "sync" || strings.HasPrefix(action, "sync:"):
		return "sync"
	case strings.HasPrefix(action, "node:"):
		return "node-action"
	default:
		return "sync"
	}
}

// Submit creates every job with status queued. When the user already has
// max_concurrent_jobs_per_user running jobs it only logs that fact; the
// claim loop in Run does not look at per-user counts, so a queued job of a
// user at the limit is claimed like any other.
func (r *Runner) Submit(ctx context.Context, labID, userID, action string) (*models.Job, error) {
	running, err := r.store.Jobs.CountRunningForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := models.JobQueued
	if running >= r.cfg.MaxConcurrentPerUser {
		slog.Info("jobrunner: user at concurrency limit, job stays queued", "user_id", userID, "running", running)
	}

	job := &models.Job{ID: newJobID(), LabID: labID, UserID: userID, Action: action, Status: status}
	if err := r.store.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Execute dispatches one claimed job to the right handler and enforces its
// per-action-kind deadline.
func (r *Runner) Execute(ctx context.Context, job *models.Job) {
	deadline := r.cfg.DeadlineFor(actionKind(job.Action))
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	err := r.dispatch(runCtx, job)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		r.finish(ctx, job, models.JobFailed, "job exceeded its deadline")
	case err != nil:
		r.finish(ctx, job, models.JobFailed, err.Error())
	default:
		r.finish(ctx, job, models.JobCompleted, "")
	}
}

func (r *Runner) dispatch(ctx context.Context, job *models.Job) error {
	r.progress(ctx, job, "started")
	defer r.progress(ctx, job, "finished")

	switch {
	case job.Action == "up":
		return r.runDeploy(ctx, job)
	case job.Action == "down":
		return r.runDestroy(ctx, job)
	case job.Action == "sync" || strings.HasPrefix(job.Action, "sync:"):
		return r.runSync(ctx, job)
	case strings.HasPrefix(job.Action, "node:"):
		return r.runNodeAction(ctx, job)
	default:
		return apierrors.New(models.CategoryValidation, "unknown job action", map[string]any{"action": job.Action})
	}
}

// runDeploy resolves each node's host placement, sends one Deploy RPC per
// host with that host's slice of the topology, settles the deployed nodes'
// NodeState rows through pending→running, then wires up the lab's links
// now that every container placement is known (spec §2, §4.2, §4.6).
func (r *Runner) runDeploy(ctx context.Context, job *models.Job) error {
	lab, err := r.store.Labs.Get(ctx, job.LabID)
	if err != nil {
		return err
	}
	nodes, err := r.store.Nodes.ListByLab(ctx, job.LabID)
	if err != nil {
		return err
	}
	links, err := r.store.Links.ListByLab(ctx, job.LabID)
	if err != nil {
		return err
	}

	byHost := map[string][]*models.Node{}
	placements := make(map[string]string, len(nodes))
	for _, n := range nodes {
		hostID, err := r.placementFor(ctx, job.LabID, n.ID, lab)
		if err != nil {
			return err
		}
		byHost[hostID] = append(byHost[hostID], n)
		placements[n.ID] = hostID
	}

	for hostID, hostNodes := range byHost {
		host, err := r.store.Hosts.Get(ctx, hostID)
		if err != nil {
			return err
		}
		client := r.agents.Get(host.ID, host.Address)
		if client == nil {
			return apierrors.New(models.CategoryAgent, "no agent client for host", map[string]any{"host_id": hostID})
		}

		resp, err := client.Deploy(ctx, agentpb.DeployRequest{
			JobID: job.ID, LabID: job.LabID, Provider: string(lab.Provider),
			Topology: buildAgentTopology(hostNodes, links),
		})
		if err != nil {
			return err
		}
		if !resp.Accepted {
			return apierrors.New(models.CategoryAgent, "agent declined deploy", map[string]any{"host_id": hostID})
		}

		for _, n := range hostNodes {
			if err := r.settleNodeAfterDeploy(ctx, job.LabID, n.ID, hostID); err != nil {
				return err
			}
		}
	}

	if err := r.links.DeployLabLinks(ctx, job.LabID, placements); err != nil {
		return err
	}
	return r.nodes.ReconcileLab(ctx, job.LabID)
}

// placementFor returns the host a node should deploy to: an existing
// Placement row if a prior live-edit already pinned one, else the lab's
// DefaultAgent, persisted as the node's placement for future reference.
func (r *Runner) placementFor(ctx context.Context, labID, nodeID string, lab *models.Lab) (string, error) {
	p, err := r.store.Placements.Get(ctx, labID, nodeID)
	if err == nil {
		return p.HostID, nil
	}
	if !errors.Is(err, apierrors.ErrNotFound) {
		return "", err
	}
	if lab.DefaultAgent == "" {
		return "", apierrors.New(models.CategoryValidation, "node has no placement and lab has no default agent", map[string]any{"node_id": nodeID})
	}
	if err := r.store.Placements.Set(ctx, &models.Placement{LabID: labID, NodeName: nodeID, HostID: lab.DefaultAgent}); err != nil {
		return "", err
	}
	return lab.DefaultAgent, nil
}

// buildAgentTopology scopes a Topology down to what one agent needs: its
// own nodes, plus every link touching at least one of them (spec §4.2's
// Topology doc: "scoped to what a single agent needs to realise its
// nodes").
func buildAgentTopology(hostNodes []*models.Node, links []*models.Link) agentpb.Topology {
	onHost := make(map[string]bool, len(hostNodes))
	topo := agentpb.Topology{Nodes: make([]agentpb.TopologyNode, 0, len(hostNodes))}
	for _, n := range hostNodes {
		onHost[n.ID] = true
		topo.Nodes = append(topo.Nodes, agentpb.TopologyNode{
			Name: n.ID, Kind: n.Kind, ImageRef: n.ImageRef, HW: n.HardwareOverrides,
		})
	}
	for _, l := range links {
		if !onHost[l.EndpointA.NodeID] && !onHost[l.EndpointB.NodeID] {
			continue
		}
		topo.Links = append(topo.Links, agentpb.TopologyLink{
			Name: l.Name,
			A:    agentpb.TopologyLinkSide{Node: l.EndpointA.NodeID, IfName: l.EndpointA.IfName},
			B:    agentpb.TopologyLinkSide{Node: l.EndpointB.NodeID, IfName: l.EndpointB.IfName},
			MTU:  l.MTU,
		})
	}
	return topo
}

// settleNodeAfterDeploy records the node's host and walks its NodeState
// from undeployed to running; spec §6 defines no async node-status
// callback, so the synchronous Deploy RPC's acceptance is the signal
// driving this transition.
func (r *Runner) settleNodeAfterDeploy(ctx context.Context, labID, nodeID, hostID string) error {
	ns, err := r.store.NodeStates.Get(ctx, labID, nodeID)
	if err != nil {
		return err
	}
	ns.HostID = hostID
	if err := r.store.NodeStates.Upsert(ctx, ns); err != nil {
		return err
	}
	if err := r.store.NodeStates.TransitionActualState(ctx, labID, nodeID, models.NodePending, ""); err != nil {
		return err
	}
	return r.store.NodeStates.TransitionActualState(ctx, labID, nodeID, models.NodeRunning, "")
}

// runDestroy calls Destroy on every unique host a node is placed on, tears
// down overlay links, then clears the lab's NodeState and Placement rows
// so a later re-deploy starts from a clean placement map.
func (r *Runner) runDestroy(ctx context.Context, job *models.Job) error {
	placements, err := r.store.Placements.ListByLab(ctx, job.LabID)
	if err != nil {
		return err
	}
	hosts := map[string]bool{}
	for _, p := range placements {
		if p.HostID != "" {
			hosts[p.HostID] = true
		}
	}
	for hostID := range hosts {
		host, err := r.store.Hosts.Get(ctx, hostID)
		if err != nil {
			return err
		}
		client := r.agents.Get(host.ID, host.Address)
		if client == nil {
			return apierrors.New(models.CategoryAgent, "no agent client for host", map[string]any{"host_id": hostID})
		}
		if _, err := client.Destroy(ctx, agentpb.DestroyRequest{JobID: job.ID, LabID: job.LabID}); err != nil {
			return err
		}
	}

	if err := r.links.Teardown(ctx, job.LabID); err != nil {
		return err
	}

	states, err := r.store.NodeStates.ListByLab(ctx, job.LabID)
	if err != nil {
		return err
	}
	for _, ns := range states {
		if err := r.store.NodeStates.Delete(ctx, job.LabID, ns.NodeID); err != nil {
			return err
		}
	}
	return r.store.Placements.DeleteByLab(ctx, job.LabID)
}

// runSync covers both full-lab sync and single-node sync ("sync:node:<id>"
// from LiveEdit), delegating to NodeReconciler (spec §4.8, §4.11).
func (r *Runner) runSync(ctx context.Context, job *models.Job) error {
	return r.nodes.ReconcileLab(ctx, job.LabID)
}

func (r *Runner) runNodeAction(ctx context.Context, job *models.Job) error {
	// "node:<name>:<op>" — NodeReconciler already owns the agent call path;
	// a single-node action is just enforcement scoped to one node, so a
	// full-lab reconcile pass converges it (desired state was already set
	// by whoever created this job).
	return r.nodes.ReconcileLab(ctx, job.LabID)
}

func (r *Runner) finish(ctx context.Context, job *models.Job, status models.JobStatus, errSummary string) {
	if err := r.store.Jobs.SetTerminalStatus(ctx, job.ID, status, errSummary); err != nil {
		slog.Warn("jobrunner: failed to set terminal status", "job_id", job.ID, "error", err)
	}
	r.publish.PublishJobProgress(ctx, job.LabID, map[string]any{
		"job_id": job.ID, "status": status, "error_summary": errSummary,
	})
}

func (r *Runner) progress(ctx context.Context, job *models.Job, phase string) {
	r.publish.PublishJobProgress(ctx, job.LabID, map[string]any{
		"job_id": job.ID, "phase": phase,
	})
}

func newJobID() string {
	return fmt.Sprintf("job-%d", time.Now().UnixNano())
}
