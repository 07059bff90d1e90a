package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/netlab-io/controller/internal/cleanup"
	"github.com/netlab-io/controller/internal/liveedit"
	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/topology"
)

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateLab handles POST /labs.
func (s *Server) CreateLab(c *gin.Context) {
	var req createLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	lab := &models.Lab{
		ID:           uuid.NewString(),
		Name:         req.Name,
		OwnerID:      req.OwnerID,
		Provider:     models.Provider(req.Provider),
		State:        models.LabStopped,
		DefaultAgent: req.DefaultAgent,
	}
	if err := s.store.Labs.Create(c.Request.Context(), lab); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lab)
}

// ListLabs handles GET /labs?owner_id=....
func (s *Server) ListLabs(c *gin.Context) {
	owner := c.Query("owner_id")
	list, err := s.store.Labs.List(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetLab handles GET /labs/:lab_id.
func (s *Server) GetLab(c *gin.Context) {
	lab, err := s.store.Labs.Get(c.Request.Context(), c.Param("lab_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lab)
}

// DeleteLab handles DELETE /labs/:lab_id. It deletes the lab row in the
// request path and then publishes a LAB_DELETED cleanup event, whose
// handler removes the rows the lab owned.
func (s *Server) DeleteLab(c *gin.Context) {
	ctx := c.Request.Context()
	labID := c.Param("lab_id")

	if err := s.store.Labs.Delete(ctx, labID); err != nil {
		respondError(c, err)
		return
	}
	if s.cleanup != nil {
		s.cleanup.Publish(ctx, cleanup.Event{Type: cleanup.LabDeleted, LabID: labID})
	}
	c.Status(http.StatusNoContent)
}

// ExportTopology handles GET /labs/:lab_id/topology?format=yaml|graph.
func (s *Server) ExportTopology(c *gin.Context) {
	ctx := c.Request.Context()
	labID := c.Param("lab_id")

	nodes, err := s.store.Nodes.ListByLab(ctx, labID)
	if err != nil {
		respondError(c, err)
		return
	}
	links, err := s.store.Links.ListByLab(ctx, labID)
	if err != nil {
		respondError(c, err)
		return
	}

	top := &topology.Topology{Nodes: make([]topology.Node, 0, len(nodes)), Links: make([]topology.Link, 0, len(links))}
	for _, n := range nodes {
		top.Nodes = append(top.Nodes, topology.Node{Name: n.DisplayName, Kind: topology.NodeKind(n.Kind), ImageRef: n.ImageRef, HW: n.HardwareOverrides})
	}
	for _, l := range links {
		top.Links = append(top.Links, topology.Link{
			Name: l.Name,
			Endpoints: [2]topology.Endpoint{
				{Node: l.EndpointA.NodeID, IfName: l.EndpointA.IfName},
				{Node: l.EndpointB.NodeID, IfName: l.EndpointB.IfName},
			},
			MTU: l.MTU,
		})
	}

	if c.Query("format") == "graph" {
		data, err := top.ToGraphJSON()
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", data)
		return
	}

	data, err := top.ToYAML()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", data)
}

// ImportTopology handles PUT /labs/:lab_id/topology?format=yaml|graph. It
// creates a new Node/Link row for every node and link in the parsed
// declaration; existing rows of the lab are not removed. Placement and
// deploy are separate steps (LabUp).
func (s *Server) ImportTopology(c *gin.Context) {
	ctx := c.Request.Context()
	labID := c.Param("lab_id")

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var top *topology.Topology
	if c.Query("format") == "graph" {
		top, err = topology.ParseGraphJSON(body)
	} else {
		top, err = topology.ParseYAML(body)
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	nodeIDs := make(map[string]string, len(top.Nodes))
	for _, n := range top.Nodes {
		node := &models.Node{
			ID:                uuid.NewString(),
			LabID:             labID,
			DisplayName:       n.Name,
			ContainerName:     labID + "-" + n.Name,
			Kind:              string(n.Kind),
			ImageRef:          n.ImageRef,
			HardwareOverrides: n.HW,
		}
		if err := s.store.Nodes.Create(ctx, node); err != nil {
			respondError(c, err)
			return
		}
		nodeIDs[n.Name] = node.ID

		if err := s.store.NodeStates.Upsert(ctx, &models.NodeState{
			LabID: labID, NodeID: node.ID,
			DesiredState: models.NodeDesiredRunning, ActualState: models.NodeUndeployed,
		}); err != nil {
			respondError(c, err)
			return
		}
	}

	for _, l := range top.Links {
		link := &models.Link{
			ID:        uuid.NewString(),
			LabID:     labID,
			Name:      l.LinkName(),
			EndpointA: models.Endpoint{NodeID: nodeIDs[l.Endpoints[0].Node], IfName: l.Endpoints[0].IfName},
			EndpointB: models.Endpoint{NodeID: nodeIDs[l.Endpoints[1].Node], IfName: l.Endpoints[1].IfName},
			MTU:       l.MTU,
		}
		if err := s.store.Links.Create(ctx, link); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"nodes": len(top.Nodes), "links": len(top.Links)})
}

// LabUp handles POST /labs/:lab_id/up — queues a deploy job (spec §6: "lab
// up/down/destroy triggers ... all return a Job id").
func (s *Server) LabUp(c *gin.Context) {
	s.submitLabJob(c, "up")
}

// LabDown handles POST /labs/:lab_id/down.
func (s *Server) LabDown(c *gin.Context) {
	s.submitLabJob(c, "down")
}

// LabDestroy handles POST /labs/:lab_id/destroy.
func (s *Server) LabDestroy(c *gin.Context) {
	s.submitLabJob(c, "down")
}

func (s *Server) submitLabJob(c *gin.Context, action string) {
	ctx := c.Request.Context()
	labID := c.Param("lab_id")
	userID := c.Query("user_id")

	job, err := s.jobs.Submit(ctx, labID, userID, action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, jobResponse{JobID: job.ID})
}

// ListNodes handles GET /labs/:lab_id/nodes.
func (s *Server) ListNodes(c *gin.Context) {
	list, err := s.store.NodeStates.ListByLab(c.Request.Context(), c.Param("lab_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListLabJobs handles GET /labs/:lab_id/jobs.
func (s *Server) ListLabJobs(c *gin.Context) {
	list, err := s.store.Jobs.ListByLab(c.Request.Context(), c.Param("lab_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SubmitLiveEdit handles POST /labs/:lab_id/edits (spec §4.11).
func (s *Server) SubmitLiveEdit(c *gin.Context) {
	var req liveEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	removed := make([]liveedit.RemovedNode, 0, len(req.Removed))
	for _, r := range req.Removed {
		removed = append(removed, liveedit.RemovedNode{NodeID: r.NodeID, HostID: r.HostID})
	}

	s.live.Submit(c.Request.Context(), c.Param("lab_id"), req.Added, removed)
	c.Status(http.StatusAccepted)
}
