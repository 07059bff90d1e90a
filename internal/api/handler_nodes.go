package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/statemachine"
)

// UpdateNodeDesiredState handles PATCH /labs/:lab_id/nodes/:node_id.
func (s *Server) UpdateNodeDesiredState(c *gin.Context) {
	var req updateNodeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	labID, nodeID := c.Param("lab_id"), c.Param("node_id")
	desired := models.NodeDesiredState(req.DesiredState)

	if err := s.store.NodeStates.SetDesiredState(c.Request.Context(), labID, nodeID, desired); err != nil {
		respondError(c, err)
		return
	}

	job, err := s.jobs.Submit(c.Request.Context(), labID, c.Query("user_id"), "sync:node:"+nodeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, jobResponse{JobID: job.ID})
}

// BulkUpdateNodes handles POST /labs/:lab_id/nodes/bulk (spec §6 and §8 S3).
func (s *Server) BulkUpdateNodes(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	labID := c.Param("lab_id")
	desired := models.NodeDesiredState(req.State)

	states, err := s.store.NodeStates.ListByLab(ctx, labID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := bulkUpdateResponse{}
	var anyProceeded bool
	for _, ns := range states {
		switch statemachine.ClassifyBulkCommand(ns.ActualState, desired) {
		case statemachine.BulkSkipTransitional:
			resp.SkippedTransitional++
		case statemachine.BulkAlreadyInState:
			resp.AlreadyInState++
		case statemachine.BulkResetAndProceed, statemachine.BulkProceed:
			if err := s.store.NodeStates.SetDesiredState(ctx, labID, ns.NodeID, desired); err != nil {
				respondError(c, err)
				return
			}
			resp.Affected++
			anyProceeded = true
		}
	}

	if anyProceeded {
		if _, err := s.jobs.Submit(ctx, labID, c.Query("user_id"), "sync"); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

// RetryNodeEnforcement handles POST /labs/:lab_id/nodes/:node_id/retry,
// clearing the enforcement-attempt cap's fail flag so the next reconciler
// pass issues another start/stop call (spec §4.8, §7 "manual retry
// action").
func (s *Server) RetryNodeEnforcement(c *gin.Context) {
	labID, nodeID := c.Param("lab_id"), c.Param("node_id")
	if err := s.nodes.RetryEnforcement(c.Request.Context(), labID, nodeID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
