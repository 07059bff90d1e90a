package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/netlab-io/controller/internal/models"
)

// RegisterAgent handles POST /agents (spec §6 "agent registration").
func (s *Server) RegisterAgent(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	host := &models.Host{
		ID:            req.ID,
		Address:       req.Address,
		Status:        models.HostOnline,
		LastHeartbeat: time.Now(),
	}
	if err := s.store.Hosts.Upsert(c.Request.Context(), host); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, host)
}

// AgentHeartbeat handles POST /agents/:host_id/heartbeat.
func (s *Server) AgentHeartbeat(c *gin.Context) {
	hostID := c.Param("host_id")
	var req heartbeatRequest
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	if err := s.store.Hosts.Touch(ctx, hostID, time.Now()); err != nil {
		respondError(c, err)
		return
	}
	if err := s.store.Hosts.SetStatus(ctx, hostID, models.HostOnline); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAgents handles GET /agents.
func (s *Server) ListAgents(c *gin.Context) {
	list, err := s.store.Hosts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
