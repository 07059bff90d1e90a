package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// serveLabStateWS handles GET /labs/:lab_id/ws/state (spec §6), handing
// the upgrade off to the wsgateway package.
func (s *Server) serveLabStateWS(c *gin.Context) {
	s.ws.ServeLabState(c.Writer, c.Request, c.Param("lab_id"))
}

// serveConsoleWS handles GET /labs/:lab_id/nodes/:node_id/console (spec
// §6): resolves the node's owning agent from its Placement row, then
// hands off to wsgateway's bidirectional byte-proxy relay.
func (s *Server) serveConsoleWS(c *gin.Context) {
	ctx := c.Request.Context()
	labID, nodeID := c.Param("lab_id"), c.Param("node_id")

	placement, err := s.store.Placements.Get(ctx, labID, nodeID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "node has no placement"})
		return
	}
	host, err := s.store.Hosts.Get(ctx, placement.HostID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "placement host not found"})
		return
	}

	client := s.agents.Get(host.ID, host.Address)
	s.ws.ServeConsole(c.Writer, c.Request, client, labID, nodeID)
}
