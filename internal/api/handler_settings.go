package api

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// defaultOverlayMTU leaves room for the 50-byte VXLAN/UDP/outer-IP
// encapsulation overhead under a 1500-byte underlay MTU.
const defaultOverlayMTU = 1450

var overlayMTU atomic.Int32

func init() { overlayMTU.Store(defaultOverlayMTU) }

// GetOverlayMTU handles GET /settings/overlay-mtu.
func (s *Server) GetOverlayMTU(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mtu": overlayMTU.Load()})
}

// SetOverlayMTU handles PUT /settings/overlay-mtu.
func (s *Server) SetOverlayMTU(c *gin.Context) {
	var req setOverlayMTURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	overlayMTU.Store(int32(req.MTU))
	c.Status(http.StatusNoContent)
}

// VerifyOverlayMTU handles POST /settings/overlay-mtu/verify: it checks
// every registered agent is reachable and reports whether the configured
// overlay MTU leaves the VXLAN encapsulation headroom it needs under a
// 1500-byte underlay.
func (s *Server) VerifyOverlayMTU(c *gin.Context) {
	ctx := c.Request.Context()
	mtu := overlayMTU.Load()

	hosts, err := s.store.Hosts.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	type hostCheck struct {
		HostID   string `json:"host_id"`
		Reachable bool  `json:"reachable"`
	}
	checks := make([]hostCheck, 0, len(hosts))
	for _, h := range hosts {
		client := s.agents.Get(h.ID, h.Address)
		reachable := false
		if client != nil {
			if _, err := client.Health(ctx); err == nil {
				reachable = true
			}
		}
		checks = append(checks, hostCheck{HostID: h.ID, Reachable: reachable})
	}

	c.JSON(http.StatusOK, gin.H{
		"mtu":             mtu,
		"headroom_ok":     mtu <= 1450,
		"hosts":           checks,
	})
}
