package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/netlab-io/controller/internal/models"
)

// systemAlert is one row of the GET /alerts feed: a host or lab currently
// in a state an operator should look at.
type systemAlert struct {
	Severity string `json:"severity"` // "warning" | "error"
	Subject  string `json:"subject"`  // "host:<id>" | "lab:<id>"
	Message  string `json:"message"`
}

// ListAlerts handles GET /alerts: a best-effort scan for offline or
// degraded hosts and for labs in the error state, for the dashboard's
// banner. Nodes are not scanned.
func (s *Server) ListAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	alerts := make([]systemAlert, 0)

	hosts, err := s.store.Hosts.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, h := range hosts {
		switch h.Status {
		case models.HostOffline:
			alerts = append(alerts, systemAlert{Severity: "error", Subject: "host:" + h.ID, Message: "agent offline"})
		case models.HostDegraded:
			alerts = append(alerts, systemAlert{Severity: "warning", Subject: "host:" + h.ID, Message: "agent degraded"})
		}
	}

	labs, err := s.store.Labs.ListAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, lab := range labs {
		if lab.State == models.LabError {
			alerts = append(alerts, systemAlert{Severity: "error", Subject: "lab:" + lab.ID, Message: lab.StateError})
		}
	}

	c.JSON(http.StatusOK, alerts)
}

// Diagnostics handles GET /diagnostics: coarse counts of labs by state and
// hosts by status, for an operator support bundle. Jobs are not counted.
func (s *Server) Diagnostics(c *gin.Context) {
	ctx := c.Request.Context()

	labs, err := s.store.Labs.ListAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	hosts, err := s.store.Hosts.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	labsByState := map[models.LabState]int{}
	for _, l := range labs {
		labsByState[l.State]++
	}
	hostsByStatus := map[models.HostStatus]int{}
	for _, h := range hosts {
		hostsByStatus[h.Status]++
	}

	c.JSON(http.StatusOK, gin.H{
		"labs_total":      len(labs),
		"labs_by_state":   labsByState,
		"hosts_total":     len(hosts),
		"hosts_by_status": hostsByStatus,
	})
}
