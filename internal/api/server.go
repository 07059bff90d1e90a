// Package api is the gin REST boundary: a thin layer translating HTTP
// requests into calls against the persistence store and the
// jobrunner/nodereconciler/liveedit/wsgateway services, and every
// CategorizedError into the status codes spec §7 names. Business logic
// lives in those packages, not here.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/cleanup"
	"github.com/netlab-io/controller/internal/events"
	"github.com/netlab-io/controller/internal/jobrunner"
	"github.com/netlab-io/controller/internal/liveedit"
	"github.com/netlab-io/controller/internal/metrics"
	"github.com/netlab-io/controller/internal/nodereconciler"
	"github.com/netlab-io/controller/internal/persistence"
	"github.com/netlab-io/controller/internal/wsgateway"
)

// AgentResolver looks up a pooled AgentClient by host id/base URL.
type AgentResolver interface {
	Get(agentID, baseURL string) agentclient.AgentClient
}

// Server holds every dependency the HTTP handlers need.
type Server struct {
	store   *persistence.Store
	jobs    *jobrunner.Runner
	nodes   *nodereconciler.Reconciler
	live    *liveedit.Editor
	cleanup *cleanup.Bus
	ws        *wsgateway.Gateway
	agents    AgentResolver
	metrics   *metrics.Metrics
	publisher *events.EventPublisher
}

// New constructs a Server.
func New(store *persistence.Store, jobs *jobrunner.Runner, nodes *nodereconciler.Reconciler, live *liveedit.Editor, cleanupBus *cleanup.Bus, ws *wsgateway.Gateway, agents AgentResolver, m *metrics.Metrics, publisher *events.EventPublisher) *Server {
	return &Server{store: store, jobs: jobs, nodes: nodes, live: live, cleanup: cleanupBus, ws: ws, agents: agents, metrics: m, publisher: publisher}
}

// NewRouter builds the gin engine and registers every route.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.Health)

	labs := r.Group("/labs")
	{
		labs.POST("", s.CreateLab)
		labs.GET("", s.ListLabs)
		labs.GET("/:lab_id", s.GetLab)
		labs.DELETE("/:lab_id", s.DeleteLab)

		labs.GET("/:lab_id/topology", s.ExportTopology)
		labs.PUT("/:lab_id/topology", s.ImportTopology)

		labs.POST("/:lab_id/up", s.LabUp)
		labs.POST("/:lab_id/down", s.LabDown)
		labs.POST("/:lab_id/destroy", s.LabDestroy)

		labs.GET("/:lab_id/nodes", s.ListNodes)
		labs.PATCH("/:lab_id/nodes/:node_id", s.UpdateNodeDesiredState)
		labs.POST("/:lab_id/nodes/bulk", s.BulkUpdateNodes)
		labs.POST("/:lab_id/nodes/:node_id/retry", s.RetryNodeEnforcement)
		labs.POST("/:lab_id/edits", s.SubmitLiveEdit)

		labs.GET("/:lab_id/jobs", s.ListLabJobs)

		labs.GET("/:lab_id/ws/state", s.serveLabStateWS)
		labs.GET("/:lab_id/nodes/:node_id/console", s.serveConsoleWS)
	}

	r.GET("/jobs/:job_id", s.GetJob)

	agentsGroup := r.Group("/agents")
	{
		agentsGroup.POST("", s.RegisterAgent)
		agentsGroup.POST("/:host_id/heartbeat", s.AgentHeartbeat)
		agentsGroup.GET("", s.ListAgents)
	}

	settings := r.Group("/settings")
	{
		settings.GET("/overlay-mtu", s.GetOverlayMTU)
		settings.PUT("/overlay-mtu", s.SetOverlayMTU)
		settings.POST("/overlay-mtu/verify", s.VerifyOverlayMTU)
	}

	r.GET("/alerts", s.ListAlerts)
	r.GET("/diagnostics", s.Diagnostics)

	r.POST("/callbacks/carrier-state", s.CarrierStateCallback)

	if s.metrics != nil {
		r.GET("/metrics", s.metricsHandler())
	}

	return r
}
