// Package metrics collects Prometheus counters and gauges for the
// control plane's job queue, reconciliation loops, and agent fleet.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the control plane exposes on its
// /metrics endpoint.
type Metrics struct {
	JobsSubmittedTotal  *prometheus.CounterVec
	JobsCompletedTotal  *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	JobsQueuedGauge     prometheus.Gauge
	JobsRunningGauge    prometheus.Gauge
	JobRetriesTotal     prometheus.Counter

	ReconcilePassesTotal    *prometheus.CounterVec
	ReconcileRepairsTotal   *prometheus.CounterVec
	LinksDegradedGauge      prometheus.Gauge
	DuplicateTunnelsPruned  prometheus.Counter
	OrphanLinkStatesPruned  prometheus.Counter

	AgentsOnlineGauge  prometheus.Gauge
	AgentHeartbeatAge  *prometheus.GaugeVec
	AgentRPCErrors     *prometheus.CounterVec

	WSConnectionsGauge prometheus.Gauge
	CleanupHandlerErrs *prometheus.CounterVec
}

// New constructs a Metrics instance and registers every collector with
// registerer. Pass prometheus.DefaultRegisterer in production, or a
// fresh prometheus.NewRegistry() in tests to avoid collisions across
// table-driven subtests.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_jobs_submitted_total",
			Help: "Total jobs submitted, labeled by action kind.",
		}, []string{"action"}),
		JobsCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_jobs_completed_total",
			Help: "Total jobs that reached a terminal status.",
		}, []string{"action", "status"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "controller_job_duration_seconds",
			Help:    "Job execution duration from claim to terminal status.",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"action"}),
		JobsQueuedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "controller_jobs_queued",
			Help: "Jobs currently in queued status.",
		}),
		JobsRunningGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "controller_jobs_running",
			Help: "Jobs currently in running status.",
		}),
		JobRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_job_retries_total",
			Help: "Total replacement jobs enqueued after a stale-agent failure.",
		}),

		ReconcilePassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_reconcile_passes_total",
			Help: "Total reconciliation passes run, labeled by pass name.",
		}, []string{"pass"}),
		ReconcileRepairsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_reconcile_repairs_total",
			Help: "Total link repairs, labeled by repair-ladder rung and outcome.",
		}, []string{"rung", "outcome"}),
		LinksDegradedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "controller_links_degraded",
			Help: "LinkStates currently in an error/degraded actual state.",
		}),
		DuplicateTunnelsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_duplicate_tunnels_pruned_total",
			Help: "Total redundant VXLAN tunnels detached and deleted.",
		}),
		OrphanLinkStatesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_orphan_link_states_pruned_total",
			Help: "Total LinkState rows deleted for having no matching Link.",
		}),

		AgentsOnlineGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "controller_agents_online",
			Help: "Agents currently reporting a recent heartbeat.",
		}),
		AgentHeartbeatAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "controller_agent_heartbeat_age_seconds",
			Help: "Seconds since each host's last heartbeat.",
		}, []string{"host_id"}),
		AgentRPCErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_agent_rpc_errors_total",
			Help: "Total AgentClient RPC errors, labeled by method and error category.",
		}, []string{"method", "category"}),

		WSConnectionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "controller_ws_connections",
			Help: "Currently open lab-state WebSocket connections.",
		}),
		CleanupHandlerErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_cleanup_handler_errors_total",
			Help: "Cleanup handler failures after the one built-in retry, labeled by event type.",
		}, []string{"event"}),
	}

	registerer.MustRegister(
		m.JobsSubmittedTotal, m.JobsCompletedTotal, m.JobDuration, m.JobsQueuedGauge, m.JobsRunningGauge, m.JobRetriesTotal,
		m.ReconcilePassesTotal, m.ReconcileRepairsTotal, m.LinksDegradedGauge, m.DuplicateTunnelsPruned, m.OrphanLinkStatesPruned,
		m.AgentsOnlineGauge, m.AgentHeartbeatAge, m.AgentRPCErrors,
		m.WSConnectionsGauge, m.CleanupHandlerErrs,
	)
	return m
}

// ObserveJobTerminal records a job's terminal status and duration.
func (m *Metrics) ObserveJobTerminal(action, status string, seconds float64) {
	m.JobsCompletedTotal.WithLabelValues(action, status).Inc()
	m.JobDuration.WithLabelValues(action).Observe(seconds)
}

// ObserveRepair records one repair-ladder attempt outcome.
func (m *Metrics) ObserveRepair(rung string, succeeded bool) {
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	m.ReconcileRepairsTotal.WithLabelValues(rung, outcome).Inc()
}
