package config

import "time"

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" validate:"required"`
	MaxConns        int32         `yaml:"max_conns" validate:"min=1"`
	MinConns        int32         `yaml:"min_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ServerConfig configures the REST/WebSocket HTTP listener.
type ServerConfig struct {
	Addr         string `yaml:"addr" validate:"required"`
	JWTSecret    string `yaml:"jwt_secret"`
	DashboardDir string `yaml:"dashboard_dir"`
}

// AgentClientConfig configures the per-agent RPC façade (spec §4.2).
type AgentClientConfig struct {
	StaleTimeout  time.Duration `yaml:"stale_timeout"`
	BackoffCap    time.Duration `yaml:"backoff_cap"`
	MaxAttempts   int           `yaml:"max_attempts" validate:"min=1"`
}

// LinkReconcilerConfig configures the periodic link-reconciliation loop
// (spec §4.7).
type LinkReconcilerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// NodeReconcilerConfig configures enforcement retry and staleness limits
// (spec §4.8).
type NodeReconcilerConfig struct {
	MaxEnforcementAttempts int           `yaml:"max_enforcement_attempts" validate:"min=1"`
	StaleThreshold         time.Duration `yaml:"stale_threshold"`
}

// JobRunnerConfig configures job deadlines, health-monitor cadence, and
// per-user concurrency (spec §4.10).
type JobRunnerConfig struct {
	DeployDeadline       time.Duration `yaml:"deploy_deadline"`
	DestroyDeadline      time.Duration `yaml:"destroy_deadline"`
	SyncDeadline         time.Duration `yaml:"sync_deadline"`
	NodeActionDeadline   time.Duration `yaml:"node_action_deadline"`
	HealthMonitorPeriod  time.Duration `yaml:"health_monitor_period"`
	MaxRetries           int           `yaml:"max_retries" validate:"min=0"`
	MaxConcurrentPerUser int           `yaml:"max_concurrent_per_user" validate:"min=1"`
}

// LiveEditConfig configures the debounce delay for topology edits (spec
// §4.11).
type LiveEditConfig struct {
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// Config is the top-level umbrella configuration struct, assembled by
// Load from the controller.yaml file in the config directory.
type Config struct {
	Database       DatabaseConfig       `yaml:"database"`
	Server         ServerConfig         `yaml:"server"`
	AgentClient    AgentClientConfig    `yaml:"agent_client"`
	LinkReconciler LinkReconcilerConfig `yaml:"link_reconciler"`
	NodeReconciler NodeReconcilerConfig `yaml:"node_reconciler"`
	JobRunner      JobRunnerConfig      `yaml:"job_runner"`
	LiveEdit       LiveEditConfig       `yaml:"live_edit"`
}
