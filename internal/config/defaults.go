package config

import "time"

// Defaults returns the baseline Config applied before YAML/env overrides
// are merged in, mirroring every default called out in spec §4.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			ConnMaxLifetime: time.Hour,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		AgentClient: AgentClientConfig{
			StaleTimeout: 90 * time.Second,
			BackoffCap:   10 * time.Second,
			MaxAttempts:  3,
		},
		LinkReconciler: LinkReconcilerConfig{
			Interval: 60 * time.Second,
		},
		NodeReconciler: NodeReconcilerConfig{
			MaxEnforcementAttempts: 3,
			StaleThreshold:         600 * time.Second,
		},
		JobRunner: JobRunnerConfig{
			DeployDeadline:       1020 * time.Second,
			DestroyDeadline:      360 * time.Second,
			SyncDeadline:         660 * time.Second,
			NodeActionDeadline:   300 * time.Second,
			HealthMonitorPeriod:  30 * time.Second,
			MaxRetries:           2,
			MaxConcurrentPerUser: 2,
		},
		LiveEdit: LiveEditConfig{
			DebounceDelay: 500 * time.Millisecond,
		},
	}
}

// DeadlineFor returns the job deadline for an action kind.
func (j JobRunnerConfig) DeadlineFor(kind string) time.Duration {
	switch kind {
	case "deploy":
		return j.DeployDeadline
	case "destroy":
		return j.DestroyDeadline
	case "sync":
		return j.SyncDeadline
	case "node-action":
		return j.NodeActionDeadline
	default:
		return j.SyncDeadline
	}
}
