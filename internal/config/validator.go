package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// Validate runs struct-tag validation over the fully-merged Config,
// failing fast on the first invalid section so a misconfigured DSN or
// listener address is caught at startup rather than at first use.
func Validate(cfg *Config) error {
	if err := v.Struct(cfg.Database); err != nil {
		return fmt.Errorf("config: database: %w", err)
	}
	if err := v.Struct(cfg.Server); err != nil {
		return fmt.Errorf("config: server: %w", err)
	}
	if err := v.Struct(cfg.AgentClient); err != nil {
		return fmt.Errorf("config: agent_client: %w", err)
	}
	if err := v.Struct(cfg.NodeReconciler); err != nil {
		return fmt.Errorf("config: node_reconciler: %w", err)
	}
	if err := v.Struct(cfg.JobRunner); err != nil {
		return fmt.Errorf("config: job_runner: %w", err)
	}
	return nil
}
