package models

import "time"

// JobStatus is the lifecycle status of a Job. completed_with_warnings is
// kept distinct from completed throughout the wire protocol (see DESIGN.md
// Open Question decisions).
type JobStatus string

const (
	JobQueued                JobStatus = "queued"
	JobRunning               JobStatus = "running"
	JobCompleted             JobStatus = "completed"
	JobCompletedWithWarnings JobStatus = "completed_with_warnings"
	JobFailed                JobStatus = "failed"
	JobCancelled             JobStatus = "cancelled"
)

// IsTerminal reports whether a job status no longer transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobCompletedWithWarnings, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// ActionKind classifies a Job's action string for deadline lookup.
type ActionKind string

const (
	ActionDeploy     ActionKind = "deploy"
	ActionDestroy    ActionKind = "destroy"
	ActionSync       ActionKind = "sync"
	ActionNodeAction ActionKind = "node-action"
	ActionAgentSync  ActionKind = "agent-update"
)

// Job is a long-running async task tied to a lab.
type Job struct {
	ID      string
	LabID   string
	UserID  string
	Action  string // "up" | "down" | "sync" | "sync:node:<id>" | "node:<name>:<op>" | "agent-update"
	Status  JobStatus

	StartedAt   *time.Time
	CompletedAt *time.Time

	RetryCount int

	LogInline string
	LogPath   string

	AssignedAgent string
	ErrorSummary  string

	CreatedAt time.Time
	UpdatedAt time.Time
}
