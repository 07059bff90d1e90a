package jobrunner

import (
	"context"
	"log/slog"
	"time"

	"github.com/netlab-io/controller/internal/models"
)

// RunHealthMonitor ticks every HealthMonitorPeriod (default 30s): jobs
// whose owning agent has been offline longer than staleTimeout are failed
// outright; jobs that failed for a transient network reason are retried
// up to MaxRetries by enqueuing a replacement with the same action (spec
// §4.10).
func (r *Runner) RunHealthMonitor(ctx context.Context, staleTimeout time.Duration) {
	period := r.cfg.HealthMonitorPeriod
	if period <= 0 {
		period = 30 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.healthPassSafely(ctx, staleTimeout)
		}
	}
}

func (r *Runner) healthPassSafely(ctx context.Context, staleTimeout time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("jobrunner: health pass panicked", "recover", rec)
		}
	}()

	stale, err := r.store.Jobs.ListStaleRunning(ctx)
	if err != nil {
		slog.Warn("jobrunner: list stale running failed", "error", err)
		return
	}

	for _, job := range stale {
		r.handleStaleJob(ctx, job, staleTimeout)
	}
}

func (r *Runner) handleStaleJob(ctx context.Context, job *models.Job, staleTimeout time.Duration) {
	if job.AssignedAgent == "" {
		return
	}
	host, err := r.store.Hosts.Get(ctx, job.AssignedAgent)
	if err != nil {
		return
	}
	if !host.IsStale(time.Now(), staleTimeout) {
		return
	}

	summary := "owning agent offline beyond stale timeout"
	if err := r.store.Jobs.SetTerminalStatus(ctx, job.ID, models.JobFailed, summary); err != nil {
		slog.Warn("jobrunner: failed to fail stale job", "job_id", job.ID, "error", err)
		return
	}
	r.publish.PublishJobProgress(ctx, job.LabID, map[string]any{"job_id": job.ID, "status": models.JobFailed, "error_summary": summary})

	if job.RetryCount >= r.cfg.MaxRetries {
		return
	}

	if err := r.store.Jobs.IncrementRetryCount(ctx, job.ID); err != nil {
		slog.Warn("jobrunner: failed to bump retry count", "job_id", job.ID, "error", err)
		return
	}
	replacement := &models.Job{ID: newJobID(), LabID: job.LabID, UserID: job.UserID, Action: job.Action, Status: models.JobQueued, RetryCount: job.RetryCount + 1}
	if err := r.store.Jobs.Create(ctx, replacement); err != nil {
		slog.Warn("jobrunner: failed to enqueue retry replacement", "job_id", job.ID, "error", err)
	}
}
