package jobrunner

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/models"
)

// Run polls for queued jobs and dispatches each to its own goroutine,
// matching the teacher's WorkerPool claim-then-spawn shape: FOR UPDATE
// SKIP LOCKED claim inside a transaction, release the lock as soon as the
// optimistic status transition commits, then execute outside the
// transaction so a slow job never holds a row lock.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.claimAndDispatchSafely(ctx)
		}
	}
}

func (r *Runner) claimAndDispatchSafely(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("jobrunner: claim pass panicked", "recover", rec)
		}
	}()

	var claimed []*models.Job
	err := r.store.WithTx(ctx, func(tx pgx.Tx) error {
		jobs, err := r.store.Jobs.ClaimBatch(ctx, tx, r.batchSize)
		if err != nil {
			return err
		}
		claimed = jobs
		return nil
	})
	if err != nil {
		slog.Warn("jobrunner: claim batch failed", "error", err)
		return
	}

	for _, job := range claimed {
		go r.executeSafely(ctx, job)
	}
}

func (r *Runner) executeSafely(ctx context.Context, job *models.Job) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("jobrunner: job execution panicked", "job_id", job.ID, "recover", rec)
			r.finish(ctx, job, models.JobFailed, "job handler panicked")
		}
	}()
	r.Execute(ctx, job)
}
