package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/netlab-io/controller/internal/apierrors"
	"github.com/netlab-io/controller/internal/models"
)

// JobRepo is the repository for Job rows. ClaimBatch is structurally the
// same claim-under-lock-then-mark-running shape the teacher's
// worker.claimNextSession uses: FOR UPDATE SKIP LOCKED inside a
// transaction, immediately followed by an optimistic status transition so
// two workers can never pick up the same job (spec §4.10, §5).
type JobRepo struct{ db DB }

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO jobs (id, lab_id, user_id, action, status, assigned_agent)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		j.ID, j.LabID, j.UserID, j.Action, j.Status, j.AssignedAgent)
	return err
}

func (r *JobRepo) Get(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRow(ctx, jobSelect+` WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.ErrNotFound
	}
	return j, err
}

func (r *JobRepo) ListByLab(ctx context.Context, labID string) ([]*models.Job, error) {
	rows, err := r.db.Query(ctx, jobSelect+` WHERE lab_id = $1 ORDER BY created_at DESC`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobRows(rows)
}

// CountRunningForUser counts the user's running jobs. JobRunner.Submit
// logs when it reaches max_concurrent_jobs_per_user; nothing blocks on it.
func (r *JobRepo) CountRunningForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE user_id = $1 AND status = 'running'`, userID).Scan(&n)
	return n, err
}

// ClaimBatch locks up to limit queued jobs FOR UPDATE SKIP LOCKED and
// transitions them to running within the same transaction. Must be called
// inside a transaction owned by the caller.
func (r *JobRepo) ClaimBatch(ctx context.Context, tx pgx.Tx, limit int) ([]*models.Job, error) {
	rows, err := tx.Query(ctx, jobSelect+`
		WHERE status = 'queued'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	claimed, err := scanJobRows(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, j := range claimed {
		// Optimistic transition: WHERE clause on previous status prevents
		// two supervisors from double-claiming the same job (spec §5).
		_, err := tx.Exec(ctx, `
			UPDATE jobs SET status = 'running', started_at = now(), updated_at = now()
			WHERE id = $1 AND status = 'queued'`, j.ID)
		if err != nil {
			return nil, err
		}
		j.Status = models.JobRunning
	}
	return claimed, nil
}

// SetTerminalStatus transitions a job to a terminal status, guarded by a
// WHERE on the previous non-terminal status so a timed-out health-monitor
// pass can't clobber a result a worker already wrote.
func (r *JobRepo) SetTerminalStatus(ctx context.Context, id string, status models.JobStatus, errorSummary string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE jobs SET status = $2, error_summary = $3, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'running'`, id, status, errorSummary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apierrors.ErrConflict
	}
	return nil
}

func (r *JobRepo) IncrementRetryCount(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE jobs SET retry_count = retry_count + 1, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *JobRepo) SetLog(ctx context.Context, id, inline, path string) error {
	_, err := r.db.Exec(ctx, `UPDATE jobs SET log_inline = $2, log_path = $3, updated_at = now() WHERE id = $1`, id, inline, path)
	return err
}

// ListStaleRunning returns every job still "running"; the health monitor
// then checks each job's assigned agent for staleness before failing it.
func (r *JobRepo) ListStaleRunning(ctx context.Context) ([]*models.Job, error) {
	rows, err := r.db.Query(ctx, jobSelect+` WHERE status = 'running'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobRows(rows)
}

const jobSelect = `
	SELECT id, lab_id, user_id, action, status, started_at, completed_at, retry_count,
	       log_inline, log_path, assigned_agent, error_summary, created_at, updated_at
	FROM jobs`

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	if err := row.Scan(&j.ID, &j.LabID, &j.UserID, &j.Action, &j.Status, &j.StartedAt, &j.CompletedAt,
		&j.RetryCount, &j.LogInline, &j.LogPath, &j.AssignedAgent, &j.ErrorSummary, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func scanJobRows(rows pgx.Rows) ([]*models.Job, error) {
	var out []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
