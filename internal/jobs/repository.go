package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoeboxd/shoebox/pkg/pagination"
	"github.com/shoeboxd/shoebox/pkg/query"
	"github.com/shoeboxd/shoebox/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a job repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "jobs"),
		pagination: pagination,
	}
}

func (r *repo) Enqueue(ctx context.Context, filePath string) (*Job, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, ErrEmptyPath
	}

	q := `
		INSERT INTO ingestion_jobs(id, file_path)
		VALUES ($1, $2)
		RETURNING ` + jobColumns

	job, err := repository.QueryOne(ctx, r.db, q, []any{uuid.New(), filePath}, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("job enqueued", "id", job.ID, "path", job.FilePath)
	return &job, nil
}

// Claim atomically hands the oldest queued job to the given worker. The
// subquery locks a single candidate row with SKIP LOCKED so concurrent
// claimers neither block nor receive the same job. Returns ErrNoJob when
// the queue is empty.
func (r *repo) Claim(ctx context.Context, workerID uuid.UUID) (*Job, error) {
	q := `
		UPDATE ingestion_jobs
		SET status = $2, started_at = NOW(), worker_id = $1
		WHERE id = (
			SELECT id FROM ingestion_jobs
			WHERE status = $3
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := repository.QueryOne(ctx, r.db, q,
		[]any{workerID, StatusProcessing, StatusQueued}, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNoJob, ErrDuplicate)
	}

	r.logger.Info("job claimed", "id", job.ID, "worker", workerID)
	return &job, nil
}

// Complete marks a processing job finished with its result document. The
// update is guarded by worker and status so only the claiming worker can
// complete the attempt.
func (r *repo) Complete(ctx context.Context, jobID, workerID uuid.UUID, result json.RawMessage) error {
	q := `
		UPDATE ingestion_jobs
		SET status = $3, completed_at = NOW(), result = $4
		WHERE id = $1 AND worker_id = $2 AND status = $5`

	err := repository.ExecExpectOne(ctx, r.db, q,
		jobID, workerID, StatusCompleted, []byte(result), StatusProcessing)
	if err != nil {
		return repository.MapError(err, ErrNotClaimed, ErrDuplicate)
	}

	r.logger.Info("job completed", "id", jobID, "worker", workerID)
	return nil
}

// Fail marks a processing job failed with an error message, under the same
// worker and status guard as Complete.
func (r *repo) Fail(ctx context.Context, jobID, workerID uuid.UUID, message string) error {
	q := `
		UPDATE ingestion_jobs
		SET status = $3, completed_at = NOW(), error = $4
		WHERE id = $1 AND worker_id = $2 AND status = $5`

	err := repository.ExecExpectOne(ctx, r.db, q,
		jobID, workerID, StatusError, message, StatusProcessing)
	if err != nil {
		return repository.MapError(err, ErrNotClaimed, ErrDuplicate)
	}

	r.logger.Warn("job failed", "id", jobID, "worker", workerID, "error", message)
	return nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	job, err := repository.QueryOne(ctx, r.db, q, args, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &job, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "FilePath")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	found, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	result := pagination.NewPageResult(found, total, page.Page, page.PageSize)
	return &result, nil
}

// Counts returns job totals grouped by status.
func (r *repo) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM ingestion_jobs GROUP BY status",
	)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// RequeueStale returns jobs stuck in processing longer than olderThan to the
// queue, clearing their attempt state. Used by operators after a worker died
// mid-job; nothing requeues automatically.
func (r *repo) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	q := `
		UPDATE ingestion_jobs
		SET status = $1, started_at = NULL, worker_id = NULL, error = NULL
		WHERE status = $2 AND started_at < NOW() - make_interval(secs => $3)`

	count, err := repository.ExecCount(ctx, r.db, q,
		StatusQueued, StatusProcessing, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}

	if count > 0 {
		r.logger.Info("stale jobs requeued", "count", count, "older_than", olderThan)
	}
	return count, nil
}
