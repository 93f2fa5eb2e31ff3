package instances

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/shoeboxd/shoebox/pkg/repository"
)

const instanceColumns = `id, hostname, status, jobs_processed, started_at,
	last_active_at, destroyed_at`

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an instance repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "instances"),
	}
}

func (r *repo) Register(ctx context.Context) (*Instance, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	q := `
		INSERT INTO worker_instances(id, hostname)
		VALUES ($1, $2)
		RETURNING ` + instanceColumns

	instance, err := repository.QueryOne(ctx, r.db, q, []any{uuid.New(), hostname}, scanInstance)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("worker registered", "id", instance.ID, "hostname", instance.Hostname)
	return &instance, nil
}

func (r *repo) RecordJob(ctx context.Context, id uuid.UUID) error {
	q := `
		UPDATE worker_instances
		SET jobs_processed = jobs_processed + 1, last_active_at = NOW(), status = $2
		WHERE id = $1`

	err := repository.ExecExpectOne(ctx, r.db, q, id, StatusRunning)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	switch status {
	case StatusRunning, StatusIdle, StatusStopped, StatusDestroyed:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	q := `
		UPDATE worker_instances
		SET status = $2,
			last_active_at = NOW(),
			destroyed_at = CASE WHEN $2 = $3 THEN NOW() ELSE destroyed_at END
		WHERE id = $1`

	err := repository.ExecExpectOne(ctx, r.db, q, id, status, StatusDestroyed)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("worker status changed", "id", id, "status", status)
	return nil
}

func (r *repo) Active(ctx context.Context) ([]Instance, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM worker_instances
		WHERE status = $1 OR status = $2
		ORDER BY started_at ASC`,
		instanceColumns,
	)

	found, err := repository.QueryMany(ctx, r.db, q,
		[]any{StatusRunning, StatusIdle}, scanInstance)
	if err != nil {
		return nil, fmt.Errorf("query active workers: %w", err)
	}

	return found, nil
}

func scanInstance(s repository.Scanner) (Instance, error) {
	var i Instance
	err := s.Scan(
		&i.ID,
		&i.Hostname,
		&i.Status,
		&i.JobsProcessed,
		&i.StartedAt,
		&i.LastActiveAt,
		&i.DestroyedAt,
	)
	return i, err
}
