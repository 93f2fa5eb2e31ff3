package jobs

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/shoeboxd/shoebox/pkg/query"
	"github.com/shoeboxd/shoebox/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "ingestion_jobs", "j").
	Project("id", "ID").
	Project("file_path", "FilePath").
	Project("status", "Status").
	Project("created_at", "CreatedAt").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt").
	Project("worker_id", "WorkerID").
	Project("result", "Result").
	Project("error", "Error")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// jobColumns lists the unqualified columns in scanJob order, for RETURNING
// clauses on write statements.
var jobColumns = projection.Bare()

// Filters contains optional filtering criteria for job queries.
// Nil fields are ignored. Status uses exact matching; FilePath uses
// case-insensitive contains matching.
type Filters struct {
	Status   *string    `json:"status,omitempty"`
	WorkerID *uuid.UUID `json:"worker_id,omitempty"`
	FilePath *string    `json:"file_path,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("WorkerID", f.WorkerID).
		WhereContains("FilePath", f.FilePath)
}

func scanJob(s repository.Scanner) (Job, error) {
	var (
		j      Job
		worker uuid.NullUUID
		result []byte
	)

	err := s.Scan(
		&j.ID,
		&j.FilePath,
		&j.Status,
		&j.CreatedAt,
		&j.StartedAt,
		&j.CompletedAt,
		&worker,
		&result,
		&j.Error,
	)
	if err != nil {
		return j, err
	}

	if worker.Valid {
		id := worker.UUID
		j.WorkerID = &id
	}
	if len(result) > 0 {
		j.Result = json.RawMessage(result)
	}

	return j, nil
}
