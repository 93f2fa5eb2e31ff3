package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shoeboxd/shoebox/pkg/pagination"
	"github.com/shoeboxd/shoebox/pkg/query"
	"github.com/shoeboxd/shoebox/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "FileName", "PrimaryLocation")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, contentHash string) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ContentHash", contentHash)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

// Register upserts one consolidated observation. An existing row is locked,
// its location set unioned with the command's, and only the locations and
// last_seen change; a missing row is inserted as pending. A concurrent
// insert of the same hash loses the unique-key race and retries once
// through the update path.
func (r *repo) Register(ctx context.Context, cmd RegisterCommand) (*Document, bool, error) {
	if strings.TrimSpace(cmd.ContentHash) == "" {
		return nil, false, ErrInvalidHash
	}
	if len(cmd.Locations) == 0 {
		return nil, false, ErrNoLocations
	}

	doc, created, err := r.register(ctx, cmd)
	if errors.Is(err, ErrDuplicate) {
		doc, created, err = r.register(ctx, cmd)
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		r.logger.Info("document registered",
			"hash", cmd.ContentHash,
			"file", cmd.FileName,
			"locations", len(cmd.Locations),
		)
	}

	return doc, created, nil
}

func (r *repo) register(ctx context.Context, cmd RegisterCommand) (*Document, bool, error) {
	selectSQL := fmt.Sprintf(
		"SELECT %s FROM %s WHERE d.content_hash = $1 FOR UPDATE OF d",
		projection.Columns(),
		projection.From(),
	)

	updateSQL := `
		UPDATE documents SET source_locations = $2, last_seen = NOW()
		WHERE content_hash = $1
		RETURNING ` + docColumns

	insertSQL := `
		INSERT INTO documents(content_hash, file_name, file_type, file_size, primary_location, source_locations)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + docColumns

	created := false

	doc, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		existing, err := repository.QueryOne(ctx, tx, selectSQL, []any{cmd.ContentHash}, scanDocument)
		if err == nil {
			merged := MergeLocations(existing.SourceLocations, cmd.Locations)
			if len(merged) == len(existing.SourceLocations) {
				return existing, nil
			}

			locations, err := json.Marshal(merged)
			if err != nil {
				return Document{}, fmt.Errorf("encode source locations: %w", err)
			}

			return repository.QueryOne(ctx, tx, updateSQL, []any{cmd.ContentHash, locations}, scanDocument)
		}

		if !errors.Is(err, sql.ErrNoRows) {
			return Document{}, err
		}

		locations, err := json.Marshal(MergeLocations(nil, cmd.Locations))
		if err != nil {
			return Document{}, fmt.Errorf("encode source locations: %w", err)
		}

		created = true
		args := []any{
			cmd.ContentHash,
			cmd.FileName,
			cmd.FileType,
			cmd.FileSize,
			cmd.PrimaryLocation,
			locations,
		}
		return repository.QueryOne(ctx, tx, insertSQL, args, scanDocument)
	})

	if err != nil {
		return nil, false, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &doc, created, nil
}

// RecordExtraction persists the processing outcome for a document's content.
func (r *repo) RecordExtraction(ctx context.Context, cmd ExtractionCommand) error {
	if strings.TrimSpace(cmd.ContentHash) == "" {
		return ErrInvalidHash
	}
	if cmd.Status != StatusCompleted && cmd.Status != StatusError {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, cmd.Status)
	}

	q := `
		UPDATE documents SET
			processing_status = $2,
			category = $3,
			relevancy_score = $4,
			life_impact_score = $5,
			detail_score = $6,
			archival_score = $7,
			document_date = $8,
			ocr_method = $9,
			processing_cost = $10,
			last_seen = NOW()
		WHERE content_hash = $1`

	err := repository.ExecExpectOne(ctx, r.db, q,
		cmd.ContentHash,
		cmd.Status,
		cmd.Category,
		cmd.RelevancyScore,
		cmd.LifeImpactScore,
		cmd.DetailScore,
		cmd.ArchivalScore,
		cmd.DocumentDate,
		cmd.OCRMethod,
		cmd.Cost,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("extraction recorded",
		"hash", cmd.ContentHash,
		"status", cmd.Status,
		"cost", cmd.Cost,
	)
	return nil
}

// SetStatus transitions a document's processing status.
func (r *repo) SetStatus(ctx context.Context, contentHash, status string) error {
	switch status {
	case StatusPending, StatusQueued, StatusProcessing, StatusCompleted, StatusError:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	err := repository.ExecExpectOne(ctx, r.db,
		"UPDATE documents SET processing_status = $2, last_seen = NOW() WHERE content_hash = $1",
		contentHash, status,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

// Counts returns the number of documents per processing status.
func (r *repo) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT processing_status, COUNT(*) FROM documents GROUP BY processing_status",
	)
	if err != nil {
		return nil, fmt.Errorf("count documents by status: %w", err)
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
