// Package worker implements the queue-draining loop: claim a job, pull the
// artifact into scratch space, extract, commit the outcome, repeat until
// the queue stays empty long enough to tear the worker down.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shoeboxd/shoebox/internal/documents"
	"github.com/shoeboxd/shoebox/internal/extraction"
	"github.com/shoeboxd/shoebox/internal/instances"
	"github.com/shoeboxd/shoebox/internal/jobs"
	"github.com/shoeboxd/shoebox/internal/scanner"
	"github.com/shoeboxd/shoebox/pkg/storage"
)

// Runner drives a single worker instance. It is single-threaded on purpose:
// parallelism comes from running more worker processes against the queue,
// not from concurrency inside one loop.
type Runner struct {
	cfg        *Config
	queue      jobs.System
	docs       documents.System
	registry   instances.System
	store      storage.System
	extractor  extraction.System
	controller Controller
	logger     *slog.Logger

	instance *instances.Instance
	lastWork time.Time
	idle     bool
}

// NewRunner wires a runner from its collaborators.
func NewRunner(
	cfg *Config,
	queue jobs.System,
	docs documents.System,
	registry instances.System,
	store storage.System,
	extractor extraction.System,
	controller Controller,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:        cfg,
		queue:      queue,
		docs:       docs,
		registry:   registry,
		store:      store,
		extractor:  extractor,
		controller: controller,
		logger:     logger.With("system", "worker"),
	}
}

// Run registers the instance and processes jobs until the context is
// cancelled or the idle threshold passes with nothing to claim. The idle
// controller fires at most once; after it runs, Run returns without
// claiming again.
func (r *Runner) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	instance, err := r.registry.Register(ctx)
	if err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	r.instance = instance
	r.lastWork = time.Now()

	r.logger.Info("worker started",
		"worker", instance.ID,
		"hostname", instance.Hostname,
		"poll", r.cfg.PollInterval,
		"idle_timeout", r.cfg.IdleTimeout,
	)

	for {
		if ctx.Err() != nil {
			r.markStopped()
			return nil
		}

		job, err := r.queue.Claim(ctx, instance.ID)
		if err != nil {
			if errors.Is(err, jobs.ErrNoJob) {
				if time.Since(r.lastWork) >= r.cfg.IdleTimeoutDuration() {
					r.controller.OnIdle(ctx, instance.ID)
					return nil
				}

				r.markIdle(ctx)
				if !r.sleep(ctx) {
					r.markStopped()
					return nil
				}
				continue
			}

			if ctx.Err() != nil {
				r.markStopped()
				return nil
			}

			r.logger.Error("claim failed", "error", err)
			if !r.sleep(ctx) {
				r.markStopped()
				return nil
			}
			continue
		}

		r.idle = false
		r.process(ctx, job)
		r.lastWork = time.Now()
	}
}

// process runs one claimed job to a terminal status. Execution errors mark
// the job failed; they never abort the loop.
func (r *Runner) process(ctx context.Context, job *jobs.Job) {
	logger := r.logger.With("job", job.ID, "path", job.FilePath)
	logger.Info("processing job")
	started := time.Now()

	result, err := r.execute(ctx, job)
	if err != nil {
		logger.Error("job execution failed", "error", err)
		if failErr := r.queue.Fail(ctx, job.ID, r.instance.ID, err.Error()); failErr != nil {
			logger.Error("record job failure failed", "error", failErr)
		}
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		logger.Error("encode result failed", "error", err)
		if failErr := r.queue.Fail(ctx, job.ID, r.instance.ID, fmt.Sprintf("encode result: %v", err)); failErr != nil {
			logger.Error("record job failure failed", "error", failErr)
		}
		return
	}

	if err := r.queue.Complete(ctx, job.ID, r.instance.ID, payload); err != nil {
		logger.Error("record job completion failed", "error", err)
		return
	}

	if err := r.registry.RecordJob(ctx, r.instance.ID); err != nil {
		logger.Warn("record worker activity failed", "error", err)
	}

	logger.Info("job complete",
		"method", result.OCRMethod,
		"degraded", result.IsDegraded(),
		"cost", result.Cost,
		"duration", time.Since(started).Round(time.Millisecond),
	)
}

// execute downloads the artifact into a per-job scratch directory, runs
// extraction, relocates the blob out of the raw area, and records the
// outcome on the master document. Scratch files are removed in all cases.
func (r *Runner) execute(ctx context.Context, job *jobs.Job) (*extraction.Result, error) {
	scratch, err := os.MkdirTemp(r.cfg.ScratchDir, "job-*")
	if err != nil {
		return nil, fmt.Errorf("create job scratch: %w", err)
	}
	defer os.RemoveAll(scratch)

	local := filepath.Join(scratch, filepath.Base(job.FilePath))

	downloadCtx, cancel := context.WithTimeout(ctx, r.cfg.OperationTimeoutDuration())
	defer cancel()

	if _, err := r.store.DownloadToFile(downloadCtx, job.FilePath, local); err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}

	hash, err := scanner.HashFile(local)
	if err != nil {
		return nil, fmt.Errorf("hash artifact: %w", err)
	}

	result, err := r.extractor.Extract(ctx, local)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	if err := r.relocate(ctx, job.FilePath, local); err != nil {
		return nil, err
	}

	r.record(ctx, hash, result)

	return result, nil
}

// relocate moves the artifact from its raw key to the processed key.
// Completion implies the blob is out of the raw area, so failures here fail
// the job.
func (r *Runner) relocate(ctx context.Context, key, local string) error {
	processed := ProcessedKey(key)
	if processed == key {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.OperationTimeoutDuration())
	defer cancel()

	if err := r.store.UploadFile(opCtx, processed, local); err != nil {
		return fmt.Errorf("upload processed artifact: %w", err)
	}

	if err := r.store.Delete(opCtx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete raw artifact: %w", err)
	}

	return nil
}

// record persists the extraction outcome onto the master document for the
// artifact's content hash. A missing registry row is logged, not fatal: the
// job result is the source of truth for the attempt.
func (r *Runner) record(ctx context.Context, hash string, result *extraction.Result) {
	method := result.OCRMethod
	cmd := documents.ExtractionCommand{
		ContentHash: hash,
		Status:      documents.StatusCompleted,
		OCRMethod:   &method,
		Cost:        result.Cost,
	}

	if result.Scored() {
		if result.DocumentType != "" {
			category := result.DocumentType
			cmd.Category = &category
		}
		relevancy := result.RelevancyScore
		lifeImpact := result.LifeImpactScore
		detail := result.DetailScore
		archival := result.ArchivalScore
		cmd.RelevancyScore = &relevancy
		cmd.LifeImpactScore = &lifeImpact
		cmd.DetailScore = &detail
		cmd.ArchivalScore = &archival

		if result.DocumentDate != "" {
			if t, err := time.Parse("2006-01-02", result.DocumentDate); err == nil {
				cmd.DocumentDate = &t
			}
		}
	}

	if err := r.docs.RecordExtraction(ctx, cmd); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			r.logger.Warn("no master document for artifact", "hash", hash)
			return
		}
		r.logger.Error("record extraction failed", "hash", hash, "error", err)
	}
}

// markIdle flags the instance idle once per idle stretch.
func (r *Runner) markIdle(ctx context.Context) {
	if r.idle {
		return
	}
	r.idle = true

	if err := r.registry.SetStatus(ctx, r.instance.ID, instances.StatusIdle); err != nil {
		r.logger.Warn("mark idle failed", "error", err)
	}
}

// markStopped records a signal-driven exit. The loop context is already
// cancelled, so the update runs on a short background context.
func (r *Runner) markStopped() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.registry.SetStatus(ctx, r.instance.ID, instances.StatusStopped); err != nil {
		r.logger.Warn("mark stopped failed", "error", err)
	}

	r.logger.Info("worker stopped", "worker", r.instance.ID)
}

// sleep waits one poll interval, returning false if the context was
// cancelled first.
func (r *Runner) sleep(ctx context.Context) bool {
	timer := time.NewTimer(r.cfg.PollIntervalDuration())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ProcessedKey rewrites a raw storage key into the processed area. Keys
// already under processed/ are returned unchanged.
func ProcessedKey(key string) string {
	if strings.HasPrefix(key, "processed/") {
		return key
	}
	if rest, ok := strings.CutPrefix(key, "raw/"); ok {
		return "processed/" + rest
	}
	return "processed/" + key
}
