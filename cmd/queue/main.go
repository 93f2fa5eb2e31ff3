package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shoeboxd/shoebox/internal/config"
	"github.com/shoeboxd/shoebox/internal/documents"
	"github.com/shoeboxd/shoebox/internal/infrastructure"
	"github.com/shoeboxd/shoebox/internal/instances"
	"github.com/shoeboxd/shoebox/internal/jobs"
	"github.com/shoeboxd/shoebox/pkg/pagination"
	"github.com/shoeboxd/shoebox/pkg/query"
)

func main() {
	var (
		stats     = flag.Bool("stats", false, "Show job, document, worker, and blob counts")
		list      = flag.Bool("list", false, "List jobs")
		status    = flag.String("status", "", "Filter -list by job status")
		sortBy    = flag.String("sort", "", "Sort -list by comma-separated fields; prefix with - for descending")
		page      = flag.Int("page", 1, "Page number for -list")
		size      = flag.Int("size", 0, "Page size for -list (default from config)")
		enqueue   = flag.String("enqueue", "", "Enqueue an ingestion job for a blob key")
		requeue   = flag.Bool("requeue-stale", false, "Re-queue processing jobs stuck longer than -older-than")
		olderThan = flag.Duration("older-than", 30*time.Minute, "Staleness window for -requeue-stale")
	)
	flag.Parse()

	switch {
	case *stats:
		runStats()
	case *list:
		runList(*status, *sortBy, *page, *size)
	case *enqueue != "":
		runEnqueue(*enqueue)
	case *requeue:
		runRequeue(*olderThan)
	default:
		fmt.Println("usage: queue [-stats | -list [-status S] [-sort F] [-page N] [-size N] | -enqueue <key> | -requeue-stale [-older-than D]]")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

type runtime struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
}

func start(
	load func() (*config.Config, error),
	build func(*config.Config) (*infrastructure.Infrastructure, error),
) *runtime {
	cfg, err := load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	infra, err := build(cfg)
	if err != nil {
		log.Fatal("infrastructure init failed:", err)
	}
	if err := infra.Start(); err != nil {
		log.Fatal("infrastructure start failed:", err)
	}
	infra.Lifecycle.WaitForStartup()

	return &runtime{cfg: cfg, infra: infra}
}

func (r *runtime) close() {
	r.infra.Lifecycle.Shutdown(r.cfg.ShutdownTimeoutDuration())
}

func (r *runtime) queue() jobs.System {
	return jobs.New(r.infra.Database.Connection(), r.infra.Logger, r.cfg.Pagination)
}

func runStats() {
	rt := start(config.LoadQueue, infrastructure.New)
	defer rt.close()

	ctx := rt.infra.Lifecycle.Context()
	conn := rt.infra.Database.Connection()

	jobCounts, err := rt.queue().Counts(ctx)
	if err != nil {
		log.Fatal("job counts failed:", err)
	}

	docCounts, err := documents.New(conn, rt.infra.Logger, rt.cfg.Pagination).Counts(ctx)
	if err != nil {
		log.Fatal("document counts failed:", err)
	}

	active, err := instances.New(conn, rt.infra.Logger).Active(ctx)
	if err != nil {
		log.Fatal("worker lookup failed:", err)
	}

	raw, err := rt.infra.Storage.List(ctx, "raw/")
	if err != nil {
		log.Fatal("raw blob list failed:", err)
	}
	processed, err := rt.infra.Storage.List(ctx, "processed/")
	if err != nil {
		log.Fatal("processed blob list failed:", err)
	}

	fmt.Println("Jobs:")
	printCounts(jobCounts,
		jobs.StatusQueued, jobs.StatusProcessing, jobs.StatusCompleted, jobs.StatusError)

	fmt.Println("Documents:")
	printCounts(docCounts,
		documents.StatusPending, documents.StatusQueued, documents.StatusProcessing,
		documents.StatusCompleted, documents.StatusError)

	fmt.Printf("Workers: %d active\n", len(active))
	for _, w := range active {
		fmt.Printf("  %s  %-8s %s, %d jobs, last active %s\n",
			w.ID, w.Status, w.Hostname, w.JobsProcessed,
			w.LastActiveAt.Format(time.RFC3339))
	}

	fmt.Printf("Blobs: %d raw, %d processed\n", len(raw), len(processed))
}

func printCounts(counts map[string]int, statuses ...string) {
	total := 0
	for _, status := range statuses {
		fmt.Printf("  %-12s %d\n", status, counts[status])
		total += counts[status]
	}
	fmt.Printf("  %-12s %d\n", "total", total)
}

func runList(status, sortBy string, page, size int) {
	rt := start(config.LoadStore, infrastructure.NewStore)
	defer rt.close()

	filters := jobs.Filters{}
	if status != "" {
		filters.Status = &status
	}

	result, err := rt.queue().List(
		rt.infra.Lifecycle.Context(),
		pagination.PageRequest{
			Page:     page,
			PageSize: size,
			Sort:     query.ParseSortFields(sortBy),
		},
		filters,
	)
	if err != nil {
		log.Fatal("job list failed:", err)
	}

	fmt.Printf("Page %d of %d (%d jobs)\n", result.Page, result.TotalPages, result.Total)
	for _, job := range result.Data {
		line := fmt.Sprintf("%s  %-10s  %s  %s",
			job.ID, job.Status, job.CreatedAt.Format(time.RFC3339), job.FilePath)
		if job.Error != nil {
			line += "  " + *job.Error
		}
		fmt.Println(line)
	}
}

func runEnqueue(key string) {
	rt := start(config.LoadQueue, infrastructure.New)
	defer rt.close()

	ctx := rt.infra.Lifecycle.Context()

	exists, err := rt.infra.Storage.Exists(ctx, key)
	if err != nil {
		log.Fatal("blob check failed:", err)
	}
	if !exists {
		log.Fatalf("no blob at %q; upload it before enqueueing", key)
	}

	job, err := rt.queue().Enqueue(ctx, key)
	if err != nil {
		log.Fatal("enqueue failed:", err)
	}

	fmt.Printf("queued %s for %s\n", job.ID, job.FilePath)
}

func runRequeue(olderThan time.Duration) {
	rt := start(config.LoadStore, infrastructure.NewStore)
	defer rt.close()

	moved, err := rt.queue().RequeueStale(rt.infra.Lifecycle.Context(), olderThan)
	if err != nil {
		log.Fatal("requeue failed:", err)
	}

	fmt.Printf("re-queued %d stale jobs\n", moved)
}
