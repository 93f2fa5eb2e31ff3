package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shoeboxd/shoebox/internal/config"
	"github.com/shoeboxd/shoebox/internal/scanner"
	"github.com/shoeboxd/shoebox/pkg/formatting"
)

func main() {
	var (
		root   = flag.String("root", "", "Directory to scan")
		source = flag.String("source", "", "Source label recorded in the registry")
		out    = flag.String("out", "", "Registry output path (default <source>.registry.json)")
	)
	flag.Parse()

	if *root == "" || *source == "" {
		fmt.Println("usage: scan -root <dir> -source <label> [-out <file>]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *out == "" {
		*out = *source + ".registry.json"
	}

	cfg, err := config.LoadScan()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("scan starting", "version", cfg.Version, "source", *source, "root", *root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := scanner.New(&cfg.Scan, logger).Scan(ctx, *root, *source)
	if err != nil {
		log.Fatal("scan failed:", err)
	}

	if err := registry.Save(*out); err != nil {
		log.Fatal("registry save failed:", err)
	}

	fmt.Printf("Scanned %d files under %s\n", registry.Stats.Scanned, *root)
	fmt.Printf("  %d new, %d duplicates, %d skipped, %d errors, %s hashed\n",
		registry.Stats.New,
		registry.Stats.Duplicates,
		registry.Stats.Skipped,
		registry.Stats.Errors,
		formatting.FormatBytes(registry.Stats.TotalBytes, 1),
	)
	fmt.Printf("Registry written to %s\n", *out)
}
