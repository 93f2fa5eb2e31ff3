package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shoeboxd/shoebox/internal/config"
	"github.com/shoeboxd/shoebox/internal/consolidator"
	"github.com/shoeboxd/shoebox/internal/documents"
	"github.com/shoeboxd/shoebox/internal/infrastructure"
	"github.com/shoeboxd/shoebox/internal/scanner"
)

func main() {
	report := flag.String("report", "consolidation.report.json", "Report output path")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Println("usage: consolidate [-report <file>] <registry.json> [<registry.json> ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadStore()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	infra, err := infrastructure.NewStore(cfg)
	if err != nil {
		log.Fatal("infrastructure init failed:", err)
	}
	if err := infra.Start(); err != nil {
		log.Fatal("infrastructure start failed:", err)
	}
	infra.Lifecycle.WaitForStartup()
	defer infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())

	registries := make([]*scanner.Registry, 0, len(paths))
	for _, path := range paths {
		registry, err := scanner.LoadRegistry(path)
		if err != nil {
			log.Fatalf("load registry %s: %v", path, err)
		}
		registries = append(registries, registry)
	}

	docs := documents.New(infra.Database.Connection(), infra.Logger, cfg.Pagination)

	result, err := consolidator.
		New(docs, infra.Logger).
		Consolidate(infra.Lifecycle.Context(), registries)
	if err != nil {
		log.Fatal("consolidation failed:", err)
	}

	if err := result.Save(*report); err != nil {
		log.Fatal("report save failed:", err)
	}

	result.Summarize(os.Stdout)
	fmt.Printf("Report written to %s\n", *report)
}
