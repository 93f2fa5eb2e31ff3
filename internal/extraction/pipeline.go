package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/shoeboxd/shoebox/pkg/formatting"
)

type kind int

const (
	kindUnsupported kind = iota
	kindImage
	kindPDF
	kindText
)

func classify(path string) kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return kindImage
	case ".pdf":
		return kindPDF
	case ".txt", ".md":
		return kindText
	default:
		return kindUnsupported
	}
}

// System runs one document at a time through the extraction tiers.
type System interface {
	// Extract produces a Result for the file at path. Unsupported types,
	// thin content with no vision path, and unparseable vision responses
	// come back as degraded results; storage I/O and provider transport
	// failures come back as errors for the caller to record on the job.
	Extract(ctx context.Context, path string) (*Result, error)
}

type pipeline struct {
	cfg    *Config
	vision VisionClient
	logger *slog.Logger
}

// New creates an extraction pipeline using the given vision client for the
// paid tier.
func New(cfg *Config, vision VisionClient, logger *slog.Logger) System {
	return &pipeline{
		cfg:    cfg,
		vision: vision,
		logger: logger.With("system", "extraction"),
	}
}

func (p *pipeline) Extract(ctx context.Context, path string) (*Result, error) {
	switch classify(path) {
	case kindText:
		text, err := readTextFile(path)
		if err != nil {
			return nil, err
		}

		if p.accepted(text) {
			return p.localResult(text), nil
		}

		// Plain text has nothing to render, so the paid tier cannot help.
		p.logger.Warn("text below threshold with no vision method", "path", path, "chars", len(text))
		return degraded(text, MethodNone, "", "text below threshold and plain text has no vision method"), nil

	case kindPDF:
		text, err := extractPDFText(path)
		if err != nil {
			p.logger.Warn("local pdf extraction failed", "path", path, "error", err)
			text = ""
		}

		if p.accepted(text) {
			return p.localResult(text), nil
		}

		p.logger.Info("escalating to vision tier", "path", path, "local_chars", len(text))

		images, err := renderPDFPages(path, p.cfg.MaxPages)
		if err != nil {
			p.logger.Warn("pdf render failed", "path", path, "error", err)
			return degraded(text, MethodNone, "", fmt.Sprintf("page render failed: %v", err)), nil
		}

		return p.describe(ctx, text, images)

	case kindImage:
		uri, err := encodeImageFile(path)
		if err != nil {
			return nil, err
		}

		return p.describe(ctx, "", []string{uri})

	default:
		ext := strings.ToLower(filepath.Ext(path))
		p.logger.Warn("unsupported file type", "path", path, "ext", ext)
		return degraded("", MethodNone, "", fmt.Sprintf("unsupported file type %q", ext)), nil
	}
}

// accepted reports whether local output is thick enough to stop the
// pipeline at the free tier.
func (p *pipeline) accepted(text string) bool {
	return len(strings.TrimSpace(text)) >= p.cfg.MinTextLength
}

func (p *pipeline) localResult(text string) *Result {
	return &Result{
		Text:      text,
		OCRMethod: MethodLocal,
	}
}

// describe runs the vision tier over the prepared images. Transport errors
// propagate so the job fails and can be requeued; an unparseable response
// degrades instead, with the raw content preserved. Cost is attached from
// reported token usage in both outcomes.
func (p *pipeline) describe(ctx context.Context, localText string, images []string) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeoutDuration())
	defer cancel()

	raw, usage, err := p.vision.Describe(callCtx, images)
	if err != nil {
		return nil, err
	}

	cost := p.cfg.CostFor(usage)

	observation, err := formatting.Parse[Observation](raw)
	if err != nil {
		p.logger.Warn("vision response parse failed", "error", err)
		result := degraded(localText, MethodVision, raw, "vision response was not valid JSON")
		result.Cost = cost
		return result, nil
	}

	text := observation.Text
	if text == "" {
		text = localText
	}

	result := &Result{
		Text:            text,
		DocumentType:    observation.DocumentType,
		KeyEntities:     observation.KeyEntities,
		Summary:         observation.Summary,
		DocumentDate:    validISODate(observation.DocumentDate),
		RelevancyScore:  clampScore(observation.RelevancyScore),
		LifeImpactScore: clampScore(observation.LifeImpactScore),
		DetailScore:     clampScore(observation.DetailScore),
		ArchivalScore:   clampScore(observation.ArchivalScore),
		Cost:            cost,
		OCRMethod:       MethodVision,
	}

	p.logger.Info("vision extraction complete",
		"type", result.DocumentType,
		"relevancy", result.RelevancyScore,
		"cost", result.Cost,
	)

	return result, nil
}

// validISODate returns s when it is a parseable YYYY-MM-DD date, "" otherwise.
func validISODate(s string) string {
	if s == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ""
	}
	return s
}
