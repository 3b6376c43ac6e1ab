/**
 * Conversion Orchestrator for the PDF OCR Worker
 *
 * Sequences one conversion request:
 * - Validate options, language and document (fatal, before any page work)
 * - Rasterize the selected pages
 * - Dispatch one extraction job per page to a bounded worker pool
 * - Apply the confidence filter and assemble the artifact in page order
 *
 * Identical requests are memoized through the result cache.
 */

package processor

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/pdfocr-worker/internal/cache"
	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/ocr"
	"github.com/adverant/nexus/pdfocr-worker/internal/pool"
	"github.com/adverant/nexus/pdfocr-worker/internal/raster"
	"github.com/adverant/nexus/pdfocr-worker/internal/tables"
)

// DocumentValidator checks raw bytes and produces a Document
type DocumentValidator interface {
	Validate(ctx context.Context, data []byte, filename string, maxBytes int64) (*model.Document, error)
}

// PageSource turns a document into page images
type PageSource interface {
	Rasterize(ctx context.Context, doc *model.Document, selection []int, dpi int) (iter.Seq[*model.Page], error)
}

// Converter is implemented by Orchestrator
type Converter interface {
	Convert(ctx context.Context, in Input, opts model.Options) (*model.Artifact, error)
}

// Input is one document to convert
type Input struct {
	Data     []byte
	Filename string
}

// Orchestrator runs conversion requests
type Orchestrator struct {
	validator DocumentValidator
	pages     PageSource
	text      ocr.TextExtractor
	tables    tables.TableExtractor
	cache     *cache.ResultCache[*model.Artifact]
	maxQueued int
	logger    *logging.Logger
}

// OrchestratorConfig holds orchestrator configuration
type OrchestratorConfig struct {
	Validator DocumentValidator
	Pages     PageSource
	Text      ocr.TextExtractor
	// Tables is optional; without it TABLE mode is a configuration error
	Tables tables.TableExtractor
	// Cache is optional
	Cache *cache.ResultCache[*model.Artifact]
	// MaxQueued is the pool's hard ceiling on pages per request
	MaxQueued int
}

// NewOrchestrator creates a new conversion orchestrator
func NewOrchestrator(cfg *OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Validator == nil {
		return nil, fmt.Errorf("Validator is required")
	}
	if cfg.Pages == nil {
		return nil, fmt.Errorf("Pages is required")
	}
	if cfg.Text == nil {
		return nil, fmt.Errorf("Text extractor is required")
	}
	queued := cfg.MaxQueued
	if queued < 1 {
		queued = 1000
	}

	return &Orchestrator{
		validator: cfg.Validator,
		pages:     cfg.Pages,
		text:      cfg.Text,
		tables:    cfg.Tables,
		cache:     cfg.Cache,
		maxQueued: queued,
		logger:    logging.NewLogger("Orchestrator"),
	}, nil
}

// NewArtifactCache creates a result cache that never stores timed-out artifacts
func NewArtifactCache(cfg cache.Config[*model.Artifact]) (*cache.ResultCache[*model.Artifact], error) {
	if cfg.ShouldStore == nil {
		cfg.ShouldStore = (*model.Artifact).Complete
	}
	return cache.New(cfg)
}

// ConvertFile reads a PDF from disk and converts it
func (o *Orchestrator) ConvertFile(ctx context.Context, path string, opts model.Options) (*model.Artifact, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > opts.MaxFileSizeBytes() {
		return nil, errors.NewFileTooLargeError(info.Size(), opts.MaxFileSizeBytes())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return o.Convert(ctx, Input{Data: data, Filename: filepath.Base(path)}, opts)
}

// Convert runs one request. Fatal errors return no artifact; per-page
// failures are reported in the artifact's error list. Concurrent identical
// requests share one computation and receive the same artifact.
func (o *Orchestrator) Convert(ctx context.Context, in Input, opts model.Options) (*model.Artifact, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !o.text.SupportsLanguage(opts.Language) {
		return nil, errors.NewUnsupportedLanguageError(opts.Language)
	}
	if opts.Mode == model.ModeTable && o.tables == nil {
		return nil, errors.NewConfigurationError("mode", "table extraction is not configured")
	}

	doc, err := o.validator.Validate(ctx, in.Data, in.Filename, opts.MaxFileSizeBytes())
	if err != nil {
		return nil, err
	}

	pages, err := raster.ResolveSelection(opts.Pages, doc.PageCount)
	if err != nil {
		return nil, err
	}
	if len(pages) > o.maxQueued {
		return nil, errors.NewPoolSaturatedError(len(pages), o.maxQueued)
	}

	if o.cache == nil {
		return o.run(ctx, doc, pages, opts)
	}

	key := cache.Fingerprint(doc.ID, pages, opts.Language, opts.Threshold, opts.Mode, opts.DPI)
	return o.cache.GetOrCompute(ctx, key, func(cctx context.Context) (*model.Artifact, error) {
		return o.run(cctx, doc, pages, opts)
	})
}

// run processes the resolved page list under the request timeout
func (o *Orchestrator) run(ctx context.Context, doc *model.Document, pages []int, opts model.Options) (*model.Artifact, error) {
	startTime := time.Now()
	requestID := uuid.NewString()
	logger := o.logger.With("request_id", requestID)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// Step 1: Rasterize selected pages
	logger.Info("Step 1: Rasterizing pages",
		"document_id", shortID(doc.ID),
		"pages", len(pages),
		"dpi", opts.DPI)

	seq, err := o.pages.Rasterize(ctx, doc, pages, opts.DPI)
	if err != nil {
		return nil, err
	}

	results := make(map[int]model.JobResult, len(pages))
	var jobs []model.ExtractionJob
	for page := range seq {
		if page.Err != nil {
			results[page.Number] = model.JobResult{
				Page:   page.Number,
				Status: model.StatusFailed,
				Err:    errors.WithPage(page.Err, page.Number),
			}
			continue
		}
		jobs = append(jobs, model.ExtractionJob{
			Page:      page,
			Mode:      opts.Mode,
			Language:  opts.Language,
			Threshold: opts.Threshold,
		})
	}

	// Step 2: Extract in parallel
	logger.Info("Step 2: Dispatching extraction jobs",
		"jobs", len(jobs),
		"mode", string(opts.Mode),
		"workers", opts.MaxWorkers)

	workers, err := pool.New(&pool.Config{MaxWorkers: opts.MaxWorkers, MaxQueued: o.maxQueued})
	if err != nil {
		return nil, errors.NewConfigurationError("max_workers", err.Error())
	}
	jobResults, err := workers.Run(ctx, jobs, o.extract)
	if err != nil {
		return nil, err
	}
	for _, r := range jobResults {
		if r.Status == model.StatusFailed && errors.CodeOf(r.Err) == "" {
			r.Err = pageFailure(opts.Mode, r.Page, r.Err)
		}
		results[r.Page] = r
	}

	// Step 3: Assemble artifact
	artifact := o.assemble(doc, pages, results, opts)
	artifact.RequestID = requestID
	artifact.Stats.Elapsed = time.Since(startTime)

	if len(artifact.PendingPages) > 0 {
		artifact.TimedOut = true
		if artifact.Stats.PagesSucceeded+artifact.Stats.PagesFailed == 0 {
			logger.Error("Request timed out before any page completed",
				"pending", len(artifact.PendingPages),
				"timeout", opts.Timeout)
			return nil, errors.NewProcessingTimeoutError(opts.Timeout, artifact.PendingPages, ctx.Err())
		}
		logger.Warn("Request timed out, returning partial artifact",
			"pending", len(artifact.PendingPages),
			"completed", artifact.Stats.PagesSucceeded+artifact.Stats.PagesFailed)
	}

	logger.Info("Conversion completed",
		"pages_succeeded", artifact.Stats.PagesSucceeded,
		"pages_failed", artifact.Stats.PagesFailed,
		"mean_confidence", artifact.Stats.MeanConfidence,
		"duration", artifact.Stats.Elapsed)

	return artifact, nil
}

// extract runs one page job and applies the confidence filter
func (o *Orchestrator) extract(ctx context.Context, job model.ExtractionJob) model.JobResult {
	page := job.Page.Number

	switch job.Mode {
	case model.ModeTable:
		grids, err := o.tables.ExtractTables(ctx, job.Page.Image, job.Language)
		if err != nil {
			return model.JobResult{Status: model.StatusFailed, Err: errors.WithPage(err, page)}
		}

		res := model.JobResult{Tables: make([]model.TableGrid, 0, len(grids))}
		for _, g := range grids {
			filtered, dropped, err := tables.FilterCells(g, job.Threshold)
			if err != nil {
				return model.JobResult{Status: model.StatusFailed, Err: errors.WithPage(err, page)}
			}
			res.Tables = append(res.Tables, filtered)
			res.Dropped += dropped
		}
		res.Status = statusFor(res.Dropped)
		return res

	default:
		tokens, err := o.text.ExtractText(ctx, job.Page.Image, job.Language)
		if err != nil {
			return model.JobResult{Status: model.StatusFailed, Err: errors.WithPage(err, page)}
		}
		kept, err := ocr.Filter(tokens, job.Threshold)
		if err != nil {
			return model.JobResult{Status: model.StatusFailed, Err: errors.WithPage(err, page)}
		}

		dropped := len(tokens) - len(kept)
		return model.JobResult{
			Status:  statusFor(dropped),
			Text:    ocr.Text(kept),
			Tokens:  kept,
			Dropped: dropped,
		}
	}
}

func statusFor(dropped int) model.JobStatus {
	if dropped > 0 {
		return model.StatusPartial
	}
	return model.StatusSuccess
}

// assemble builds the artifact in selection order. Pages absent from results
// never reached the pool and are reported pending.
func (o *Orchestrator) assemble(doc *model.Document, pages []int, results map[int]model.JobResult, opts model.Options) *model.Artifact {
	artifact := &model.Artifact{
		DocumentID: doc.ID,
		Mode:       opts.Mode,
		Errors:     []model.PageError{},
		Metadata:   doc.Metadata,
		Stats:      model.Stats{PagesAttempted: len(pages)},
	}
	if opts.Mode == model.ModeTable {
		artifact.Tables = []model.TableGrid{}
	}

	var confSum float64
	var confCount int
	blocks := make([]string, 0, len(pages))

	for _, p := range pages {
		r, ok := results[p]
		if !ok {
			r = model.JobResult{Page: p, Status: model.StatusPending}
		}

		switch r.Status {
		case model.StatusSuccess, model.StatusPartial:
			artifact.Stats.PagesSucceeded++
		case model.StatusFailed:
			artifact.Stats.PagesFailed++
			artifact.Errors = append(artifact.Errors, pageError(p, r.Err))
		case model.StatusPending:
			artifact.Stats.PagesPending++
			artifact.PendingPages = append(artifact.PendingPages, p)
		}

		if opts.Mode == model.ModeTable {
			for i, g := range r.Tables {
				g.ID = fmt.Sprintf("page_%d_table_%d", p, i+1)
				g.Page = p
				for _, c := range g.Cells {
					if c.Text != "" {
						confSum += c.Confidence
						confCount++
					}
				}
				artifact.Tables = append(artifact.Tables, g)
			}
			continue
		}

		for _, t := range r.Tokens {
			confSum += t.Confidence
			confCount++
		}
		artifact.Segments = append(artifact.Segments, model.Segment{Page: p, Text: r.Text, Status: r.Status})
		blocks = append(blocks, PageMarker(p)+r.Text)
	}

	if opts.Mode == model.ModeText {
		artifact.Text = strings.Join(blocks, PageSeparator)
	}
	if confCount > 0 {
		artifact.Stats.MeanConfidence = confSum / float64(confCount)
	}
	return artifact
}

// PageSeparator joins page blocks in TEXT output
const PageSeparator = "\n\n"

// PageMarker is the header line that opens each page block
func PageMarker(page int) string {
	return fmt.Sprintf("=== Page %d ===\n", page)
}

// pageFailure classifies an untyped job failure, such as a recovered panic
func pageFailure(mode model.Mode, page int, cause error) error {
	if mode == model.ModeTable {
		return errors.NewTableDetectionError(page, "worker", cause)
	}
	return errors.NewOCRFailedError(page, "worker", cause)
}

func pageError(page int, err error) model.PageError {
	pe := model.PageError{Page: page, Code: string(errors.CodeOf(err))}
	if err != nil {
		pe.Reason = err.Error()
	}
	return pe
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
