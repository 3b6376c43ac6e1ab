/**
 * Process wiring for the PDF OCR Worker
 *
 * Builds the conversion stack from configuration: validator, rasterizer,
 * text and table engines, result cache and orchestrator. Shared by the
 * queue worker and the CLI.
 */

package app

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/adverant/nexus/pdfocr-worker/internal/cache"
	"github.com/adverant/nexus/pdfocr-worker/internal/clients"
	"github.com/adverant/nexus/pdfocr-worker/internal/config"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/ocr"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
	"github.com/adverant/nexus/pdfocr-worker/internal/raster"
	"github.com/adverant/nexus/pdfocr-worker/internal/tables"
	"github.com/adverant/nexus/pdfocr-worker/internal/validator"
)

// Stack is a fully wired conversion pipeline
type Stack struct {
	Orchestrator *processor.Orchestrator
	Text         *ocr.Engine
	Cache        *cache.ResultCache[*model.Artifact]
	Backend      ocr.Backend
	closers      []io.Closer
}

// Components are the native integrations; zero values select MuPDF, pdfcpu and Tesseract
type Components struct {
	Renderer   raster.Renderer
	Inspectors []validator.Inspector
	Backend    ocr.Backend
	// VisionService replaces the HTTP table vision client when set
	VisionService tables.VisionService
}

// Build wires the production stack
func Build(cfg *config.Config) (*Stack, error) {
	return BuildWith(cfg, Components{})
}

// BuildWith wires the stack with the given components, filling in defaults
func BuildWith(cfg *config.Config, c Components) (*Stack, error) {
	logger := logging.NewLogger("App")

	if c.Renderer == nil || len(c.Inspectors) == 0 {
		fitz := raster.NewFitzRenderer()
		if c.Renderer == nil {
			c.Renderer = fitz
		}
		if len(c.Inspectors) == 0 {
			c.Inspectors = []validator.Inspector{validator.NewPDFCPUInspector(), fitz}
		}
	}

	if c.Backend == nil {
		tess, err := ocr.NewTesseractBackend(&ocr.TesseractConfig{
			TessdataPath: cfg.OCR.TesseractPath,
			PageSegMode:  cfg.OCR.PageSegMode,
			DPI:          cfg.OCR.DPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tesseract: %w", err)
		}
		c.Backend = tess
	}

	v, err := validator.New(&validator.Config{Inspectors: c.Inspectors})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize validator: %w", err)
	}

	rasterizer, err := raster.NewRasterizer(c.Renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rasterizer: %w", err)
	}

	text, err := ocr.NewEngine(&ocr.EngineConfig{
		Backend:            c.Backend,
		SupportedLanguages: cfg.OCR.SupportedLanguages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text engine: %w", err)
	}

	detector, err := buildDetector(cfg, text, c.VisionService)
	if err != nil {
		return nil, err
	}

	tableEngine, err := tables.NewEngine(&tables.EngineConfig{
		Detector: detector,
		TieBreak: tables.TieBreak(cfg.Tables.TieBreak),
		MinRows:  cfg.Tables.MinRows,
		MinCols:  cfg.Tables.MinCols,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize table engine: %w", err)
	}

	stack := &Stack{Text: text, Backend: c.Backend}

	if cfg.Processing.EnableCaching {
		var store cache.Store
		if cfg.Cache.RedisURL != "" {
			redisStore, err := cache.NewRedisStore(&cache.RedisStoreConfig{
				RedisURL:  cfg.Cache.RedisURL,
				KeyPrefix: cfg.Cache.KeyPrefix,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
			}
			store = redisStore
			stack.closers = append(stack.closers, redisStore)
		}

		resultCache, err := processor.NewArtifactCache(cache.Config[*model.Artifact]{
			Capacity: cfg.Cache.Capacity,
			TTL:      cfg.Cache.TTL,
			Store:    store,
			StoreTTL: cfg.Cache.RedisTTL,
		})
		if err != nil {
			stack.Close()
			return nil, fmt.Errorf("failed to initialize result cache: %w", err)
		}
		stack.Cache = resultCache
	}

	orchestrator, err := processor.NewOrchestrator(&processor.OrchestratorConfig{
		Validator: v,
		Pages:     rasterizer,
		Text:      text,
		Tables:    tableEngine,
		Cache:     stack.Cache,
		MaxQueued: cfg.Processing.MaxQueuedJobs,
	})
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}
	stack.Orchestrator = orchestrator

	logger.Info("Conversion stack ready",
		"ocr_backend", c.Backend.Name(),
		"languages", text.Languages(),
		"table_backend", cfg.Tables.Backend,
		"tie_break", cfg.Tables.TieBreak,
		"caching", cfg.Processing.EnableCaching,
		"shared_cache", cfg.Cache.RedisURL != "")

	return stack, nil
}

// buildDetector always includes the geometric detector for borderless tables;
// the remote backend adds the vision service in front of it.
func buildDetector(cfg *config.Config, text ocr.TextExtractor, vision tables.VisionService) (tables.Detector, error) {
	geometric, err := tables.NewGeometricDetector(&tables.GeometricConfig{
		Text:    text,
		MinRows: cfg.Tables.MinRows,
		MinCols: cfg.Tables.MinCols,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize geometric detector: %w", err)
	}

	if cfg.Tables.Backend != config.TableBackendRemote {
		return geometric, nil
	}

	if vision == nil {
		vision = clients.NewTableVisionClient(cfg.Tables.RemoteURL, cfg.Tables.RemoteTimeout)
	}
	remote, err := tables.NewRemoteDetector(vision)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote detector: %w", err)
	}
	return tables.NewCompositeDetector(remote, geometric), nil
}

// Close releases external connections
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
