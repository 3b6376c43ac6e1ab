/**
 * Table Extraction Engine
 *
 * Runs a detector, resolves overlapping candidate regions to a single
 * winner, and normalizes every surviving candidate into a rectangular grid.
 */

package tables

import (
	"context"
	"fmt"
	"sort"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// CandidateCell is a detected cell before grid normalization. Spans default to 1.
type CandidateCell struct {
	Row         int
	Col         int
	RowSpan     int
	ColSpan     int
	Text        string
	Confidence  float64
	BoundingBox model.BoundingBox
}

// Candidate is one detected table region
type Candidate struct {
	BoundingBox model.BoundingBox
	Cells       []CandidateCell
	Confidence  float64
	Source      string // detector that produced it
}

// Detection is what a detector found on one page
type Detection struct {
	Candidates []Candidate
	// TextBlocks are the text regions used to score overlapping candidates
	TextBlocks []model.BoundingBox
}

// Detector finds candidate table regions in a page image
type Detector interface {
	Detect(ctx context.Context, image []byte, language string) (*Detection, error)
	Name() string
}

// TableExtractor is the capability the pipeline depends on
type TableExtractor interface {
	ExtractTables(ctx context.Context, image []byte, language string) ([]model.TableGrid, error)
}

// Engine is the default TableExtractor
type Engine struct {
	detector Detector
	tieBreak TieBreak
	minRows  int
	minCols  int
	logger   *logging.Logger
}

// EngineConfig holds engine configuration
type EngineConfig struct {
	Detector Detector
	TieBreak TieBreak
	MinRows  int
	MinCols  int
}

// NewEngine creates a new table extraction engine
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg.Detector == nil {
		return nil, fmt.Errorf("Detector is required")
	}
	tb := cfg.TieBreak
	if tb == "" {
		tb = TieBreakOverlap
	}
	if !tb.Valid() {
		return nil, fmt.Errorf("unknown tie-break policy %q", tb)
	}

	return &Engine{
		detector: cfg.Detector,
		tieBreak: tb,
		minRows:  max(cfg.MinRows, 1),
		minCols:  max(cfg.MinCols, 1),
		logger:   logging.NewLogger("TableEngine"),
	}, nil
}

// ExtractTables returns the grids found in one page image, top-to-bottom.
// No tables is a valid, empty result.
func (e *Engine) ExtractTables(ctx context.Context, image []byte, language string) ([]model.TableGrid, error) {
	det, err := e.detector.Detect(ctx, image, language)
	if err != nil {
		return nil, errors.NewTableDetectionError(0, e.detector.Name(), err)
	}
	if det == nil || len(det.Candidates) == 0 {
		return []model.TableGrid{}, nil
	}

	resolved := Resolve(det.Candidates, det.TextBlocks, e.tieBreak)
	if dropped := len(det.Candidates) - len(resolved); dropped > 0 {
		e.logger.Debug("Resolved overlapping table candidates",
			"candidates", len(det.Candidates),
			"dropped", dropped,
			"tie_break", string(e.tieBreak))
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		a, b := resolved[i].BoundingBox, resolved[j].BoundingBox
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	grids := make([]model.TableGrid, 0, len(resolved))
	for _, c := range resolved {
		grid := BuildGrid(c)
		if grid.Rows < e.minRows || grid.Cols < e.minCols {
			continue
		}
		grids = append(grids, grid)
	}
	return grids, nil
}

// CompositeDetector merges the candidates of several detectors. Overlaps
// between them are left for the engine to resolve.
type CompositeDetector struct {
	detectors []Detector
	logger    *logging.Logger
}

// NewCompositeDetector creates a detector that runs each child in turn
func NewCompositeDetector(detectors ...Detector) *CompositeDetector {
	return &CompositeDetector{detectors: detectors, logger: logging.NewLogger("CompositeDetector")}
}

// Name identifies the detector
func (c *CompositeDetector) Name() string { return "composite" }

// Detect fails only when every child fails
func (c *CompositeDetector) Detect(ctx context.Context, image []byte, language string) (*Detection, error) {
	merged := &Detection{}
	var failures int
	var last error
	for _, d := range c.detectors {
		det, err := d.Detect(ctx, image, language)
		if err != nil {
			c.logger.Warn("Detector failed", "detector", d.Name(), "error", err)
			failures++
			last = err
			continue
		}
		if det == nil {
			continue
		}
		merged.Candidates = append(merged.Candidates, det.Candidates...)
		merged.TextBlocks = append(merged.TextBlocks, det.TextBlocks...)
	}
	if failures > 0 && failures == len(c.detectors) {
		return nil, fmt.Errorf("all %d detectors failed, last: %w", failures, last)
	}
	return merged, nil
}
