/**
 * Page Rasterizer - renders selected PDF pages to images
 *
 * Pages are produced lazily in selection order. A page that fails to render
 * is yielded with Err set and does not stop the remaining pages.
 */

package raster

import (
	"context"
	"fmt"
	"iter"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// Renderer opens a document for page rendering
type Renderer interface {
	Open(data []byte) (Session, error)
}

// Session renders pages of one open document. Page numbers are 1-based.
type Session interface {
	RenderPage(page int, dpi int) (*model.Page, error)
	Close() error
}

// Rasterizer produces page images for a validated document
type Rasterizer struct {
	renderer Renderer
	logger   *logging.Logger
}

// NewRasterizer creates a new rasterizer
func NewRasterizer(renderer Renderer) (*Rasterizer, error) {
	if renderer == nil {
		return nil, fmt.Errorf("Renderer is required")
	}
	return &Rasterizer{
		renderer: renderer,
		logger:   logging.NewLogger("Rasterizer"),
	}, nil
}

// ResolveSelection expands an empty selection to all pages and range-checks an explicit one
func ResolveSelection(selection []int, pageCount int) ([]int, error) {
	if len(selection) == 0 {
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	pages := make([]int, 0, len(selection))
	for _, p := range selection {
		if p < 1 || p > pageCount {
			return nil, errors.NewPageRangeError(p, pageCount)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// Rasterize validates the selection and returns a lazy sequence of pages.
// Each iteration performs fresh rendering work; stopping early closes the document.
func (r *Rasterizer) Rasterize(ctx context.Context, doc *model.Document, selection []int, dpi int) (iter.Seq[*model.Page], error) {
	if dpi < 1 {
		return nil, errors.NewConfigurationError("dpi", "must be a positive integer")
	}
	pages, err := ResolveSelection(selection, doc.PageCount)
	if err != nil {
		return nil, err
	}

	return func(yield func(*model.Page) bool) {
		session, err := r.renderer.Open(doc.Data)
		if err != nil {
			r.logger.Error("Failed to open document for rendering", "document_id", doc.ID, "error", err)
			for _, p := range pages {
				if ctx.Err() != nil {
					return
				}
				if !yield(&model.Page{Number: p, Err: errors.NewRasterizationError(p, err)}) {
					return
				}
			}
			return
		}
		defer session.Close()

		for _, p := range pages {
			if ctx.Err() != nil {
				return
			}

			page, err := session.RenderPage(p, dpi)
			if err != nil {
				r.logger.Warn("Page rasterization failed", "page", p, "error", err)
				page = &model.Page{Number: p, Err: errors.NewRasterizationError(p, err)}
			}
			if !yield(page) {
				return
			}
		}
	}, nil
}
