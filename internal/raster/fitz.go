package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// FitzRenderer renders pages with MuPDF through go-fitz
type FitzRenderer struct{}

// NewFitzRenderer creates a new MuPDF-backed renderer
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Open loads the document from memory
func (f *FitzRenderer) Open(data []byte) (Session, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzSession{doc: doc}, nil
}

// Name identifies the renderer when used as an inspector
func (f *FitzRenderer) Name() string { return "mupdf" }

// Inspect reports page count and info metadata. MuPDF tolerates damage that
// stricter parsers reject, so it serves as the fallback inspector.
func (f *FitzRenderer) Inspect(ctx context.Context, data []byte) (model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return model.Metadata{}, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	info := doc.Metadata()
	return model.Metadata{
		PageCount:    doc.NumPage(),
		Title:        info["title"],
		Author:       info["author"],
		Subject:      info["subject"],
		Creator:      info["creator"],
		Producer:     info["producer"],
		CreationDate: info["creationDate"],
		ModDate:      info["modDate"],
	}, nil
}

type fitzSession struct {
	doc *fitz.Document
}

// RenderPage renders a 1-based page as PNG
func (s *fitzSession) RenderPage(page int, dpi int) (*model.Page, error) {
	img, err := s.doc.ImageDPI(page-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page %d as PNG: %w", page, err)
	}

	bounds := img.Bounds()
	return &model.Page{
		Number: page,
		Image:  buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func (s *fitzSession) Close() error {
	return s.doc.Close()
}
