/**
 * Tesseract backend
 *
 * Word-level recognition through gosseract. One client per call, since a
 * gosseract client is not safe for concurrent use.
 */

package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// TesseractBackend handles OCR using Tesseract
type TesseractBackend struct {
	pageSegMode   gosseract.PageSegMode
	dpi           int
	tessdataPath  string
	clientFactory func() *gosseract.Client
}

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	// TessdataPath overrides the tessdata prefix; empty uses the library default
	TessdataPath string
	PageSegMode  int
	DPI          int
}

// NewTesseractBackend creates a new Tesseract backend
func NewTesseractBackend(cfg *TesseractConfig) (*TesseractBackend, error) {
	if cfg.PageSegMode < 0 || cfg.PageSegMode > 13 {
		return nil, fmt.Errorf("PageSegMode must be between 0 and 13, got %d", cfg.PageSegMode)
	}
	psm := gosseract.PageSegMode(cfg.PageSegMode)
	if cfg.PageSegMode == 0 {
		psm = gosseract.PSM_SINGLE_BLOCK
	}

	return &TesseractBackend{
		pageSegMode:   psm,
		dpi:           cfg.DPI,
		tessdataPath:  cfg.TessdataPath,
		clientFactory: gosseract.NewClient,
	}, nil
}

// Name identifies the backend
func (t *TesseractBackend) Name() string { return "tesseract" }

// Languages lists installed traineddata files
func (t *TesseractBackend) Languages() ([]string, error) {
	return gosseract.GetAvailableLanguages()
}

// Recognize returns one token per recognized word
func (t *TesseractBackend) Recognize(ctx context.Context, image []byte, language string) ([]model.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := t.clientFactory()
	defer client.Close()

	if t.tessdataPath != "" {
		client.TessdataPrefix = t.tessdataPath
	}
	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(t.pageSegMode); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if t.dpi > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(t.dpi)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	tokens := make([]model.Token, 0, len(boxes))
	for _, b := range boxes {
		tokens = append(tokens, model.Token{
			Text:       b.Word,
			Confidence: clampConfidence(b.Confidence),
			BoundingBox: model.BoundingBox{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
		})
	}
	return tokens, nil
}

// clampConfidence keeps Tesseract's -1 "no confidence" marker and rounding noise inside [0,100]
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
