/**
 * Text Extraction Engine
 *
 * Wraps an OCR backend behind a language gate and sorts its tokens into
 * reading order (top-to-bottom, then left-to-right within a line).
 */

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// Backend recognizes words in a page image. Token order is not significant.
type Backend interface {
	Recognize(ctx context.Context, image []byte, language string) ([]model.Token, error)
	// Languages lists installed language codes; nil means the backend cannot tell
	Languages() ([]string, error)
	Name() string
}

// TextExtractor is the capability the pipeline depends on
type TextExtractor interface {
	SupportsLanguage(language string) bool
	ExtractText(ctx context.Context, image []byte, language string) ([]model.Token, error)
}

// Engine is the default TextExtractor
type Engine struct {
	backend   Backend
	supported map[string]bool
	logger    *logging.Logger
}

// EngineConfig holds engine configuration
type EngineConfig struct {
	Backend            Backend
	SupportedLanguages []string
}

// NewEngine creates a new text extraction engine. The supported set is the
// configured list narrowed to what the backend reports as installed.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("Backend is required")
	}
	if len(cfg.SupportedLanguages) == 0 {
		return nil, fmt.Errorf("SupportedLanguages is required")
	}

	logger := logging.NewLogger("TextEngine")

	installed := map[string]bool{}
	langs, err := cfg.Backend.Languages()
	if err != nil {
		logger.Warn("Could not list backend languages, trusting configuration", "backend", cfg.Backend.Name(), "error", err)
	}
	for _, l := range langs {
		installed[l] = true
	}

	supported := make(map[string]bool, len(cfg.SupportedLanguages))
	for _, l := range cfg.SupportedLanguages {
		if len(installed) > 0 && !installed[l] {
			logger.Warn("Configured language is not installed", "language", l, "backend", cfg.Backend.Name())
			continue
		}
		supported[l] = true
	}
	if len(supported) == 0 {
		return nil, fmt.Errorf("none of the configured languages %v are available in %s", cfg.SupportedLanguages, cfg.Backend.Name())
	}

	return &Engine{
		backend:   cfg.Backend,
		supported: supported,
		logger:    logger,
	}, nil
}

// SupportsLanguage accepts a single code or a "+" joined combination such as "eng+fra"
func (e *Engine) SupportsLanguage(language string) bool {
	if language == "" {
		return false
	}
	for _, part := range strings.Split(language, "+") {
		if !e.supported[part] {
			return false
		}
	}
	return true
}

// Languages returns the supported codes
func (e *Engine) Languages() []string {
	out := make([]string, 0, len(e.supported))
	for l := range e.supported {
		out = append(out, l)
	}
	return out
}

// ExtractText recognizes one page image and returns tokens in reading order
func (e *Engine) ExtractText(ctx context.Context, image []byte, language string) ([]model.Token, error) {
	if !e.SupportsLanguage(language) {
		return nil, errors.NewUnsupportedLanguageError(language)
	}

	tokens, err := e.backend.Recognize(ctx, image, language)
	if err != nil {
		return nil, errors.NewOCRFailedError(0, e.backend.Name(), err)
	}

	ordered := ReadingOrder(tokens)
	e.logger.Debug("Text extracted", "backend", e.backend.Name(), "tokens", len(ordered))
	return ordered, nil
}
