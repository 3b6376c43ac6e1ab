/**
 * File Validator - fail-fast checks before any page work
 *
 * Order: filename, size, %PDF- signature, structural inspection.
 * Nothing is rasterized until all checks pass.
 */

package validator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// pdfSignature is the leading magic of every PDF file
var pdfSignature = []byte("%PDF-")

// headerSize is how many leading bytes are inspected for the signature
const headerSize = 8

// forbiddenFilenameChars are rejected anywhere in a user-supplied name
const forbiddenFilenameChars = `/\:*?"<>|`

// Inspector reads structural information from PDF bytes
type Inspector interface {
	Inspect(ctx context.Context, data []byte) (model.Metadata, error)
	Name() string
}

// Validator checks uploaded documents
type Validator struct {
	inspectors        []Inspector
	allowedExtensions []string
	logger            *logging.Logger
}

// Config holds validator configuration
type Config struct {
	// Inspectors are tried in order; the first that succeeds supplies page count and metadata
	Inspectors        []Inspector
	AllowedExtensions []string
}

// New creates a new validator
func New(cfg *Config) (*Validator, error) {
	if len(cfg.Inspectors) == 0 {
		return nil, fmt.Errorf("at least one Inspector is required")
	}

	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}

	return &Validator{
		inspectors:        cfg.Inspectors,
		allowedExtensions: exts,
		logger:            logging.NewLogger("Validator"),
	}, nil
}

// ValidateFile validates a document on disk. The size limit is checked before the file is read.
func (v *Validator) ValidateFile(ctx context.Context, path string, maxBytes int64) (*model.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > maxBytes {
		return nil, errors.NewFileTooLargeError(info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return v.Validate(ctx, data, filepath.Base(path), maxBytes)
}

// Validate validates raw document bytes. filename may be empty when the caller has none.
func (v *Validator) Validate(ctx context.Context, data []byte, filename string, maxBytes int64) (*model.Document, error) {
	if filename != "" {
		clean, err := SanitizeFilename(filename)
		if err != nil {
			return nil, err
		}
		if !v.allowedExtension(clean) {
			return nil, errors.NewInvalidFilenameError(filename,
				fmt.Sprintf("extension must be one of %s", strings.Join(v.allowedExtensions, ", ")))
		}
		filename = clean
	}

	size := int64(len(data))
	if size == 0 {
		return nil, errors.NewInvalidFormatError("file is empty")
	}
	if size > maxBytes {
		return nil, errors.NewFileTooLargeError(size, maxBytes)
	}

	if err := checkSignature(data); err != nil {
		return nil, err
	}

	meta, err := v.inspect(ctx, data)
	if err != nil {
		return nil, err
	}
	meta.FileName = filename
	meta.FileSize = size

	sum := sha256.Sum256(data)
	doc := &model.Document{
		ID:        hex.EncodeToString(sum[:]),
		Data:      data,
		PageCount: meta.PageCount,
		MimeType:  "application/pdf",
		Size:      size,
		Metadata:  meta,
	}

	v.logger.Info("Document validated",
		"document_id", doc.ID[:12],
		"pages", doc.PageCount,
		"size", doc.Size)

	return doc, nil
}

func (v *Validator) inspect(ctx context.Context, data []byte) (model.Metadata, error) {
	var last error
	for _, in := range v.inspectors {
		meta, err := in.Inspect(ctx, data)
		if err == nil && meta.PageCount > 0 {
			return meta, nil
		}
		if err == nil {
			err = fmt.Errorf("document has no pages")
		}
		v.logger.Warn("Inspector rejected document", "inspector", in.Name(), "error", err)
		last = err
	}
	pe := errors.NewInvalidFormatError("document structure could not be read")
	pe.Cause = last
	return model.Metadata{}, pe
}

func (v *Validator) allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range v.allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// checkSignature verifies the leading bytes carry the PDF magic
func checkSignature(data []byte) error {
	header := data
	if len(header) > headerSize {
		header = header[:headerSize]
	}
	if !bytes.HasPrefix(header, pdfSignature) {
		return errors.NewInvalidFormatError("missing %PDF- signature")
	}
	return nil
}

// SanitizeFilename rejects traversal sequences, directory separators and reserved characters.
// It is a pure string check and never touches the file system.
func SanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.NewInvalidFilenameError(name, "filename is empty")
	}
	if strings.Contains(trimmed, "..") {
		return "", errors.NewInvalidFilenameError(name, "path traversal sequence")
	}
	if i := strings.IndexAny(trimmed, forbiddenFilenameChars); i >= 0 {
		return "", errors.NewInvalidFilenameError(name, fmt.Sprintf("forbidden character %q", trimmed[i]))
	}
	for _, r := range trimmed {
		if r < 0x20 {
			return "", errors.NewInvalidFilenameError(name, "control character")
		}
	}
	return trimmed, nil
}
