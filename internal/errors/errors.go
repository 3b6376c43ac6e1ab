package errors

import (
	"errors"
	"fmt"
	"time"
)

/**
 * Error taxonomy for the PDF OCR worker
 *
 * Fatal pre-processing errors abort a request before any page work starts.
 * Page-scoped errors are recorded in the artifact and never escalate.
 * Cache errors are logged and bypassed.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Fatal, pre-processing
	ErrorInvalidFormat       ErrorCode = "INVALID_FORMAT"
	ErrorFileTooLarge        ErrorCode = "FILE_TOO_LARGE"
	ErrorInvalidFilename     ErrorCode = "INVALID_FILENAME"
	ErrorPageRange           ErrorCode = "PAGE_RANGE"
	ErrorUnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	ErrorConfiguration       ErrorCode = "CONFIGURATION"

	// Recoverable, per-page
	ErrorRasterizationFailed  ErrorCode = "RASTERIZATION_FAILED"
	ErrorOCRFailed            ErrorCode = "OCR_FAILED"
	ErrorTableDetectionFailed ErrorCode = "TABLE_DETECTION_FAILED"

	// Non-fatal, infrastructural
	ErrorCacheFailed ErrorCode = "CACHE_FAILED"

	// Fatal, resource
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorPoolSaturated     ErrorCode = "POOL_SATURATED"
)

// Sentinels for errors.Is checks; matching is by code only.
var (
	ErrInvalidFormat       = &ProcessingError{Code: ErrorInvalidFormat}
	ErrFileTooLarge        = &ProcessingError{Code: ErrorFileTooLarge}
	ErrInvalidFilename     = &ProcessingError{Code: ErrorInvalidFilename}
	ErrPageRange           = &ProcessingError{Code: ErrorPageRange}
	ErrUnsupportedLanguage = &ProcessingError{Code: ErrorUnsupportedLanguage}
	ErrConfiguration       = &ProcessingError{Code: ErrorConfiguration}
	ErrRasterization       = &ProcessingError{Code: ErrorRasterizationFailed}
	ErrOCR                 = &ProcessingError{Code: ErrorOCRFailed}
	ErrTableDetection      = &ProcessingError{Code: ErrorTableDetectionFailed}
	ErrCache               = &ProcessingError{Code: ErrorCacheFailed}
	ErrTimeout             = &ProcessingError{Code: ErrorProcessingTimeout}
	ErrPoolSaturated       = &ProcessingError{Code: ErrorPoolSaturated}
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	Page      int // 1-based page number, 0 when not page scoped
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	prefix := string(e.Code)
	if e.Page > 0 {
		prefix = fmt.Sprintf("%s [page %d]", e.Code, e.Page)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ProcessingError with the same code
func (e *ProcessingError) Is(target error) bool {
	t, ok := target.(*ProcessingError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsPageScoped reports whether the error belongs to one page only
func (e *ProcessingError) IsPageScoped() bool {
	switch e.Code {
	case ErrorRasterizationFailed, ErrorOCRFailed, ErrorTableDetectionFailed:
		return true
	}
	return false
}

// Fatal reports whether the error aborts the whole request
func (e *ProcessingError) Fatal() bool {
	return !e.IsPageScoped() && e.Code != ErrorCacheFailed
}

// CodeOf extracts the error code from any error chain, or "" when none is present
func CodeOf(err error) ErrorCode {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// WithPage scopes a ProcessingError to a page. Other errors are returned unchanged.
func WithPage(err error, page int) error {
	var pe *ProcessingError
	if errors.As(err, &pe) && pe.Page == 0 {
		pe.Page = page
	}
	return err
}

// Factory functions for common errors

func NewInvalidFormatError(reason string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidFormat,
		Message:   fmt.Sprintf("Invalid PDF file: %s", reason),
		Timestamp: time.Now(),
	}
}

func NewFileTooLargeError(size, limit int64) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorFileTooLarge,
		Message:   fmt.Sprintf("File size %d bytes exceeds maximum %d bytes", size, limit),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"file_size": size,
			"max_size":  limit,
		},
	}
}

func NewInvalidFilenameError(filename, reason string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidFilename,
		Message:   fmt.Sprintf("Invalid filename %q: %s", filename, reason),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"filename": filename,
		},
	}
}

func NewPageRangeError(page, pageCount int) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorPageRange,
		Message:   fmt.Sprintf("Page %d is outside document range 1-%d", page, pageCount),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"requested_page": page,
			"page_count":     pageCount,
		},
	}
}

func NewUnsupportedLanguageError(language string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnsupportedLanguage,
		Message:   fmt.Sprintf("Unsupported OCR language: %s", language),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"language": language,
		},
	}
}

func NewConfigurationError(field string, reason string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorConfiguration,
		Message:   fmt.Sprintf("Invalid %s: %s", field, reason),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

func NewRasterizationError(page int, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRasterizationFailed,
		Message:   "Failed to rasterize page",
		Page:      page,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewOCRFailedError(page int, backend string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed in backend: %s", backend),
		Page:      page,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"ocr_backend": backend,
		},
		Cause: cause,
	}
}

func NewTableDetectionError(page int, detector string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorTableDetectionFailed,
		Message:   fmt.Sprintf("Table detection failed in detector: %s", detector),
		Page:      page,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"table_detector": detector,
		},
		Cause: cause,
	}
}

func NewCacheError(op string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorCacheFailed,
		Message:   fmt.Sprintf("Cache %s failed", op),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": op,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(duration time.Duration, pending []int, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
			"pending_pages":    pending,
		},
		Cause: cause,
	}
}

func NewPoolSaturatedError(queued, ceiling int) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorPoolSaturated,
		Message:   fmt.Sprintf("Worker pool saturated: %d jobs exceeds ceiling of %d", queued, ceiling),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"queued_jobs": queued,
			"ceiling":     ceiling,
		},
	}
}

// ToMap converts error to map for task results and logs
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	if e.Page > 0 {
		result["page"] = e.Page
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
