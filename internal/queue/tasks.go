package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// TypeConvert is the task type for PDF conversion requests
const TypeConvert = "pdf:convert"

// ConvertPayload is the task payload for one conversion request
type ConvertPayload struct {
	JobID      string `json:"jobId"`
	Filename   string `json:"filename"`
	FileBuffer []byte `json:"fileBuffer,omitempty"`
	// FilePath is read by the worker when FileBuffer is empty
	FilePath string           `json:"filePath,omitempty"`
	Options  *OptionOverrides `json:"options,omitempty"`
}

// OptionOverrides are per-request changes to the worker's default options.
// Nil or empty fields keep the default.
type OptionOverrides struct {
	Language   *string `json:"language,omitempty"`
	Threshold  *int    `json:"confidenceThreshold,omitempty"`
	Pages      string  `json:"pages,omitempty"` // e.g. "1,3-5"
	Mode       string  `json:"mode,omitempty"`
	MaxWorkers *int    `json:"maxWorkers,omitempty"`
	DPI        *int    `json:"dpi,omitempty"`
	TimeoutMs  *int64  `json:"timeoutMs,omitempty"`
}

// Apply returns base with the overrides applied
func (o *OptionOverrides) Apply(base model.Options) (model.Options, error) {
	if o == nil {
		return base, nil
	}

	opts := base
	if o.Language != nil {
		opts.Language = *o.Language
	}
	if o.Threshold != nil {
		opts.Threshold = *o.Threshold
	}
	if o.Pages != "" {
		pages, err := model.ParsePageSelection(o.Pages)
		if err != nil {
			return base, err
		}
		opts.Pages = pages
	}
	if o.Mode != "" {
		mode, err := model.ParseMode(o.Mode)
		if err != nil {
			return base, err
		}
		opts.Mode = mode
	}
	if o.MaxWorkers != nil {
		opts.MaxWorkers = *o.MaxWorkers
	}
	if o.DPI != nil {
		opts.DPI = *o.DPI
	}
	if o.TimeoutMs != nil {
		opts.Timeout = time.Duration(*o.TimeoutMs) * time.Millisecond
	}
	return opts, nil
}

// NewConvertTask builds a pdf:convert task
func NewConvertTask(payload *ConvertPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if len(payload.FileBuffer) == 0 && payload.FilePath == "" {
		return nil, fmt.Errorf("either FileBuffer or FilePath is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeConvert, data, opts...), nil
}
