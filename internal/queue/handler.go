package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
)

// Handler runs pdf:convert tasks
type Handler struct {
	converter processor.Converter
	defaults  model.Options
	logger    *logging.Logger
}

// NewHandler creates a new task handler
func NewHandler(converter processor.Converter, defaults model.Options) (*Handler, error) {
	if converter == nil {
		return nil, fmt.Errorf("Converter is required")
	}
	return &Handler{
		converter: converter,
		defaults:  defaults,
		logger:    logging.NewLogger("TaskHandler"),
	}, nil
}

// ProcessTask implements asynq.Handler. The JSON artifact is written as the
// task result. Input and configuration errors are not retried.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	result, artifact, err := h.handle(ctx, task.Payload())
	if err != nil {
		return err
	}

	if rw := task.ResultWriter(); rw != nil {
		if _, err := rw.Write(result); err != nil {
			return fmt.Errorf("failed to write task result: %w", err)
		}
	}

	h.logger.Info("Task completed",
		"task_id", taskID(task),
		"request_id", artifact.RequestID,
		"pages_succeeded", artifact.Stats.PagesSucceeded,
		"pages_failed", artifact.Stats.PagesFailed,
		"timed_out", artifact.TimedOut,
		"duration", time.Since(startTime))
	return nil
}

// handle decodes the payload, runs the conversion and encodes the artifact
func (h *Handler) handle(ctx context.Context, raw []byte) ([]byte, *model.Artifact, error) {
	var payload ConvertPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := h.logger.With("job_id", payload.JobID)

	opts, err := payload.Options.Apply(h.defaults)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid options: %w: %w", err, asynq.SkipRetry)
	}

	in, err := loadInput(&payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	logger.Info("Processing document",
		"filename", in.Filename,
		"size", len(in.Data),
		"mode", string(opts.Mode),
		"language", opts.Language)

	artifact, err := h.converter.Convert(ctx, in, opts)
	if err != nil {
		logger.Error("Conversion failed", "error", err)
		if retryable(err) {
			return nil, nil, fmt.Errorf("conversion failed: %w", err)
		}
		return nil, nil, fmt.Errorf("conversion failed: %w: %w", err, asynq.SkipRetry)
	}

	result, err := json.Marshal(artifact)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return result, artifact, nil
}

func loadInput(p *ConvertPayload) (processor.Input, error) {
	if len(p.FileBuffer) > 0 {
		return processor.Input{Data: p.FileBuffer, Filename: p.Filename}, nil
	}
	if p.FilePath == "" {
		return processor.Input{}, fmt.Errorf("payload carries neither fileBuffer nor filePath")
	}

	data, err := os.ReadFile(p.FilePath)
	if err != nil {
		return processor.Input{}, fmt.Errorf("failed to read %s: %v", p.FilePath, err)
	}
	name := p.Filename
	if name == "" {
		name = filepath.Base(p.FilePath)
	}
	return processor.Input{Data: data, Filename: name}, nil
}

// retryable reports whether a failed conversion may succeed on a later attempt
func retryable(err error) bool {
	switch errors.CodeOf(err) {
	case errors.ErrorProcessingTimeout, errors.ErrorPoolSaturated, "":
		return true
	}
	return false
}

func taskID(task *asynq.Task) string {
	if rw := task.ResultWriter(); rw != nil {
		return rw.TaskID()
	}
	return ""
}
