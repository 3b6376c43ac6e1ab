package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
)

type fakeConverter struct {
	mu       sync.Mutex
	inputs   []processor.Input
	options  []model.Options
	artifact *model.Artifact
	err      error
}

func (f *fakeConverter) Convert(ctx context.Context, in processor.Input, opts model.Options) (*model.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	f.options = append(f.options, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.artifact, nil
}

func defaults() model.Options {
	return model.Options{
		Language:      "eng",
		Threshold:     50,
		Mode:          model.ModeText,
		MaxWorkers:    4,
		MaxFileSizeMB: 100,
		DPI:           300,
		Timeout:       time.Minute,
	}
}

func intPtr(v int) *int { return &v }

func TestApplyOverrides(t *testing.T) {
	lang := "fra"
	timeout := int64(1500)
	o := &OptionOverrides{
		Language:   &lang,
		Threshold:  intPtr(80),
		Pages:      "2,4-5",
		Mode:       "table",
		MaxWorkers: intPtr(1),
		DPI:        intPtr(200),
		TimeoutMs:  &timeout,
	}

	opts, err := o.Apply(defaults())
	require.NoError(t, err)
	assert.Equal(t, "fra", opts.Language)
	assert.Equal(t, 80, opts.Threshold)
	assert.Equal(t, []int{2, 4, 5}, opts.Pages)
	assert.Equal(t, model.ModeTable, opts.Mode)
	assert.Equal(t, 1, opts.MaxWorkers)
	assert.Equal(t, 200, opts.DPI)
	assert.Equal(t, 1500*time.Millisecond, opts.Timeout)
	assert.Equal(t, 100, opts.MaxFileSizeMB)

	var none *OptionOverrides
	same, err := none.Apply(defaults())
	require.NoError(t, err)
	assert.Equal(t, defaults(), same)

	_, err = (&OptionOverrides{Pages: "3-1"}).Apply(defaults())
	assert.ErrorIs(t, err, errors.ErrConfiguration)
	_, err = (&OptionOverrides{Mode: "html"}).Apply(defaults())
	assert.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestNewConvertTask(t *testing.T) {
	task, err := NewConvertTask(&ConvertPayload{JobID: "j1", Filename: "a.pdf", FileBuffer: []byte("%PDF-1.4")})
	require.NoError(t, err)
	assert.Equal(t, TypeConvert, task.Type())

	var decoded ConvertPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, "j1", decoded.JobID)
	assert.Equal(t, []byte("%PDF-1.4"), decoded.FileBuffer)

	_, err = NewConvertTask(&ConvertPayload{JobID: "j2"})
	assert.Error(t, err)
}

func TestProcessTaskRunsConversion(t *testing.T) {
	conv := &fakeConverter{artifact: &model.Artifact{RequestID: "r1", Mode: model.ModeText, Text: "hello", Errors: []model.PageError{}}}
	h, err := NewHandler(conv, defaults())
	require.NoError(t, err)

	task, err := NewConvertTask(&ConvertPayload{
		JobID:      "j1",
		Filename:   "report.pdf",
		FileBuffer: []byte("%PDF-1.7 body"),
		Options:    &OptionOverrides{Threshold: intPtr(70)},
	})
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))

	require.Len(t, conv.inputs, 1)
	assert.Equal(t, "report.pdf", conv.inputs[0].Filename)
	assert.Equal(t, 70, conv.options[0].Threshold)
	assert.Equal(t, "eng", conv.options[0].Language)
}

func TestHandleEncodesArtifact(t *testing.T) {
	conv := &fakeConverter{artifact: &model.Artifact{RequestID: "r1", Mode: model.ModeText, Text: "hello", Errors: []model.PageError{}}}
	h, err := NewHandler(conv, defaults())
	require.NoError(t, err)

	payload, err := json.Marshal(&ConvertPayload{JobID: "j1", FileBuffer: []byte("%PDF-1.7")})
	require.NoError(t, err)

	result, artifact, err := h.handle(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "r1", artifact.RequestID)

	var decoded model.Artifact
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, "hello", decoded.Text)
}

func TestHandleReadsFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 from disk"), 0o644))

	conv := &fakeConverter{artifact: &model.Artifact{}}
	h, err := NewHandler(conv, defaults())
	require.NoError(t, err)

	payload, err := json.Marshal(&ConvertPayload{JobID: "j1", FilePath: path})
	require.NoError(t, err)

	_, _, err = h.handle(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "scan.pdf", conv.inputs[0].Filename)
	assert.Equal(t, []byte("%PDF-1.7 from disk"), conv.inputs[0].Data)
}

func TestHandleRetryPolicy(t *testing.T) {
	testCases := []struct {
		name      string
		payload   []byte
		err       error
		skipRetry bool
	}{
		{"malformed payload", []byte("{not json"), nil, true},
		{"missing file", mustJSON(t, &ConvertPayload{FilePath: "/nonexistent/file.pdf"}), nil, true},
		{"bad pages", mustJSON(t, &ConvertPayload{FileBuffer: []byte("%PDF-"), Options: &OptionOverrides{Pages: "x"}}), nil, true},
		{"invalid format", mustJSON(t, &ConvertPayload{FileBuffer: []byte("junk")}), errors.NewInvalidFormatError("missing %PDF- signature"), true},
		{"unsupported language", mustJSON(t, &ConvertPayload{FileBuffer: []byte("%PDF-")}), errors.NewUnsupportedLanguageError("xx"), true},
		{"timeout", mustJSON(t, &ConvertPayload{FileBuffer: []byte("%PDF-")}), errors.NewProcessingTimeoutError(time.Second, []int{1}, context.DeadlineExceeded), false},
		{"saturated", mustJSON(t, &ConvertPayload{FileBuffer: []byte("%PDF-")}), errors.NewPoolSaturatedError(2000, 1000), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := NewHandler(&fakeConverter{err: tc.err, artifact: &model.Artifact{}}, defaults())
			require.NoError(t, err)

			_, _, err = h.handle(context.Background(), tc.payload)
			require.Error(t, err)
			assert.Equal(t, tc.skipRetry, stderrors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestNewConsumerAndProducerValidate(t *testing.T) {
	_, err := NewConsumer(&ConsumerConfig{QueueName: "q", Converter: &fakeConverter{}})
	assert.Error(t, err)
	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", Converter: &fakeConverter{}})
	assert.Error(t, err)
	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q"})
	assert.Error(t, err)

	_, err = NewProducer(&ProducerConfig{QueueName: "q"})
	assert.Error(t, err)
	_, err = NewProducer(&ProducerConfig{RedisURL: "redis://localhost:6379", QueueName: "q", MaxRetry: -1})
	assert.Error(t, err)

	p, err := NewProducer(&ProducerConfig{RedisURL: "redis://localhost:6379", QueueName: "q", Retention: time.Hour})
	require.NoError(t, err)
	assert.Len(t, p.taskOptions("id"), 4)
	require.NoError(t, p.Close())
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
