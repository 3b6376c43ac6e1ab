package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
)

// Producer submits conversion tasks
type Producer struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	config    *ProducerConfig
	logger    *logging.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	RedisURL  string
	QueueName string
	// Retention keeps completed tasks (and their artifacts) readable
	Retention time.Duration
	MaxRetry  int
	// Timeout bounds a single task attempt; 0 uses the asynq default
	Timeout time.Duration
}

// NewProducer creates a new task producer
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.MaxRetry < 0 {
		return nil, fmt.Errorf("MaxRetry must not be negative, got %d", cfg.MaxRetry)
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &Producer{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		config:    cfg,
		logger:    logging.NewLogger("QueueProducer"),
	}, nil
}

// Enqueue submits one conversion. An empty JobID is assigned a UUID, which
// also becomes the task ID.
func (p *Producer) Enqueue(ctx context.Context, payload *ConvertPayload) (*asynq.TaskInfo, error) {
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}

	task, err := NewConvertTask(payload, p.taskOptions(payload.JobID)...)
	if err != nil {
		return nil, err
	}

	info, err := p.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	p.logger.Info("Task enqueued",
		"job_id", payload.JobID,
		"queue", info.Queue,
		"filename", payload.Filename)
	return info, nil
}

func (p *Producer) taskOptions(jobID string) []asynq.Option {
	opts := []asynq.Option{
		asynq.TaskID(jobID),
		asynq.Queue(p.config.QueueName),
		asynq.MaxRetry(p.config.MaxRetry),
	}
	if p.config.Retention > 0 {
		opts = append(opts, asynq.Retention(p.config.Retention))
	}
	if p.config.Timeout > 0 {
		opts = append(opts, asynq.Timeout(p.config.Timeout))
	}
	return opts
}

// Lookup returns the state of a submitted task; Result holds the artifact once completed
func (p *Producer) Lookup(jobID string) (*asynq.TaskInfo, error) {
	info, err := p.inspector.GetTaskInfo(p.config.QueueName, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up task %s: %w", jobID, err)
	}
	return info, nil
}

// Close releases Redis connections
func (p *Producer) Close() error {
	if err := p.inspector.Close(); err != nil {
		return err
	}
	return p.client.Close()
}
