/**
 * Worker Pool - bounded page-level parallelism
 *
 * At most MaxWorkers jobs run at once. Results come back indexed by job
 * position. When the context ends, jobs not yet started are dropped and
 * reported PENDING; running jobs keep going on a detached context and are
 * collected only if they finish before the pool returns.
 */

package pool

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// JobFunc executes one extraction job
type JobFunc func(ctx context.Context, job model.ExtractionJob) model.JobResult

// Pool runs extraction jobs concurrently
type Pool struct {
	maxWorkers int
	maxQueued  int
	logger     *logging.Logger
}

// Config holds pool configuration
type Config struct {
	MaxWorkers int
	// MaxQueued is the hard ceiling on jobs per Run; more is a fatal resource error
	MaxQueued int
}

// New creates a new worker pool
func New(cfg *Config) (*Pool, error) {
	if cfg.MaxWorkers < 1 {
		return nil, fmt.Errorf("MaxWorkers must be a positive integer, got %d", cfg.MaxWorkers)
	}
	queued := cfg.MaxQueued
	if queued < 1 {
		queued = 1000
	}

	return &Pool{
		maxWorkers: cfg.MaxWorkers,
		maxQueued:  queued,
		logger:     logging.NewLogger("WorkerPool"),
	}, nil
}

// MaxWorkers returns the concurrency bound
func (p *Pool) MaxWorkers() int { return p.maxWorkers }

type completion struct {
	index  int
	result model.JobResult
}

// Run executes jobs and returns one result per job in job order
func (p *Pool) Run(ctx context.Context, jobs []model.ExtractionJob, fn JobFunc) ([]model.JobResult, error) {
	if len(jobs) > p.maxQueued {
		return nil, errors.NewPoolSaturatedError(len(jobs), p.maxQueued)
	}

	startTime := time.Now()
	results := make([]model.JobResult, len(jobs))
	done := make([]bool, len(jobs))
	completions := make(chan completion, len(jobs))
	sem := semaphore.NewWeighted(int64(p.maxWorkers))
	detached := context.WithoutCancel(ctx)

	started := 0
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		started++

		go func(i int, job model.ExtractionJob) {
			defer sem.Release(1)
			completions <- completion{index: i, result: p.execute(detached, job, fn)}
		}(i, job)
	}

	received := 0
	collect := func(c completion) {
		results[c.index] = c.result
		done[c.index] = true
		received++
	}

wait:
	for received < started {
		select {
		case c := <-completions:
			collect(c)
		case <-ctx.Done():
			break wait
		}
	}
	// Pick up anything that finished in the meantime
	for received < started {
		select {
		case c := <-completions:
			collect(c)
			continue
		default:
		}
		break
	}

	pending := 0
	for i := range jobs {
		if !done[i] {
			pending++
			results[i] = model.JobResult{
				Page:   pageNumber(jobs[i]),
				Status: model.StatusPending,
				Err:    ctx.Err(),
			}
		}
	}

	p.logger.Debug("Pool run finished",
		"jobs", len(jobs),
		"started", started,
		"pending", pending,
		"workers", p.maxWorkers,
		"duration", time.Since(startTime))

	return results, nil
}

// execute runs one job, converting a panic into a FAILED result
func (p *Pool) execute(ctx context.Context, job model.ExtractionJob, fn JobFunc) (res model.JobResult) {
	page := pageNumber(job)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job panicked", "page", page, "panic", fmt.Sprint(r))
			res = model.JobResult{
				Page:   page,
				Status: model.StatusFailed,
				Err:    fmt.Errorf("job panicked: %v", r),
			}
		}
	}()

	res = fn(ctx, job)
	res.Page = page
	return res
}

func pageNumber(job model.ExtractionJob) int {
	if job.Page == nil {
		return 0
	}
	return job.Page.Number
}
