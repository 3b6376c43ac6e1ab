package pool

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

func makeJobs(n int) []model.ExtractionJob {
	jobs := make([]model.ExtractionJob, n)
	for i := range jobs {
		jobs[i] = model.ExtractionJob{Page: &model.Page{Number: i + 1}, Mode: model.ModeText}
	}
	return jobs
}

func TestRunPreservesOrder(t *testing.T) {
	p, err := New(&Config{MaxWorkers: 4})
	require.NoError(t, err)

	jobs := makeJobs(8)
	results, err := p.Run(context.Background(), jobs, func(ctx context.Context, job model.ExtractionJob) model.JobResult {
		// Later pages finish first
		time.Sleep(time.Duration(10-job.Page.Number) * 3 * time.Millisecond)
		return model.JobResult{Status: model.StatusSuccess, Text: fmt.Sprintf("page %d", job.Page.Number)}
	})
	require.NoError(t, err)
	require.Len(t, results, 8)

	for i, r := range results {
		assert.Equal(t, i+1, r.Page)
		assert.Equal(t, fmt.Sprintf("page %d", i+1), r.Text)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	p, err := New(&Config{MaxWorkers: 2})
	require.NoError(t, err)

	var running, peak int32
	_, err = p.Run(context.Background(), makeJobs(10), func(ctx context.Context, job model.ExtractionJob) model.JobResult {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return model.JobResult{Status: model.StatusSuccess}
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestRunIsolatesFailures(t *testing.T) {
	p, err := New(&Config{MaxWorkers: 3})
	require.NoError(t, err)

	results, err := p.Run(context.Background(), makeJobs(4), func(ctx context.Context, job model.ExtractionJob) model.JobResult {
		switch job.Page.Number {
		case 2:
			return model.JobResult{Status: model.StatusFailed, Err: fmt.Errorf("ocr crashed")}
		case 3:
			panic("backend exploded")
		}
		return model.JobResult{Status: model.StatusSuccess}
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusSuccess, results[0].Status)
	assert.Equal(t, model.StatusFailed, results[1].Status)
	assert.Equal(t, model.StatusFailed, results[2].Status)
	assert.Contains(t, results[2].Err.Error(), "backend exploded")
	assert.Equal(t, 3, results[2].Page)
	assert.Equal(t, model.StatusSuccess, results[3].Status)
}

func TestRunSaturation(t *testing.T) {
	p, err := New(&Config{MaxWorkers: 1, MaxQueued: 3})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), makeJobs(4), func(ctx context.Context, job model.ExtractionJob) model.JobResult {
		t.Fatal("no job may run once the pool is saturated")
		return model.JobResult{}
	})
	assert.ErrorIs(t, err, errors.ErrPoolSaturated)
}

func TestRunTimeoutDropsQueuedJobs(t *testing.T) {
	p, err := New(&Config{MaxWorkers: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var ran int32
	results, err := p.Run(ctx, makeJobs(5), func(ctx context.Context, job model.ExtractionJob) model.JobResult {
		atomic.AddInt32(&ran, 1)
		if job.Page.Number == 1 {
			return model.JobResult{Status: model.StatusSuccess}
		}
		time.Sleep(100 * time.Millisecond)
		assert.NoError(t, ctx.Err(), "running jobs are not interrupted")
		return model.JobResult{Status: model.StatusSuccess}
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusSuccess, results[0].Status)
	for _, r := range results[1:] {
		assert.Equal(t, model.StatusPending, r.Status, "page %d", r.Page)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran), "only the first two jobs ever start")

	// let the running job finish before the test exits
	time.Sleep(120 * time.Millisecond)
}

func TestNewValidates(t *testing.T) {
	_, err := New(&Config{MaxWorkers: 0})
	assert.Error(t, err)
}
