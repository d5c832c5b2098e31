package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/podshot/podshot-server/internal/tasks"
)

// Job is one queued clip-processing run. The task record already exists when
// a Job enters the queue; the submitting handler created it synchronously.
type Job struct {
	TaskID      string
	Req         Request
	KeyOverride string
}

// Workers runs queued pipeline jobs on a fixed pool of goroutines so the
// triggering request never blocks on the pipeline. Tasks stay isolated: a
// hung stage occupies a single worker slot and cannot corrupt other runs.
type Workers struct {
	pipe     *Pipeline
	registry *tasks.Registry
	queue    chan Job
	count    int
	logger   *slog.Logger
	running  atomic.Bool
}

func NewWorkers(pipe *Pipeline, registry *tasks.Registry, count, queueSize int, logger *slog.Logger) *Workers {
	return &Workers{
		pipe:     pipe,
		registry: registry,
		queue:    make(chan Job, queueSize),
		count:    count,
		logger:   logger,
	}
}

// Start launches the worker goroutines. It returns immediately; workers run
// until ctx is cancelled.
func (w *Workers) Start(ctx context.Context) {
	if w.running.Swap(true) {
		return
	}

	w.logger.Info("pipeline workers started", "count", w.count, "queue_size", cap(w.queue))

	for i := 0; i < w.count; i++ {
		go w.run(ctx)
	}
}

func (w *Workers) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.queue:
			w.pipe.ProcessClip(ctx, w.registry, job.TaskID, job.Req, job.KeyOverride)
		}
	}
}

// Enqueue schedules a job without blocking. It returns false when the queue
// is full; the caller decides how to fail the task.
func (w *Workers) Enqueue(job Job) bool {
	select {
	case w.queue <- job:
		return true
	default:
		w.logger.Warn("job queue full, rejecting task", "task_id", job.TaskID)
		return false
	}
}

// QueueDepth returns the number of jobs waiting for a worker.
func (w *Workers) QueueDepth() int {
	return len(w.queue)
}
