package extraction_engine

import (
	"context"

	"github.com/rs/zerolog"
)

// Job is one unit of background extraction work.
type Job interface {
	ID() string
	Run(ctx context.Context) error
}

// Queue is a fixed pool of workers reading from a bounded job channel.
type Queue struct {
	jobs chan Job
	log  zerolog.Logger
}

// NewQueue constructs a queue holding up to size pending jobs (64 when size <= 0).
func NewQueue(size int, log zerolog.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		jobs: make(chan Job, size),
		log:  log.With().Str("component", "extraction_queue").Logger(),
	}
}

// Start runs numWorkers goroutines until ctx is done.
func (q *Queue) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					q.log.Debug().Int("worker", w).Msg("worker shutting down")
					return
				case job := <-q.jobs:
					q.log.Info().Str("job_id", job.ID()).Int("worker", w).Msg("processing job")
					if err := job.Run(ctx); err != nil {
						q.log.Warn().Err(err).Str("job_id", job.ID()).Msg("job failed")
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a job. If the queue is full, it blocks until space frees up or ctx ends.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
