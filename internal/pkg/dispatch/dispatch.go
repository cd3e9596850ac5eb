package dispatch

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// AckFunc acknowledges a delivered job id once the crawl attempt finished.
// For at-least-once transports an unacked id is redelivered; the
// coordinator's idempotent Run absorbs the duplicate.
type AckFunc func(ctx context.Context) error

// Queue submits job ids for asynchronous crawling.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Source delivers job ids to the runner, blocking until one is available
// or the context ends.
type Source interface {
	Next(ctx context.Context) (string, AckFunc, error)
}

// ChannelDispatch is the in-process transport: a buffered channel that is
// both the Queue and the Source. Used by tests and single-binary setups.
type ChannelDispatch struct {
	jobs chan string
}

func NewChannelDispatch(buffer int) *ChannelDispatch {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelDispatch{jobs: make(chan string, buffer)}
}

func (d *ChannelDispatch) Enqueue(ctx context.Context, jobID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.jobs <- jobID:
		return nil
	}
}

func (d *ChannelDispatch) Next(ctx context.Context) (string, AckFunc, error) {
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case jobID := <-d.jobs:
		return jobID, func(context.Context) error { return nil }, nil
	}
}

// RunFunc executes one crawl job; the coordinator's Run satisfies it.
type RunFunc func(ctx context.Context, jobID string) error

// Runner consumes job ids and executes crawls, at most `concurrent` at a
// time. Jobs are acknowledged after the attempt regardless of outcome:
// failures live in the job record, not the queue.
type Runner struct {
	source     Source
	run        RunFunc
	slots      chan struct{}
	log        *logrus.Entry
	wg         sync.WaitGroup
}

func NewRunner(source Source, run RunFunc, concurrent int, log *logrus.Logger) *Runner {
	if concurrent <= 0 {
		concurrent = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		source: source,
		run:    run,
		slots:  make(chan struct{}, concurrent),
		log:    log.WithField("component", "runner"),
	}
}

// Run loops until the context ends, then waits for in-flight jobs.
func (r *Runner) Run(ctx context.Context) error {
	defer r.wg.Wait()
	for {
		jobID, ack, err := r.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.WithError(err).Error("fetching next job")
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case r.slots <- struct{}{}:
		}

		r.wg.Add(1)
		go func(jobID string, ack AckFunc) {
			defer r.wg.Done()
			defer func() { <-r.slots }()

			if err := r.run(ctx, jobID); err != nil {
				r.log.WithField("job_id", jobID).WithError(err).Warn("crawl run ended with error")
			}
			// Ack with a fresh context so shutdown doesn't lose the commit.
			ackCtx, cancel := context.WithTimeout(context.Background(), ackTimeout)
			defer cancel()
			if err := ack(ackCtx); err != nil {
				r.log.WithField("job_id", jobID).WithError(err).Error("acknowledging job")
			}
		}(jobID, ack)
	}
}
