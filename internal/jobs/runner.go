// Package jobs runs detached background work for the controllers.
//
// Mutation calls return once local persistence completes; the follow-up
// sync push is submitted here as a fire-and-forget job. A single worker
// drains the queue so opportunistic pushes are serialized.
package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Runner executes submitted jobs on a single background worker.
type Runner struct {
	log    *zap.Logger
	queue  chan func(context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a runner with the given queue capacity and starts its
// worker. If logger is nil, a no-op logger is used.
func New(logger *zap.Logger, queueSize int) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 32
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		log:    logger,
		queue:  make(chan func(context.Context), queueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.loop()
	return r
}

// Submit enqueues a job. Returns false when the queue is full or the
// runner is shutting down; the job is dropped in that case (the next sync
// cycle covers whatever the dropped push would have done).
func (r *Runner) Submit(job func(context.Context)) bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
	}

	r.wg.Add(1)
	select {
	case r.queue <- job:
		return true
	default:
		r.wg.Done()
		r.log.Warn("job queue full, dropping background job")
		return false
	}
}

// Wait blocks until every submitted job has finished. Test hook.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close stops the worker. Jobs still queued are discarded; the in-flight
// job, if any, runs to completion.
func (r *Runner) Close() {
	r.cancel()
	<-r.done

	// Release waiters for jobs that will never run.
	for {
		select {
		case <-r.queue:
			r.wg.Done()
		default:
			return
		}
	}
}

func (r *Runner) loop() {
	defer close(r.done)
	for {
		select {
		case job := <-r.queue:
			job(r.ctx)
			r.wg.Done()
		case <-r.ctx.Done():
			return
		}
	}
}
