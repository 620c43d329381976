package worker

import (
	"context"
	"sync"
)

// Job is a unit of work producing R
type Job[R any] interface {
	Execute(ctx context.Context) R
}

// JobFunc adapts a function to Job
type JobFunc[R any] func(ctx context.Context) R

// Execute calls f
func (f JobFunc[R]) Execute(ctx context.Context) R {
	return f(ctx)
}

type queued[R any] struct {
	index int
	job   Job[R]
}

// Pool manages a fixed set of workers. Results come back in submission
// order regardless of completion order.
type Pool[R any] struct {
	workers    int
	jobQueue   chan queued[R]
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu      sync.Mutex
	results []R
}

// NewPool creates a new worker pool bound to ctx
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[R]{
		workers:    workers,
		jobQueue:   make(chan queued[R], workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers
func (p *Pool[R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := item.job.Execute(p.ctx)
			p.mu.Lock()
			p.results[item.index] = result
			p.mu.Unlock()
		}
	}
}

// Submit queues a job. It returns false if the pool was shut down first.
func (p *Pool[R]) Submit(job Job[R]) bool {
	p.mu.Lock()
	idx := len(p.results)
	var zero R
	p.results = append(p.results, zero)
	p.mu.Unlock()

	if p.ctx.Err() != nil {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- queued[R]{index: idx, job: job}:
		return true
	}
}

// Wait closes the queue, waits for every submitted job and returns the
// results in submission order. Jobs dropped by a shutdown leave the zero
// value in their slot. Submit must not be called after Wait.
func (p *Pool[R]) Wait() []R {
	p.closeOnce.Do(func() { close(p.jobQueue) })
	p.wg.Wait()
	p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

// Shutdown stops the workers immediately
func (p *Pool[R]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}
