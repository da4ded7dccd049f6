package service

import (
	"context"
	"sync"

	"picksearch-partner-api/internal/metrics"

	"github.com/rs/zerolog"
)

// job is the unit of work run by a pool worker.
type job func(ctx context.Context)

// workerPool is a fixed-size goroutine pool with a bounded input queue.
type workerPool struct {
	queue chan job
	wg    sync.WaitGroup
	log   zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity capacity.
func newWorkerPool(ctx context.Context, n, capacity int, log zerolog.Logger) *workerPool {
	p := &workerPool{
		queue: make(chan job, capacity),
		log:   log,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool) run(ctx context.Context) {
	for j := range p.queue {
		metrics.WebhookQueueDepth.Set(float64(len(p.queue)))
		p.exec(ctx, j)
	}
}

// exec runs one job; a panicking job must not take the worker down.
func (p *workerPool) exec(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("webhook: job panicked")
		}
	}()
	j(ctx)
}

// Submit enqueues a job without blocking (returns false if full or drained).
func (p *workerPool) Submit(j job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- j:
		metrics.WebhookQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		return false
	}
}

// Drain stops accepting jobs, runs what is queued and waits for all workers.
func (p *workerPool) Drain() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool) QueueLen() int {
	return len(p.queue)
}
