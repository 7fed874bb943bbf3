// Package dispatcher offloads CPU-bound decode/resize/encode work onto a
// dedicated worker pool and enforces global/per-bucket admission control.
package dispatcher

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CPUJob is a unit of CPU-bound work submitted to the worker pool.
type CPUJob func(ctx context.Context) (interface{}, error)

type job struct {
	ctx      context.Context
	fn       CPUJob
	resultCh chan jobResult
}

type jobResult struct {
	value interface{}
	err   error
}

// Dispatcher runs CPUJobs on a fixed-size worker pool sized to available
// cores, and provides a fallback single-flight coalescing point for
// on-demand variant computation when no cache is configured.
type Dispatcher struct {
	queue    chan job
	shutdown chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	Global *Semaphore

	fallback singleflight.Group
}

// Config configures a Dispatcher's worker pool.
type Config struct {
	// Workers is not read by New or Start; the pool size is the argument
	// passed to Start (<=0 there defaults to runtime.NumCPU()).
	Workers int
	// QueueSize bounds how many jobs may be pending before Submit blocks on
	// send. <=0 defaults to 256.
	QueueSize int
	// GlobalConcurrency bounds total in-flight CPU jobs across all buckets.
	// <=0 means unbounded.
	GlobalConcurrency int
}

// New creates a Dispatcher. Call Start before submitting jobs, Stop when
// done.
func New(cfg Config) *Dispatcher {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		queue:    make(chan job, queueSize),
		shutdown: make(chan struct{}),
		Global:   NewSemaphore(cfg.GlobalConcurrency),
	}
}

// Start launches the worker pool. Idempotent.
func (d *Dispatcher) Start(workers int) {
	d.once.Do(func() {
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

// Stop drains in-flight jobs and shuts down all workers.
func (d *Dispatcher) Stop() {
	close(d.shutdown)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.shutdown:
			return
		case j, ok := <-d.queue:
			if !ok {
				return
			}
			v, err := j.fn(j.ctx)
			j.resultCh <- jobResult{value: v, err: err}
		}
	}
}

// Submit enqueues fn on the worker pool and blocks until it completes or
// ctx is done. The caller suspends; the CPU job runs on a dedicated worker
// goroutine, not on the caller's goroutine.
func (d *Dispatcher) Submit(ctx context.Context, fn CPUJob) (interface{}, error) {
	resultCh := make(chan jobResult, 1)
	j := job{ctx: ctx, fn: fn, resultCh: resultCh}

	select {
	case d.queue <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Coalesce is the fallback single-flight point used when a bucket has no
// cache configured: concurrent callers computing the same key observe
// exactly one invocation of fn.
func (d *Dispatcher) Coalesce(key string, fn func() ([]byte, error)) ([]byte, error) {
	v, err, _ := d.fallback.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
