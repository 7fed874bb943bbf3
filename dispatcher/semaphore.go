package dispatcher

import "context"

// Semaphore is a counting semaphore built on a buffered channel, the same
// primitive the worker pool uses for its job queue.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a Semaphore with the given number of permits. A
// non-positive permits means unlimited (Acquire never blocks).
func NewSemaphore(permits int) *Semaphore {
	if permits <= 0 {
		return &Semaphore{}
	}
	return &Semaphore{slots: make(chan struct{}, permits)}
}

// Acquire blocks until a permit is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit. Safe to call even on an unlimited semaphore.
func (s *Semaphore) Release() {
	if s.slots == nil {
		return
	}
	<-s.slots
}

// AcquireGlobalThenBucket acquires global first, then bucket, to avoid
// deadlocking with other callers sharing the global semaphore. The
// returned release function releases in reverse order (bucket, then
// global) and is always non-nil when err is nil.
func AcquireGlobalThenBucket(ctx context.Context, global, bucket *Semaphore) (release func(), err error) {
	if err := global.Acquire(ctx); err != nil {
		return nil, err
	}
	if err := bucket.Acquire(ctx); err != nil {
		global.Release()
		return nil, err
	}
	return func() {
		bucket.Release()
		global.Release()
	}, nil
}
