// Package hooks provides observers for the bucket pipeline's stages. The
// bucket controller reports decode, encode (which includes the resize),
// storage put and storage get; StageResize, StageUpload and StageFetch are
// declared but nothing in this module reports them.
package hooks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lust-img/lust/log"
)

// Stage identifies a point in the bucket pipeline an Observer is notified
// about.
type Stage string

const (
	StageDecode Stage = "decode"
	StageResize Stage = "resize"
	StageEncode Stage = "encode"
	StagePut    Stage = "storage_put"
	StageGet    Stage = "storage_get"
	StageUpload Stage = "upload"
	StageFetch  Stage = "fetch"
)

// Event carries the context an Observer needs to log or measure a stage.
type Event struct {
	Bucket  string
	Preset  string
	Format  string
	Bytes   int64
	Err     error
	Elapsed time.Duration
}

// Observer is notified before and after a pipeline stage runs. Before
// receives a zero Elapsed and a nil Err; After receives both.
type Observer interface {
	Before(ctx context.Context, stage Stage, ev Event)
	After(ctx context.Context, stage Stage, ev Event)
}

// LoggingObserver logs stage start/end via the package-wide zerolog logger
// carried on ctx.
type LoggingObserver struct{}

// NewLoggingObserver creates a LoggingObserver.
func NewLoggingObserver() *LoggingObserver { return &LoggingObserver{} }

func (LoggingObserver) Before(ctx context.Context, stage Stage, ev Event) {
	log.Ctx(ctx).Debug().
		Str("stage", string(stage)).
		Str(log.FieldBucket, ev.Bucket).
		Str(log.FieldPreset, ev.Preset).
		Str(log.FieldFormat, ev.Format).
		Msg("pipeline stage start")
}

func (LoggingObserver) After(ctx context.Context, stage Stage, ev Event) {
	l := log.Ctx(ctx)
	logEvent := l.Debug()
	if ev.Err != nil {
		logEvent = l.Error().Err(ev.Err)
	}
	logEvent.
		Str("stage", string(stage)).
		Str(log.FieldBucket, ev.Bucket).
		Str(log.FieldPreset, ev.Preset).
		Str(log.FieldFormat, ev.Format).
		Int64("bytes", ev.Bytes).
		Int64(log.FieldLatency, ev.Elapsed.Milliseconds()).
		Msg("pipeline stage done")
}

// Metrics accumulates per-stage call counts, error counts, cumulative
// duration, and total bytes moved. Safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	calls     map[Stage]int64
	errors    map[Stage]int64
	durations map[Stage]time.Duration

	totalBytes int64
}

// NewMetrics creates an empty Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		calls:     make(map[Stage]int64),
		errors:    make(map[Stage]int64),
		durations: make(map[Stage]time.Duration),
	}
}

func (m *Metrics) Before(context.Context, Stage, Event) {}

func (m *Metrics) After(_ context.Context, stage Stage, ev Event) {
	m.mu.Lock()
	m.calls[stage]++
	m.durations[stage] += ev.Elapsed
	if ev.Err != nil {
		m.errors[stage]++
	}
	m.mu.Unlock()

	if ev.Bytes > 0 {
		atomic.AddInt64(&m.totalBytes, ev.Bytes)
	}
}

// Snapshot is an immutable point-in-time copy of Metrics.
type Snapshot struct {
	Calls      map[Stage]int64
	Errors     map[Stage]int64
	DurationMs map[Stage]int64
	TotalBytes int64
}

// Snapshot returns a copy of the collector's current state.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Calls:      make(map[Stage]int64, len(m.calls)),
		Errors:     make(map[Stage]int64, len(m.errors)),
		DurationMs: make(map[Stage]int64, len(m.durations)),
		TotalBytes: atomic.LoadInt64(&m.totalBytes),
	}
	for k, v := range m.calls {
		snap.Calls[k] = v
	}
	for k, v := range m.errors {
		snap.Errors[k] = v
	}
	for k, v := range m.durations {
		snap.DurationMs[k] = v.Milliseconds()
	}
	return snap
}

// Multi fans a single Before/After call out to several observers.
type Multi []Observer

func (m Multi) Before(ctx context.Context, stage Stage, ev Event) {
	for _, o := range m {
		o.Before(ctx, stage, ev)
	}
}

func (m Multi) After(ctx context.Context, stage Stage, ev Event) {
	for _, o := range m {
		o.After(ctx, stage, ev)
	}
}

// Track runs fn, reporting Before/After to obs with elapsed duration and
// any error fn returns. If obs is nil, fn runs unobserved.
func Track(ctx context.Context, obs Observer, stage Stage, ev Event, fn func() (Event, error)) error {
	if obs == nil {
		_, err := fn()
		return err
	}
	obs.Before(ctx, stage, ev)
	start := time.Now()
	result, err := fn()
	result.Elapsed = time.Since(start)
	result.Err = err
	if result.Bucket == "" {
		result.Bucket = ev.Bucket
	}
	if result.Preset == "" {
		result.Preset = ev.Preset
	}
	if result.Format == "" {
		result.Format = ev.Format
	}
	obs.After(ctx, stage, result)
	return err
}
