package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lust-img/lust/hooks"
)

func TestMetricsRecordsCallsAndErrors(t *testing.T) {
	m := hooks.NewMetrics()
	ctx := context.Background()

	err := hooks.Track(ctx, m, hooks.StageEncode, hooks.Event{Bucket: "avatars", Preset: "small"}, func() (hooks.Event, error) {
		return hooks.Event{Bytes: 100}, nil
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	failErr := errors.New("boom")
	_ = hooks.Track(ctx, m, hooks.StageEncode, hooks.Event{Bucket: "avatars"}, func() (hooks.Event, error) {
		return hooks.Event{}, failErr
	})

	snap := m.Snapshot()
	if snap.Calls[hooks.StageEncode] != 2 {
		t.Fatalf("Calls[encode] = %d, want 2", snap.Calls[hooks.StageEncode])
	}
	if snap.Errors[hooks.StageEncode] != 1 {
		t.Fatalf("Errors[encode] = %d, want 1", snap.Errors[hooks.StageEncode])
	}
	if snap.TotalBytes != 100 {
		t.Fatalf("TotalBytes = %d, want 100", snap.TotalBytes)
	}
}

func TestTrackPropagatesError(t *testing.T) {
	wantErr := errors.New("decode failed")
	err := hooks.Track(context.Background(), hooks.NewMetrics(), hooks.StageDecode, hooks.Event{}, func() (hooks.Event, error) {
		return hooks.Event{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got err %v, want %v", err, wantErr)
	}
}

func TestTrackWithNilObserverStillRunsFn(t *testing.T) {
	called := false
	err := hooks.Track(context.Background(), nil, hooks.StagePut, hooks.Event{}, func() (hooks.Event, error) {
		called = true
		return hooks.Event{}, nil
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if !called {
		t.Fatal("fn was not invoked when observer is nil")
	}
}

func TestMultiFansOutToEveryObserver(t *testing.T) {
	a, b := hooks.NewMetrics(), hooks.NewMetrics()
	multi := hooks.Multi{a, b}

	_ = hooks.Track(context.Background(), multi, hooks.StageGet, hooks.Event{}, func() (hooks.Event, error) {
		return hooks.Event{}, nil
	})

	if a.Snapshot().Calls[hooks.StageGet] != 1 || b.Snapshot().Calls[hooks.StageGet] != 1 {
		t.Fatal("expected both observers in Multi to be notified")
	}
}
