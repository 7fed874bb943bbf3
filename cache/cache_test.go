package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/lust-img/lust/cache"
	"github.com/lust-img/lust/core"
)

func testKey(preset string) core.VariantKey {
	return core.VariantKey{
		Bucket:  "avatars",
		ImageID: uuid.MustParse("12345678-1234-1234-1234-123456789abc"),
		Preset:  preset,
		Format:  core.FormatJPEG,
	}
}

func TestGetMissThenPutThenHit(t *testing.T) {
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 10})
	key := testKey("small")

	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put(key, []byte("data"))
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if string(got) != "data" {
		t.Fatalf("got %q, want %q", got, "data")
	}
}

func TestCountModeEvictsLRU(t *testing.T) {
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 2})
	a, b, d := testKey("a"), testKey("b"), testKey("d")

	c.Put(a, []byte("1"))
	c.Put(b, []byte("2"))
	c.Put(d, []byte("3")) // evicts a, the least recently used

	if _, ok := c.Get(a); ok {
		t.Fatal("expected a to be evicted")
	}
	if _, ok := c.Get(b); !ok {
		t.Fatal("expected b to survive")
	}
	if _, ok := c.Get(d); !ok {
		t.Fatal("expected d to survive")
	}
}

func TestCapacityModeEvictsByBytes(t *testing.T) {
	c := cache.New(cache.Config{Mode: cache.ModeCapacity, Limit: 10})
	a, b := testKey("a"), testKey("b")

	c.Put(a, make([]byte, 6))
	c.Put(b, make([]byte, 6)) // total would be 12 > 10, a is evicted

	if _, ok := c.Get(a); ok {
		t.Fatal("expected a to be evicted once over byte budget")
	}
	if _, ok := c.Get(b); !ok {
		t.Fatal("expected b to survive")
	}
}

func TestGetOrComputeCoalescesConcurrentCallers(t *testing.T) {
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 10})
	key := testKey("small")

	var calls int32
	start := make(chan struct{})
	produce := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-start
		return []byte("computed"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := c.GetOrCompute(context.Background(), key, produce)
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
				return
			}
			results[i] = data
		}(i)
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("produce invoked %d times, want 1", got)
	}
	for i, r := range results {
		if string(r) != "computed" {
			t.Fatalf("result[%d] = %q, want %q", i, r, "computed")
		}
	}
}

func TestGetOrComputeDoesNotCacheFailure(t *testing.T) {
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 10})
	key := testKey("small")

	wantErr := errors.New("boom")
	_, err := c.GetOrCompute(context.Background(), key, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got err %v, want %v", err, wantErr)
	}

	// A subsequent successful producer must actually run, proving the
	// failed attempt left no negative cache entry.
	data, err := c.GetOrCompute(context.Background(), key, func(ctx context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}
	if string(data) != "ok" {
		t.Fatalf("got %q, want %q", data, "ok")
	}
}

func TestInvalidatePrefixRemovesMatchingEntriesOnly(t *testing.T) {
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 10})
	id := uuid.MustParse("12345678-1234-1234-1234-123456789abc")
	other := uuid.MustParse("00000000-0000-0000-0000-000000000000")

	k1 := core.VariantKey{Bucket: "avatars", ImageID: id, Preset: "small", Format: core.FormatJPEG}
	k2 := core.VariantKey{Bucket: "avatars", ImageID: id, Preset: "large", Format: core.FormatPNG}
	k3 := core.VariantKey{Bucket: "avatars", ImageID: other, Preset: "small", Format: core.FormatJPEG}

	c.Put(k1, []byte("1"))
	c.Put(k2, []byte("2"))
	c.Put(k3, []byte("3"))

	c.InvalidatePrefix(k1.Prefix())

	if _, ok := c.Get(k1); ok {
		t.Fatal("expected k1 invalidated")
	}
	if _, ok := c.Get(k2); ok {
		t.Fatal("expected k2 invalidated (shares image prefix)")
	}
	if _, ok := c.Get(k3); !ok {
		t.Fatal("expected k3 (different image) to survive")
	}
}
