package bucket_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/lust-img/lust/bucket"
	"github.com/lust-img/lust/cache"
	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/dispatcher"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
	"github.com/lust-img/lust/processor/registry"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func newDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	d := dispatcher.New(dispatcher.Config{Workers: 2, QueueSize: 32})
	d.Start(2)
	t.Cleanup(d.Stop)
	return d
}

func smallLargePresets() map[string]core.Preset {
	return map[string]core.Preset{
		"small": {Name: "small", Width: 32, Height: 32, Filter: core.FilterLanczos3},
		"large": {Name: "large", Width: 128, Height: 128, Filter: core.FilterLanczos3},
	}
}

func decodedDims(t *testing.T, reg *processor.Registry, data []byte, format core.Format) (int, int) {
	t.Helper()
	raster, detected, err := processor.Decode(context.Background(), reg, data, format, 0)
	if err != nil {
		t.Fatalf("decode fetched bytes: %v", err)
	}
	if detected != format {
		t.Fatalf("decoded format = %q, want %q", detected, format)
	}
	return raster.Width, raster.Height
}

func TestAOTUploadFansOutAllPresetsAndFormats(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeAOT,
		EnabledFormats:       []core.Format{core.FormatPNG, core.FormatJPEG, core.FormatWebP},
		OriginalStoreFormat:  core.FormatPNG,
		DefaultServingFormat: core.FormatPNG,
		Presets:              smallLargePresets(),
	}
	ctl := bucket.New(policy, store, nil, disp, reg, 0)

	imageID := uuid.New()
	report, err := ctl.Upload(context.Background(), imageID, testPNG(t, 256, 256), core.FormatPNG)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if len(report.Variants) != 3 { // original, small, large
		t.Fatalf("got %d presets in report, want 3", len(report.Variants))
	}
	for preset, byFormat := range report.Variants {
		if len(byFormat) != 3 {
			t.Fatalf("preset %s: got %d formats, want 3", preset, len(byFormat))
		}
	}
	if got := store.keyCount(); got != 9 {
		t.Fatalf("store has %d keys, want 9", got)
	}

	data, format, err := ctl.Fetch(context.Background(), imageID, "small", core.FormatWebP, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if format != core.FormatWebP {
		t.Fatalf("format = %q, want webp", format)
	}
	w, h := decodedDims(t, reg, data, core.FormatWebP)
	if w != 32 || h != 32 {
		t.Fatalf("fetched dims = %dx%d, want 32x32", w, h)
	}
}

func TestJITUploadPersistsBaseFormatOnlyThenTranscodesLazily(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 100})

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeJIT,
		EnabledFormats:       []core.Format{core.FormatJPEG, core.FormatWebP},
		OriginalStoreFormat:  core.FormatJPEG,
		DefaultServingFormat: core.FormatJPEG,
		Presets:              smallLargePresets(),
	}
	ctl := bucket.New(policy, store, c, disp, reg, 0)

	imageID := uuid.New()
	if _, err := ctl.Upload(context.Background(), imageID, testPNG(t, 200, 200), core.FormatPNG); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := store.keyCount(); got != 3 {
		t.Fatalf("store has %d keys after JIT upload, want 3 (one per preset)", got)
	}

	data, format, err := ctl.Fetch(context.Background(), imageID, "small", core.FormatWebP, nil)
	if err != nil {
		t.Fatalf("Fetch (first, cold): %v", err)
	}
	if format != core.FormatWebP {
		t.Fatalf("format = %q, want webp", format)
	}
	if got := store.keyCount(); got != 4 {
		t.Fatalf("store has %d keys after lazy transcode, want 4", got)
	}

	before := store.keyCount()
	data2, _, err := ctl.Fetch(context.Background(), imageID, "small", core.FormatWebP, nil)
	if err != nil {
		t.Fatalf("Fetch (second, warm): %v", err)
	}
	if store.keyCount() != before {
		t.Fatalf("second fetch wrote a new key, expected cache hit with no storage write")
	}
	if !bytes.Equal(data, data2) {
		t.Fatal("second fetch returned different bytes than the first")
	}
}

func TestJITConcurrentColdFetchesCoalesceToOneTranscode(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 100})

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeJIT,
		EnabledFormats:       []core.Format{core.FormatJPEG, core.FormatWebP},
		OriginalStoreFormat:  core.FormatJPEG,
		DefaultServingFormat: core.FormatJPEG,
		Presets:              smallLargePresets(),
		MaxConcurrency:       4,
	}
	ctl := bucket.New(policy, store, c, disp, reg, 0)

	imageID := uuid.New()
	if _, err := ctl.Upload(context.Background(), imageID, testPNG(t, 200, 200), core.FormatPNG); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	key := core.VariantKey{Bucket: "avatars", ImageID: imageID, Preset: "small", Format: core.FormatWebP}

	const concurrency = 50
	var wg sync.WaitGroup
	results := make([][]byte, concurrency)
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, _, err := ctl.Fetch(context.Background(), imageID, "small", core.FormatWebP, nil)
			results[i], errs[i] = data, err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Fetch[%d]: %v", i, err)
		}
	}
	for i := 1; i < concurrency; i++ {
		if !bytes.Equal(results[0], results[i]) {
			t.Fatalf("Fetch[%d] returned different bytes than Fetch[0]", i)
		}
	}
	if got := store.putCount(key.Path()); got != 1 {
		t.Fatalf("got %d Put calls for the cold variant, want exactly 1 (single-flight)", got)
	}
}

func TestRealtimeFetchWithCustomSizeNeverPersists(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 100})

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeRealtime,
		EnabledFormats:       []core.Format{core.FormatPNG},
		OriginalStoreFormat:  core.FormatPNG,
		DefaultServingFormat: core.FormatPNG,
	}
	ctl := bucket.New(policy, store, c, disp, reg, 0)

	imageID := uuid.New()
	if _, err := ctl.Upload(context.Background(), imageID, testPNG(t, 300, 300), core.FormatPNG); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := store.keyCount(); got != 1 {
		t.Fatalf("store has %d keys after realtime upload, want 1 (original only)", got)
	}

	data, _, err := ctl.Fetch(context.Background(), imageID, "", core.FormatPNG, &bucket.CustomSize{Width: 48, Height: 48})
	if err != nil {
		t.Fatalf("Fetch with custom size: %v", err)
	}
	if got := store.keyCount(); got != 1 {
		t.Fatalf("store has %d keys after custom-size fetch, want 1 (never persisted)", got)
	}
	w, h := decodedDims(t, reg, data, core.FormatPNG)
	if w != 48 || h != 48 {
		t.Fatalf("fetched dims = %dx%d, want 48x48", w, h)
	}
}

func TestRealtimeRejectsCustomSizeOverMax(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeRealtime,
		EnabledFormats:       []core.Format{core.FormatPNG},
		OriginalStoreFormat:  core.FormatPNG,
		DefaultServingFormat: core.FormatPNG,
		MaxCustomDimension:   100,
	}
	ctl := bucket.New(policy, store, nil, disp, reg, 0)

	imageID := uuid.New()
	if _, err := ctl.Upload(context.Background(), imageID, testPNG(t, 300, 300), core.FormatPNG); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, _, err := ctl.Fetch(context.Background(), imageID, "", core.FormatPNG, &bucket.CustomSize{Width: 200, Height: 200})
	if !lerrors.Is(err, lerrors.CustomSizeNotAllowed) {
		t.Fatalf("got err %v, want CustomSizeNotAllowed", err)
	}
}

func TestAOTRejectsCustomSize(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeAOT,
		EnabledFormats:       []core.Format{core.FormatPNG},
		OriginalStoreFormat:  core.FormatPNG,
		DefaultServingFormat: core.FormatPNG,
	}
	ctl := bucket.New(policy, store, nil, disp, reg, 0)

	imageID := uuid.New()
	if _, err := ctl.Upload(context.Background(), imageID, testPNG(t, 64, 64), core.FormatPNG); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, _, err := ctl.Fetch(context.Background(), imageID, "", core.FormatPNG, &bucket.CustomSize{Width: 10, Height: 10})
	if !lerrors.Is(err, lerrors.CustomSizeNotAllowed) {
		t.Fatalf("got err %v, want CustomSizeNotAllowed", err)
	}
}

func TestDeleteMakesSubsequentFetchNotFound(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)
	c := cache.New(cache.Config{Mode: cache.ModeCount, Limit: 100})

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeAOT,
		EnabledFormats:       []core.Format{core.FormatPNG},
		OriginalStoreFormat:  core.FormatPNG,
		DefaultServingFormat: core.FormatPNG,
	}
	ctl := bucket.New(policy, store, c, disp, reg, 0)

	imageID := uuid.New()
	if _, err := ctl.Upload(context.Background(), imageID, testPNG(t, 64, 64), core.FormatPNG); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := ctl.Delete(context.Background(), imageID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, _, err := ctl.Fetch(context.Background(), imageID, "", core.FormatPNG, nil)
	if !lerrors.Is(err, lerrors.NotFound) {
		t.Fatalf("got err %v, want NotFound", err)
	}
	if got := store.keyCount(); got != 0 {
		t.Fatalf("store has %d keys after delete, want 0", got)
	}
}

func TestUploadRejectsPayloadOverBucketLimit(t *testing.T) {
	reg := registry.NewDefault()
	store := newMemStore()
	disp := newDispatcher(t)

	policy := bucket.Policy{
		Slug:                 "avatars",
		Mode:                 core.ModeAOT,
		EnabledFormats:       []core.Format{core.FormatPNG},
		OriginalStoreFormat:  core.FormatPNG,
		DefaultServingFormat: core.FormatPNG,
		MaxUploadSize:        1024,
	}
	ctl := bucket.New(policy, store, nil, disp, reg, 0)

	big := testPNG(t, 512, 512)
	if len(big) <= 1024 {
		t.Fatalf("fixture too small to exercise the limit: %d bytes", len(big))
	}

	_, err := ctl.Upload(context.Background(), uuid.New(), big, core.FormatPNG)
	if !lerrors.Is(err, lerrors.PayloadTooLarge) {
		t.Fatalf("got err %v, want PayloadTooLarge", err)
	}
}
