package bucket

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/hooks"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
)

// aotStrategy fans every (preset, format) pair out at upload time so that
// fetches never touch the CPU.
type aotStrategy struct{}

func (aotStrategy) upload(ctx context.Context, c *Controller, imageID uuid.UUID, raster *processor.Raster, _ core.Format) (UploadReport, error) {
	presets := c.policy.AllPresetsIncludingOriginal()

	type variantResult struct {
		preset string
		format core.Format
		size   int64
		err    error
	}

	jobs := len(presets) * len(c.policy.EnabledFormats)
	results := make(chan variantResult, jobs)
	var wg sync.WaitGroup

	for name, preset := range presets {
		for _, format := range c.policy.EnabledFormats {
			wg.Add(1)
			go func(name string, preset core.Preset, format core.Format) {
				defer wg.Done()
				size, err := c.encodeAndStoreVariant(ctx, imageID, name, preset, format, raster)
				results <- variantResult{preset: name, format: format, size: size, err: err}
			}(name, preset, format)
		}
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	report := UploadReport{ImageID: imageID, Variants: make(map[string]map[core.Format]int64)}
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if report.Variants[r.preset] == nil {
			report.Variants[r.preset] = make(map[core.Format]int64)
		}
		report.Variants[r.preset][r.format] = r.size
	}

	if firstErr != nil {
		// Partial-failure rollback: some variants may have been persisted
		// before the failing one; remove everything for this image rather
		// than leave an incomplete AOT set.
		_ = c.backend.DeletePrefix(ctx, core.ImagePrefix(c.policy.Slug, imageID))
		return UploadReport{}, firstErr
	}
	return report, nil
}

// encodeAndStoreVariant resizes raster to preset's dimensions (a no-op for
// "original"), encodes it to format, and persists the result, submitting
// the CPU work to the dispatcher under the bucket's admission control.
func (c *Controller) encodeAndStoreVariant(ctx context.Context, imageID uuid.UUID, presetName string, preset core.Preset, format core.Format, raster *processor.Raster) (int64, error) {
	var data []byte
	err := hooks.Track(ctx, c.obs, hooks.StageEncode, hooks.Event{Bucket: c.policy.Slug, Preset: presetName, Format: string(format)},
		func() (hooks.Event, error) {
			v, err := c.disp.Submit(ctx, func(ctx context.Context) (interface{}, error) {
				img, err := processor.Resize(raster.Image, int(preset.Width), int(preset.Height), preset.Filter)
				if err != nil {
					return nil, err
				}
				resized := &processor.Raster{Image: img, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
				return processor.Encode(ctx, c.registry, resized, format, c.encoderParams(format))
			})
			if err != nil {
				return hooks.Event{}, err
			}
			data = v.([]byte)
			return hooks.Event{Bytes: int64(len(data))}, nil
		})
	if err != nil {
		return 0, err
	}

	key := core.VariantKey{Bucket: c.policy.Slug, ImageID: imageID, Preset: presetName, Format: format}
	if err := c.put(ctx, key, data); err != nil {
		return 0, err
	}
	c.cachePut(key, data)
	return int64(len(data)), nil
}

func (aotStrategy) fetch(ctx context.Context, c *Controller, imageID uuid.UUID, presetName string, format core.Format, custom *CustomSize) ([]byte, error) {
	if custom != nil {
		return nil, lerrors.Wrap(lerrors.CustomSizeNotAllowed, "bucket.aot.fetch",
			errors.New("custom sizes are not supported in aot mode"))
	}
	key := core.VariantKey{Bucket: c.policy.Slug, ImageID: imageID, Preset: presetName, Format: format}

	if data, ok := c.cacheGet(key); ok {
		return data, nil
	}
	data, ok, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	c.cachePut(key, data)
	return data, nil
}
