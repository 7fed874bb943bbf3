package bucket

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
)

// jitStrategy eagerly materializes every preset in the bucket's
// original_image_store_format at upload time, and lazily transcodes other
// formats on first fetch, persisting the result so later fetches are pure
// storage/cache reads.
type jitStrategy struct{}

func (jitStrategy) upload(ctx context.Context, c *Controller, imageID uuid.UUID, raster *processor.Raster, _ core.Format) (UploadReport, error) {
	presets := c.policy.AllPresetsIncludingOriginal()
	report := UploadReport{ImageID: imageID, Variants: make(map[string]map[core.Format]int64)}

	for name, preset := range presets {
		size, err := c.encodeAndStoreVariant(ctx, imageID, name, preset, c.policy.OriginalStoreFormat, raster)
		if err != nil {
			return UploadReport{}, err
		}
		report.Variants[name] = map[core.Format]int64{c.policy.OriginalStoreFormat: size}
	}
	return report, nil
}

func (jitStrategy) fetch(ctx context.Context, c *Controller, imageID uuid.UUID, presetName string, format core.Format, custom *CustomSize) ([]byte, error) {
	if custom != nil {
		return nil, lerrors.Wrap(lerrors.CustomSizeNotAllowed, "bucket.jit.fetch",
			errors.New("custom sizes are not supported in jit mode"))
	}

	key := core.VariantKey{Bucket: c.policy.Slug, ImageID: imageID, Preset: presetName, Format: format}
	if data, ok := c.cacheGet(key); ok {
		return data, nil
	}

	data, ok, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		c.cachePut(key, data)
		return data, nil
	}

	// Requested format isn't materialized yet: transcode from the base
	// variant already stored in original_image_store_format.
	baseKey := core.VariantKey{Bucket: c.policy.Slug, ImageID: imageID, Preset: presetName, Format: c.policy.OriginalStoreFormat}
	baseData, ok, err := c.get(ctx, baseKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return c.computeVariant(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := c.disp.Submit(ctx, func(ctx context.Context) (interface{}, error) {
			raster, _, err := processor.Decode(ctx, c.registry, baseData, c.policy.OriginalStoreFormat, c.maxDecodePixels)
			if err != nil {
				return nil, err
			}
			return processor.Encode(ctx, c.registry, raster, format, c.encoderParams(format))
		})
		if err != nil {
			return nil, err
		}
		transcoded := v.([]byte)
		if err := c.put(ctx, key, transcoded); err != nil {
			return nil, err
		}
		return transcoded, nil
	})
}
