package bucket

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/processor"
)

// realtimeStrategy persists only the original preset at upload time. Every
// other variant, including ad-hoc custom sizes, is computed on demand from
// the stored original and cached, but never written back to storage.
type realtimeStrategy struct{}

func (realtimeStrategy) upload(ctx context.Context, c *Controller, imageID uuid.UUID, raster *processor.Raster, _ core.Format) (UploadReport, error) {
	original := core.Original()
	size, err := c.encodeAndStoreVariant(ctx, imageID, core.OriginalPreset, original, c.policy.OriginalStoreFormat, raster)
	if err != nil {
		return UploadReport{}, err
	}
	return UploadReport{
		ImageID:  imageID,
		Variants: map[string]map[core.Format]int64{core.OriginalPreset: {c.policy.OriginalStoreFormat: size}},
	}, nil
}

func (realtimeStrategy) fetch(ctx context.Context, c *Controller, imageID uuid.UUID, presetName string, format core.Format, custom *CustomSize) ([]byte, error) {
	var cacheKeyPreset string
	var width, height int
	var filter core.Filter = core.FilterLanczos3

	if custom != nil {
		cacheKeyPreset = realtimeCustomPresetKey(custom.Width, custom.Height)
		width, height = custom.Width, custom.Height
	} else {
		preset, _ := c.policy.ResolvePreset(presetName)
		cacheKeyPreset = presetName
		if presetName == "" {
			cacheKeyPreset = core.OriginalPreset
		}
		width, height, filter = int(preset.Width), int(preset.Height), preset.Filter
	}

	key := core.VariantKey{Bucket: c.policy.Slug, ImageID: imageID, Preset: cacheKeyPreset, Format: format}
	if data, ok := c.cacheGet(key); ok {
		return data, nil
	}

	originalKey := core.VariantKey{Bucket: c.policy.Slug, ImageID: imageID, Preset: core.OriginalPreset, Format: c.policy.OriginalStoreFormat}
	originalData, ok, err := c.get(ctx, originalKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return c.computeVariant(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := c.disp.Submit(ctx, func(ctx context.Context) (interface{}, error) {
			raster, _, err := processor.Decode(ctx, c.registry, originalData, c.policy.OriginalStoreFormat, c.maxDecodePixels)
			if err != nil {
				return nil, err
			}
			img, err := processor.Resize(raster.Image, width, height, filter)
			if err != nil {
				return nil, err
			}
			resized := &processor.Raster{Image: img, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
			return processor.Encode(ctx, c.registry, resized, format, c.encoderParams(format))
		})
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	})
}

// realtimeCustomPresetKey synthesizes a cache-only preset name for an
// ad-hoc width/height pair, keeping it namespaced apart from declared
// presets.
func realtimeCustomPresetKey(width, height int) string {
	return "_custom_" + strconv.Itoa(width) + "x" + strconv.Itoa(height)
}
