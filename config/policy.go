package config

import (
	"fmt"

	"github.com/lust-img/lust/bucket"
	"github.com/lust-img/lust/cache"
	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/processor"
)

// BucketPolicy builds the bucket.Policy for slug, applying the
// stricter-wins rule between the bucket's own caps and the document's
// global caps.
func (c Config) BucketPolicy(slug string) (bucket.Policy, error) {
	b, ok := c.Buckets[slug]
	if !ok {
		return bucket.Policy{}, fmt.Errorf("config: unknown bucket %q", slug)
	}

	mode, ok := core.ParseEncodingMode(b.Mode)
	if !ok {
		return bucket.Policy{}, fmt.Errorf("config: bucket %q: unknown mode %q", slug, b.Mode)
	}

	originalFormat := core.FormatPNG
	if b.Formats.OriginalImageStoreFormat != "" {
		if f, ok := core.ParseFormat(b.Formats.OriginalImageStoreFormat); ok {
			originalFormat = f
		}
	}

	servingFormat := originalFormat
	if b.DefaultServingFormat != "" {
		if f, ok := core.ParseFormat(b.DefaultServingFormat); ok {
			servingFormat = f
		}
	}

	presets := make(map[string]core.Preset, len(b.Presets))
	for name, p := range b.Presets {
		filter, ok := core.ParseFilter(p.Filter)
		if !ok {
			filter = core.FilterLanczos3
		}
		presets[name] = core.Preset{Name: name, Width: p.Width, Height: p.Height, Filter: filter}
	}

	policy := bucket.Policy{
		Slug:                 slug,
		Mode:                 mode,
		EnabledFormats:       b.Formats.Enabled(),
		OriginalStoreFormat:  originalFormat,
		DefaultServingFormat: servingFormat,
		DefaultServingPreset: b.DefaultServingPreset,
		Presets:              presets,
		EncoderParams:        encoderParams(b.Formats),
		MaxUploadSize:        stricterBytes(c.MaxUploadSizeKB, b.MaxUploadSizeKB),
		MaxConcurrency:       stricterCount(c.MaxConcurrency, b.MaxConcurrency),
		MaxCustomDimension:   b.MaxCustomDimension,
	}
	return policy, nil
}

func encoderParams(f FormatsConfig) map[core.Format]processor.EncodeParams {
	out := make(map[core.Format]processor.EncodeParams)
	if f.JPEGQuality > 0 {
		out[core.FormatJPEG] = processor.JPEGParams{Quality: f.JPEGQuality}
	}
	if f.WebPConfig.Quality != nil || f.WebPConfig.Method != 0 || f.WebPConfig.Threading {
		out[core.FormatWebP] = processor.WebPParams{
			Quality:   f.WebPConfig.Quality,
			Method:    f.WebPConfig.Method,
			Threading: f.WebPConfig.Threading,
		}
	}
	return out
}

// stricterBytes returns the smaller of the two KB limits, treating 0 as
// "unlimited", and converts the result to bytes.
func stricterBytes(globalKB, bucketKB int64) int64 {
	limit := bucketKB
	if globalKB > 0 && (limit == 0 || globalKB < limit) {
		limit = globalKB
	}
	if limit <= 0 {
		return 0
	}
	return limit * 1024
}

func stricterCount(global, bucket int) int {
	limit := bucket
	if global > 0 && (limit == 0 || global < limit) {
		limit = global
	}
	return limit
}

// CacheConfigFor resolves the effective cache.Config for a bucket, applying
// the bucket's own cache override when present, else the document's
// global_cache, else a disabled cache (nil Config means "no cache").
func (c Config) CacheConfigFor(slug string) *cache.Config {
	b, ok := c.Buckets[slug]
	if !ok {
		return nil
	}
	cc := b.Cache
	if cc == nil {
		cc = c.GlobalCache
	}
	if cc == nil {
		return nil
	}
	if cc.MaxCapacity > 0 {
		return &cache.Config{Mode: cache.ModeCapacity, Limit: cc.MaxCapacity}
	}
	if cc.MaxImages > 0 {
		return &cache.Config{Mode: cache.ModeCount, Limit: int64(cc.MaxImages)}
	}
	return nil
}
