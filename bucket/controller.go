// Package bucket implements the per-bucket policy orchestrator: the three
// encoding-mode pipelines (AOT/JIT/Realtime) over a Processor, a Storage
// Backend, and an optional Cache.
package bucket

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/lust-img/lust/cache"
	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/dispatcher"
	"github.com/lust-img/lust/hooks"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
	"github.com/lust-img/lust/storage"
)

// CustomSize is an ad-hoc width/height pair requested outside the bucket's
// declared presets. Only honoured in Realtime mode.
type CustomSize struct {
	Width, Height int
}

// UploadReport describes what a successful Upload persisted: byte size per
// (preset, format) pair.
type UploadReport struct {
	ImageID  uuid.UUID
	Variants map[string]map[core.Format]int64
}

// strategy is the per-mode upload/fetch pipeline, selected once at
// Controller construction time by configuration rather than an inheritance
// hierarchy.
type strategy interface {
	upload(ctx context.Context, c *Controller, imageID uuid.UUID, raster *processor.Raster, declaredFormat core.Format) (UploadReport, error)
	fetch(ctx context.Context, c *Controller, imageID uuid.UUID, presetName string, format core.Format, custom *CustomSize) ([]byte, error)
}

// Controller holds one bucket's live state: its policy, storage backend,
// optional cache, and a semaphore bounding its own concurrency. It is safe
// for concurrent use.
type Controller struct {
	policy   Policy
	backend  storage.Backend
	cache    *cache.Cache // nil disables caching for this bucket
	disp     *dispatcher.Dispatcher
	registry *processor.Registry
	sem      *dispatcher.Semaphore
	strategy strategy
	obs      hooks.Observer // nil disables pipeline observation

	maxDecodePixels int64
}

// SetObserver attaches a pipeline observer, notified around decode,
// encode, and storage stages. Pass nil to detach.
func (c *Controller) SetObserver(obs hooks.Observer) { c.obs = obs }

// New builds a Controller for policy. cache may be nil, which disables
// caching for this bucket; whether c is a bucket-specific or a global cache
// is up to the caller.
func New(policy Policy, backend storage.Backend, c *cache.Cache, disp *dispatcher.Dispatcher, reg *processor.Registry, maxDecodePixels int64) *Controller {
	ctl := &Controller{
		policy:          policy,
		backend:         backend,
		cache:           c,
		disp:            disp,
		registry:        reg,
		sem:             dispatcher.NewSemaphore(policy.MaxConcurrency),
		maxDecodePixels: maxDecodePixels,
	}
	switch policy.Mode {
	case core.ModeJIT:
		ctl.strategy = jitStrategy{}
	case core.ModeRealtime:
		ctl.strategy = realtimeStrategy{}
	default:
		ctl.strategy = aotStrategy{}
	}
	return ctl
}

// Slug returns the bucket's configured slug.
func (c *Controller) Slug() string { return c.policy.Slug }

// Policy returns the bucket's policy (read-only use expected).
func (c *Controller) Policy() Policy { return c.policy }

// Upload decodes raw, validates it against the upload-size limit, and runs
// the mode-specific upload pipeline under the bucket's admission control.
func (c *Controller) Upload(ctx context.Context, imageID uuid.UUID, raw []byte, declaredFormat core.Format) (UploadReport, error) {
	if c.policy.MaxUploadSize > 0 && int64(len(raw)) > c.policy.MaxUploadSize {
		return UploadReport{}, lerrors.Wrap(lerrors.PayloadTooLarge, "bucket.upload",
			errors.New("payload exceeds bucket's max_upload_size"))
	}

	release, err := dispatcher.AcquireGlobalThenBucket(ctx, c.disp.Global, c.sem)
	if err != nil {
		return UploadReport{}, lerrors.Wrap(lerrors.StorageFailure, "bucket.upload.admission", err)
	}
	defer release()

	var raster *processor.Raster
	err = hooks.Track(ctx, c.obs, hooks.StageDecode, hooks.Event{Bucket: c.policy.Slug, Format: string(declaredFormat), Bytes: int64(len(raw))},
		func() (hooks.Event, error) {
			v, err := c.disp.Submit(ctx, func(ctx context.Context) (interface{}, error) {
				r, _, err := processor.Decode(ctx, c.registry, raw, declaredFormat, c.maxDecodePixels)
				return r, err
			})
			if err != nil {
				return hooks.Event{}, err
			}
			raster = v.(*processor.Raster)
			return hooks.Event{}, nil
		})
	if err != nil {
		return UploadReport{}, err
	}

	return c.strategy.upload(ctx, c, imageID, raster, declaredFormat)
}

// Fetch resolves defaults, validates the request against policy, and
// returns the matching variant's bytes and its format.
func (c *Controller) Fetch(ctx context.Context, imageID uuid.UUID, presetName string, format core.Format, custom *CustomSize) ([]byte, core.Format, error) {
	if format == "" {
		format = c.policy.DefaultServingFormat
	}
	if !c.policy.FormatEnabled(format) {
		return nil, "", lerrors.Wrap(lerrors.FormatNotEnabled, "bucket.fetch",
			errors.New("requested format is not enabled for this bucket"))
	}

	if custom != nil && c.policy.Mode != core.ModeRealtime {
		return nil, "", lerrors.Wrap(lerrors.CustomSizeNotAllowed, "bucket.fetch",
			errors.New("custom width/height is only permitted in realtime mode"))
	}
	if custom != nil {
		max := c.policy.maxCustomDimension()
		if custom.Width <= 0 || custom.Height <= 0 || custom.Width > max || custom.Height > max {
			return nil, "", lerrors.Wrap(lerrors.CustomSizeNotAllowed, "bucket.fetch",
				errors.New("custom dimensions out of bounds"))
		}
	}

	if presetName == "" {
		presetName = c.policy.ServingPresetName()
	}
	if custom == nil {
		if _, ok := c.policy.ResolvePreset(presetName); !ok {
			return nil, "", lerrors.Wrap(lerrors.UnknownPreset, "bucket.fetch", errors.New("unknown preset "+presetName))
		}
	}

	data, err := c.strategy.fetch(ctx, c, imageID, presetName, format, custom)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", lerrors.Wrap(lerrors.NotFound, "bucket.fetch", errors.New("image not found"))
	}
	return data, format, nil
}

// Delete removes every variant belonging to imageID from storage and cache.
// Best-effort and idempotent: deleting an already-absent image is not an
// error.
func (c *Controller) Delete(ctx context.Context, imageID uuid.UUID) error {
	prefix := core.ImagePrefix(c.policy.Slug, imageID)
	if err := c.backend.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.InvalidatePrefix(prefix)
	}
	return nil
}

// List returns one page of this bucket's stored variants.
func (c *Controller) List(ctx context.Context, filter storage.Filter, page string) (storage.Page, error) {
	return c.backend.List(ctx, c.policy.Slug, filter, page)
}

func (c *Controller) put(ctx context.Context, key core.VariantKey, data []byte) error {
	return hooks.Track(ctx, c.obs, hooks.StagePut, hooks.Event{Bucket: key.Bucket, Preset: key.Preset, Format: string(key.Format), Bytes: int64(len(data))},
		func() (hooks.Event, error) {
			err := c.backend.Put(ctx, key.Path(), bytes.NewReader(data), int64(len(data)))
			return hooks.Event{}, err
		})
}

func (c *Controller) get(ctx context.Context, key core.VariantKey) ([]byte, bool, error) {
	var data []byte
	var found bool
	err := hooks.Track(ctx, c.obs, hooks.StageGet, hooks.Event{Bucket: key.Bucket, Preset: key.Preset, Format: string(key.Format)},
		func() (hooks.Event, error) {
			rc, ok, err := c.backend.Get(ctx, key.Path())
			if err != nil || !ok {
				found = ok
				return hooks.Event{}, err
			}
			defer rc.Close()
			d, err := io.ReadAll(rc)
			if err != nil {
				return hooks.Event{}, lerrors.Wrap(lerrors.StorageFailure, "bucket.get.read", err)
			}
			data, found = d, true
			return hooks.Event{Bytes: int64(len(d))}, nil
		})
	if err != nil {
		return nil, false, err
	}
	return data, found, nil
}

// computeVariant returns the cached bytes for key if present; otherwise it
// runs produce under the bucket's admission control, coalescing concurrent
// misses on the same key onto a single invocation of produce. When the
// bucket has a cache, coalescing is delegated to the cache's GetOrCompute;
// otherwise it falls back to the dispatcher's single-flight group.
func (c *Controller) computeVariant(ctx context.Context, key core.VariantKey, produce func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	admitted := func(ctx context.Context) ([]byte, error) {
		release, err := dispatcher.AcquireGlobalThenBucket(ctx, c.disp.Global, c.sem)
		if err != nil {
			return nil, lerrors.Wrap(lerrors.StorageFailure, "bucket.fetch.admission", err)
		}
		defer release()
		return produce(ctx)
	}

	if c.cache != nil {
		return c.cache.GetOrCompute(ctx, key, admitted)
	}
	return c.disp.Coalesce(key.Path(), func() ([]byte, error) {
		return admitted(ctx)
	})
}

func (c *Controller) cacheGet(key core.VariantKey) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Controller) cachePut(key core.VariantKey, data []byte) {
	if c.cache != nil {
		c.cache.Put(key, data)
	}
}

func (c *Controller) encoderParams(format core.Format) processor.EncodeParams {
	return c.policy.EncoderParams[format]
}
