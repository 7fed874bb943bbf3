// Package facade translates the boundary protocol into domain operations:
// input validation (base64 decoding, format parsing, the both-or-neither
// check on custom width/height) and response shaping. It holds no pipeline
// logic of its own; preset names and the upload-size limit are checked by
// the bucket controller.
package facade

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"

	"github.com/lust-img/lust/bucket"
	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/storage"
)

// Router dispatches requests to the bucket whose slug they name. Buckets
// are registered once at startup and never removed at runtime.
type Router struct {
	buckets map[string]*bucket.Controller
}

// NewRouter builds a Router over the given slug → Controller table.
func NewRouter(buckets map[string]*bucket.Controller) *Router {
	return &Router{buckets: buckets}
}

func (r *Router) controller(slug string) (*bucket.Controller, error) {
	if slug == "admin" {
		return nil, lerrors.Wrap(lerrors.UnknownBucket, "facade.controller", errors.New("\"admin\" is a reserved path, not a bucket"))
	}
	c, ok := r.buckets[slug]
	if !ok {
		return nil, lerrors.Wrap(lerrors.UnknownBucket, "facade.controller", errors.New("unknown bucket "+slug))
	}
	return c, nil
}

// UploadRequest is the decoded form of the admin create payload.
type UploadRequest struct {
	Format string
	Data   string // base64
}

// UploadResult shapes an UploadReport for the wire.
type UploadResult struct {
	ImageID  uuid.UUID
	Variants map[string]map[string]int64
}

// Upload validates req, decodes its payload, and runs the bucket's upload
// pipeline.
func (r *Router) Upload(ctx context.Context, bucketSlug string, req UploadRequest) (UploadResult, error) {
	ctl, err := r.controller(bucketSlug)
	if err != nil {
		return UploadResult{}, err
	}

	format, ok := core.ParseFormat(req.Format)
	if !ok {
		return UploadResult{}, lerrors.Wrap(lerrors.InvalidImage, "facade.upload", errors.New("unrecognized format "+req.Format))
	}

	raw, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return UploadResult{}, lerrors.Wrap(lerrors.InvalidImage, "facade.upload", errors.New("payload is not valid base64"))
	}

	imageID := uuid.New()
	report, err := ctl.Upload(ctx, imageID, raw, format)
	if err != nil {
		return UploadResult{}, err
	}

	variants := make(map[string]map[string]int64, len(report.Variants))
	for preset, byFormat := range report.Variants {
		m := make(map[string]int64, len(byFormat))
		for f, size := range byFormat {
			m[string(f)] = size
		}
		variants[preset] = m
	}
	return UploadResult{ImageID: report.ImageID, Variants: variants}, nil
}

// FetchRequest is the decoded form of a fetch's query parameters.
type FetchRequest struct {
	Preset string
	Format string
	// Width/Height, when both > 0, request a custom size (Realtime only).
	Width, Height int
	// Base64 requests a base64 JSON envelope instead of raw bytes.
	Base64 bool
}

// FetchResult carries the fetched bytes and the format actually served.
type FetchResult struct {
	Data   []byte
	Format string
}

// Fetch validates req and runs the bucket's fetch pipeline.
func (r *Router) Fetch(ctx context.Context, bucketSlug string, imageID uuid.UUID, req FetchRequest) (FetchResult, error) {
	ctl, err := r.controller(bucketSlug)
	if err != nil {
		return FetchResult{}, err
	}

	var format core.Format
	if req.Format != "" {
		var ok bool
		format, ok = core.ParseFormat(req.Format)
		if !ok {
			return FetchResult{}, lerrors.Wrap(lerrors.InvalidImage, "facade.fetch", errors.New("unrecognized format "+req.Format))
		}
	}

	var custom *bucket.CustomSize
	if req.Width > 0 || req.Height > 0 {
		if req.Width <= 0 || req.Height <= 0 {
			return FetchResult{}, lerrors.Wrap(lerrors.CustomSizeNotAllowed, "facade.fetch", errors.New("width and height must both be given"))
		}
		custom = &bucket.CustomSize{Width: req.Width, Height: req.Height}
	}

	data, servedFormat, err := ctl.Fetch(ctx, imageID, req.Preset, format, custom)
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{Data: data, Format: string(servedFormat)}, nil
}

// Delete removes an image from the named bucket. Idempotent: deleting an
// already-absent image is not an error.
func (r *Router) Delete(ctx context.Context, bucketSlug string, imageID uuid.UUID) error {
	ctl, err := r.controller(bucketSlug)
	if err != nil {
		return err
	}
	return ctl.Delete(ctx, imageID)
}

// ListRequest is the decoded form of the admin list payload.
type ListRequest struct {
	Page   string
	Filter storage.Filter
}

// List returns one page of a bucket's stored variants.
func (r *Router) List(ctx context.Context, bucketSlug string, req ListRequest) (storage.Page, error) {
	ctl, err := r.controller(bucketSlug)
	if err != nil {
		return storage.Page{}, err
	}
	return ctl.List(ctx, req.Filter, req.Page)
}
