// Package processor implements the pure, CPU-bound decode/resize/encode
// operations. It holds no I/O and no storage or cache knowledge; callers
// (the bucket controller and dispatcher) provide bytes in, and get a
// Raster or encoded bytes out.
package processor

import "image"

// Raster is a decoded image ready for resize or encode.
type Raster struct {
	Image  image.Image
	Width  int
	Height int
}

// EncodeParams is a discriminated union of per-format encoder parameters.
// Exactly one concrete type should be passed for a given target format;
// codecs type-assert to their own type and fall back to their documented
// defaults when the assertion fails or the zero value is given.
type EncodeParams interface {
	isEncodeParams()
}

// PNGParams carries PNG encode options. The zero value uses encoder
// defaults.
type PNGParams struct {
	Lossless bool // PNG is always lossless; true selects png.BestCompression
}

func (PNGParams) isEncodeParams() {}

// JPEGParams carries JPEG encode options. Quality defaults to 90 when zero.
type JPEGParams struct {
	Quality uint8
}

func (JPEGParams) isEncodeParams() {}

// GIFParams carries GIF encode options. GIF output is always a single,
// static frame (see gifcodec).
type GIFParams struct{}

func (GIFParams) isEncodeParams() {}

// WebPParams carries WebP encode options. A nil Quality selects lossless
// encoding; otherwise Quality (0..100) selects lossy encoding at that
// level. Method trades encode speed against compression ratio (0..6).
type WebPParams struct {
	Quality   *float32
	Method    uint8
	Threading bool
}

func (WebPParams) isEncodeParams() {}
