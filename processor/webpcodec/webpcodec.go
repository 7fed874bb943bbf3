// Package webpcodec implements processor.Decoder/Encoder for WebP.
//
// Decoding uses golang.org/x/image/webp, which reads both lossy and
// lossless WebP.
// Encoding uses github.com/chai2010/webp, a pure-Go encoder supporting both
// lossy and lossless output.
package webpcodec

import (
	"bytes"
	"context"
	"io"

	"github.com/chai2010/webp"
	xwebp "golang.org/x/image/webp"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
)

type Codec struct{}

func New() *Codec { return &Codec{} }

func (c *Codec) CanDecode(f core.Format) bool { return f == core.FormatWebP }
func (c *Codec) CanEncode(f core.Format) bool { return f == core.FormatWebP }

func (c *Codec) Decode(ctx context.Context, r io.Reader) (*processor.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "webpcodec.decode", err)
	}
	img, err := xwebp.Decode(r)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "webpcodec.decode", err)
	}
	b := img.Bounds()
	return &processor.Raster{Image: img, Width: b.Dx(), Height: b.Dy()}, nil
}

// Encode honours WebPParams.Quality: nil selects lossless, otherwise lossy
// at the given quality. Method and Threading are accepted on WebPParams for
// ABI parity with the other encoder params but chai2010/webp exposes no
// knob for either, so they are not forwarded to the underlying encoder.
func (c *Codec) Encode(ctx context.Context, raster *processor.Raster, params processor.EncodeParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "webpcodec.encode", err)
	}

	p, _ := params.(processor.WebPParams)
	opts := &webp.Options{Lossless: p.Quality == nil}
	if p.Quality != nil {
		opts.Quality = *p.Quality
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, raster.Image, opts); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "webpcodec.encode", err)
	}
	return buf.Bytes(), nil
}

var (
	_ processor.Decoder = (*Codec)(nil)
	_ processor.Encoder = (*Codec)(nil)
)
