// Package pngcodec implements processor.Decoder/Encoder for PNG using the
// standard library image/png package.
package pngcodec

import (
	"bytes"
	"context"
	"image/png"
	"io"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
)

type Codec struct{}

func New() *Codec { return &Codec{} }

func (c *Codec) CanDecode(f core.Format) bool { return f == core.FormatPNG }
func (c *Codec) CanEncode(f core.Format) bool { return f == core.FormatPNG }

func (c *Codec) Decode(ctx context.Context, r io.Reader) (*processor.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "pngcodec.decode", err)
	}
	img, err := png.Decode(r)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "pngcodec.decode", err)
	}
	b := img.Bounds()
	return &processor.Raster{Image: img, Width: b.Dx(), Height: b.Dy()}, nil
}

func (c *Codec) Encode(ctx context.Context, raster *processor.Raster, params processor.EncodeParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "pngcodec.encode", err)
	}

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if p, ok := params.(processor.PNGParams); ok && p.Lossless {
		enc.CompressionLevel = png.BestCompression
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, raster.Image); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "pngcodec.encode", err)
	}
	return buf.Bytes(), nil
}

var (
	_ processor.Decoder = (*Codec)(nil)
	_ processor.Encoder = (*Codec)(nil)
)
