// Package gifcodec implements processor.Decoder/Encoder for GIF using the
// standard library image/gif package. Only the first frame is ever decoded
// or produced; multi-frame GIFs are flattened to a static image.
package gifcodec

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/gif"
	"io"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
)

type Codec struct{}

func New() *Codec { return &Codec{} }

func (c *Codec) CanDecode(f core.Format) bool { return f == core.FormatGIF }
func (c *Codec) CanEncode(f core.Format) bool { return f == core.FormatGIF }

func (c *Codec) Decode(ctx context.Context, r io.Reader) (*processor.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "gifcodec.decode", err)
	}
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "gifcodec.decode", err)
	}
	if len(g.Image) == 0 {
		return nil, lerrors.New(lerrors.InvalidImage, "gifcodec.decode")
	}

	frame := g.Image[0]
	b := frame.Bounds()
	flat := image.NewRGBA(b)
	draw.Draw(flat, b, frame, b.Min, draw.Src)

	return &processor.Raster{Image: flat, Width: b.Dx(), Height: b.Dy()}, nil
}

func (c *Codec) Encode(ctx context.Context, raster *processor.Raster, _ processor.EncodeParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "gifcodec.encode", err)
	}
	var buf bytes.Buffer
	if err := gif.Encode(&buf, raster.Image, nil); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "gifcodec.encode", err)
	}
	return buf.Bytes(), nil
}

var (
	_ processor.Decoder = (*Codec)(nil)
	_ processor.Encoder = (*Codec)(nil)
)
