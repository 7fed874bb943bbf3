// Package jpegcodec implements processor.Decoder/Encoder for JPEG using the
// standard library image/jpeg package.
package jpegcodec

import (
	"bytes"
	"context"
	"image/jpeg"
	"io"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/processor"
)

// defaultQuality is JpegParams' default when Quality is unset.
const defaultQuality = 90

type Codec struct{}

func New() *Codec { return &Codec{} }

func (c *Codec) CanDecode(f core.Format) bool { return f == core.FormatJPEG }
func (c *Codec) CanEncode(f core.Format) bool { return f == core.FormatJPEG }

func (c *Codec) Decode(ctx context.Context, r io.Reader) (*processor.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "jpegcodec.decode", err)
	}
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.InvalidImage, "jpegcodec.decode", err)
	}
	b := img.Bounds()
	return &processor.Raster{Image: img, Width: b.Dx(), Height: b.Dy()}, nil
}

func (c *Codec) Encode(ctx context.Context, raster *processor.Raster, params processor.EncodeParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "jpegcodec.encode", err)
	}

	quality := defaultQuality
	if p, ok := params.(processor.JPEGParams); ok && p.Quality > 0 {
		quality = int(p.Quality)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, raster.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "jpegcodec.encode", err)
	}
	return buf.Bytes(), nil
}

var (
	_ processor.Decoder = (*Codec)(nil)
	_ processor.Encoder = (*Codec)(nil)
)
