package processor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
)

// Decode auto-detects data's format when hint is empty or invalid, looks up
// the matching Decoder in reg, and decodes. maxPixels, when positive, rejects
// rasters whose width*height exceeds it with ImageTooLarge.
func Decode(ctx context.Context, reg *Registry, data []byte, hint core.Format, maxPixels int64) (*Raster, core.Format, error) {
	format := hint
	if !format.Valid() {
		detected, ok := DetectFormat(data)
		if !ok {
			return nil, "", lerrors.New(lerrors.InvalidImage, "processor.decode")
		}
		format = detected
	}

	dec, ok := reg.DecoderFor(format)
	if !ok {
		return nil, "", lerrors.Wrap(lerrors.InvalidImage, "processor.decode",
			fmt.Errorf("no decoder registered for format %q", format))
	}

	raster, err := dec.Decode(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, "", lerrors.Wrap(lerrors.InvalidImage, "processor.decode", err)
	}

	if maxPixels > 0 && int64(raster.Width)*int64(raster.Height) > maxPixels {
		return nil, "", lerrors.New(lerrors.ImageTooLarge, "processor.decode")
	}

	return raster, format, nil
}
