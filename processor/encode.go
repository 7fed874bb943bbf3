package processor

import (
	"context"
	"fmt"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
)

// Encode serialises raster to bytes in format using the matching Encoder in
// reg and the given discriminated-union params (nil is acceptable; codecs
// fall back to their documented defaults).
func Encode(ctx context.Context, reg *Registry, raster *Raster, format core.Format, params EncodeParams) ([]byte, error) {
	enc, ok := reg.EncoderFor(format)
	if !ok {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "processor.encode",
			fmt.Errorf("no encoder registered for format %q", format))
	}
	data, err := enc.Encode(ctx, raster, params)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.EncodingFailure, "processor.encode", err)
	}
	return data, nil
}
