// Package registry wires the built-in format codecs into a
// processor.Registry. It is kept separate from package processor itself so
// that the codec packages (which depend on processor) can be assembled
// without an import cycle.
package registry

import (
	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/processor"
	"github.com/lust-img/lust/processor/gifcodec"
	"github.com/lust-img/lust/processor/jpegcodec"
	"github.com/lust-img/lust/processor/pngcodec"
	"github.com/lust-img/lust/processor/webpcodec"
)

// NewDefault returns a processor.Registry with all four built-in codecs
// registered for both decode and encode.
func NewDefault() *processor.Registry {
	reg := processor.NewRegistry()

	png, jpeg, gif, webp := pngcodec.New(), jpegcodec.New(), gifcodec.New(), webpcodec.New()

	reg.RegisterDecoder(core.FormatPNG, png)
	reg.RegisterDecoder(core.FormatJPEG, jpeg)
	reg.RegisterDecoder(core.FormatGIF, gif)
	reg.RegisterDecoder(core.FormatWebP, webp)

	reg.RegisterEncoder(core.FormatPNG, png)
	reg.RegisterEncoder(core.FormatJPEG, jpeg)
	reg.RegisterEncoder(core.FormatGIF, gif)
	reg.RegisterEncoder(core.FormatWebP, webp)

	return reg
}
