package processor

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/lust-img/lust/core"
	"github.com/lust-img/lust/lerrors"
)

func filterToImaging(f core.Filter) imaging.ResampleFilter {
	switch f {
	case core.FilterNearest:
		return imaging.NearestNeighbor
	case core.FilterTriangle:
		return imaging.Linear
	case core.FilterCatmullRom:
		return imaging.CatmullRom
	case core.FilterGaussian:
		return imaging.Gaussian
	case core.FilterLanczos3:
		return imaging.Lanczos
	default:
		return imaging.Lanczos
	}
}

// Resize fits src exactly into width x height using filter. Both dimensions
// are produced exactly as requested; aspect ratio is not preserved.
// width == height == 0 is the "original" preset and returns src unchanged.
func Resize(src image.Image, width, height int, filter core.Filter) (image.Image, error) {
	if width == 0 && height == 0 {
		return src, nil
	}
	if width <= 0 || height <= 0 {
		return nil, lerrors.New(lerrors.InvalidImage, "processor.resize")
	}
	return imaging.Resize(src, width, height, filterToImaging(filter)), nil
}
