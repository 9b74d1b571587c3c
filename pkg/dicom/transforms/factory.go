package transforms

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
)

// Factory selects a color transform by exact match of its initial and final
// color spaces. Conversions that need more than one registered transform are
// not composed; callers build a Chain themselves.
type Factory struct {
	transforms []ColorTransform
}

// DefaultFactory serves the built in color transforms
var DefaultFactory = NewFactory(builtinColorTransforms()...)

// NewFactory registers a fixed set of transforms
func NewFactory(transforms ...ColorTransform) *Factory {
	return &Factory{transforms: append([]ColorTransform(nil), transforms...)}
}

// GetTransform returns the transform converting from into to. Both names are
// normalized first, so subsampled variants resolve to their base space.
func (f *Factory) GetTransform(from, to string) (ColorTransform, error) {
	from, to = pixel.NormalizeColorSpace(from), pixel.NormalizeColorSpace(to)
	for _, t := range f.transforms {
		if t.InitialColorSpace() == from && t.FinalColorSpace() == to {
			return t, nil
		}
	}
	return nil, dcmerr.New(dcmerr.ColorTransformsFactoryNoTransform, "no color transform from %s to %s", from, to)
}

// GetTransform looks up the default factory
func GetTransform(from, to string) (ColorTransform, error) {
	return DefaultFactory.GetTransform(from, to)
}
