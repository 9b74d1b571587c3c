package transforms

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
)

// HighBit shifts samples between bit depths and high bits of the same color
// space, mapping the lowest input value to the lowest output value.
type HighBit struct{}

var _ Transform = HighBit{}

func (HighBit) IsEmpty() bool { return false }

// AllocateOutputImage clones the input format
func (HighBit) AllocateOutputImage(in *pixel.Image, width, height uint32) (*pixel.Image, error) {
	return pixel.NewImage(width, height, in.Depth(), in.ColorSpace(), in.HighBit())
}

func (HighBit) RunTransform(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error {
	if in.ColorSpace() != out.ColorSpace() {
		return dcmerr.New(dcmerr.TransformDifferentColorSpaces, "%s to %s", in.ColorSpace(), out.ColorSpace())
	}
	if err := checkAreas(in, inX, inY, width, height, out, outX, outY); err != nil {
		return err
	}
	inMin, _ := in.Range()
	outMin, outMax := out.Range()
	inHB, outHB := int(in.HighBit()), int(out.HighBit())
	channels := in.Channels()
	eachPixel(inX, inY, width, height, outX, outY, func(ix, iy, ox, oy uint32) {
		for c := 0; c < channels; c++ {
			u := in.At(ix, iy, c) - inMin
			if outHB > inHB {
				u <<= uint(outHB - inHB)
			} else {
				u >>= uint(inHB - outHB)
			}
			out.Set(ox, oy, c, clamp(u+outMin, outMin, outMax))
		}
	})
	return nil
}
