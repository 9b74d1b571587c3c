// Package transforms converts images between color spaces and remaps their
// intensities (modality rescale, VOI windowing, LUTs). Transforms never
// modify their input and hold no per-image state.
package transforms

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
)

// Transform maps a rectangle of an input image into an output image
type Transform interface {
	// IsEmpty reports a transform that would copy its input unchanged
	IsEmpty() bool
	// AllocateOutputImage creates an image able to receive the result for an
	// input shaped like in
	AllocateOutputImage(in *pixel.Image, width, height uint32) (*pixel.Image, error)
	// RunTransform processes width x height pixels from (inX, inY) of in into
	// out at (outX, outY)
	RunTransform(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error
}

// Apply runs t over the whole input into a freshly allocated image
func Apply(t Transform, in *pixel.Image) (*pixel.Image, error) {
	out, err := t.AllocateOutputImage(in, in.Width(), in.Height())
	if err != nil {
		return nil, err
	}
	if err := t.RunTransform(in, 0, 0, in.Width(), in.Height(), out, 0, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func checkAreas(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error {
	if err := in.CheckArea(inX, inY, width, height); err != nil {
		return err
	}
	return out.CheckArea(outX, outY, width, height)
}

// eachPixel visits the rectangle row by row
func eachPixel(inX, inY, width, height, outX, outY uint32, fn func(ix, iy, ox, oy uint32)) {
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			fn(inX+x, inY+y, outX+x, outY+y)
		}
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
