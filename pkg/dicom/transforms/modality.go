package transforms

import (
	"math"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
)

// Modality converts stored values into modality units through either a
// rescale slope and intercept or a Modality LUT
type Modality struct {
	Slope     float64
	Intercept float64
	Type      string
	lut       *pixel.LUT
}

var _ Transform = (*Modality)(nil)

// NewRescale builds the linear modality transform
func NewRescale(slope, intercept float64, rescaleType string) *Modality {
	if slope == 0 {
		slope = 1
	}
	return &Modality{Slope: slope, Intercept: intercept, Type: rescaleType}
}

// NewModalityLUT maps stored values through l
func NewModalityLUT(l *pixel.LUT, lutType string) *Modality {
	return &Modality{Slope: 1, lut: l, Type: lutType}
}

// LUT is nil for rescale transforms
func (t *Modality) LUT() *pixel.LUT { return t.lut }

func (t *Modality) IsEmpty() bool {
	return t.lut == nil && t.Slope == 1 && t.Intercept == 0
}

func (t *Modality) integral() bool {
	return t.Slope == math.Trunc(t.Slope) && t.Intercept == math.Trunc(t.Intercept)
}

// OutputRange returns the modality values the input range maps to
func (t *Modality) OutputRange(in *pixel.Image) (float64, float64) {
	if t.lut != nil {
		lo, hi := t.lut.Range()
		return float64(lo), float64(hi)
	}
	lo, hi := in.Range()
	a, b := float64(lo)*t.Slope+t.Intercept, float64(hi)*t.Slope+t.Intercept
	return math.Min(a, b), math.Max(a, b)
}

// AllocateOutputImage picks the smallest integer depth holding the mapped
// range, or float when the rescale is fractional
func (t *Modality) AllocateOutputImage(in *pixel.Image, width, height uint32) (*pixel.Image, error) {
	if t.IsEmpty() {
		return pixel.NewImage(width, height, in.Depth(), in.ColorSpace(), in.HighBit())
	}
	if t.lut == nil && !t.integral() {
		return pixel.NewImage(width, height, pixel.DepthFloat, in.ColorSpace(), 31)
	}
	lo, hi := t.OutputRange(in)
	depth, highBit := pixel.DepthFor(int64(lo), int64(hi))
	return pixel.NewImage(width, height, depth, in.ColorSpace(), highBit)
}

func (t *Modality) RunTransform(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error {
	if !pixel.IsMonochrome(in.ColorSpace()) {
		return dcmerr.New(dcmerr.ModalityVOILUT, "modality transform on %s image", in.ColorSpace())
	}
	if err := checkAreas(in, inX, inY, width, height, out, outX, outY); err != nil {
		return err
	}
	outMin, outMax := out.Range()
	float := out.Depth() == pixel.DepthFloat
	eachPixel(inX, inY, width, height, outX, outY, func(ix, iy, ox, oy uint32) {
		var v float64
		if t.lut != nil {
			v = float64(t.lut.MappedValue(in.At(ix, iy, 0)))
		} else {
			v = in.FloatAt(ix, iy, 0)*t.Slope + t.Intercept
		}
		if float {
			out.SetFloatAt(ox, oy, 0, v)
			return
		}
		out.Set(ox, oy, 0, clamp(int64(math.Round(v)), outMin, outMax))
	})
	return nil
}
