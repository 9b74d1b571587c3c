package transforms

import (
	"fmt"
	"math"
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
)

// VOIFunction selects how a center/width window maps samples
type VOIFunction int

const (
	VOILinear VOIFunction = iota
	VOILinearExact
	VOISigmoid
)

func (f VOIFunction) String() string {
	switch f {
	case VOILinear:
		return "LINEAR"
	case VOILinearExact:
		return "LINEAR_EXACT"
	case VOISigmoid:
		return "SIGMOID"
	default:
		return fmt.Sprintf("VOIFunction(%d)", int(f))
	}
}

// ParseVOIFunction reads the VOI LUT Function (0028,1056) defined terms.
// Empty means linear.
func ParseVOIFunction(s string) (VOIFunction, error) {
	switch strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "", "LINEAR":
		return VOILinear, nil
	case "LINEAR_EXACT":
		return VOILinearExact, nil
	case "SIGMOID":
		return VOISigmoid, nil
	}
	return VOILinear, dcmerr.New(dcmerr.DataHandlerInvalidData, "unknown VOI function %q", s)
}

// VOIDescription is a window center and width with its function
type VOIDescription struct {
	Center      float64
	Width       float64
	Function    VOIFunction
	Explanation string
}

// VOILUT remaps monochrome intensities either through a window or through a
// LUT. Exactly one of the two is set.
type VOILUT struct {
	voi *VOIDescription
	lut *pixel.LUT
}

var _ Transform = (*VOILUT)(nil)

// NewVOILUT windows with d
func NewVOILUT(d VOIDescription) *VOILUT {
	return &VOILUT{voi: &d}
}

// NewLUTTransform maps through l
func NewLUTTransform(l *pixel.LUT) *VOILUT {
	return &VOILUT{lut: l}
}

// Description returns the window, false in LUT mode
func (t *VOILUT) Description() (VOIDescription, bool) {
	if t.voi == nil {
		return VOIDescription{}, false
	}
	return *t.voi, true
}

// LUT returns the table, nil in window mode
func (t *VOILUT) LUT() *pixel.LUT { return t.lut }

func (t *VOILUT) IsEmpty() bool { return t.voi == nil && t.lut == nil }

// AllocateOutputImage sizes the output from the LUT entries in LUT mode and
// from the unsigned input depth when windowing
func (t *VOILUT) AllocateOutputImage(in *pixel.Image, width, height uint32) (*pixel.Image, error) {
	if t.lut != nil {
		bits := uint32(t.lut.Bits())
		if bits > 8 {
			return pixel.NewImage(width, height, pixel.DepthU16, in.ColorSpace(), bits-1)
		}
		return pixel.NewImage(width, height, pixel.DepthU8, in.ColorSpace(), bits-1)
	}
	depth, highBit := in.Depth().Unsigned(), in.HighBit()
	if in.Depth() == pixel.DepthFloat {
		depth, highBit = pixel.DepthU16, 15
	}
	return pixel.NewImage(width, height, depth, in.ColorSpace(), highBit)
}

func (t *VOILUT) RunTransform(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error {
	if !pixel.IsMonochrome(in.ColorSpace()) || !pixel.IsMonochrome(out.ColorSpace()) {
		return dcmerr.New(dcmerr.ModalityVOILUT, "VOI needs monochrome images, got %s to %s", in.ColorSpace(), out.ColorSpace())
	}
	if err := checkAreas(in, inX, inY, width, height, out, outX, outY); err != nil {
		return err
	}
	if t.IsEmpty() {
		return HighBit{}.RunTransform(in, inX, inY, width, height, out, outX, outY)
	}
	outMin, outMax := out.Range()
	if t.lut != nil {
		eachPixel(inX, inY, width, height, outX, outY, func(ix, iy, ox, oy uint32) {
			out.Set(ox, oy, 0, clamp(int64(t.lut.MappedValue(in.At(ix, iy, 0))), outMin, outMax))
		})
		return nil
	}
	window := t.voi.window(float64(outMin), float64(outMax))
	eachPixel(inX, inY, width, height, outX, outY, func(ix, iy, ox, oy uint32) {
		v := window(in.FloatAt(ix, iy, 0))
		out.Set(ox, oy, 0, clamp(int64(math.Round(v)), outMin, outMax))
	})
	return nil
}

// window returns the sample mapping for an output range
func (d VOIDescription) window(yMin, yMax float64) func(float64) float64 {
	c, w := d.Center, d.Width
	span := yMax - yMin
	switch d.Function {
	case VOILinearExact:
		return func(x float64) float64 {
			if w <= 0 {
				return step(x, c, yMin, yMax)
			}
			return (x-c)/w*span + yMin
		}
	case VOISigmoid:
		return func(x float64) float64 {
			if w <= 0 {
				return step(x, c, yMin, yMax)
			}
			return span/(1+math.Exp(-4*(x-c)/w)) + yMin
		}
	default:
		if w < 1 {
			w = 1
		}
		lo := c - 0.5 - (w-1)/2
		hi := c - 0.5 + (w-1)/2
		return func(x float64) float64 {
			switch {
			case x <= lo:
				return yMin
			case x > hi:
				return yMax
			default:
				return ((x-(c-0.5))/(w-1)+0.5)*span + yMin
			}
		}
	}
}

func step(x, c, yMin, yMax float64) float64 {
	if x < c {
		return yMin
	}
	return yMax
}

// OptimalVOI windows the full sample range found in the area
func OptimalVOI(m *pixel.Image, x, y, width, height uint32) (VOIDescription, error) {
	s, err := pixel.Statistics(m, x, y, width, height)
	if err != nil {
		return VOIDescription{}, err
	}
	return rangeVOI(s.Min, s.Max), nil
}

// PercentileVOI windows the samples between the lo and hi quantiles (0..1),
// ignoring outliers such as padding values
func PercentileVOI(m *pixel.Image, x, y, width, height uint32, lo, hi float64) (VOIDescription, error) {
	min, max, err := pixel.Percentiles(m, x, y, width, height, lo, hi)
	if err != nil {
		return VOIDescription{}, err
	}
	return rangeVOI(min, max), nil
}

func rangeVOI(min, max float64) VOIDescription {
	width := max - min
	if width < 1 {
		width = 1
	}
	return VOIDescription{
		Center:   (min + max) / 2,
		Width:    width,
		Function: VOILinear,
	}
}
