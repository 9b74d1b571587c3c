package transforms

import (
	"math"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
)

// ColorTransform converts images from one color space into another without
// changing their intensity range
type ColorTransform interface {
	Transform
	InitialColorSpace() string
	FinalColorSpace() string
}

// convertFunc maps one pixel; samples are offset so that 0 is the lowest
// value of the range and max the highest
type convertFunc func(src, dst []int64, max int64)

type colorTransform struct {
	from    string
	to      string
	convert convertFunc
}

var _ ColorTransform = (*colorTransform)(nil)

func (t *colorTransform) InitialColorSpace() string { return t.from }
func (t *colorTransform) FinalColorSpace() string   { return t.to }
func (t *colorTransform) IsEmpty() bool             { return false }

func (t *colorTransform) checkColorSpaces(in, out string) error {
	if in != t.from || out != t.to {
		return dcmerr.New(dcmerr.ColorTransformWrongColorSpace, "%s to %s cannot run on %s to %s", t.from, t.to, in, out)
	}
	return nil
}

func checkHighBit(in, out uint32) error {
	if in != out {
		return dcmerr.New(dcmerr.TransformDifferentHighBit, "input high bit %d, output high bit %d", in, out)
	}
	return nil
}

// AllocateOutputImage keeps the input depth and high bit. Palette images
// take both from the palette entries instead.
func (t *colorTransform) AllocateOutputImage(in *pixel.Image, width, height uint32) (*pixel.Image, error) {
	depth, highBit := in.Depth(), in.HighBit()
	if p := in.Palette(); p != nil {
		depth, highBit = paletteDepth(p)
	}
	return pixel.NewImage(width, height, depth, t.to, highBit)
}

func paletteDepth(p *pixel.Palette) (pixel.Depth, uint32) {
	bits := p.Bits()
	if bits > 8 {
		return pixel.DepthU16, uint32(bits) - 1
	}
	return pixel.DepthU8, uint32(bits) - 1
}

func (t *colorTransform) RunTransform(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error {
	if err := t.checkColorSpaces(in.ColorSpace(), out.ColorSpace()); err != nil {
		return err
	}
	if t.from == pixel.PaletteColor {
		return t.runPalette(in, inX, inY, width, height, out, outX, outY)
	}
	if err := checkHighBit(in.HighBit(), out.HighBit()); err != nil {
		return err
	}
	if err := checkAreas(in, inX, inY, width, height, out, outX, outY); err != nil {
		return err
	}
	inMin, inMax := in.Range()
	outMin, _ := out.Range()
	max := inMax - inMin
	src := make([]int64, in.Channels())
	dst := make([]int64, out.Channels())
	eachPixel(inX, inY, width, height, outX, outY, func(ix, iy, ox, oy uint32) {
		for c := range src {
			src[c] = in.At(ix, iy, c) - inMin
		}
		t.convert(src, dst, max)
		for c, v := range dst {
			out.Set(ox, oy, c, clamp(v, 0, max)+outMin)
		}
	})
	return nil
}

func (t *colorTransform) runPalette(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error {
	p := in.Palette()
	if p == nil {
		return dcmerr.New(dcmerr.ColorTransformWrongColorSpace, "%s image without palette", pixel.PaletteColor)
	}
	if err := checkHighBit(uint32(p.Bits())-1, out.HighBit()); err != nil {
		return err
	}
	if err := checkAreas(in, inX, inY, width, height, out, outX, outY); err != nil {
		return err
	}
	outMin, outMax := out.Range()
	eachPixel(inX, inY, width, height, outX, outY, func(ix, iy, ox, oy uint32) {
		v := in.At(ix, iy, 0)
		out.Set(ox, oy, 0, clamp(int64(p.Red.MappedValue(v)), outMin, outMax))
		out.Set(ox, oy, 1, clamp(int64(p.Green.MappedValue(v)), outMin, outMax))
		out.Set(ox, oy, 2, clamp(int64(p.Blue.MappedValue(v)), outMin, outMax))
	})
	return nil
}

func round(v float64) int64 { return int64(math.Round(v)) }

func mid(max int64) float64 { return float64(max+1) / 2 }

func invert(src, dst []int64, max int64) { dst[0] = max - src[0] }

func monochromeToRGB(src, dst []int64, _ int64) {
	dst[0], dst[1], dst[2] = src[0], src[0], src[0]
}

func rgbToMonochrome(src, dst []int64, _ int64) {
	dst[0] = round(0.299*float64(src[0]) + 0.587*float64(src[1]) + 0.114*float64(src[2]))
}

func monochromeToYBR(src, dst []int64, max int64) {
	m := round(mid(max))
	dst[0], dst[1], dst[2] = src[0], m, m
}

func ybrToMonochrome(src, dst []int64, _ int64) { dst[0] = src[0] }

func rgbToYBR(src, dst []int64, max int64) {
	r, g, b := float64(src[0]), float64(src[1]), float64(src[2])
	m := mid(max)
	dst[0] = round(0.299*r + 0.587*g + 0.114*b)
	dst[1] = round(-0.168736*r - 0.331264*g + 0.5*b + m)
	dst[2] = round(0.5*r - 0.418688*g - 0.081312*b + m)
}

func ybrToRGB(src, dst []int64, max int64) {
	m := mid(max)
	y, cb, cr := float64(src[0]), float64(src[1])-m, float64(src[2])-m
	dst[0] = round(y + 1.402*cr)
	dst[1] = round(y - 0.344136*cb - 0.714136*cr)
	dst[2] = round(y + 1.772*cb)
}

func builtinColorTransforms() []ColorTransform {
	return []ColorTransform{
		&colorTransform{pixel.Monochrome1, pixel.Monochrome2, invert},
		&colorTransform{pixel.Monochrome2, pixel.Monochrome1, invert},
		&colorTransform{pixel.Monochrome2, pixel.RGB, monochromeToRGB},
		&colorTransform{pixel.RGB, pixel.Monochrome2, rgbToMonochrome},
		&colorTransform{pixel.Monochrome2, pixel.YBRFull, monochromeToYBR},
		&colorTransform{pixel.Monochrome2, pixel.YBRICT, monochromeToYBR},
		&colorTransform{pixel.YBRFull, pixel.Monochrome2, ybrToMonochrome},
		&colorTransform{pixel.RGB, pixel.YBRFull, rgbToYBR},
		&colorTransform{pixel.YBRFull, pixel.RGB, ybrToRGB},
		&colorTransform{pixel.RGB, pixel.YBRICT, rgbToYBR},
		&colorTransform{pixel.YBRICT, pixel.RGB, ybrToRGB},
		&colorTransform{pixel.PaletteColor, pixel.RGB, nil},
	}
}
