// Package pixel holds decoded images: typed sample buffers with a color
// space, a bit depth and a high bit, plus the palette and LUT tables used
// to interpret them.
package pixel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/handlers"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// Depth is the sample type of an image
type Depth int

const (
	DepthU8 Depth = iota
	DepthS8
	DepthU16
	DepthS16
	DepthU32
	DepthS32
	DepthFloat
)

func (d Depth) String() string {
	switch d {
	case DepthU8:
		return "U8"
	case DepthS8:
		return "S8"
	case DepthU16:
		return "U16"
	case DepthS16:
		return "S16"
	case DepthU32:
		return "U32"
	case DepthS32:
		return "S32"
	case DepthFloat:
		return "Float"
	default:
		return fmt.Sprintf("Depth(%d)", int(d))
	}
}

// BytesPerSample of the depth
func (d Depth) BytesPerSample() int {
	switch d {
	case DepthU8, DepthS8:
		return 1
	case DepthU16, DepthS16:
		return 2
	default:
		return 4
	}
}

// IsSigned reports signed integer and float depths
func (d Depth) IsSigned() bool {
	return d == DepthS8 || d == DepthS16 || d == DepthS32 || d == DepthFloat
}

// Unsigned returns the unsigned depth of the same width
func (d Depth) Unsigned() Depth {
	switch d {
	case DepthS8:
		return DepthU8
	case DepthS16:
		return DepthU16
	case DepthS32, DepthFloat:
		return DepthU32
	default:
		return d
	}
}

// VR is the numeric VR matching the depth
func (d Depth) VR() vr.VR {
	switch d {
	case DepthU8:
		return vr.OB
	case DepthS8:
		return vr.SB
	case DepthU16:
		return vr.US
	case DepthS16:
		return vr.SS
	case DepthU32:
		return vr.UL
	case DepthS32:
		return vr.SL
	default:
		return vr.FL
	}
}

// DepthFor returns the smallest integer depth able to hold [min, max]
func DepthFor(min, max int64) (Depth, uint32) {
	if min >= 0 {
		switch {
		case max <= math.MaxUint8:
			return DepthU8, 7
		case max <= math.MaxUint16:
			return DepthU16, 15
		default:
			return DepthU32, 31
		}
	}
	switch {
	case min >= math.MinInt8 && max <= math.MaxInt8:
		return DepthS8, 7
	case min >= math.MinInt16 && max <= math.MaxInt16:
		return DepthS16, 15
	default:
		return DepthS32, 31
	}
}

// Image is a width x height buffer of interleaved samples stored in native
// little endian. Images are independent values: they never reference the
// data set they came from.
type Image struct {
	width      uint32
	height     uint32
	depth      Depth
	colorSpace string
	channels   int
	highBit    uint32
	data       []byte
	palette    *Palette
}

// NewImage allocates a zeroed image
func NewImage(width, height uint32, depth Depth, colorSpace string, highBit uint32) (*Image, error) {
	if width == 0 || height == 0 {
		return nil, dcmerr.New(dcmerr.ImageInvalidSize, "image size %dx%d", width, height)
	}
	if depth < DepthU8 || depth > DepthFloat {
		return nil, dcmerr.New(dcmerr.ImageUnknownDepth, "depth %d", int(depth))
	}
	if depth != DepthFloat && highBit >= uint32(depth.BytesPerSample()*8) {
		return nil, dcmerr.New(dcmerr.ImageUnknownDepth, "high bit %d does not fit %s", highBit, depth)
	}
	cs := NormalizeColorSpace(colorSpace)
	channels := Channels(cs)
	if channels == 0 {
		return nil, dcmerr.New(dcmerr.ImageUnknownColorSpace, "color space %q", colorSpace)
	}
	size := uint64(width) * uint64(height) * uint64(channels) * uint64(depth.BytesPerSample())
	if size > math.MaxInt32 {
		return nil, dcmerr.New(dcmerr.MemorySize, "image of %d bytes", size)
	}
	return &Image{
		width:      width,
		height:     height,
		depth:      depth,
		colorSpace: cs,
		channels:   channels,
		highBit:    highBit,
		data:       make([]byte, size),
	}, nil
}

func (m *Image) Width() uint32         { return m.width }
func (m *Image) Height() uint32        { return m.height }
func (m *Image) Depth() Depth          { return m.depth }
func (m *Image) ColorSpace() string    { return m.colorSpace }
func (m *Image) Channels() int         { return m.channels }
func (m *Image) HighBit() uint32       { return m.highBit }
func (m *Image) Palette() *Palette     { return m.palette }
func (m *Image) SetPalette(p *Palette) { m.palette = p }

// Samples is the number of samples (pixels x channels)
func (m *Image) Samples() int {
	return int(m.width) * int(m.height) * m.channels
}

// Data exposes the sample memory, little endian
func (m *Image) Data() []byte { return m.data }

// Range is the value range implied by the depth and the high bit
func (m *Image) Range() (min, max int64) {
	return SampleRange(m.depth, m.highBit)
}

// SampleRange is the value range of a depth and high bit
func SampleRange(d Depth, highBit uint32) (min, max int64) {
	if d == DepthFloat {
		return math.MinInt32, math.MaxInt32
	}
	if d.IsSigned() {
		return -(int64(1) << highBit), int64(1)<<highBit - 1
	}
	return 0, int64(1)<<(highBit+1) - 1
}

// index of channel c at (x, y)
func (m *Image) index(x, y uint32, c int) int {
	return (int(y)*int(m.width)+int(x))*m.channels + c
}

// At reads channel c of pixel (x, y)
func (m *Image) At(x, y uint32, c int) int64 {
	return m.Sample(m.index(x, y, c))
}

// Set writes channel c of pixel (x, y)
func (m *Image) Set(x, y uint32, c int, v int64) {
	m.SetSample(m.index(x, y, c), v)
}

// FloatAt reads channel c of pixel (x, y) without rounding float samples
func (m *Image) FloatAt(x, y uint32, c int) float64 {
	return float64(m.FloatSample(m.index(x, y, c)))
}

// SetFloatAt writes channel c of pixel (x, y); integer depths are rounded
func (m *Image) SetFloatAt(x, y uint32, c int, v float64) {
	m.SetFloatSample(m.index(x, y, c), float32(v))
}

// Sample reads the i-th interleaved sample
func (m *Image) Sample(i int) int64 {
	switch m.depth {
	case DepthU8:
		return int64(m.data[i])
	case DepthS8:
		return int64(int8(m.data[i]))
	case DepthU16:
		return int64(binary.LittleEndian.Uint16(m.data[i*2:]))
	case DepthS16:
		return int64(int16(binary.LittleEndian.Uint16(m.data[i*2:])))
	case DepthU32:
		return int64(binary.LittleEndian.Uint32(m.data[i*4:]))
	case DepthS32:
		return int64(int32(binary.LittleEndian.Uint32(m.data[i*4:])))
	default:
		return int64(math.Round(float64(m.FloatSample(i))))
	}
}

// SetSample writes the i-th sample, truncating to the depth width
func (m *Image) SetSample(i int, v int64) {
	switch m.depth {
	case DepthU8, DepthS8:
		m.data[i] = byte(v)
	case DepthU16, DepthS16:
		binary.LittleEndian.PutUint16(m.data[i*2:], uint16(v))
	case DepthU32, DepthS32:
		binary.LittleEndian.PutUint32(m.data[i*4:], uint32(v))
	default:
		m.SetFloatSample(i, float32(v))
	}
}

// FloatSample reads the i-th sample as a float
func (m *Image) FloatSample(i int) float32 {
	if m.depth != DepthFloat {
		return float32(m.Sample(i))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(m.data[i*4:]))
}

// SetFloatSample writes the i-th sample; integer depths are rounded
func (m *Image) SetFloatSample(i int, v float32) {
	if m.depth != DepthFloat {
		m.SetSample(i, int64(math.Round(float64(v))))
		return
	}
	binary.LittleEndian.PutUint32(m.data[i*4:], math.Float32bits(v))
}

// Clone returns a deep copy
func (m *Image) Clone() *Image {
	c := *m
	c.data = append([]byte(nil), m.data...)
	return &c
}

// Equal compares geometry, format and samples
func (m *Image) Equal(o *Image) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.width != o.width || m.height != o.height || m.depth != o.depth ||
		m.colorSpace != o.colorSpace || m.highBit != o.highBit {
		return false
	}
	return string(m.data) == string(o.data)
}

// ReadingHandler exposes the samples through a numeric data handler
func (m *Image) ReadingHandler() (handlers.Reading, error) {
	return handlers.NewReading(m.depth.VR(), m.data, handlers.Params{Order: binary.LittleEndian})
}

// CheckArea verifies that the rectangle lies inside the image
func (m *Image) CheckArea(x, y, width, height uint32) error {
	if uint64(x)+uint64(width) > uint64(m.width) || uint64(y)+uint64(height) > uint64(m.height) {
		return dcmerr.New(dcmerr.TransformInvalidArea, "area %d,%d %dx%d outside %dx%d image", x, y, width, height, m.width, m.height)
	}
	return nil
}
