package pixel

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
)

// LUT maps input samples starting at FirstMapped to table entries. Values
// outside the table clamp to the first or last entry.
type LUT struct {
	firstMapped int32
	bits        uint8
	values      []int32
	explanation string
}

// NewLUT builds a LUT from a decoded descriptor and its data. A descriptor
// size of 0 means 65536 entries.
func NewLUT(size uint32, firstMapped int32, bits uint8, values []int32, explanation string) (*LUT, error) {
	if size == 0 {
		size = 65536
	}
	if uint32(len(values)) != size {
		return nil, dcmerr.New(dcmerr.LutCorrupted, "descriptor declares %d entries, data has %d", size, len(values))
	}
	if bits == 0 || bits > 32 {
		return nil, dcmerr.New(dcmerr.LutCorrupted, "%d bits per entry", bits)
	}
	return &LUT{
		firstMapped: firstMapped,
		bits:        bits,
		values:      append([]int32(nil), values...),
		explanation: explanation,
	}, nil
}

func (l *LUT) Size() uint32        { return uint32(len(l.values)) }
func (l *LUT) FirstMapped() int32  { return l.firstMapped }
func (l *LUT) Bits() uint8         { return l.bits }
func (l *LUT) Explanation() string { return l.explanation }

// Values returns a copy of the table
func (l *LUT) Values() []int32 { return append([]int32(nil), l.values...) }

// MappedValue looks up v, clamping to the table bounds
func (l *LUT) MappedValue(v int64) int32 {
	i := v - int64(l.firstMapped)
	if i < 0 {
		i = 0
	}
	if last := int64(len(l.values)) - 1; i > last {
		i = last
	}
	return l.values[i]
}

// Range returns the smallest and largest table entries
func (l *LUT) Range() (min, max int32) {
	min, max = l.values[0], l.values[0]
	for _, v := range l.values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Palette is the red, green and blue LUT of a PALETTE COLOR image. It is
// read-only once attached to an image.
type Palette struct {
	Red   *LUT
	Green *LUT
	Blue  *LUT
}

// NewPalette checks that the three channels agree on size and bit depth
func NewPalette(red, green, blue *LUT) (*Palette, error) {
	if red == nil || green == nil || blue == nil {
		return nil, dcmerr.New(dcmerr.LutCorrupted, "palette needs three LUTs")
	}
	if red.Size() != green.Size() || red.Size() != blue.Size() || red.Bits() != green.Bits() || red.Bits() != blue.Bits() {
		return nil, dcmerr.New(dcmerr.LutCorrupted, "palette channels differ in size or bits")
	}
	return &Palette{Red: red, Green: green, Blue: blue}, nil
}

// Bits of each palette entry
func (p *Palette) Bits() uint8 { return p.Red.Bits() }
