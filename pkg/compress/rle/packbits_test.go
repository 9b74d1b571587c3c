package rle

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

// fragment lays out an RLE header followed by the segments
func fragment(segments ...[]byte) []byte {
	out := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(out, uint32(len(segments)))
	offset := headerSize
	for i, s := range segments {
		binary.LittleEndian.PutUint32(out[4+i*4:], uint32(offset))
		offset += len(s)
	}
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}

func TestPackBits_Segment(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Single", []byte{0xAA}},
		{"Pair", []byte{0x01, 0x02}},
		{"Run", bytes.Repeat([]byte{0xAA}, 3)},
		{"RunThenLiteral", []byte{0xAA, 0xAA, 0xAA, 0x01, 0x02, 0xBB, 0xBB}},
		{"RunPastHeaderLimit", bytes.Repeat([]byte{0xCC}, 129)},
		{"LiteralPastHeaderLimit", ramp(130)},
		{"Alternating", []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x01}},
		{"Plane", append(bytes.Repeat([]byte{0}, 200), ramp(57)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := encodePackBits(tt.data)
			for _, pad := range []byte{0x80, 0x00} {
				padded := seg
				if len(seg)%2 != 0 {
					padded = append(append([]byte(nil), seg...), pad)
				}
				plane, err := decodePackBits(padded, len(tt.data))
				require.NoError(t, err)
				assert.Equal(t, tt.data, plane, "pad %#x", pad)
			}
		})
	}
}

func TestPackBits_Padding(t *testing.T) {
	seg := encodePackBits([]byte{0x01, 0x02})
	require.Equal(t, []byte{0x01, 0x01, 0x02}, seg)

	// the no-op header decodes with or without a known length
	plane, err := decodePackBits(append(seg, 0x80), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, plane)

	// a zero pad reads as a literal header, only the plane length skips it
	zeroPad := []byte{0x01, 0x01, 0x02, 0x00}
	_, err = decodePackBits(zeroPad, 0)
	assert.True(t, dcmerr.Is(err, dcmerr.CodecCorruptedFile))
	plane, err = decodePackBits(zeroPad, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, plane)

	plane, err = decodePackBits([]byte{0x80, 0x00, 0x05}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05}, plane)
}

func TestPackBits_SegmentLength(t *testing.T) {
	img, err := pixel.NewImage(2, 1, pixel.DepthU8, pixel.Monochrome2, 7)
	require.NoError(t, err)
	f := frameOf(img)

	// a run is never split, so an overlong segment comes back whole
	plane, err := decodePackBits([]byte{0xFD, 0x07}, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7, 7}, plane)

	decoded, err := Codec{}.Decode(fragment([]byte{0xFF, 0x07}), f)
	require.NoError(t, err)
	assert.Equal(t, int64(7), decoded.At(1, 0, 0))

	tests := []struct {
		name string
		data []byte
	}{
		{"Overlong", fragment([]byte{0xFD, 0x07})},
		{"Short", fragment([]byte{0x00, 0x07})},
		{"TruncatedLiteral", fragment([]byte{0x02, 0x01})},
		{"TruncatedReplicate", fragment([]byte{0xFE})},
		{"EmptyLiteral", fragment([]byte{0x00})},
		{"OffsetInHeader", func() []byte {
			b := fragment([]byte{0xFF, 0x07})
			binary.LittleEndian.PutUint32(b[4:], 8)
			return b
		}()},
		{"OffsetPastEnd", func() []byte {
			b := fragment([]byte{0xFF, 0x07})
			binary.LittleEndian.PutUint32(b[4:], 200)
			return b
		}()},
		{"ShortHeader", []byte{1, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Codec{}.Decode(tt.data, f)
			require.Error(t, err)
			assert.True(t, dcmerr.Is(err, dcmerr.CodecCorruptedFile), err.Error())
		})
	}
}
