// Package rle implements the DICOM RLE Lossless pixel codec. Each frame is
// split into byte planes, most significant byte first per channel, and every
// plane is PackBits compressed into its own segment behind a 64 byte header.
package rle

import (
	"encoding/binary"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/imagecodec"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
)

const (
	headerSize  = 64
	maxSegments = 15
)

func init() {
	imagecodec.Register(transfer.RLELossless, Codec{})
}

// Codec is the RLE Lossless imagecodec.Codec
type Codec struct{}

var _ imagecodec.Codec = Codec{}

func (Codec) Name() string { return "rle" }

// Encode compresses one frame
func (Codec) Encode(img *pixel.Image) ([]byte, error) {
	if img.Depth() == pixel.DepthFloat {
		return nil, dcmerr.New(dcmerr.ImageUnknownDepth, "rle: float samples")
	}
	bps := img.Depth().BytesPerSample()
	channels := img.Channels()
	pixels := int(img.Width()) * int(img.Height())
	if channels*bps > maxSegments {
		return nil, dcmerr.New(dcmerr.CodecImageTooBig, "rle: %d segments", channels*bps)
	}
	data := img.Data()
	var segments [][]byte
	for c := 0; c < channels; c++ {
		for b := bps - 1; b >= 0; b-- {
			plane := make([]byte, pixels)
			for p := range plane {
				plane[p] = data[(p*channels+c)*bps+b]
			}
			seg := encodePackBits(plane)
			if len(seg)%2 != 0 {
				seg = append(seg, 0x80)
			}
			segments = append(segments, seg)
		}
	}

	size := headerSize
	for _, s := range segments {
		size += len(s)
	}
	out := make([]byte, headerSize, size)
	binary.LittleEndian.PutUint32(out[0:], uint32(len(segments)))
	offset := uint32(headerSize)
	for i, s := range segments {
		binary.LittleEndian.PutUint32(out[4+i*4:], offset)
		offset += uint32(len(s))
	}
	for _, s := range segments {
		out = append(out, s...)
	}
	return out, nil
}

// Decode expands one fragment into the frame described by f
func (Codec) Decode(data []byte, f imagecodec.Frame) (*pixel.Image, error) {
	img, err := pixel.NewImage(f.Width, f.Height, f.Depth, f.ColorSpace, f.HighBit)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize {
		return nil, dcmerr.New(dcmerr.CodecCorruptedFile, "rle: %d bytes is shorter than the header", len(data))
	}
	bps := f.Depth.BytesPerSample()
	channels := img.Channels()
	pixels := int(f.Width) * int(f.Height)

	count := int(binary.LittleEndian.Uint32(data[0:]))
	if count != channels*bps || count > maxSegments {
		return nil, dcmerr.New(dcmerr.CodecCorruptedFile, "rle: %d segments for %d channels of %d bytes", count, channels, bps)
	}
	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(data[4+i*4:]))
	}
	offsets[count] = len(data)

	out := img.Data()
	for i := 0; i < count; i++ {
		start, end := offsets[i], offsets[i+1]
		if start < headerSize || start > end || end > len(data) {
			return nil, dcmerr.New(dcmerr.CodecCorruptedFile, "rle: segment %d spans %d..%d of %d", i, start, end, len(data))
		}
		plane, err := decodePackBits(data[start:end], pixels)
		if err != nil {
			return nil, dcmerr.Wrap(err, "rle: segment %d", i)
		}
		if len(plane) != pixels {
			return nil, dcmerr.New(dcmerr.CodecCorruptedFile, "rle: segment %d decoded %d of %d bytes", i, len(plane), pixels)
		}
		c, b := i/bps, bps-1-i%bps
		for p, v := range plane {
			out[(p*channels+c)*bps+b] = v
		}
	}
	return img, nil
}
