package pixel

import (
	"image"
	"image/color"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
)

// ToStdImage converts a monochrome or RGB image into an image.Image. Samples
// are rescaled from the high bit range; 8 bit images map to image.Gray or
// image.RGBA, wider images to image.Gray16 or image.RGBA64.
func ToStdImage(m *Image) (image.Image, error) {
	lo, hi := m.Range()
	span := float64(hi - lo)
	wide := m.depth.BytesPerSample() > 1 || m.highBit > 7
	scale := func(v int64, max float64) float64 {
		if span == 0 {
			return 0
		}
		f := float64(v-lo) / span * max
		if f < 0 {
			return 0
		}
		if f > max {
			return max
		}
		return f
	}
	rect := image.Rect(0, 0, int(m.width), int(m.height))
	switch {
	case IsMonochrome(m.colorSpace) && !wide:
		out := image.NewGray(rect)
		for y := uint32(0); y < m.height; y++ {
			for x := uint32(0); x < m.width; x++ {
				v := uint8(scale(m.At(x, y, 0), 255))
				if m.colorSpace == Monochrome1 {
					v = 255 - v
				}
				out.SetGray(int(x), int(y), color.Gray{Y: v})
			}
		}
		return out, nil
	case IsMonochrome(m.colorSpace):
		out := image.NewGray16(rect)
		for y := uint32(0); y < m.height; y++ {
			for x := uint32(0); x < m.width; x++ {
				v := uint16(scale(m.At(x, y, 0), 65535))
				if m.colorSpace == Monochrome1 {
					v = 65535 - v
				}
				out.SetGray16(int(x), int(y), color.Gray16{Y: v})
			}
		}
		return out, nil
	case m.colorSpace == RGB && !wide:
		out := image.NewRGBA(rect)
		for y := uint32(0); y < m.height; y++ {
			for x := uint32(0); x < m.width; x++ {
				out.SetRGBA(int(x), int(y), color.RGBA{
					R: uint8(scale(m.At(x, y, 0), 255)),
					G: uint8(scale(m.At(x, y, 1), 255)),
					B: uint8(scale(m.At(x, y, 2), 255)),
					A: 255,
				})
			}
		}
		return out, nil
	case m.colorSpace == RGB:
		out := image.NewRGBA64(rect)
		for y := uint32(0); y < m.height; y++ {
			for x := uint32(0); x < m.width; x++ {
				out.SetRGBA64(int(x), int(y), color.RGBA64{
					R: uint16(scale(m.At(x, y, 0), 65535)),
					G: uint16(scale(m.At(x, y, 1), 65535)),
					B: uint16(scale(m.At(x, y, 2), 65535)),
					A: 65535,
				})
			}
		}
		return out, nil
	}
	return nil, dcmerr.New(dcmerr.ImageUnknownColorSpace, "no standard image for %s", m.colorSpace)
}
