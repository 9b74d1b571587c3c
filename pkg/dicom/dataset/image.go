package dataset

import (
	"encoding/binary"
	"log/slog"
	"math"
	"strconv"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/imagecodec"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// pixelInfo is the image pixel module of a data set
type pixelInfo struct {
	rows          uint32
	cols          uint32
	samples       uint32
	bitsAllocated uint32
	bitsStored    uint32
	highBit       uint32
	signed        bool
	colorSpace    string
	planar        bool
	frames        uint32
}

func (p pixelInfo) depth() (pixel.Depth, error) {
	switch {
	case p.bitsAllocated == 8 && p.signed:
		return pixel.DepthS8, nil
	case p.bitsAllocated == 8:
		return pixel.DepthU8, nil
	case p.bitsAllocated == 16 && p.signed:
		return pixel.DepthS16, nil
	case p.bitsAllocated == 16:
		return pixel.DepthU16, nil
	case p.bitsAllocated == 32 && p.signed:
		return pixel.DepthS32, nil
	case p.bitsAllocated == 32:
		return pixel.DepthU32, nil
	}
	return 0, dcmerr.New(dcmerr.ImageUnknownDepth, "%d bits allocated", p.bitsAllocated)
}

// subsampled reports chroma subsampled native data (pairs of Y Y Cb Cr)
func (p pixelInfo) subsampled() bool {
	return p.samples == 3 && pixel.IsSubsampledX(p.colorSpace)
}

func (p pixelInfo) frameBytes() int64 {
	n := int64(p.rows) * int64(p.cols) * int64(p.samples)
	if p.subsampled() {
		n = int64(p.rows) * int64(p.cols) * 2
	}
	return n * int64(p.bitsAllocated/8)
}

func (p pixelInfo) sameFormat(img *pixel.Image) bool {
	bits := uint32(img.Depth().BytesPerSample() * 8)
	return p.rows == img.Height() && p.cols == img.Width() && p.bitsAllocated == bits &&
		p.bitsStored == img.HighBit()+1 && p.signed == img.Depth().IsSigned() &&
		p.samples == uint32(img.Channels()) && pixel.NormalizeColorSpace(p.colorSpace) == img.ColorSpace()
}

func (ds *DataSet) readPixelInfo() (pixelInfo, error) {
	var p pixelInfo
	var err error
	if p.rows, err = ds.GetUint32(tag.Rows, 0); err != nil {
		return p, err
	}
	if p.cols, err = ds.GetUint32(tag.Columns, 0); err != nil {
		return p, err
	}
	if p.bitsAllocated, err = ds.GetUint32(tag.BitsAllocated, 0); err != nil {
		return p, err
	}
	if p.bitsStored, err = ds.GetUint32Default(tag.BitsStored, 0, p.bitsAllocated); err != nil {
		return p, err
	}
	if p.highBit, err = ds.GetUint32Default(tag.HighBit, 0, p.bitsStored-1); err != nil {
		return p, err
	}
	if p.samples, err = ds.GetUint32Default(tag.SamplesPerPixel, 0, 1); err != nil {
		return p, err
	}
	rep, err := ds.GetUint32Default(tag.PixelRepresentation, 0, 0)
	if err != nil {
		return p, err
	}
	p.signed = rep == 1
	planar, err := ds.GetUint32Default(tag.PlanarConfiguration, 0, 0)
	if err != nil {
		return p, err
	}
	p.planar = planar == 1
	if p.colorSpace, err = ds.GetStringDefault(tag.PhotometricInterpretation, 0, pixel.Monochrome2); err != nil {
		return p, err
	}
	if p.frames, err = ds.GetUint32Default(tag.NumberOfFrames, 0, 1); err != nil {
		return p, err
	}
	if p.bitsStored == 0 || p.bitsStored > p.bitsAllocated || p.highBit+1 < p.bitsStored || p.highBit >= p.bitsAllocated {
		return p, dcmerr.New(dcmerr.ImageUnknownDepth, "bits allocated %d, stored %d, high bit %d", p.bitsAllocated, p.bitsStored, p.highBit)
	}
	return p, nil
}

// FrameCount is the number of frames in the pixel data, 0 without pixel data
func (ds *DataSet) FrameCount() (uint32, error) {
	if _, err := ds.GetTag(tag.PixelData); err != nil {
		if dcmerr.IsMissingDataElement(err) {
			return 0, nil
		}
		return 0, err
	}
	return ds.GetUint32Default(tag.NumberOfFrames, 0, 1)
}

// GetImage decodes one frame of the pixel data. Palette color images carry
// the data set palette.
func (ds *DataSet) GetImage(frame uint32) (*pixel.Image, error) {
	e, err := ds.GetTag(tag.PixelData)
	if err != nil {
		return nil, dcmerr.New(dcmerr.DataSetImageDoesntExist, "no pixel data")
	}
	info, err := ds.readPixelInfo()
	if err != nil {
		return nil, err
	}
	if frame >= info.frames {
		return nil, dcmerr.New(dcmerr.DataSetImageDoesntExist, "frame %d of %d", frame, info.frames)
	}
	depth, err := info.depth()
	if err != nil {
		return nil, err
	}
	var img *pixel.Image
	if ds.syntax.IsEncapsulated() {
		img, err = ds.decodeFragment(e, info, depth, frame)
	} else {
		img, err = ds.decodeNative(e, info, depth, frame)
	}
	if err != nil {
		return nil, err
	}
	if img.ColorSpace() == pixel.PaletteColor {
		p, err := ds.GetPalette()
		switch {
		case err == nil:
			img.SetPalette(p)
		case !dcmerr.IsMissingDataElement(err):
			return nil, err
		}
	}
	return img, nil
}

func (ds *DataSet) decodeNative(e *Element, info pixelInfo, depth pixel.Depth, frame uint32) (*pixel.Image, error) {
	b, err := e.Buffer(0)
	if err != nil {
		return nil, err
	}
	size := info.frameBytes()
	raw := make([]byte, size)
	if n, _ := b.ReadAt(raw, int64(frame)*size); int64(n) < size {
		return nil, dcmerr.New(dcmerr.DataHandlerCorruptedBuffer, "pixel data holds %d bytes, frame %d needs %d at %d", b.Size(), frame, size, int64(frame)*size)
	}
	img, err := pixel.NewImage(info.cols, info.rows, depth, info.colorSpace, info.bitsStored-1)
	if err != nil {
		return nil, err
	}
	bps := int(info.bitsAllocated / 8)
	order := ds.ByteOrder()
	shift := info.highBit + 1 - info.bitsStored
	mask := uint64(1)<<info.bitsStored - 1
	sample := func(i int) int64 {
		var v uint64
		switch bps {
		case 1:
			v = uint64(raw[i])
		case 2:
			v = uint64(order.Uint16(raw[i*2:]))
		default:
			v = uint64(order.Uint32(raw[i*4:]))
		}
		v = (v >> shift) & mask
		if info.signed && v&(1<<(info.bitsStored-1)) != 0 {
			return int64(v) - int64(1)<<info.bitsStored
		}
		return int64(v)
	}
	channels := int(info.samples)
	pixels := int(info.rows * info.cols)
	for p := 0; p < pixels; p++ {
		x, y := uint32(p)%info.cols, uint32(p)/info.cols
		for c := 0; c < channels; c++ {
			var idx int
			switch {
			case info.subsampled():
				pair := p / 2
				if c == 0 {
					idx = pair*4 + p%2
				} else {
					idx = pair*4 + 1 + c
				}
			case info.planar:
				idx = c*pixels + p
			default:
				idx = p*channels + c
			}
			img.Set(x, y, c, sample(idx))
		}
	}
	return img, nil
}

// fragments returns the compressed bytes of one frame
func (ds *DataSet) fragments(e *Element, frames, frame uint32) ([]byte, error) {
	ids := e.BufferIDs()
	if len(ids) == 0 || ids[0] != 0 {
		return nil, dcmerr.New(dcmerr.DataSetCorruptedOffsetTable, "encapsulated pixel data without offset table")
	}
	ids = ids[1:]
	read := func(id uint32) ([]byte, error) {
		b, err := e.Buffer(id)
		if err != nil {
			return nil, err
		}
		return b.Bytes()
	}
	if uint32(len(ids)) == frames {
		return read(ids[frame])
	}
	if frames == 1 || len(ids) > int(frames) {
		var offsets []uint32
		if table, err := read(0); err == nil {
			for i := 0; i+4 <= len(table); i += 4 {
				offsets = append(offsets, binary.LittleEndian.Uint32(table[i:]))
			}
		}
		if frames > 1 && uint32(len(offsets)) != frames {
			return nil, dcmerr.New(dcmerr.DataSetCorruptedOffsetTable, "%d fragments for %d frames and %d offsets", len(ids), frames, len(offsets))
		}
		start, end := uint32(0), ^uint32(0)
		if frames > 1 {
			start = offsets[frame]
			if frame+1 < frames {
				end = offsets[frame+1]
			}
		}
		var out []byte
		pos := uint32(0)
		for _, id := range ids {
			b, err := e.Buffer(id)
			if err != nil {
				return nil, err
			}
			if pos >= start && pos < end {
				raw, err := b.Bytes()
				if err != nil {
					return nil, err
				}
				out = append(out, raw...)
			}
			pos += 8 + uint32(b.Size())
		}
		return out, nil
	}
	return nil, dcmerr.New(dcmerr.DataSetCorruptedOffsetTable, "%d fragments for %d frames", len(ids), frames)
}

func (ds *DataSet) decodeFragment(e *Element, info pixelInfo, depth pixel.Depth, frame uint32) (*pixel.Image, error) {
	c, err := imagecodec.Lookup(ds.syntax)
	if err != nil {
		return nil, err
	}
	data, err := ds.fragments(e, info.frames, frame)
	if err != nil {
		return nil, err
	}
	return c.Decode(data, imagecodec.Frame{
		Width:      info.cols,
		Height:     info.rows,
		Depth:      depth,
		ColorSpace: pixel.NormalizeColorSpace(info.colorSpace),
		HighBit:    info.bitsStored - 1,
	})
}

// SetImage stores img as frame. Frames are written in order: frame may
// replace an existing frame or append the next one. All frames share one
// format.
func (ds *DataSet) SetImage(frame uint32, img *pixel.Image) error {
	if img.ColorSpace() == pixel.PaletteColor {
		return dcmerr.New(dcmerr.DataSetImagePaletteColorIsReadOnly, "palette color images cannot be stored")
	}
	if img.Depth() == pixel.DepthFloat {
		return dcmerr.New(dcmerr.ImageUnknownDepth, "float images cannot be stored")
	}
	if img.Width() > math.MaxUint16 || img.Height() > math.MaxUint16 {
		return dcmerr.New(dcmerr.ImageInvalidSize, "%dx%d exceeds the rows and columns range", img.Width(), img.Height())
	}
	count, err := ds.FrameCount()
	if err != nil {
		return err
	}
	if frame > count {
		return dcmerr.New(dcmerr.DataSetWrongFrame, "frame %d set before frame %d", frame, count)
	}
	if count > 0 {
		info, err := ds.readPixelInfo()
		switch {
		case err != nil && !dcmerr.IsMissingDataElement(err):
			return err
		case count == 1 && frame == 0:
			// replacing the only frame may change the format
			ds.RemoveTag(tag.PixelData)
			count = 0
		case err != nil || !info.sameFormat(img):
			return dcmerr.New(dcmerr.DataSetDifferentFormat, "frame %d differs from the stored format", frame)
		}
	}
	frames := count
	if frame == count {
		frames++
	}
	if err := ds.writePixelInfo(img, frames); err != nil {
		return err
	}
	if ds.syntax.IsEncapsulated() {
		err = ds.encodeFragment(img, frame, frames)
	} else {
		err = ds.encodeNative(img, frame, count)
	}
	if err != nil {
		return err
	}
	slog.Debug("stored frame", slog.Int("frame", int(frame)), slog.Int("frames", int(frames)), slog.String("syntax", ds.syntax.Name()))
	return nil
}

func (ds *DataSet) writePixelInfo(img *pixel.Image, frames uint32) error {
	signed := uint16(0)
	if img.Depth().IsSigned() {
		signed = 1
	}
	for _, u := range []struct {
		t tag.Tag
		v uint16
	}{
		{tag.Rows, uint16(img.Height())},
		{tag.Columns, uint16(img.Width())},
		{tag.BitsAllocated, uint16(img.Depth().BytesPerSample() * 8)},
		{tag.BitsStored, uint16(img.HighBit() + 1)},
		{tag.HighBit, uint16(img.HighBit())},
		{tag.PixelRepresentation, signed},
		{tag.SamplesPerPixel, uint16(img.Channels())},
	} {
		if err := ds.SetUint16(u.t, u.v); err != nil {
			return err
		}
	}
	if img.Channels() > 1 {
		if err := ds.SetUint16(tag.PlanarConfiguration, 0); err != nil {
			return err
		}
	} else {
		ds.RemoveTag(tag.PlanarConfiguration)
	}
	if err := ds.SetString(tag.PhotometricInterpretation, img.ColorSpace()); err != nil {
		return err
	}
	return ds.SetString(tag.NumberOfFrames, strconv.FormatUint(uint64(frames), 10))
}

// encodeNative writes frame into the concatenated native pixel data. An
// appended frame drops anything stored past the last counted frame.
func (ds *DataSet) encodeNative(img *pixel.Image, frame, count uint32) error {
	v := vr.OW
	if img.Depth().BytesPerSample() == 1 {
		v = vr.OB
	}
	e, err := ds.GetTagCreate(tag.PixelData, v)
	if err != nil {
		return err
	}
	bps := img.Depth().BytesPerSample()
	size := int64(img.Samples() * bps)
	raw := make([]byte, size)
	order := ds.ByteOrder()
	for i := 0; i < img.Samples(); i++ {
		s := img.Sample(i)
		switch bps {
		case 1:
			raw[i] = byte(s)
		case 2:
			order.PutUint16(raw[i*2:], uint16(s))
		default:
			order.PutUint32(raw[i*4:], uint32(s))
		}
	}
	b := e.BufferCreate(0)
	stored, err := b.Bytes()
	if err != nil {
		return err
	}
	keep := int64(count) * size
	data := make([]byte, keep, keep+size)
	copy(data, stored)
	if frame == count {
		data = append(data, raw...)
	} else {
		copy(data[int64(frame)*size:], raw)
	}
	b.SetBytes(data)
	return nil
}

func (ds *DataSet) encodeFragment(img *pixel.Image, frame, frames uint32) error {
	c, err := imagecodec.Lookup(ds.syntax)
	if err != nil {
		return err
	}
	data, err := c.Encode(img)
	if err != nil {
		return dcmerr.Wrap(err, "%s encode", c.Name())
	}
	if len(data)%2 != 0 {
		data = append(data, 0)
	}
	e, err := ds.GetTagCreate(tag.PixelData, vr.OB)
	if err != nil {
		return err
	}
	e.BufferCreate(frame + 1).SetBytes(data)
	e.RemoveBuffers(frames + 1)

	table := make([]byte, 4*frames)
	offset := uint32(0)
	for f := uint32(0); f < frames; f++ {
		binary.LittleEndian.PutUint32(table[f*4:], offset)
		b, err := e.Buffer(f + 1)
		if err != nil {
			return dcmerr.New(dcmerr.DataSetCorruptedOffsetTable, "missing fragment for frame %d", f)
		}
		offset += 8 + uint32(b.Size())
	}
	e.BufferCreate(0).SetBytes(table)
	return nil
}

// GetPalette reads the red, green and blue palette color LUTs
func (ds *DataSet) GetPalette() (*pixel.Palette, error) {
	pairs := [3][2]tag.Tag{
		{tag.RedPaletteColorLookupTableDescriptor, tag.RedPaletteColorLookupTableData},
		{tag.GreenPaletteColorLookupTableDescriptor, tag.GreenPaletteColorLookupTableData},
		{tag.BluePaletteColorLookupTableDescriptor, tag.BluePaletteColorLookupTableData},
	}
	var luts [3]*pixel.LUT
	for i, p := range pairs {
		l, err := ds.readLUT(p[0], p[1], "")
		if err != nil {
			return nil, err
		}
		luts[i] = l
	}
	return pixel.NewPalette(luts[0], luts[1], luts[2])
}

// readLUT decodes a descriptor (entries, first mapped, bits) and its data
func (ds *DataSet) readLUT(descriptor, data tag.Tag, explanation string) (*pixel.LUT, error) {
	d, err := ds.ReadingHandler(descriptor, 0)
	if err != nil {
		return nil, err
	}
	if d.Size() != 3 {
		return nil, dcmerr.New(dcmerr.LutCorrupted, "%s has %d values", descriptor, d.Size())
	}
	size, err := d.GetUint32(0)
	if err != nil {
		return nil, err
	}
	var first int32
	if d.VR() == vr.SS {
		first, err = d.GetInt32(1)
	} else {
		var u uint32
		u, err = d.GetUint32(1)
		first = int32(u)
	}
	if err != nil {
		return nil, err
	}
	bits, err := d.GetUint32(2)
	if err != nil {
		return nil, err
	}
	h, err := ds.ReadingHandler(data, 0)
	if err != nil {
		return nil, err
	}
	entries := int(size)
	if entries == 0 {
		entries = 65536
	}
	var values []int32
	if h.VR().WordSize() == 2 && bits <= 8 && h.Size()*2 == entries {
		// two 8 bit entries per word
		values = make([]int32, 0, entries)
		for i := 0; i < h.Size(); i++ {
			w, err := h.GetUint16(i)
			if err != nil {
				return nil, err
			}
			values = append(values, int32(w&0xFF), int32(w>>8))
		}
	} else {
		values = make([]int32, h.Size())
		for i := range values {
			v, err := h.GetInt64(i)
			if err != nil {
				return nil, err
			}
			values[i] = int32(v)
		}
	}
	l, err := pixel.NewLUT(size, first, uint8(bits), values, explanation)
	if err != nil {
		return nil, dcmerr.Wrap(err, "%s", data)
	}
	return l, nil
}
