package dataset

import (
	"strconv"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// Overlay types
const (
	OverlayGraphics = "G"
	OverlayROI      = "R"
)

// MaxOverlays is the number of overlay planes (groups 6000 to 601E)
const MaxOverlays = 16

// Overlay is one 60xx overlay plane. Frames hold one bitmap per overlay
// frame as MONOCHROME2 U8 images with values 0 and 1.
type Overlay struct {
	Rows        uint32
	Columns     uint32
	Type        string
	Subtype     string
	Label       string
	Description string
	// Origin is the 1 based (row, column) of the top left overlay pixel
	Origin [2]int32
	Frames []*pixel.Image

	ROIArea   uint32
	ROIMean   float64
	ROIStdDev float64
}

// NewOverlay allocates an empty single frame overlay at origin (1,1)
func NewOverlay(rows, cols uint32, overlayType string) (*Overlay, error) {
	bitmap, err := pixel.NewImage(cols, rows, pixel.DepthU8, pixel.Monochrome2, 0)
	if err != nil {
		return nil, err
	}
	return &Overlay{
		Rows:    rows,
		Columns: cols,
		Type:    overlayType,
		Origin:  [2]int32{1, 1},
		Frames:  []*pixel.Image{bitmap},
	}, nil
}

// ComputeROI fills the ROI area, mean and standard deviation from the image
// pixels covered by the first overlay frame
func (o *Overlay) ComputeROI(img *pixel.Image) error {
	if len(o.Frames) == 0 {
		return dcmerr.New(dcmerr.DataSetImageDoesntExist, "overlay without frames")
	}
	mask, err := pixel.NewImage(img.Width(), img.Height(), pixel.DepthU8, pixel.Monochrome2, 0)
	if err != nil {
		return err
	}
	bitmap := o.Frames[0]
	for y := uint32(0); y < bitmap.Height(); y++ {
		for x := uint32(0); x < bitmap.Width(); x++ {
			if bitmap.At(x, y, 0) == 0 {
				continue
			}
			ix, iy := int64(x)+int64(o.Origin[1])-1, int64(y)+int64(o.Origin[0])-1
			if ix < 0 || iy < 0 || ix >= int64(img.Width()) || iy >= int64(img.Height()) {
				continue
			}
			mask.Set(uint32(ix), uint32(iy), 0, 1)
		}
	}
	s, err := pixel.MaskedStatistics(img, mask)
	if err != nil {
		return err
	}
	o.ROIArea = uint32(s.Count / img.Channels())
	o.ROIMean = s.Mean
	o.ROIStdDev = s.StdDev
	return nil
}

// OverlayCount counts the overlay planes that carry overlay data
func (ds *DataSet) OverlayCount() int {
	n := 0
	for i := 0; i < MaxOverlays; i++ {
		if _, err := ds.GetTag(tag.OverlayGroup(tag.OverlayRows, i)); err == nil {
			n++
		}
	}
	return n
}

// GetOverlay reads overlay plane n (0 for group 6000, 1 for 6002, ...)
func (ds *DataSet) GetOverlay(n int) (*Overlay, error) {
	if n < 0 || n >= MaxOverlays {
		return nil, dcmerr.New(dcmerr.MissingGroup, "overlay %d", n)
	}
	at := func(t tag.Tag) tag.Tag { return tag.OverlayGroup(t, n) }
	o := &Overlay{Origin: [2]int32{1, 1}}
	var err error
	if o.Rows, err = ds.GetUint32(at(tag.OverlayRows), 0); err != nil {
		return nil, err
	}
	if o.Columns, err = ds.GetUint32(at(tag.OverlayColumns), 0); err != nil {
		return nil, err
	}
	if o.Type, err = ds.GetStringDefault(at(tag.OverlayType), 0, OverlayGraphics); err != nil {
		return nil, err
	}
	if o.Subtype, err = ds.GetUnicodeStringDefault(at(tag.OverlaySubtype), 0, ""); err != nil {
		return nil, err
	}
	if o.Label, err = ds.GetUnicodeStringDefault(at(tag.OverlayLabel), 0, ""); err != nil {
		return nil, err
	}
	if o.Description, err = ds.GetUnicodeStringDefault(at(tag.OverlayDescription), 0, ""); err != nil {
		return nil, err
	}
	for i := range o.Origin {
		if o.Origin[i], err = ds.GetInt32Default(at(tag.OverlayOrigin), i, 1); err != nil {
			return nil, err
		}
	}
	if o.ROIArea, err = ds.GetUint32Default(at(tag.ROIArea), 0, 0); err != nil {
		return nil, err
	}
	if o.ROIMean, err = ds.GetDoubleDefault(at(tag.ROIMean), 0, 0); err != nil {
		return nil, err
	}
	if o.ROIStdDev, err = ds.GetDoubleDefault(at(tag.ROIStandardDeviation), 0, 0); err != nil {
		return nil, err
	}
	frames, err := ds.GetUint32Default(at(tag.NumberOfFramesInOverlay), 0, 1)
	if err != nil {
		return nil, err
	}
	e, err := ds.GetTag(at(tag.OverlayData))
	if err != nil {
		return nil, err
	}
	b, err := e.Buffer(0)
	if err != nil {
		return nil, err
	}
	raw, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	if e.VR() == vr.OW && !ds.syntax.IsLittleEndian() {
		swapWords(raw)
	}
	pixels := int(o.Rows * o.Columns)
	if len(raw)*8 < pixels*int(frames) {
		return nil, dcmerr.New(dcmerr.DataHandlerCorruptedBuffer, "overlay %d holds %d bits for %d frames of %d pixels", n, len(raw)*8, frames, pixels)
	}
	for f := 0; f < int(frames); f++ {
		bitmap, err := pixel.NewImage(o.Columns, o.Rows, pixel.DepthU8, pixel.Monochrome2, 0)
		if err != nil {
			return nil, err
		}
		data := bitmap.Data()
		for p := 0; p < pixels; p++ {
			bit := f*pixels + p
			data[p] = (raw[bit/8] >> (bit % 8)) & 1
		}
		o.Frames = append(o.Frames, bitmap)
	}
	return o, nil
}

// SetOverlay writes o as overlay plane n, replacing the previous content
func (ds *DataSet) SetOverlay(n int, o *Overlay) error {
	if n < 0 || n >= MaxOverlays {
		return dcmerr.New(dcmerr.MissingGroup, "overlay %d", n)
	}
	if len(o.Frames) == 0 {
		return dcmerr.New(dcmerr.DataSetImageDoesntExist, "overlay without frames")
	}
	at := func(t tag.Tag) tag.Tag { return tag.OverlayGroup(t, n) }
	pixels := int(o.Rows * o.Columns)
	packed := make([]byte, (pixels*len(o.Frames)+7)/8)
	for f, bitmap := range o.Frames {
		if bitmap.Width() != o.Columns || bitmap.Height() != o.Rows {
			return dcmerr.New(dcmerr.DataSetDifferentFormat, "overlay frame %d is %dx%d, want %dx%d", f, bitmap.Width(), bitmap.Height(), o.Columns, o.Rows)
		}
		for p := 0; p < pixels; p++ {
			if bitmap.Sample(p*bitmap.Channels()) != 0 {
				bit := f*pixels + p
				packed[bit/8] |= 1 << (bit % 8)
			}
		}
	}
	if len(packed)%2 != 0 {
		packed = append(packed, 0)
	}
	if !ds.syntax.IsLittleEndian() {
		swapWords(packed)
	}

	for _, u := range []struct {
		t tag.Tag
		v uint16
	}{
		{at(tag.OverlayRows), uint16(o.Rows)},
		{at(tag.OverlayColumns), uint16(o.Columns)},
		{at(tag.OverlayBitsAllocated), 1},
		{at(tag.OverlayBitPosition), 0},
	} {
		if err := ds.SetUint16(u.t, u.v); err != nil {
			return err
		}
	}
	w, err := ds.WritingHandler(at(tag.OverlayOrigin), 0, vr.SS)
	if err != nil {
		return err
	}
	for i, v := range o.Origin {
		if err := w.SetInt32(i, v); err != nil {
			return err
		}
	}
	if err := w.Commit(); err != nil {
		return err
	}
	overlayType := o.Type
	if overlayType == "" {
		overlayType = OverlayGraphics
	}
	if err := ds.SetString(at(tag.OverlayType), overlayType); err != nil {
		return err
	}
	for _, s := range []struct {
		t tag.Tag
		v string
	}{
		{at(tag.OverlaySubtype), o.Subtype},
		{at(tag.OverlayLabel), o.Label},
		{at(tag.OverlayDescription), o.Description},
	} {
		if s.v == "" {
			ds.RemoveTag(s.t)
			continue
		}
		if err := ds.SetUnicodeString(s.t, s.v); err != nil {
			return err
		}
	}
	if len(o.Frames) > 1 {
		if err := ds.SetString(at(tag.NumberOfFramesInOverlay), strconv.Itoa(len(o.Frames))); err != nil {
			return err
		}
	} else {
		ds.RemoveTag(at(tag.NumberOfFramesInOverlay))
	}
	if o.Type == OverlayROI && o.ROIArea > 0 {
		if err := ds.SetString(at(tag.ROIArea), strconv.FormatUint(uint64(o.ROIArea), 10)); err != nil {
			return err
		}
		if err := ds.SetDouble(at(tag.ROIMean), o.ROIMean); err != nil {
			return err
		}
		if err := ds.SetDouble(at(tag.ROIStandardDeviation), o.ROIStdDev); err != nil {
			return err
		}
	}
	return ds.SetBytes(at(tag.OverlayData), 0, vr.OW, packed)
}

func swapWords(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}
