package dataset

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transforms"
)

// GetLUT reads the LUT stored in item of a LUT sequence such as the Modality
// LUT Sequence or the VOI LUT Sequence
func (ds *DataSet) GetLUT(seq tag.Identifier, item int) (*pixel.LUT, error) {
	it, err := ds.GetSequenceItem(seq, item)
	if err != nil {
		return nil, err
	}
	explanation, err := it.GetUnicodeStringDefault(tag.LUTExplanation, 0, "")
	if err != nil {
		return nil, err
	}
	return it.readLUT(tag.LUTDescriptor, tag.LUTData, explanation)
}

// GetVOIs lists the window center/width pairs of the data set. A data set
// without windows returns an empty list.
func (ds *DataSet) GetVOIs() ([]transforms.VOIDescription, error) {
	centers, err := ds.GetDoubles(tag.WindowCenter)
	if dcmerr.IsMissingDataElement(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	widths, err := ds.GetDoubles(tag.WindowWidth)
	if err != nil {
		return nil, err
	}
	name, err := ds.GetStringDefault(tag.VOILUTFunction, 0, "")
	if err != nil {
		return nil, err
	}
	fn, err := transforms.ParseVOIFunction(name)
	if err != nil {
		return nil, err
	}
	var out []transforms.VOIDescription
	for i, c := range centers {
		if i >= len(widths) {
			break
		}
		explanation, err := ds.GetUnicodeStringDefault(tag.WindowCenterWidthExplanation, i, "")
		if err != nil {
			return nil, err
		}
		out = append(out, transforms.VOIDescription{
			Center:      c,
			Width:       widths[i],
			Function:    fn,
			Explanation: explanation,
		})
	}
	return out, nil
}

// SetVOIs replaces the window center/width elements. All descriptions share
// the function of the first one.
func (ds *DataSet) SetVOIs(vois ...transforms.VOIDescription) error {
	if len(vois) == 0 {
		ds.RemoveTag(tag.WindowCenter)
		ds.RemoveTag(tag.WindowWidth)
		ds.RemoveTag(tag.WindowCenterWidthExplanation)
		ds.RemoveTag(tag.VOILUTFunction)
		return nil
	}
	centers := make([]float64, len(vois))
	widths := make([]float64, len(vois))
	explanations := make([]string, len(vois))
	for i, v := range vois {
		centers[i], widths[i], explanations[i] = v.Center, v.Width, v.Explanation
	}
	if err := ds.SetDoubles(tag.WindowCenter, centers...); err != nil {
		return err
	}
	if err := ds.SetDoubles(tag.WindowWidth, widths...); err != nil {
		return err
	}
	if err := ds.SetStrings(tag.WindowCenterWidthExplanation, explanations...); err != nil {
		return err
	}
	return ds.SetString(tag.VOILUTFunction, vois[0].Function.String())
}

// VOILUTCount is the number of items in the VOI LUT Sequence
func (ds *DataSet) VOILUTCount() int {
	e, err := ds.GetTag(tag.VOILUTSequence)
	if err != nil {
		return 0
	}
	return e.SequenceItemCount()
}

// ModalityTransform builds the rescale or modality LUT for frame. Enhanced
// multi-frame objects take it from the Pixel Value Transformation functional
// group. An object without either returns an empty transform.
func (ds *DataSet) ModalityTransform(frame uint32) (*transforms.Modality, error) {
	if _, err := ds.GetTag(tag.ModalityLUTSequence); err == nil {
		l, err := ds.GetLUT(tag.ModalityLUTSequence, 0)
		if err != nil {
			return nil, err
		}
		item, err := ds.GetSequenceItem(tag.ModalityLUTSequence, 0)
		if err != nil {
			return nil, err
		}
		lutType, err := item.GetUnicodeStringDefault(tag.ModalityLUTType, 0, "")
		if err != nil {
			return nil, err
		}
		return transforms.NewModalityLUT(l, lutType), nil
	}
	src := ds
	fg, err := ds.GetFunctionalGroupDataSet(frame, tag.PixelValueTransformationSequence)
	switch {
	case err == nil:
		src = fg
	case !dcmerr.IsMissingDataElement(err):
		return nil, err
	}
	slope, err := src.GetDoubleDefault(tag.RescaleSlope, 0, 1)
	if err != nil {
		return nil, err
	}
	intercept, err := src.GetDoubleDefault(tag.RescaleIntercept, 0, 0)
	if err != nil {
		return nil, err
	}
	rescaleType, err := src.GetStringDefault(tag.RescaleType, 0, "")
	if err != nil {
		return nil, err
	}
	return transforms.NewRescale(slope, intercept, rescaleType), nil
}

// GetModalityImage returns frame with the modality transform applied.
// Color images and images without a transform come back unchanged.
func (ds *DataSet) GetModalityImage(frame uint32) (*pixel.Image, error) {
	img, err := ds.GetImage(frame)
	if err != nil {
		return nil, err
	}
	if !pixel.IsMonochrome(img.ColorSpace()) {
		return img, nil
	}
	t, err := ds.ModalityTransform(frame)
	if err != nil {
		return nil, err
	}
	if t.IsEmpty() {
		return img, nil
	}
	return transforms.Apply(t, img)
}
