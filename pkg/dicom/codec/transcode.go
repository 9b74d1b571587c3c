package codec

import (
	"log/slog"

	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
)

// Transcode copies ds into a new data set encoded with ts. Values are
// byte swapped when the byte order changes; pixel data goes through the
// pixel codecs when either side is encapsulated.
func Transcode(ds *dataset.DataSet, ts transfer.Syntax) (*dataset.DataSet, error) {
	out, err := dataset.New(ts,
		dataset.WithDictionary(ds.Dictionary()),
		dataset.WithCharsetBackend(ds.CharsetBackend()),
		dataset.WithCharsets(ds.Charsets()...))
	if err != nil {
		return nil, err
	}
	swap := ds.TransferSyntax().IsLittleEndian() != ts.IsLittleEndian()
	if err := copyDataSet(ds, out, swap, true); err != nil {
		return nil, err
	}
	if err := transcodePixels(ds, out, swap); err != nil {
		return nil, dcmerr.Wrap(err, "pixel data")
	}
	if err := out.SetString(tag.TransferSyntaxUID, string(ts)); err != nil {
		return nil, err
	}
	slog.Debug("transcoded",
		slog.String("from", ds.TransferSyntax().Name()),
		slog.String("to", ts.Name()))
	return out, nil
}

// copyDataSet deep copies every element except top level pixel data
func copyDataSet(src, dst *dataset.DataSet, swap, top bool) error {
	for _, id := range src.GetTags() {
		if top && id.Tag() == tag.PixelData {
			continue
		}
		e, err := src.GetTag(id)
		if err != nil {
			return err
		}
		target, err := dst.GetTagCreate(id, e.VR())
		if err != nil {
			return err
		}
		for i, item := range e.SequenceItems() {
			copied, err := dst.AppendSequenceItem(id)
			if err != nil {
				return err
			}
			if err := copyDataSet(item, copied, swap, false); err != nil {
				return dcmerr.Wrap(err, "%s item %d", id, i)
			}
		}
		for _, n := range e.BufferIDs() {
			b, err := e.Buffer(n)
			if err != nil {
				return err
			}
			raw, err := b.Bytes()
			if err != nil {
				return dcmerr.Wrap(err, "%s", id)
			}
			if swap {
				swapBytes(raw, e.VR().WordSize())
			}
			target.BufferCreate(n).SetBytes(raw)
		}
	}
	return nil
}

func transcodePixels(src, dst *dataset.DataSet, swap bool) error {
	e, err := src.GetTag(tag.PixelData)
	if err != nil {
		return nil
	}
	if !src.TransferSyntax().IsEncapsulated() && !dst.TransferSyntax().IsEncapsulated() {
		raw, err := src.GetBytes(tag.PixelData, 0)
		if err != nil {
			return err
		}
		if swap {
			bits, err := src.GetUint16Default(tag.BitsAllocated, 0, 8)
			if err != nil {
				return err
			}
			swapBytes(raw, int(bits)/8)
		}
		return dst.SetBytes(tag.PixelData, 0, e.VR(), raw)
	}
	frames, err := src.FrameCount()
	if err != nil {
		return err
	}
	for f := uint32(0); f < frames; f++ {
		img, err := src.GetImage(f)
		if err != nil {
			return dcmerr.Wrap(err, "frame %d", f)
		}
		if err := dst.SetImage(f, img); err != nil {
			return dcmerr.Wrap(err, "frame %d", f)
		}
	}
	return nil
}
