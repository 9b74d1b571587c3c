package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"

	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
	"github.com/klauspost/compress/flate"
)

// Identification written into the file meta of every saved stream
const (
	ImplementationClassUID    = "2.25.92384756101929374650192837465019283746"
	ImplementationVersionName = "DICOMKIT_1"
)

// WriteFile saves ds to path
func WriteFile(path string, ds *dataset.DataSet) error {
	f, err := os.Create(path)
	if err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamOpen, path)
	}
	bw := bufio.NewWriter(f)
	if _, err := Save(bw, ds); err != nil {
		f.Close()
		return dcmerr.Wrap(err, "%s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return dcmerr.FromIO(err, dcmerr.StreamWrite, path)
	}
	if err := f.Close(); err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamWrite, path)
	}
	return nil
}

// Save writes ds as a Part 10 stream in its own transfer syntax and returns
// the number of bytes written. Missing file meta elements are filled in on
// ds, and every sequence item records its offset from the first byte of the
// preamble.
func Save(w io.Writer, ds *dataset.DataSet) (int64, error) {
	cw := &CountingWriter{Writer: w}
	if err := fillMeta(ds); err != nil {
		return 0, err
	}
	head := make([]byte, preambleSize, preambleSize+len(magic))
	head = append(head, magic...)
	if _, err := cw.Write(head); err != nil {
		return cw.Count.Load(), dcmerr.FromIO(err, dcmerr.StreamWrite, "preamble")
	}
	if err := writeMeta(cw, ds); err != nil {
		return cw.Count.Load(), err
	}
	ts := ds.TransferSyntax()
	if !ts.IsDeflated() {
		err := (&encoder{cw: cw}).writeDataSet(ds, ts, false)
		return cw.Count.Load(), err
	}
	fw, err := flate.NewWriter(cw, flate.DefaultCompression)
	if err != nil {
		return cw.Count.Load(), dcmerr.FromIO(err, dcmerr.StreamWrite, "deflate")
	}
	if err := (&encoder{cw: &CountingWriter{Writer: fw}}).writeDataSet(ds, ts, false); err != nil {
		return cw.Count.Load(), err
	}
	if err := fw.Close(); err != nil {
		return cw.Count.Load(), dcmerr.FromIO(err, dcmerr.StreamWrite, "deflate")
	}
	slog.Debug("deflated body", slog.Int64("bytes", cw.Count.Load()))
	return cw.Count.Load(), nil
}

// fillMeta sets the file meta elements a Part 10 stream requires
func fillMeta(ds *dataset.DataSet) error {
	if err := ds.SetString(tag.TransferSyntaxUID, string(ds.TransferSyntax())); err != nil {
		return err
	}
	if !ds.BufferExists(tag.FileMetaInformationVersion, 0) {
		if err := ds.SetBytes(tag.FileMetaInformationVersion, 0, vr.OB, []byte{0x00, 0x01}); err != nil {
			return err
		}
	}
	for _, m := range []struct{ meta, src tag.Tag }{
		{tag.MediaStorageSOPClassUID, tag.SOPClassUID},
		{tag.MediaStorageSOPInstanceUID, tag.SOPInstanceUID},
	} {
		if ds.BufferExists(m.meta, 0) {
			continue
		}
		if uid, err := ds.GetString(m.src, 0); err == nil {
			if err := ds.SetString(m.meta, uid); err != nil {
				return err
			}
		}
	}
	for _, m := range []struct {
		t tag.Tag
		v string
	}{
		{tag.ImplementationClassUID, ImplementationClassUID},
		{tag.ImplementationVersionName, ImplementationVersionName},
	} {
		if ds.BufferExists(m.t, 0) {
			continue
		}
		if err := ds.SetString(m.t, m.v); err != nil {
			return err
		}
	}
	return nil
}

// writeMeta writes group 0002 in explicit VR little endian behind a freshly
// computed group length
func writeMeta(w io.Writer, ds *dataset.DataSet) error {
	var body bytes.Buffer
	enc := &encoder{cw: &CountingWriter{Writer: &body}}
	for _, id := range ds.GetTags() {
		t := id.Tag()
		if t.Group != 0x0002 || t.IsGroupLength() || id.Order > 0 {
			continue
		}
		e, err := ds.GetTag(id)
		if err != nil {
			return err
		}
		swap := !ds.TransferSyntax().IsLittleEndian()
		if err := enc.writeValue(e, transfer.ExplicitVRLittleEndian, swap); err != nil {
			return dcmerr.Wrap(err, "%s", id)
		}
	}
	if err := ds.SetUint32(tag.FileMetaInformationGroupLength, uint32(body.Len())); err != nil {
		return err
	}
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(body.Len()))
	if err := writeHeader(w, tag.FileMetaInformationGroupLength, vr.UL, 4, transfer.ExplicitVRLittleEndian); err != nil {
		return err
	}
	if _, err := w.Write(length); err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamWrite, "file meta")
	}
	if _, err := body.WriteTo(w); err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamWrite, "file meta")
	}
	return nil
}

// writeHeader writes a tag followed by its VR and length as ts lays them out
func writeHeader(w io.Writer, t tag.Tag, v vr.VR, length uint32, ts transfer.Syntax) error {
	order := ts.ByteOrder()
	buf := make([]byte, 4, 12)
	order.PutUint16(buf, t.Group)
	order.PutUint16(buf[2:], t.Element)
	switch {
	case !ts.IsExplicitVR() || t.Group == tag.Item.Group:
		buf = buf[:8]
		order.PutUint32(buf[4:], length)
	case v.IsExplicitLength():
		if length > 0xFFFF {
			return dcmerr.New(dcmerr.CodecWrongFormat, "%s: %d bytes do not fit VR %s", t, length, v)
		}
		buf = append(buf, v[0], v[1], 0, 0)
		order.PutUint16(buf[6:], uint16(length))
	default:
		buf = append(buf, v[0], v[1], 0, 0, 0, 0, 0, 0)
		order.PutUint32(buf[8:], length)
	}
	if _, err := w.Write(buf); err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamWrite, "element header")
	}
	return nil
}

// encoder writes data set bodies, tracking item offsets
type encoder struct {
	cw *CountingWriter
}

// writeDataSet writes every element of ds. Pixel data inside items stays
// native unless it was stored as fragments.
func (enc *encoder) writeDataSet(ds *dataset.DataSet, ts transfer.Syntax, nested bool) error {
	swap := ts.IsLittleEndian() != ds.TransferSyntax().IsLittleEndian()
	for _, id := range ds.GetTags() {
		t := id.Tag()
		if t.Group == 0x0002 || t.IsGroupLength() {
			continue
		}
		e, err := ds.GetTag(id)
		if err != nil {
			return err
		}
		switch {
		case e.VR() == vr.SQ:
			err = enc.writeSequence(e, ts)
		case t == tag.PixelData && ts.IsEncapsulated() && (!nested || e.BufferCount() > 1):
			err = enc.writeFragments(e, ts)
		default:
			err = enc.writeValue(e, ts, swap)
		}
		if err != nil {
			return dcmerr.Wrap(err, "%s", id)
		}
	}
	return nil
}

// writeValue writes buffer 0, padded to an even length
func (enc *encoder) writeValue(e *dataset.Element, ts transfer.Syntax, swap bool) error {
	v := e.VR()
	t := e.ID().Tag()
	b, err := e.Buffer(0)
	if err != nil {
		if !dcmerr.IsMissingDataElement(err) {
			return err
		}
		return writeHeader(enc.cw, t, v, 0, ts)
	}
	size := b.Size()
	pad := size % 2
	if size+pad >= undefinedLength {
		return dcmerr.New(dcmerr.CodecImageTooBig, "%s: %d bytes", t, size)
	}
	if err := writeHeader(enc.cw, t, v, uint32(size+pad), ts); err != nil {
		return err
	}
	if swap && v.WordSize() > 1 {
		raw, err := b.Bytes()
		if err != nil {
			return err
		}
		swapBytes(raw, v.WordSize())
		if _, err := enc.cw.Write(raw); err != nil {
			return dcmerr.FromIO(err, dcmerr.StreamWrite, "value")
		}
	} else if _, err := io.Copy(enc.cw, b.Reader()); err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamWrite, "value")
	}
	if pad == 1 {
		if _, err := enc.cw.Write([]byte{v.PaddingByte()}); err != nil {
			return dcmerr.FromIO(err, dcmerr.StreamWrite, "padding")
		}
	}
	return nil
}

// writeSequence writes items of undefined length closed by delimiters
func (enc *encoder) writeSequence(e *dataset.Element, ts transfer.Syntax) error {
	if err := writeHeader(enc.cw, e.ID().Tag(), vr.SQ, undefinedLength, ts); err != nil {
		return err
	}
	for _, item := range e.SequenceItems() {
		item.SetItemOffset(enc.cw.Count.Load())
		if err := writeHeader(enc.cw, tag.Item, "", undefinedLength, ts); err != nil {
			return err
		}
		if err := enc.writeDataSet(item, ts, true); err != nil {
			return err
		}
		if err := writeHeader(enc.cw, tag.ItemDelimitationItem, "", 0, ts); err != nil {
			return err
		}
	}
	return writeHeader(enc.cw, tag.SequenceDelimitationItem, "", 0, ts)
}

// writeFragments writes encapsulated pixel data: the offset table item then
// one item per fragment
func (enc *encoder) writeFragments(e *dataset.Element, ts transfer.Syntax) error {
	if err := writeHeader(enc.cw, e.ID().Tag(), vr.OB, undefinedLength, ts); err != nil {
		return err
	}
	ids := e.BufferIDs()
	if len(ids) == 0 || ids[0] != 0 {
		if err := writeHeader(enc.cw, tag.Item, "", 0, ts); err != nil {
			return err
		}
	}
	for _, id := range ids {
		b, err := e.Buffer(id)
		if err != nil {
			return err
		}
		size := b.Size()
		pad := size % 2
		if err := writeHeader(enc.cw, tag.Item, "", uint32(size+pad), ts); err != nil {
			return err
		}
		if _, err := io.Copy(enc.cw, b.Reader()); err != nil {
			return dcmerr.FromIO(err, dcmerr.StreamWrite, "fragment")
		}
		if pad == 1 {
			if _, err := enc.cw.Write([]byte{0}); err != nil {
				return dcmerr.FromIO(err, dcmerr.StreamWrite, "padding")
			}
		}
	}
	return writeHeader(enc.cw, tag.SequenceDelimitationItem, "", 0, ts)
}
