// Package codec reads and writes DICOM Part 10 streams: the optional 128
// byte preamble and DICM marker, the file meta group in explicit VR little
// endian, then the data set body in the declared transfer syntax.
package codec

import (
	"bufio"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"os"

	_ "github.com/jpfielding/dicomkit/pkg/compress/rle"
	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
	"github.com/klauspost/compress/flate"
)

const (
	undefinedLength = 0xFFFFFFFF
	preambleSize    = 128
	magic           = "DICM"
)

// decoder reads one stream into a data set
type decoder struct {
	s   *stream
	ra  io.ReaderAt
	cfg *config
}

type metaElement struct {
	t   tag.Tag
	v   vr.VR
	raw []byte
}

// Parse reads a whole stream into memory
func Parse(r io.Reader, opts ...Option) (*dataset.DataSet, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	d := &decoder{s: newStream(r, nil), cfg: cfg}
	return d.decode()
}

// Load reads a data set from r, leaving values above the lazy threshold in
// r. Those values are read on demand, so r must stay usable as long as the
// data set is.
func Load(r io.ReaderAt, opts ...Option) (*dataset.DataSet, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	sr := io.NewSectionReader(r, 0, math.MaxInt64)
	d := &decoder{s: newStream(sr, sr), ra: r, cfg: cfg}
	return d.decode()
}

// Open loads a file lazily. The closer releases the file once the data set
// is no longer needed.
func Open(path string, opts ...Option) (*dataset.DataSet, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, dcmerr.FromIO(err, dcmerr.StreamOpen, path)
	}
	ds, err := Load(f, opts...)
	if err != nil {
		f.Close()
		return nil, nil, dcmerr.Wrap(err, "%s", path)
	}
	return ds, f, nil
}

// ReadFile loads a file completely and closes it
func ReadFile(path string, opts ...Option) (*dataset.DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dcmerr.FromIO(err, dcmerr.StreamOpen, path)
	}
	defer f.Close()
	ds, err := Parse(bufio.NewReader(f), opts...)
	if err != nil {
		return nil, dcmerr.Wrap(err, "%s", path)
	}
	return ds, nil
}

func (d *decoder) decode() (*dataset.DataSet, error) {
	if err := d.preamble(); err != nil {
		return nil, err
	}
	meta, err := d.readMeta()
	if err != nil {
		return nil, dcmerr.Wrap(err, "file meta")
	}
	ts := d.guessSyntax()
	for _, m := range meta {
		if m.t == tag.TransferSyntaxUID {
			ts = transfer.FromUID(string(m.raw))
		}
	}
	if !ts.IsKnown() {
		return nil, dcmerr.New(dcmerr.DataSetUnknownTransferSyntax, "transfer syntax %q", string(ts))
	}
	ds, err := dataset.New(ts, d.cfg.dsOpts...)
	if err != nil {
		return nil, err
	}
	for _, m := range meta {
		if !ts.IsLittleEndian() {
			swapBytes(m.raw, m.v.WordSize())
		}
		if err := ds.SetBytes(m.t, 0, m.v, m.raw); err != nil {
			return nil, err
		}
	}
	if ts.IsDeflated() {
		d.s.replace(func(r io.Reader) io.Reader { return flate.NewReader(r) })
		d.ra = nil
	}
	if err := d.readDataSet(ds, ts, -1, 0); err != nil {
		return nil, err
	}
	slog.Debug("loaded data set",
		slog.String("syntax", ts.Name()),
		slog.Int("elements", len(ds.GetTags())),
		slog.Bool("lazy", d.ra != nil && d.cfg.lazyThreshold > 0))
	return ds, nil
}

// preamble consumes the preamble and marker. Streams that start with the
// marker or with a bare data set are accepted too.
func (d *decoder) preamble() error {
	head := d.s.peek(preambleSize + len(magic))
	switch {
	case len(head) == preambleSize+len(magic) && string(head[preambleSize:]) == magic:
		return d.s.skip(int64(len(head)))
	case len(head) >= len(magic) && string(head[:len(magic)]) == magic:
		return d.s.skip(int64(len(magic)))
	case len(head) < 8:
		return dcmerr.New(dcmerr.CodecWrongFormat, "stream too short for a data set (%d bytes)", len(head))
	}
	return nil
}

// readMeta collects the group 0002 elements, always explicit VR little endian
func (d *decoder) readMeta() ([]metaElement, error) {
	var meta []metaElement
	for {
		b := d.s.peek(2)
		if len(b) < 2 || binary.LittleEndian.Uint16(b) != 0x0002 {
			return meta, nil
		}
		t, err := d.s.tag(binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		v, length, err := d.header(t, transfer.ExplicitVRLittleEndian)
		if err != nil {
			return nil, err
		}
		if length == undefinedLength {
			return nil, dcmerr.New(dcmerr.CodecCorruptedFile, "%s with undefined length", t)
		}
		raw, err := d.s.bytes(int64(length))
		if err != nil {
			return nil, err
		}
		meta = append(meta, metaElement{t: t, v: v, raw: raw})
	}
}

// guessSyntax picks the syntax of a stream without file meta: the
// configured default, else explicit VR when the first element carries a VR
func (d *decoder) guessSyntax() transfer.Syntax {
	if d.cfg.syntax != "" {
		return d.cfg.syntax
	}
	b := d.s.peek(6)
	if len(b) == 6 && isUpper(b[4]) && isUpper(b[5]) {
		if _, ok := vr.Parse(string(b[4:6])); ok {
			return transfer.ExplicitVRLittleEndian
		}
	}
	return transfer.ImplicitVRLittleEndian
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// header reads the VR and length that follow a tag
func (d *decoder) header(t tag.Tag, ts transfer.Syntax) (vr.VR, uint32, error) {
	order := ts.ByteOrder()
	if !ts.IsExplicitVR() {
		n, err := d.s.uint32(order)
		return d.cfg.dict.VR(t), n, err
	}
	var code [2]byte
	if err := d.s.full(code[:], "reading VR"); err != nil {
		return "", 0, err
	}
	v, ok := vr.Parse(string(code[:]))
	if !ok {
		return "", 0, dcmerr.New(dcmerr.CodecCorruptedFile, "%s has unknown VR %q", t, code[:])
	}
	if v.IsExplicitLength() {
		n, err := d.s.uint16(order)
		return v, uint32(n), err
	}
	var reserved [2]byte
	if err := d.s.full(reserved[:], "reading reserved bytes"); err != nil {
		return "", 0, err
	}
	n, err := d.s.uint32(order)
	return v, n, err
}

// readDataSet fills ds with elements encoded in ts. It stops at end (an
// absolute stream position), at an item delimiter when end is negative, or
// at the end of input for the top level data set.
func (d *decoder) readDataSet(ds *dataset.DataSet, ts transfer.Syntax, end int64, depth int) error {
	order := ts.ByteOrder()
	swap := ts.IsLittleEndian() != ds.TransferSyntax().IsLittleEndian()
	orders := map[uint16]uint32{}
	for end < 0 || d.s.pos < end {
		t, err := d.s.tag(order)
		if err == io.EOF {
			if depth == 0 && end < 0 {
				return nil
			}
			return dcmerr.New(dcmerr.StreamEOF, "input ended inside an item")
		}
		if err != nil {
			return err
		}
		if t == tag.ItemDelimitationItem {
			_, err := d.s.uint32(order)
			return err
		}
		if t.Group == tag.Item.Group {
			return dcmerr.New(dcmerr.CodecCorruptedFile, "unexpected %s in data set", t)
		}
		v, length, err := d.header(t, ts)
		if err != nil {
			return dcmerr.Wrap(err, "%s", t)
		}
		id := tag.ID{Group: t.Group, Order: orders[t.Group], Element: t.Element}
		if _, err := ds.GetTag(id); err == nil {
			orders[t.Group]++
			id.Order++
		}
		if err := d.readValue(ds, id, v, length, ts, swap, depth); err != nil {
			return dcmerr.Wrap(err, "%s", id)
		}
	}
	return nil
}

func (d *decoder) readValue(ds *dataset.DataSet, id tag.ID, v vr.VR, length uint32, ts transfer.Syntax, swap bool, depth int) error {
	undefined := length == undefinedLength
	switch {
	case undefined && id.Tag() == tag.PixelData:
		return d.readFragments(ds, id, v, ts)
	case v == vr.SQ:
		return d.readSequence(ds, id, length, ts, depth)
	case undefined && v == vr.UN:
		// UN of undefined length is a sequence in implicit VR little endian
		return d.readSequence(ds, id, length, transfer.ImplicitVRLittleEndian, depth)
	case undefined:
		return dcmerr.New(dcmerr.CodecCorruptedFile, "undefined length for VR %s", v)
	}
	if !swap {
		deferred, err := d.deferValue(length, func(r io.ReaderAt, off, n int64) error {
			return ds.SetExternalStream(id, 0, v, r, off, n)
		})
		if deferred || err != nil {
			return err
		}
	}
	raw, err := d.s.bytes(int64(length))
	if err != nil {
		return err
	}
	if swap {
		swapBytes(raw, v.WordSize())
	}
	return ds.SetBytes(id, 0, v, raw)
}

// deferValue leaves a value of length bytes in the source when lazy loading
// applies, attaching it through attach and skipping past it
func (d *decoder) deferValue(length uint32, attach func(io.ReaderAt, int64, int64) error) (bool, error) {
	if d.ra == nil || d.cfg.lazyThreshold <= 0 || int64(length) <= d.cfg.lazyThreshold {
		return false, nil
	}
	var probe [1]byte
	if n, _ := d.ra.ReadAt(probe[:], d.s.pos+int64(length)-1); n != 1 {
		return true, dcmerr.New(dcmerr.StreamEOF, "value of %d bytes at %d runs past the end", length, d.s.pos)
	}
	if err := attach(d.ra, d.s.pos, int64(length)); err != nil {
		return true, err
	}
	return true, d.s.skip(int64(length))
}

func (d *decoder) readSequence(ds *dataset.DataSet, id tag.ID, length uint32, ts transfer.Syntax, depth int) error {
	if depth >= d.cfg.maxDepth {
		return dcmerr.New(dcmerr.CodecDepthLimitReached, "sequences nested deeper than %d", d.cfg.maxDepth)
	}
	if _, err := ds.GetTagCreate(id, vr.SQ); err != nil {
		return err
	}
	order := ts.ByteOrder()
	end := int64(-1)
	if length != undefinedLength {
		end = d.s.pos + int64(length)
	}
	for n := 0; end < 0 || d.s.pos < end; n++ {
		start := d.s.pos
		t, err := d.s.tag(order)
		if err == io.EOF {
			return dcmerr.New(dcmerr.StreamEOF, "sequence not terminated")
		}
		if err != nil {
			return err
		}
		itemLength, err := d.s.uint32(order)
		if err != nil {
			return err
		}
		switch t {
		case tag.SequenceDelimitationItem:
			return nil
		case tag.Item:
			item, err := ds.AppendSequenceItem(id)
			if err != nil {
				return err
			}
			item.SetItemOffset(start)
			itemEnd := int64(-1)
			if itemLength != undefinedLength {
				itemEnd = d.s.pos + int64(itemLength)
			}
			if err := d.readDataSet(item, ts, itemEnd, depth+1); err != nil {
				return dcmerr.Wrap(err, "item %d", n)
			}
		default:
			return dcmerr.New(dcmerr.CodecCorruptedFile, "unexpected %s in sequence", t)
		}
	}
	return nil
}

// readFragments reads encapsulated pixel data: buffer 0 holds the basic
// offset table and every following buffer one fragment
func (d *decoder) readFragments(ds *dataset.DataSet, id tag.ID, v vr.VR, ts transfer.Syntax) error {
	e, err := ds.GetTagCreate(id, v)
	if err != nil {
		return err
	}
	order := ts.ByteOrder()
	for n := uint32(0); ; n++ {
		t, err := d.s.tag(order)
		if err == io.EOF {
			return dcmerr.New(dcmerr.StreamEOF, "encapsulated pixel data not terminated")
		}
		if err != nil {
			return err
		}
		length, err := d.s.uint32(order)
		if err != nil {
			return err
		}
		if t == tag.SequenceDelimitationItem {
			return nil
		}
		if t != tag.Item || length == undefinedLength {
			return dcmerr.New(dcmerr.CodecCorruptedFile, "%s in encapsulated pixel data", t)
		}
		deferred, err := d.deferValue(length, func(r io.ReaderAt, off, size int64) error {
			e.SetExternalStream(n, r, off, size)
			return nil
		})
		if err != nil {
			return err
		}
		if deferred {
			continue
		}
		raw, err := d.s.bytes(int64(length))
		if err != nil {
			return err
		}
		e.BufferCreate(n).SetBytes(raw)
	}
}

// swapBytes reverses every word of size bytes in place
func swapBytes(b []byte, size int) {
	if size < 2 {
		return
	}
	for i := 0; i+size <= len(b); i += size {
		for l, r := i, i+size-1; l < r; l, r = l+1, r-1 {
			b[l], b[r] = b[r], b[l]
		}
	}
}
