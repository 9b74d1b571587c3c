package dataset

import (
	"bytes"
	"io"
	"sync"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
)

// Buffer holds one value of an element in the byte order of its data set.
// The bytes live either in memory or in a region of an external stream
// that is read on demand.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	ext  *region
}

type region struct {
	r      io.ReaderAt
	offset int64
	length int64
}

// Size of the value in bytes
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ext != nil {
		return b.ext.length
	}
	return int64(len(b.data))
}

// IsExternal reports a buffer that still reads from its stream
func (b *Buffer) IsExternal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ext != nil
}

// Bytes returns a copy of the value, loading it from the stream when needed
func (b *Buffer) Bytes() ([]byte, error) {
	b.mu.Lock()
	ext, data := b.ext, b.data
	b.mu.Unlock()
	if ext == nil {
		return append([]byte(nil), data...), nil
	}
	out := make([]byte, ext.length)
	n, err := ext.r.ReadAt(out, ext.offset)
	if n < len(out) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, dcmerr.FromIO(err, dcmerr.StreamRead, "external buffer")
	}
	return out, nil
}

// ReadAt reads part of the value without loading the rest
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	ext, data := b.ext, b.data
	b.mu.Unlock()
	if ext == nil {
		if off >= int64(len(data)) {
			return 0, io.EOF
		}
		n := copy(p, data[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil
	}
	if off >= ext.length {
		return 0, io.EOF
	}
	want := p
	if remain := ext.length - off; int64(len(want)) > remain {
		want = want[:remain]
	}
	n, err := ext.r.ReadAt(want, ext.offset+off)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

// Reader streams the value
func (b *Buffer) Reader() io.Reader {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ext != nil {
		return io.NewSectionReader(b.ext.r, b.ext.offset, b.ext.length)
	}
	return bytes.NewReader(append([]byte(nil), b.data...))
}

// SetBytes replaces the value, detaching the buffer from its stream
func (b *Buffer) SetBytes(raw []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), raw...)
	b.ext = nil
}

// setExternal points the buffer at a stream region
func (b *Buffer) setExternal(r io.ReaderAt, offset, length int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.ext = &region{r: r, offset: offset, length: length}
}
