package codec

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
)

// stream is the buffered input of the decoder. It tracks the position of
// the next unread byte and, when the source can seek, skips values without
// reading them.
type stream struct {
	br     *bufio.Reader
	src    io.Reader
	seeker io.Seeker
	pos    int64
}

// newStream reads src from its current position. A non nil seeker must
// address the same bytes as src with src's first byte at offset 0.
func newStream(src io.Reader, seeker io.Seeker) *stream {
	return &stream{br: bufio.NewReader(src), src: src, seeker: seeker}
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.pos += int64(n)
	return n, err
}

// peek returns up to n bytes without consuming them
func (s *stream) peek(n int) []byte {
	b, _ := s.br.Peek(n)
	return b
}

func (s *stream) full(p []byte, what string) error {
	if _, err := io.ReadFull(s, p); err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamRead, what)
	}
	return nil
}

func (s *stream) uint16(order binary.ByteOrder) (uint16, error) {
	var b [2]byte
	if err := s.full(b[:], "reading uint16"); err != nil {
		return 0, err
	}
	return order.Uint16(b[:]), nil
}

func (s *stream) uint32(order binary.ByteOrder) (uint32, error) {
	var b [4]byte
	if err := s.full(b[:], "reading uint32"); err != nil {
		return 0, err
	}
	return order.Uint32(b[:]), nil
}

// tag reads a group/element pair. A clean end of input before the first
// byte is returned as a bare io.EOF.
func (s *stream) tag(order binary.ByteOrder) (tag.Tag, error) {
	var b [4]byte
	n, err := io.ReadFull(s, b[:])
	if n == 0 && err == io.EOF {
		return tag.Tag{}, io.EOF
	}
	if err != nil {
		return tag.Tag{}, dcmerr.FromIO(err, dcmerr.StreamRead, "reading tag")
	}
	return tag.Tag{Group: order.Uint16(b[:2]), Element: order.Uint16(b[2:])}, nil
}

// bytes reads exactly n bytes without trusting n for the allocation
func (s *stream) bytes(n int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(s, n))
	if err != nil {
		return nil, dcmerr.FromIO(err, dcmerr.StreamRead, "reading value")
	}
	if int64(len(raw)) < n {
		return nil, dcmerr.New(dcmerr.StreamEOF, "value of %d bytes truncated at %d", n, len(raw))
	}
	return raw, nil
}

// skip advances n bytes, seeking past whatever is not buffered yet
func (s *stream) skip(n int64) error {
	if s.seeker != nil && n > int64(s.br.Buffered()) {
		if _, err := s.seeker.Seek(s.pos+n, io.SeekStart); err != nil {
			return dcmerr.FromIO(err, dcmerr.StreamRead, "seeking")
		}
		s.br.Reset(s.src)
		s.pos += n
		return nil
	}
	m, err := io.CopyN(io.Discard, s, n)
	if err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamRead, "skipping value")
	}
	if m < n {
		return dcmerr.New(dcmerr.StreamEOF, "skipped %d of %d bytes", m, n)
	}
	return nil
}

// replace swaps the source for one decoding the rest of the current input,
// as with a deflated body
func (s *stream) replace(wrap func(io.Reader) io.Reader) {
	s.src = wrap(s.br)
	s.br = bufio.NewReader(s.src)
	s.seeker = nil
	s.pos = 0
}

// CountingWriter counts the bytes written through it
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.Count.Add(int64(n))
	return n, err
}
