package handlers

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// numericCore stores fixed width binary values in the buffer byte order
type numericCore struct {
	vr    vr.VR
	width int
	kind  numKind
	order binary.ByteOrder
	buf   []byte
}

func numericLayout(v vr.VR) (width int, kind numKind) {
	switch v {
	case vr.OB, vr.UN:
		return 1, numUint
	case vr.SB:
		return 1, numInt
	case vr.US, vr.OW:
		return 2, numUint
	case vr.SS:
		return 2, numInt
	case vr.UL, vr.OL:
		return 4, numUint
	case vr.SL:
		return 4, numInt
	case vr.UV, vr.OV:
		return 8, numUint
	case vr.SV:
		return 8, numInt
	case vr.FL, vr.OF:
		return 4, numFloat
	default: // FD, OD
		return 8, numFloat
	}
}

func newNumericCore(v vr.VR, raw []byte, order binary.ByteOrder) (*numericCore, error) {
	width, kind := numericLayout(v)
	if len(raw)%width != 0 {
		return nil, dcmerr.New(dcmerr.DataHandlerCorruptedBuffer, "%d bytes is not a multiple of the %s word size %d", len(raw), v, width)
	}
	return &numericCore{vr: v, width: width, kind: kind, order: order, buf: append([]byte(nil), raw...)}, nil
}

func (c *numericCore) size() int { return len(c.buf) / c.width }

func (c *numericCore) resize(n int) {
	want := n * c.width
	if want <= len(c.buf) {
		c.buf = c.buf[:want]
		return
	}
	c.buf = append(c.buf, make([]byte, want-len(c.buf))...)
}

func (c *numericCore) number(i int) (number, error) {
	b := c.buf[i*c.width : (i+1)*c.width]
	switch c.width {
	case 1:
		if c.kind == numInt {
			return intNum(int64(int8(b[0]))), nil
		}
		return uintNum(uint64(b[0])), nil
	case 2:
		v := c.order.Uint16(b)
		if c.kind == numInt {
			return intNum(int64(int16(v))), nil
		}
		return uintNum(uint64(v)), nil
	case 4:
		v := c.order.Uint32(b)
		switch c.kind {
		case numInt:
			return intNum(int64(int32(v))), nil
		case numFloat:
			return floatNum(float64(math.Float32frombits(v))), nil
		}
		return uintNum(uint64(v)), nil
	default:
		v := c.order.Uint64(b)
		switch c.kind {
		case numInt:
			return intNum(int64(v)), nil
		case numFloat:
			return floatNum(math.Float64frombits(v)), nil
		}
		return uintNum(v), nil
	}
}

func (c *numericCore) setNumber(i int, n number) error {
	b := c.buf[i*c.width : (i+1)*c.width]
	switch c.kind {
	case numFloat:
		f := n.float64()
		if c.width == 4 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return conversionError("%g overflows %s", f, c.vr)
			}
			c.order.PutUint32(b, math.Float32bits(float32(f)))
			return nil
		}
		c.order.PutUint64(b, math.Float64bits(f))
		return nil
	case numInt:
		bits := uint(c.width * 8)
		lo := int64(-1) << (bits - 1)
		hi := -(lo + 1)
		v, err := n.signed(lo, hi)
		if err != nil {
			return err
		}
		c.put(b, uint64(v))
		return nil
	default:
		hi := uint64(math.MaxUint64)
		if c.width < 8 {
			hi = uint64(1)<<(uint(c.width)*8) - 1
		}
		v, err := n.unsigned(hi)
		if err != nil {
			return err
		}
		c.put(b, v)
		return nil
	}
}

func (c *numericCore) put(b []byte, v uint64) {
	switch c.width {
	case 1:
		b[0] = byte(v)
	case 2:
		c.order.PutUint16(b, uint16(v))
	case 4:
		c.order.PutUint32(b, uint32(v))
	default:
		c.order.PutUint64(b, v)
	}
}

func (c *numericCore) text(i int) (string, error) {
	n, err := c.number(i)
	if err != nil {
		return "", err
	}
	if n.kind == numFloat && c.width == 4 {
		return strconv.FormatFloat(n.f, 'g', -1, 32), nil
	}
	return n.String(), nil
}

func (c *numericCore) setText(i int, s string) error {
	n, err := parseNumber(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	return c.setNumber(i, n)
}

func (c *numericCore) encode(Params) ([]byte, error) {
	return append([]byte(nil), c.buf...), nil
}

// atCore holds attribute tags as (group, element) word pairs
type atCore struct {
	order binary.ByteOrder
	buf   []byte
}

func newATCore(raw []byte, order binary.ByteOrder) (*atCore, error) {
	if len(raw)%4 != 0 {
		return nil, dcmerr.New(dcmerr.DataHandlerCorruptedBuffer, "%d bytes is not a list of tags", len(raw))
	}
	return &atCore{order: order, buf: append([]byte(nil), raw...)}, nil
}

func (c *atCore) size() int { return len(c.buf) / 4 }

func (c *atCore) resize(n int) {
	want := n * 4
	if want <= len(c.buf) {
		c.buf = c.buf[:want]
		return
	}
	c.buf = append(c.buf, make([]byte, want-len(c.buf))...)
}

func (c *atCore) number(i int) (number, error) {
	g := c.order.Uint16(c.buf[i*4:])
	e := c.order.Uint16(c.buf[i*4+2:])
	return uintNum(uint64(g)<<16 | uint64(e)), nil
}

func (c *atCore) setNumber(i int, n number) error {
	v, err := n.unsigned(math.MaxUint32)
	if err != nil {
		return err
	}
	c.order.PutUint16(c.buf[i*4:], uint16(v>>16))
	c.order.PutUint16(c.buf[i*4+2:], uint16(v))
	return nil
}

func (c *atCore) text(i int) (string, error) {
	n, _ := c.number(i)
	return fmt.Sprintf("%08X", n.u), nil
}

func (c *atCore) setText(i int, s string) error {
	s = strings.NewReplacer("(", "", ")", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return conversionError("%q is not a tag", s)
	}
	return c.setNumber(i, uintNum(v))
}

func (c *atCore) encode(Params) ([]byte, error) {
	return append([]byte(nil), c.buf...), nil
}
