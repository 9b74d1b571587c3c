// Package handlers converts the raw bytes of a buffer into typed values and
// back. A handler is built for one VR; reading handlers are snapshots of the
// bytes they were built from, writing handlers start empty and hand their
// encoded bytes to the owner on Commit.
//
// Handlers are not safe for concurrent use.
package handlers

import (
	"encoding/binary"
	"math"

	"github.com/jpfielding/dicomkit/pkg/dicom/charset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// Params carries the buffer context a handler needs
type Params struct {
	Order    binary.ByteOrder
	Charsets []string
	Backend  charset.Backend
}

func (p Params) order() binary.ByteOrder {
	if p.Order == nil {
		return binary.LittleEndian
	}
	return p.Order
}

// Reading exposes the values of a buffer
type Reading interface {
	VR() vr.VR
	Size() int
	GetInt64(i int) (int64, error)
	GetUint64(i int) (uint64, error)
	GetInt32(i int) (int32, error)
	GetUint32(i int) (uint32, error)
	GetInt16(i int) (int16, error)
	GetUint16(i int) (uint16, error)
	GetInt8(i int) (int8, error)
	GetUint8(i int) (uint8, error)
	GetDouble(i int) (float64, error)
	GetFloat(i int) (float32, error)
	GetString(i int) (string, error)
	GetUnicodeString(i int) (string, error)
	GetDate(i int) (Date, error)
	GetAge(i int) (Age, error)
	GetPatientName(i int) (PersonName, error)
	GetUnicodePatientName(i int) (PersonName, error)
	// Bytes returns a copy of the encoded value
	Bytes() []byte
}

// Writing builds new content for a buffer. Setting an index past the end
// grows the value.
type Writing interface {
	VR() vr.VR
	Size() int
	SetSize(n int)
	SetInt64(i int, v int64) error
	SetUint64(i int, v uint64) error
	SetInt32(i int, v int32) error
	SetUint32(i int, v uint32) error
	SetInt16(i int, v int16) error
	SetUint16(i int, v uint16) error
	SetInt8(i int, v int8) error
	SetUint8(i int, v uint8) error
	SetDouble(i int, v float64) error
	SetFloat(i int, v float32) error
	SetString(i int, v string) error
	SetUnicodeString(i int, v string) error
	SetDate(i int, v Date) error
	SetAge(i int, v Age) error
	SetPatientName(i int, v PersonName) error
	SetUnicodePatientName(i int, v PersonName) error
	// SetBytes replaces the whole value with already encoded bytes
	SetBytes(raw []byte) error
	// Commit encodes the values and replaces the buffer content
	Commit() error
	// Close is Commit, so writers can be deferred
	Close() error
}

// core is one VR family
type core interface {
	size() int
	resize(n int)
	number(i int) (number, error)
	setNumber(i int, n number) error
	text(i int) (string, error)
	setText(i int, s string) error
	encode(p Params) ([]byte, error)
}

type dater interface {
	date(i int) (Date, error)
	setDate(i int, d Date) error
}

type ager interface {
	age(i int) (Age, error)
	setAge(i int, a Age) error
}

type namer interface {
	personName(i int) (PersonName, error)
	setPersonName(i int, p PersonName) error
}

type handler struct {
	vr     vr.VR
	params Params
	c      core
	raw    []byte
	commit func([]byte) error
	done   bool
}

// NewReading decodes raw into a reading handler for v
func NewReading(v vr.VR, raw []byte, p Params) (Reading, error) {
	c, err := decode(v, raw, p)
	if err != nil {
		return nil, err
	}
	return &handler{vr: v, params: p, c: c, raw: raw}, nil
}

// NewWriting creates an empty writing handler for v. commit receives the
// encoded, even-length bytes.
func NewWriting(v vr.VR, p Params, commit func([]byte) error) (Writing, error) {
	c, err := decode(v, nil, p)
	if err != nil {
		return nil, err
	}
	return &handler{vr: v, params: p, c: c, commit: commit}, nil
}

func decode(v vr.VR, raw []byte, p Params) (core, error) {
	switch {
	case v == vr.SQ:
		return nil, conversionError("sequence %s has no data handler", v)
	case v == vr.AT:
		return newATCore(raw, p.order())
	case v.IsString():
		return newStringFamily(v, raw, p)
	case v.IsBinary():
		return newNumericCore(v, raw, p.order())
	default:
		return nil, dcmerr.New(dcmerr.DictionaryUnknownDataType, "unknown VR %q", string(v))
	}
}

func (h *handler) VR() vr.VR { return h.vr }
func (h *handler) Size() int { return h.c.size() }

func (h *handler) SetSize(n int) {
	if n < 0 {
		n = 0
	}
	h.c.resize(n)
}

func (h *handler) check(i int) error {
	if i < 0 || i >= h.c.size() {
		return dcmerr.New(dcmerr.MissingItem, "value %d of %d in %s", i, h.c.size(), h.vr)
	}
	return nil
}

func (h *handler) grow(i int) error {
	if i < 0 {
		return dcmerr.New(dcmerr.MissingItem, "negative index %d", i)
	}
	if i >= h.c.size() {
		h.c.resize(i + 1)
	}
	return nil
}

func (h *handler) num(i int) (number, error) {
	if err := h.check(i); err != nil {
		return number{}, err
	}
	return h.c.number(i)
}

func (h *handler) GetInt64(i int) (int64, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	return n.int64()
}

func (h *handler) GetUint64(i int) (uint64, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	return n.uint64()
}

func (h *handler) GetInt32(i int) (int32, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	v, err := n.signed(math.MinInt32, math.MaxInt32)
	return int32(v), err
}

func (h *handler) GetUint32(i int) (uint32, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	v, err := n.unsigned(math.MaxUint32)
	return uint32(v), err
}

func (h *handler) GetInt16(i int) (int16, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	v, err := n.signed(math.MinInt16, math.MaxInt16)
	return int16(v), err
}

func (h *handler) GetUint16(i int) (uint16, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	v, err := n.unsigned(math.MaxUint16)
	return uint16(v), err
}

func (h *handler) GetInt8(i int) (int8, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	v, err := n.signed(math.MinInt8, math.MaxInt8)
	return int8(v), err
}

func (h *handler) GetUint8(i int) (uint8, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	v, err := n.unsigned(math.MaxUint8)
	return uint8(v), err
}

func (h *handler) GetDouble(i int) (float64, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	return n.float64(), nil
}

func (h *handler) GetFloat(i int) (float32, error) {
	n, err := h.num(i)
	if err != nil {
		return 0, err
	}
	f := n.float64()
	if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return 0, conversionError("%g overflows float32", f)
	}
	return float32(f), nil
}

func (h *handler) GetString(i int) (string, error) {
	if err := h.check(i); err != nil {
		return "", err
	}
	return h.c.text(i)
}

// GetUnicodeString is GetString: unicode VRs are decoded with the data set
// charsets when the handler is built
func (h *handler) GetUnicodeString(i int) (string, error) {
	return h.GetString(i)
}

func (h *handler) GetDate(i int) (Date, error) {
	d, ok := h.c.(dater)
	if !ok {
		return Date{}, conversionError("%s does not hold dates", h.vr)
	}
	if err := h.check(i); err != nil {
		return Date{}, err
	}
	return d.date(i)
}

func (h *handler) GetAge(i int) (Age, error) {
	a, ok := h.c.(ager)
	if !ok {
		return Age{}, conversionError("%s does not hold ages", h.vr)
	}
	if err := h.check(i); err != nil {
		return Age{}, err
	}
	return a.age(i)
}

func (h *handler) GetPatientName(i int) (PersonName, error) {
	p, ok := h.c.(namer)
	if !ok {
		return PersonName{}, conversionError("%s does not hold person names", h.vr)
	}
	if err := h.check(i); err != nil {
		return PersonName{}, err
	}
	return p.personName(i)
}

func (h *handler) GetUnicodePatientName(i int) (PersonName, error) {
	return h.GetPatientName(i)
}

func (h *handler) Bytes() []byte {
	if h.raw != nil {
		return append([]byte(nil), h.raw...)
	}
	b, err := h.c.encode(h.params)
	if err != nil {
		return nil
	}
	return b
}

func (h *handler) setNum(i int, n number) error {
	if err := h.grow(i); err != nil {
		return err
	}
	return h.c.setNumber(i, n)
}

func (h *handler) SetInt64(i int, v int64) error   { return h.setNum(i, intNum(v)) }
func (h *handler) SetUint64(i int, v uint64) error { return h.setNum(i, uintNum(v)) }
func (h *handler) SetInt32(i int, v int32) error   { return h.setNum(i, intNum(int64(v))) }
func (h *handler) SetUint32(i int, v uint32) error { return h.setNum(i, uintNum(uint64(v))) }
func (h *handler) SetInt16(i int, v int16) error   { return h.setNum(i, intNum(int64(v))) }
func (h *handler) SetUint16(i int, v uint16) error { return h.setNum(i, uintNum(uint64(v))) }
func (h *handler) SetInt8(i int, v int8) error     { return h.setNum(i, intNum(int64(v))) }
func (h *handler) SetUint8(i int, v uint8) error   { return h.setNum(i, uintNum(uint64(v))) }
func (h *handler) SetDouble(i int, v float64) error {
	return h.setNum(i, floatNum(v))
}
func (h *handler) SetFloat(i int, v float32) error {
	return h.setNum(i, floatNum(float64(v)))
}

func (h *handler) SetString(i int, v string) error {
	if err := h.grow(i); err != nil {
		return err
	}
	return h.c.setText(i, v)
}

func (h *handler) SetUnicodeString(i int, v string) error {
	return h.SetString(i, v)
}

func (h *handler) SetDate(i int, v Date) error {
	d, ok := h.c.(dater)
	if !ok {
		return conversionError("%s does not hold dates", h.vr)
	}
	if err := h.grow(i); err != nil {
		return err
	}
	return d.setDate(i, v)
}

func (h *handler) SetAge(i int, v Age) error {
	a, ok := h.c.(ager)
	if !ok {
		return conversionError("%s does not hold ages", h.vr)
	}
	if err := h.grow(i); err != nil {
		return err
	}
	return a.setAge(i, v)
}

func (h *handler) SetPatientName(i int, v PersonName) error {
	p, ok := h.c.(namer)
	if !ok {
		return conversionError("%s does not hold person names", h.vr)
	}
	if err := h.grow(i); err != nil {
		return err
	}
	return p.setPersonName(i, v)
}

func (h *handler) SetUnicodePatientName(i int, v PersonName) error {
	return h.SetPatientName(i, v)
}

func (h *handler) SetBytes(raw []byte) error {
	c, err := decode(h.vr, raw, h.params)
	if err != nil {
		return err
	}
	h.c = c
	return nil
}

func (h *handler) Commit() error {
	if h.commit == nil || h.done {
		return nil
	}
	b, err := h.c.encode(h.params)
	if err != nil {
		return err
	}
	if len(b)%2 == 1 {
		b = append(b, h.vr.PaddingByte())
	}
	if err := h.commit(b); err != nil {
		return err
	}
	h.done = true
	return nil
}

func (h *handler) Close() error { return h.Commit() }
