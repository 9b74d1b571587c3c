// Package dataset models a DICOM data set: a tree of tagged elements whose
// values live in byte buffers and are read and written through typed data
// handlers. Sequence elements embed child data sets.
//
// A DataSet is safe for concurrent use. Each level (data set, element,
// buffer) guards its own state, so readers of different tags do not block
// each other.
package dataset

import (
	"encoding/binary"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jpfielding/dicomkit/pkg/dicom/charset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/handlers"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// DataSet is a collection of elements addressed by (group, order, element)
type DataSet struct {
	mu     sync.RWMutex
	groups map[uint16][]map[uint16]*Element

	syntax     transfer.Syntax
	dict       *tag.Dictionary
	backend    charset.Backend
	inherited  []string
	itemOffset int64
}

// Option configures a DataSet during construction
type Option func(*DataSet) error

// WithCharsets sets the default character sets used when the data set has
// no Specific Character Set element
func WithCharsets(charsets ...string) Option {
	return func(ds *DataSet) error {
		ds.inherited = append([]string(nil), charsets...)
		return nil
	}
}

// WithCharsetBackend selects the charset conversion back end
func WithCharsetBackend(b charset.Backend) Option {
	return func(ds *DataSet) error {
		if b == nil {
			return dcmerr.New(dcmerr.CharsetConversionNoTable, "nil charset backend")
		}
		ds.backend = b
		return nil
	}
}

// WithDictionary replaces the tag dictionary used to resolve VRs
func WithDictionary(d *tag.Dictionary) Option {
	return func(ds *DataSet) error {
		if d == nil {
			return dcmerr.New(dcmerr.DictionaryUnknownTag, "nil dictionary")
		}
		ds.dict = d
		return nil
	}
}

// New creates an empty data set encoded with syntax
func New(syntax transfer.Syntax, opts ...Option) (*DataSet, error) {
	if !syntax.IsKnown() {
		return nil, dcmerr.New(dcmerr.DataSetUnknownTransferSyntax, "transfer syntax %q", string(syntax))
	}
	ds := &DataSet{
		groups:  make(map[uint16][]map[uint16]*Element),
		syntax:  syntax,
		dict:    tag.Default,
		backend: charset.Default,
	}
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// newItem creates an embedded data set inheriting the encoding context
func (ds *DataSet) newItem() *DataSet {
	return &DataSet{
		groups:    make(map[uint16][]map[uint16]*Element),
		syntax:    ds.syntax,
		dict:      ds.dict,
		backend:   ds.backend,
		inherited: ds.Charsets(),
	}
}

func (ds *DataSet) TransferSyntax() transfer.Syntax { return ds.syntax }
func (ds *DataSet) ByteOrder() binary.ByteOrder     { return ds.syntax.ByteOrder() }
func (ds *DataSet) Dictionary() *tag.Dictionary     { return ds.dict }
func (ds *DataSet) CharsetBackend() charset.Backend { return ds.backend }

// ItemOffset is the stream position of the item this data set was read
// from, or the position computed for it by the last write
func (ds *DataSet) ItemOffset() int64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.itemOffset
}

func (ds *DataSet) SetItemOffset(off int64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.itemOffset = off
}

// GetTag returns an existing element
func (ds *DataSet) GetTag(t tag.Identifier) (*Element, error) {
	id := t.ID()
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	orders, ok := ds.groups[id.Group]
	if !ok || int(id.Order) >= len(orders) {
		return nil, dcmerr.New(dcmerr.MissingGroup, "group %04X order %d not found", id.Group, id.Order)
	}
	e, ok := orders[id.Order][id.Element]
	if !ok {
		return nil, dcmerr.New(dcmerr.MissingTag, "tag %s not found", id)
	}
	return e, nil
}

// GetTagCreate returns the element, creating it with v when missing. An
// empty v takes the VR from the dictionary. Concurrent callers receive the
// same element.
func (ds *DataSet) GetTagCreate(t tag.Identifier, v vr.VR) (*Element, error) {
	if e, err := ds.GetTag(t); err == nil {
		return e, nil
	}
	id := t.ID()
	if v == "" {
		v = ds.dict.VR(id.Tag())
	}
	if !v.IsKnown() {
		return nil, dcmerr.New(dcmerr.DictionaryUnknownDataType, "VR %q for %s", string(v), id)
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	orders := ds.groups[id.Group]
	for uint32(len(orders)) <= id.Order {
		orders = append(orders, make(map[uint16]*Element))
	}
	ds.groups[id.Group] = orders
	if e, ok := orders[id.Order][id.Element]; ok {
		return e, nil
	}
	e := newElement(id, v)
	orders[id.Order][id.Element] = e
	return e, nil
}

// RemoveTag deletes an element, reporting whether it existed
func (ds *DataSet) RemoveTag(t tag.Identifier) bool {
	id := t.ID()
	ds.mu.Lock()
	defer ds.mu.Unlock()
	orders, ok := ds.groups[id.Group]
	if !ok || int(id.Order) >= len(orders) {
		return false
	}
	if _, ok := orders[id.Order][id.Element]; !ok {
		return false
	}
	delete(orders[id.Order], id.Element)
	return true
}

// GetTags lists every element id in group, order, element order
func (ds *DataSet) GetTags() []tag.ID {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	var ids []tag.ID
	for _, orders := range ds.groups {
		for _, elements := range orders {
			for _, e := range elements {
				ids = append(ids, e.id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// GroupOrders is the number of times group appears in the data set
func (ds *DataSet) GroupOrders(group uint16) uint32 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return uint32(len(ds.groups[group]))
}

// BufferExists reports whether the element has buffer id
func (ds *DataSet) BufferExists(t tag.Identifier, id uint32) bool {
	e, err := ds.GetTag(t)
	if err != nil {
		return false
	}
	return e.BufferExists(id)
}

// GetDataType returns the VR of an existing element
func (ds *DataSet) GetDataType(t tag.Identifier) (vr.VR, error) {
	e, err := ds.GetTag(t)
	if err != nil {
		return "", err
	}
	return e.VR(), nil
}

// Charsets returns the Specific Character Set of this data set, or the one
// inherited from its parent when the element is absent
func (ds *DataSet) Charsets() []string {
	e, err := ds.GetTag(tag.SpecificCharacterSet)
	if err == nil {
		if b, err := e.Buffer(0); err == nil {
			if raw, err := b.Bytes(); err == nil {
				values := strings.Split(string(raw), `\`)
				for i := range values {
					values[i] = strings.TrimRight(values[i], " \x00")
				}
				return values
			}
		}
	}
	return append([]string(nil), ds.inherited...)
}

// SetCharsets writes the Specific Character Set element
func (ds *DataSet) SetCharsets(charsets ...string) error {
	w, err := ds.WritingHandler(tag.SpecificCharacterSet, 0, vr.CS)
	if err != nil {
		return err
	}
	for i, c := range charsets {
		if err := w.SetString(i, c); err != nil {
			return err
		}
	}
	return w.Commit()
}

func (ds *DataSet) params() handlers.Params {
	return handlers.Params{
		Order:    ds.ByteOrder(),
		Charsets: ds.Charsets(),
		Backend:  ds.backend,
	}
}

// ReadingHandler decodes buffer id of an element. The handler is a snapshot:
// later writes do not change it.
func (ds *DataSet) ReadingHandler(t tag.Identifier, id uint32) (handlers.Reading, error) {
	e, err := ds.GetTag(t)
	if err != nil {
		return nil, err
	}
	b, err := e.Buffer(id)
	if err != nil {
		return nil, err
	}
	raw, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return handlers.NewReading(e.VR(), raw, ds.params())
}

// WritingHandler builds new content for buffer id, creating the element
// with v (or the dictionary VR when v is empty). The buffer is replaced on
// Commit.
func (ds *DataSet) WritingHandler(t tag.Identifier, id uint32, v vr.VR) (handlers.Writing, error) {
	e, err := ds.GetTagCreate(t, v)
	if err != nil {
		return nil, err
	}
	b := e.BufferCreate(id)
	return handlers.NewWriting(e.VR(), ds.params(), func(raw []byte) error {
		b.SetBytes(raw)
		return nil
	})
}

// SetBytes stores already encoded bytes as buffer id
func (ds *DataSet) SetBytes(t tag.Identifier, id uint32, v vr.VR, raw []byte) error {
	e, err := ds.GetTagCreate(t, v)
	if err != nil {
		return err
	}
	e.BufferCreate(id).SetBytes(raw)
	return nil
}

// GetBytes returns a copy of buffer id
func (ds *DataSet) GetBytes(t tag.Identifier, id uint32) ([]byte, error) {
	e, err := ds.GetTag(t)
	if err != nil {
		return nil, err
	}
	b, err := e.Buffer(id)
	if err != nil {
		return nil, err
	}
	return b.Bytes()
}

// SetExternalStream points buffer id at a region of r
func (ds *DataSet) SetExternalStream(t tag.Identifier, id uint32, v vr.VR, r io.ReaderAt, offset, length int64) error {
	e, err := ds.GetTagCreate(t, v)
	if err != nil {
		return err
	}
	e.SetExternalStream(id, r, offset, length)
	return nil
}

// AppendSequenceItem adds an empty item to a sequence, creating the element
func (ds *DataSet) AppendSequenceItem(t tag.Identifier) (*DataSet, error) {
	e, err := ds.GetTagCreate(t, vr.SQ)
	if err != nil {
		return nil, err
	}
	if e.VR() != vr.SQ {
		return nil, dcmerr.New(dcmerr.InvalidSequenceItem, "%s is %s, not SQ", t.ID(), string(e.VR()))
	}
	item := ds.newItem()
	e.appendItem(item)
	return item, nil
}

// AppendSequenceDataSet appends an existing data set as a new item of the
// sequence t. The item must share the transfer syntax of ds.
func (ds *DataSet) AppendSequenceDataSet(t tag.Identifier, item *DataSet) error {
	if item == nil || item == ds {
		return dcmerr.New(dcmerr.InvalidSequenceItem, "cannot append %p to itself", ds)
	}
	if item.syntax != ds.syntax {
		return dcmerr.New(dcmerr.InvalidSequenceItem, "item syntax %s differs from %s", string(item.syntax), string(ds.syntax))
	}
	e, err := ds.GetTagCreate(t, vr.SQ)
	if err != nil {
		return err
	}
	if e.VR() != vr.SQ {
		return dcmerr.New(dcmerr.InvalidSequenceItem, "%s is %s, not SQ", t.ID(), string(e.VR()))
	}
	e.appendItem(item)
	return nil
}

// GetSequenceItem returns item i of a sequence
func (ds *DataSet) GetSequenceItem(t tag.Identifier, i int) (*DataSet, error) {
	e, err := ds.GetTag(t)
	if err != nil {
		return nil, err
	}
	return e.SequenceItem(i)
}

// GetFunctionalGroupDataSet returns the first item of macro for a frame of
// an enhanced multi-frame object, looking in the per-frame functional
// groups first and falling back to the shared ones
func (ds *DataSet) GetFunctionalGroupDataSet(frame uint32, macro tag.Tag) (*DataSet, error) {
	if perFrame, err := ds.GetSequenceItem(tag.PerFrameFunctionalGroupsSequence, int(frame)); err == nil {
		if item, err := perFrame.GetSequenceItem(macro, 0); err == nil {
			return item, nil
		}
	}
	shared, err := ds.GetSequenceItem(tag.SharedFunctionalGroupsSequence, 0)
	if err != nil {
		return nil, err
	}
	return shared.GetSequenceItem(macro, 0)
}
