package dataset

import (
	"io"
	"sort"
	"sync"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// Element is one tag of a data set: its VR, its value buffers and, for
// sequences, its embedded items. Most elements have a single buffer 0;
// encapsulated pixel data keeps the offset table in buffer 0 and one
// fragment per following buffer.
type Element struct {
	id      tag.ID
	mu      sync.Mutex
	vr      vr.VR
	buffers map[uint32]*Buffer
	items   []*DataSet
}

func newElement(id tag.ID, v vr.VR) *Element {
	return &Element{id: id, vr: v, buffers: make(map[uint32]*Buffer)}
}

func (e *Element) ID() tag.ID { return e.id }

func (e *Element) VR() vr.VR {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vr
}

// BufferIDs lists the buffers in ascending order
func (e *Element) BufferIDs() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint32, 0, len(e.buffers))
	for id := range e.buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BufferCount is the number of buffers
func (e *Element) BufferCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffers)
}

// BufferExists reports whether buffer id was created
func (e *Element) BufferExists(id uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.buffers[id]
	return ok
}

// Buffer returns an existing buffer
func (e *Element) Buffer(id uint32) (*Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.buffers[id]
	if !ok {
		return nil, dcmerr.New(dcmerr.MissingBuffer, "%s has no buffer %d", e.id, id)
	}
	return b, nil
}

// BufferCreate returns buffer id, creating it if missing. Concurrent callers
// receive the same buffer.
func (e *Element) BufferCreate(id uint32) *Buffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.buffers[id]; ok {
		return b
	}
	b := &Buffer{}
	e.buffers[id] = b
	return b
}

// SetExternalStream makes buffer id read its bytes from r on demand
func (e *Element) SetExternalStream(id uint32, r io.ReaderAt, offset, length int64) {
	e.BufferCreate(id).setExternal(r, offset, length)
}

// RemoveBuffers drops every buffer from id on
func (e *Element) RemoveBuffers(from uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.buffers {
		if id >= from {
			delete(e.buffers, id)
		}
	}
}

// SequenceItemCount is the number of embedded data sets
func (e *Element) SequenceItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// SequenceItem returns embedded data set i
func (e *Element) SequenceItem(i int) (*DataSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.items) {
		return nil, dcmerr.New(dcmerr.MissingItem, "%s has %d items, no item %d", e.id, len(e.items), i)
	}
	return e.items[i], nil
}

// SequenceItems returns a snapshot of the embedded data sets
func (e *Element) SequenceItems() []*DataSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*DataSet(nil), e.items...)
}

func (e *Element) appendItem(item *DataSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, item)
}
