package dataset

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

const (
	maxListedValues = 10
	maxListedBytes  = 20
)

// value summarizes buffer 0 of an element for display
func (ds *DataSet) value(e *Element) any {
	v := e.VR()
	if v == vr.SQ {
		return fmt.Sprintf("Sequence (%d items)", e.SequenceItemCount())
	}
	if e.id.Tag() == tag.PixelData {
		frames, _ := ds.FrameCount()
		return fmt.Sprintf("Pixel Data (%d frames, %d buffers)", frames, e.BufferCount())
	}
	b, err := e.Buffer(0)
	if err != nil {
		return nil
	}
	switch v {
	case vr.OB, vr.OW, vr.OD, vr.OF, vr.OL, vr.OV, vr.UN:
		if b.Size() > maxListedBytes {
			return fmt.Sprintf("Binary Data (%d bytes)", b.Size())
		}
		raw, err := b.Bytes()
		if err != nil {
			return err.Error()
		}
		return raw
	}
	h, err := ds.ReadingHandler(e.id, 0)
	if err != nil {
		return err.Error()
	}
	if v.IsString() {
		values := make([]string, h.Size())
		for i := range values {
			if values[i], err = h.GetUnicodeString(i); err != nil {
				values[i], _ = h.GetString(i)
			}
		}
		return values
	}
	if h.Size() > maxListedValues {
		return fmt.Sprintf("Array of %d values", h.Size())
	}
	values := make([]any, h.Size())
	for i := range values {
		switch v {
		case vr.FL, vr.FD:
			values[i], _ = h.GetDouble(i)
		case vr.AT:
			values[i], _ = h.GetString(i)
		default:
			values[i], _ = h.GetInt64(i)
		}
	}
	return values
}

func (ds *DataSet) writeString(b *strings.Builder, indent string) {
	for _, id := range ds.GetTags() {
		e, err := ds.GetTag(id)
		if err != nil {
			continue
		}
		name := ds.dict.Name(id.Tag())
		if name != "" {
			name = " " + name
		}
		fmt.Fprintf(b, "%s[%s] %s%s: %v\n", indent, id, e.VR(), name, ds.value(e))
		for i, item := range e.SequenceItems() {
			fmt.Fprintf(b, "%s  > item %d\n", indent, i)
			item.writeString(b, indent+"    ")
		}
	}
}

// String renders one element per line in tag order, with sequence items
// indented below their sequence
func (ds *DataSet) String() string {
	if ds == nil {
		return "<nil>"
	}
	var b strings.Builder
	ds.writeString(&b, "")
	return b.String()
}

type jsonElement struct {
	Tag   tag.ID     `json:"tag"`
	Name  string     `json:"name,omitempty"`
	VR    vr.VR      `json:"vr"`
	Value any        `json:"value,omitempty"`
	Items []*DataSet `json:"items,omitempty"`
}

// MarshalJSON returns the elements as an array sorted by tag
func (ds *DataSet) MarshalJSON() ([]byte, error) {
	elements := []jsonElement{}
	for _, id := range ds.GetTags() {
		e, err := ds.GetTag(id)
		if err != nil {
			continue
		}
		elements = append(elements, jsonElement{
			Tag:   id,
			Name:  ds.dict.Name(id.Tag()),
			VR:    e.VR(),
			Value: ds.value(e),
			Items: e.SequenceItems(),
		})
	}
	return json.Marshal(elements)
}
