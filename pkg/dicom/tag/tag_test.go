package tag

import (
	"encoding/json"
	"testing"

	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagString(t *testing.T) {
	assert.Equal(t, "(7FE0,0010)", PixelData.String())
	assert.Equal(t, "(0028,1050)", ID{Group: 0x0028, Element: 0x1050}.String())
	assert.Equal(t, "(6002,3000)#1", ID{Group: 0x6002, Order: 1, Element: 0x3000}.String())

	b, err := json.Marshal(Rows)
	require.NoError(t, err)
	assert.Equal(t, `"(0028,0010)"`, string(b))
}

func TestIDOrdering(t *testing.T) {
	a := ID{Group: 0x0010, Element: 0x0020}
	b := ID{Group: 0x0010, Order: 1, Element: 0x0010}
	c := ID{Group: 0x0020, Element: 0x0000}
	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.Equal(t, PatientID, a.Tag())
}

func TestDictionaryVR(t *testing.T) {
	tests := []struct {
		name string
		tag  Tag
		want vr.VR
	}{
		{"rows", Rows, vr.US},
		{"patient name", PatientName, vr.PN},
		{"second overlay plane", OverlayGroup(OverlayData, 1), vr.OW},
		{"group length", Tag{0x0008, 0x0000}, vr.UL},
		{"private creator", Tag{0x0009, 0x0010}, vr.LO},
		{"unknown private", Tag{0x0009, 0x1010}, vr.UN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default.VR(tt.tag))
		})
	}
	assert.Equal(t, Tag{0x6002, 0x3000}, OverlayGroup(OverlayData, 1))
}

func TestDictionaryRegister(t *testing.T) {
	d := NewDictionary()
	private := Tag{0x0009, 0x1001}
	assert.Equal(t, "", d.Name(private))
	d.Register(Entry{Tag: private, VR: vr.FD, Name: "Vendor Gain"})
	assert.Equal(t, vr.FD, d.VR(private))
	assert.Equal(t, "Vendor Gain", d.Name(private))
	// the default dictionary is unaffected
	assert.Equal(t, vr.UN, Default.VR(private))
	assert.Equal(t, "Private Tag", private.LookupName())
}
