package dataset

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/jpfielding/dicomkit/pkg/dicom/transforms"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataSet(t *testing.T, syntax transfer.Syntax) *DataSet {
	t.Helper()
	ds, err := New(syntax)
	require.NoError(t, err)
	return ds
}

func TestNew_UnknownSyntax(t *testing.T) {
	_, err := New(transfer.Syntax("1.2.3"))
	require.True(t, dcmerr.Is(err, dcmerr.DataSetUnknownTransferSyntax))
}

func TestDataSet_Values(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)

	require.NoError(t, ds.SetString(tag.PatientID, "PAT-001"))
	id, err := ds.GetString(tag.PatientID, 0)
	require.NoError(t, err)
	assert.Equal(t, "PAT-001", id)

	v, err := ds.GetDataType(tag.PatientID)
	require.NoError(t, err)
	assert.Equal(t, vr.LO, v)

	require.NoError(t, ds.SetUint16(tag.Rows, 512))
	rows, err := ds.GetUint32(tag.Rows, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), rows)

	def, err := ds.GetStringDefault(tag.StudyID, 0, "none")
	require.NoError(t, err)
	assert.Equal(t, "none", def)

	_, err = ds.GetString(tag.PatientID, 3)
	assert.True(t, dcmerr.Is(err, dcmerr.MissingItem))
	def, err = ds.GetStringDefault(tag.PatientID, 3, "none")
	require.NoError(t, err)
	assert.Equal(t, "none", def)

	_, err = ds.GetTag(tag.PixelData)
	assert.True(t, dcmerr.Is(err, dcmerr.MissingGroup))
	_, err = ds.GetTag(tag.PatientName)
	assert.True(t, dcmerr.Is(err, dcmerr.MissingTag))

	require.NoError(t, ds.SetDoubles(tag.PixelSpacing, 0.5, 0.25))
	spacing, err := ds.GetDoubles(tag.PixelSpacing)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, spacing)

	assert.Equal(t, []tag.ID{tag.PatientID.ID(), tag.Rows.ID(), tag.PixelSpacing.ID()}, ds.GetTags())

	assert.True(t, ds.RemoveTag(tag.PatientID))
	assert.False(t, ds.RemoveTag(tag.PatientID))
	assert.False(t, ds.BufferExists(tag.PatientID, 0))
}

func TestDataSet_RepeatedGroups(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	second := tag.ID{Group: 0x6000, Order: 1, Element: 0x0022}

	require.NoError(t, ds.SetString(tag.OverlayDescription, "first"))
	require.NoError(t, ds.SetString(second, "second"))
	assert.Equal(t, uint32(2), ds.GroupOrders(0x6000))

	first, err := ds.GetString(tag.OverlayDescription, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", first)
	got, err := ds.GetString(second, 0)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestDataSet_UnknownVR(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	_, err := ds.GetTagCreate(tag.PatientID, vr.VR("XX"))
	assert.True(t, dcmerr.Is(err, dcmerr.DictionaryUnknownDataType))
}

func TestDataSet_ConcurrentCreate(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	const workers = 32
	elements := make([]*Element, workers)
	buffers := make([]*Buffer, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := ds.GetTagCreate(tag.PatientName, "")
			if err != nil {
				return
			}
			elements[i] = e
			buffers[i] = e.BufferCreate(0)
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		require.NotNil(t, elements[i])
		assert.Same(t, elements[0], elements[i])
		assert.Same(t, buffers[0], buffers[i])
	}
	assert.Equal(t, 1, elements[0].BufferCount())
}

func TestDataSet_Sequences(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	require.NoError(t, ds.SetCharsets("ISO_IR 192"))

	for i := 0; i < 3; i++ {
		item, err := ds.AppendSequenceItem(tag.ModalityLUTSequence)
		require.NoError(t, err)
		require.NoError(t, item.SetString(tag.LUTExplanation, []string{"a", "b", "c"}[i]))
	}
	e, err := ds.GetTag(tag.ModalityLUTSequence)
	require.NoError(t, err)
	assert.Equal(t, vr.SQ, e.VR())
	assert.Equal(t, 3, e.SequenceItemCount())

	item, err := ds.GetSequenceItem(tag.ModalityLUTSequence, 1)
	require.NoError(t, err)
	s, err := item.GetString(tag.LUTExplanation, 0)
	require.NoError(t, err)
	assert.Equal(t, "b", s)
	assert.Equal(t, []string{"ISO_IR 192"}, item.Charsets())

	_, err = ds.GetSequenceItem(tag.ModalityLUTSequence, 3)
	assert.True(t, dcmerr.Is(err, dcmerr.MissingItem))

	require.NoError(t, ds.SetString(tag.PatientID, "P"))
	_, err = ds.AppendSequenceItem(tag.PatientID)
	assert.True(t, dcmerr.Is(err, dcmerr.InvalidSequenceItem))
}

func TestDataSet_AppendSequenceDataSet(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	item := newDataSet(t, transfer.ExplicitVRLittleEndian)
	require.NoError(t, item.SetString(tag.LUTExplanation, "detached"))

	require.NoError(t, ds.AppendSequenceDataSet(tag.ModalityLUTSequence, item))
	got, err := ds.GetSequenceItem(tag.ModalityLUTSequence, 0)
	require.NoError(t, err)
	assert.Same(t, item, got)

	err = ds.AppendSequenceDataSet(tag.ModalityLUTSequence, ds)
	assert.True(t, dcmerr.Is(err, dcmerr.InvalidSequenceItem))

	other := newDataSet(t, transfer.ExplicitVRBigEndian)
	err = ds.AppendSequenceDataSet(tag.ModalityLUTSequence, other)
	assert.True(t, dcmerr.Is(err, dcmerr.InvalidSequenceItem))

	require.NoError(t, ds.SetString(tag.PatientID, "P"))
	err = ds.AppendSequenceDataSet(tag.PatientID, item)
	assert.True(t, dcmerr.Is(err, dcmerr.InvalidSequenceItem))
}

func TestDataSet_InheritedCharsets(t *testing.T) {
	ds, err := New(transfer.ExplicitVRLittleEndian, WithCharsets("ISO_IR 100"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ISO_IR 100"}, ds.Charsets())

	require.NoError(t, ds.SetCharsets("ISO_IR 192"))
	assert.Equal(t, []string{"ISO_IR 192"}, ds.Charsets())
}

func TestDataSet_CharsetList(t *testing.T) {
	for _, charsets := range [][]string{
		{"ISO_IR 100", "ISO_IR 192"},
		{"", "ISO 2022 IR 87"},
	} {
		ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
		require.NoError(t, ds.SetCharsets(charsets...))
		require.NoError(t, ds.SetUnicodeString(tag.PatientName, "山田^太郎"))
		s, err := ds.GetUnicodeString(tag.PatientName, 0)
		require.NoError(t, err)
		assert.Equal(t, "山田^太郎", s, charsets)
	}
}

func TestDataSet_FunctionalGroups(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	shared, err := ds.AppendSequenceItem(tag.SharedFunctionalGroupsSequence)
	require.NoError(t, err)
	pv, err := shared.AppendSequenceItem(tag.PixelValueTransformationSequence)
	require.NoError(t, err)
	require.NoError(t, pv.SetDouble(tag.RescaleSlope, 3))

	for f := 0; f < 2; f++ {
		_, err := ds.AppendSequenceItem(tag.PerFrameFunctionalGroupsSequence)
		require.NoError(t, err)
	}
	perFrame, err := ds.GetSequenceItem(tag.PerFrameFunctionalGroupsSequence, 1)
	require.NoError(t, err)
	own, err := perFrame.AppendSequenceItem(tag.PixelValueTransformationSequence)
	require.NoError(t, err)
	require.NoError(t, own.SetDouble(tag.RescaleSlope, 5))

	m, err := ds.ModalityTransform(0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.Slope)
	m, err = ds.ModalityTransform(1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Slope)
}

func TestDataSet_ExternalStream(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	src := bytes.NewReader([]byte("0123456789ABCDEF"))

	require.NoError(t, ds.SetExternalStream(tag.PixelData, 0, vr.OB, src, 4, 6))
	e, err := ds.GetTag(tag.PixelData)
	require.NoError(t, err)
	b, err := e.Buffer(0)
	require.NoError(t, err)
	assert.True(t, b.IsExternal())
	assert.Equal(t, int64(6), b.Size())

	raw, err := ds.GetBytes(tag.PixelData, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), raw)

	part := make([]byte, 2)
	_, err = b.ReadAt(part, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("67"), part)

	require.NoError(t, ds.SetBytes(tag.PixelData, 0, vr.OB, []byte{1, 2}))
	assert.False(t, b.IsExternal())
	raw, err = ds.GetBytes(tag.PixelData, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, raw)

	require.NoError(t, ds.SetExternalStream(tag.PixelData, 1, vr.OB, src, 10, 20))
	_, err = ds.GetBytes(tag.PixelData, 1)
	assert.True(t, dcmerr.Is(err, dcmerr.StreamEOF))
}

func TestDataSet_LUT(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	item, err := ds.AppendSequenceItem(tag.ModalityLUTSequence)
	require.NoError(t, err)

	desc, err := item.WritingHandler(tag.LUTDescriptor, 0, vr.US)
	require.NoError(t, err)
	for i, v := range []uint32{3, 2, 16} {
		require.NoError(t, desc.SetUint32(i, v))
	}
	require.NoError(t, desc.Commit())
	data, err := item.WritingHandler(tag.LUTData, 0, vr.US)
	require.NoError(t, err)
	for i, v := range []uint32{100, 200, 300} {
		require.NoError(t, data.SetUint32(i, v))
	}
	require.NoError(t, data.Commit())
	require.NoError(t, item.SetString(tag.LUTExplanation, "HU"))

	l, err := ds.GetLUT(tag.ModalityLUTSequence, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), l.Size())
	assert.Equal(t, int32(2), l.FirstMapped())
	assert.Equal(t, "HU", l.Explanation())
	for in, want := range map[int64]int32{0: 100, 1: 100, 2: 100, 3: 200, 4: 300, 5: 300} {
		assert.Equal(t, want, l.MappedValue(in), "input %d", in)
	}

	m, err := ds.ModalityTransform(0)
	require.NoError(t, err)
	require.NotNil(t, m.LUT())
	assert.Equal(t, l.Values(), m.LUT().Values())

	// an unreadable LUT type is reported, not dropped
	require.NoError(t, item.SetCharsets("ISO_IR 192"))
	require.NoError(t, item.SetBytes(tag.ModalityLUTType, 0, vr.LO, []byte{0xFF, 0xFE}))
	_, err = ds.ModalityTransform(0)
	assert.True(t, dcmerr.Is(err, dcmerr.CharsetConversionCannotConvert))
}

func TestDataSet_PackedLUT(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	item, err := ds.AppendSequenceItem(tag.VOILUTSequence)
	require.NoError(t, err)

	desc, err := item.WritingHandler(tag.LUTDescriptor, 0, vr.US)
	require.NoError(t, err)
	for i, v := range []uint32{4, 0, 8} {
		require.NoError(t, desc.SetUint32(i, v))
	}
	require.NoError(t, desc.Commit())
	data, err := item.WritingHandler(tag.LUTData, 0, vr.OW)
	require.NoError(t, err)
	require.NoError(t, data.SetUint16(0, 0x0201))
	require.NoError(t, data.SetUint16(1, 0x0403))
	require.NoError(t, data.Commit())

	assert.Equal(t, 1, ds.VOILUTCount())
	l, err := ds.GetLUT(tag.VOILUTSequence, 0)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4}, l.Values())
}

func TestDataSet_CorruptedLUT(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	item, err := ds.AppendSequenceItem(tag.VOILUTSequence)
	require.NoError(t, err)
	desc, err := item.WritingHandler(tag.LUTDescriptor, 0, vr.US)
	require.NoError(t, err)
	for i, v := range []uint32{5, 0, 16} {
		require.NoError(t, desc.SetUint32(i, v))
	}
	require.NoError(t, desc.Commit())
	require.NoError(t, item.SetBytes(tag.LUTData, 0, vr.US, []byte{1, 0, 2, 0}))

	_, err = ds.GetLUT(tag.VOILUTSequence, 0)
	assert.True(t, dcmerr.Is(err, dcmerr.LutCorrupted))
}

func TestDataSet_VOIs(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	vois, err := ds.GetVOIs()
	require.NoError(t, err)
	assert.Empty(t, vois)

	want := []transforms.VOIDescription{
		{Center: 40, Width: 400, Function: transforms.VOISigmoid, Explanation: "BRAIN"},
		{Center: 50, Width: 350, Function: transforms.VOISigmoid, Explanation: "SOFT"},
	}
	require.NoError(t, ds.SetVOIs(want...))
	vois, err = ds.GetVOIs()
	require.NoError(t, err)
	assert.Equal(t, want, vois)

	require.NoError(t, ds.SetVOIs())
	vois, err = ds.GetVOIs()
	require.NoError(t, err)
	assert.Empty(t, vois)
}

func TestDataSet_String(t *testing.T) {
	ds := newDataSet(t, transfer.ExplicitVRLittleEndian)
	require.NoError(t, ds.SetString(tag.PatientID, "PAT-001"))
	item, err := ds.AppendSequenceItem(tag.ModalityLUTSequence)
	require.NoError(t, err)
	require.NoError(t, item.SetString(tag.LUTExplanation, "HU"))

	s := ds.String()
	assert.Contains(t, s, "[(0010,0020)] LO Patient ID: [PAT-001]")
	assert.Contains(t, s, "> item 0")
	assert.Contains(t, s, "LUT Explanation: [HU]")

	raw, err := json.Marshal(ds)
	require.NoError(t, err)
	var elements []map[string]any
	require.NoError(t, json.Unmarshal(raw, &elements))
	require.Len(t, elements, 2)
	assert.Equal(t, "(0010,0020)", elements[0]["tag"])
	assert.Equal(t, "SQ", elements[1]["vr"])
	assert.Len(t, elements[1]["items"], 1)
}
