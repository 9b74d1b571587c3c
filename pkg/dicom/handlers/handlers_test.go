package handlers

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// write runs fn against a fresh writing handler and returns the committed bytes
func write(t *testing.T, v vr.VR, p Params, fn func(w Writing)) []byte {
	t.Helper()
	var out []byte
	w, err := NewWriting(v, p, func(b []byte) error {
		out = b
		return nil
	})
	require.NoError(t, err)
	fn(w)
	require.NoError(t, w.Commit())
	return out
}

// =============================================================================
// Strings
// =============================================================================

func TestMultiValuedStringSplitJoin(t *testing.T) {
	raw := write(t, vr.CS, Params{}, func(w Writing) {
		require.NoError(t, w.SetString(0, "A"))
		require.NoError(t, w.SetString(1, "B"))
		require.NoError(t, w.SetString(2, "C"))
	})
	assert.Equal(t, []byte(`A\B\C `), raw)

	r, err := NewReading(vr.CS, raw, Params{})
	require.NoError(t, err)
	require.Equal(t, 3, r.Size())
	for i, want := range []string{"A", "B", "C"} {
		got, err := r.GetString(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPaddingByVR(t *testing.T) {
	assert.Equal(t, []byte("ABC "), write(t, vr.LO, Params{}, func(w Writing) { _ = w.SetString(0, "ABC") }))
	assert.Equal(t, []byte("1.2.3\x00"), write(t, vr.UI, Params{}, func(w Writing) { _ = w.SetString(0, "1.2.3") }))
	assert.Equal(t, []byte{7, 0}, write(t, vr.OB, Params{}, func(w Writing) { _ = w.SetUint8(0, 7) }))
}

func TestTextVRKeepsBackslash(t *testing.T) {
	raw := write(t, vr.LT, Params{}, func(w Writing) {
		require.NoError(t, w.SetString(0, `  C:\dicom\notes`))
	})
	r, err := NewReading(vr.LT, raw, Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Size())
	s, err := r.GetString(0)
	require.NoError(t, err)
	assert.Equal(t, `  C:\dicom\notes`, s)
}

func TestSeparatorInsideValue(t *testing.T) {
	w, err := NewWriting(vr.LO, Params{}, func([]byte) error { return nil })
	require.NoError(t, err)
	err = w.SetString(0, `a\b`)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerInvalidData))
}

func TestMaxLength(t *testing.T) {
	w, err := NewWriting(vr.CS, Params{}, func([]byte) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, w.SetString(0, "0123456789ABCDEF"))
	err = w.SetString(0, "0123456789ABCDEFG")
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerInvalidData))
}

func TestUnicodeString(t *testing.T) {
	p := Params{Charsets: []string{"ISO_IR 100"}}
	raw := write(t, vr.PN, p, func(w Writing) {
		require.NoError(t, w.SetUnicodeString(0, "Müller^Jürgen"))
	})
	assert.Equal(t, byte(0xFC), raw[1])

	r, err := NewReading(vr.PN, raw, p)
	require.NoError(t, err)
	name, err := r.GetUnicodePatientName(0)
	require.NoError(t, err)
	assert.Equal(t, "Müller", name.Family())
	assert.Equal(t, "Jürgen", name.Given())
}

func TestUnicodeCannotConvert(t *testing.T) {
	w, err := NewWriting(vr.LO, Params{Charsets: []string{"ISO_IR 100"}}, func([]byte) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.SetUnicodeString(0, "東京"))
	err = w.Commit()
	assert.True(t, dcmerr.Is(err, dcmerr.CharsetConversionCannotConvert))
}

// =============================================================================
// Numbers
// =============================================================================

func TestNumericEndianness(t *testing.T) {
	le := write(t, vr.US, Params{}, func(w Writing) { _ = w.SetUint16(0, 0x0102) })
	be := write(t, vr.US, Params{Order: binary.BigEndian}, func(w Writing) { _ = w.SetUint16(0, 0x0102) })
	assert.Equal(t, []byte{0x02, 0x01}, le)
	assert.Equal(t, []byte{0x01, 0x02}, be)

	r, err := NewReading(vr.US, be, Params{Order: binary.BigEndian})
	require.NoError(t, err)
	v, err := r.GetUint16(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), v)
}

func TestNumericConversions(t *testing.T) {
	raw := write(t, vr.SS, Params{}, func(w Writing) {
		require.NoError(t, w.SetInt32(0, -5))
		require.NoError(t, w.SetInt32(1, 300))
	})
	r, err := NewReading(vr.SS, raw, Params{})
	require.NoError(t, err)

	_, err = r.GetUint32(0)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerConversion), "negative to unsigned")
	_, err = r.GetInt8(1)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerConversion), "300 does not fit int8")

	d, err := r.GetDouble(1)
	require.NoError(t, err)
	assert.Equal(t, 300.0, d)
	s, err := r.GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "-5", s)

	w, err := NewWriting(vr.US, Params{}, func([]byte) error { return nil })
	require.NoError(t, err)
	assert.True(t, dcmerr.Is(w.SetInt32(0, 70000), dcmerr.DataHandlerConversion))
	assert.True(t, dcmerr.Is(w.SetDouble(0, 1.5), dcmerr.DataHandlerConversion))
}

func TestSixtyFourBit(t *testing.T) {
	raw := write(t, vr.SV, Params{}, func(w Writing) {
		require.NoError(t, w.SetInt64(0, -1<<40))
	})
	r, err := NewReading(vr.SV, raw, Params{})
	require.NoError(t, err)
	v, err := r.GetInt64(0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<40), v)
	_, err = r.GetInt32(0)
	assert.Error(t, err)
}

func TestFloats(t *testing.T) {
	raw := write(t, vr.FL, Params{}, func(w Writing) {
		require.NoError(t, w.SetFloat(0, 1.25))
		require.NoError(t, w.SetString(1, "2.5"))
	})
	r, err := NewReading(vr.FL, raw, Params{})
	require.NoError(t, err)
	f, err := r.GetFloat(1)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), f)
	_, err = r.GetInt32(0)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerConversion))
	_, err = r.GetInt32(1)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerConversion), "2.5 is not an integer")
}

func TestCorruptedNumericBuffer(t *testing.T) {
	_, err := NewReading(vr.UL, []byte{1, 2, 3}, Params{})
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerCorruptedBuffer))
}

func TestDecimalAndIntegerStrings(t *testing.T) {
	raw := write(t, vr.DS, Params{}, func(w Writing) {
		require.NoError(t, w.SetDouble(0, 1.0/3.0))
		require.NoError(t, w.SetInt32(1, -1024))
	})
	r, err := NewReading(vr.DS, raw, Params{})
	require.NoError(t, err)
	s, err := r.GetString(0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(s), 16)
	d, err := r.GetDouble(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, d, 1e-12)
	i, err := r.GetInt32(1)
	require.NoError(t, err)
	assert.Equal(t, int32(-1024), i)
	_, err = r.GetInt32(0)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerConversion), "1/3 is not an integer")

	w, err := NewWriting(vr.IS, Params{}, func([]byte) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, w.SetDouble(0, 12))
	assert.True(t, dcmerr.Is(w.SetDouble(0, 12.5), dcmerr.DataHandlerConversion))

	r, err = NewReading(vr.IS, []byte(" 42 "), Params{})
	require.NoError(t, err)
	v, err := r.GetUint16(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), v)
}

func TestAttributeTag(t *testing.T) {
	raw := write(t, vr.AT, Params{}, func(w Writing) {
		require.NoError(t, w.SetUint32(0, 0x00280010))
	})
	assert.Equal(t, []byte{0x28, 0x00, 0x10, 0x00}, raw)
	r, err := NewReading(vr.AT, raw, Params{})
	require.NoError(t, err)
	s, err := r.GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "00280010", s)
}

func TestMissingIndex(t *testing.T) {
	r, err := NewReading(vr.US, []byte{1, 0}, Params{})
	require.NoError(t, err)
	_, err = r.GetUint16(1)
	assert.True(t, dcmerr.Is(err, dcmerr.MissingItem))
}

func TestSequenceHasNoHandler(t *testing.T) {
	_, err := NewReading(vr.SQ, nil, Params{})
	assert.True(t, dcmerr.IsDataHandler(err))
}

// =============================================================================
// UIDs
// =============================================================================

func TestNormalizeUID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.02.3", "1.2.3"},
		{"1.0.3", "1.0.3"},
		{"1.2.840.10008.1.2", "1.2.840.10008.1.2"},
		{"1.002.0003", "1.2.3"},
		{"1..2", "1.0.2"},
		{"1.2.", "1.2.0"},
		{".1", "0.1"},
		{"00", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeUID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			again, err := NormalizeUID(got)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
	_, err := NormalizeUID("1.2.a")
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerInvalidData))
}

func TestUIHandlerNormalizes(t *testing.T) {
	raw := write(t, vr.UI, Params{}, func(w Writing) {
		require.NoError(t, w.SetString(0, "1.02.3"))
	})
	assert.Equal(t, []byte("1.2.3\x00"), raw)
	r, err := NewReading(vr.UI, []byte("1.004\x00"), Params{})
	require.NoError(t, err)
	s, err := r.GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "1.4", s)
}

// =============================================================================
// Dates, ages, names
// =============================================================================

func TestDates(t *testing.T) {
	r, err := NewReading(vr.DA, []byte("20240229"), Params{})
	require.NoError(t, err)
	d, err := r.GetDate(0)
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: 2, Day: 29}, d)

	r, err = NewReading(vr.TM, []byte("101530.123456-0530"), Params{})
	require.NoError(t, err)
	d, err = r.GetDate(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), d.Hour)
	assert.Equal(t, uint32(15), d.Minutes)
	assert.Equal(t, uint32(30), d.Seconds)
	assert.Equal(t, uint32(123456000), d.Nanoseconds)
	assert.Equal(t, int32(-5), d.OffsetHours)
	assert.Equal(t, int32(-30), d.OffsetMinutes)

	r, err = NewReading(vr.DT, []byte("2023061512+0100"), Params{})
	require.NoError(t, err)
	d, err = r.GetDate(0)
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2023, Month: 6, Day: 15, Hour: 12, OffsetHours: 1}, d)

	_, err = NewReading(vr.DA, []byte("2024-02-29"), Params{})
	require.NoError(t, err, "parsing happens on access")
	r, _ = NewReading(vr.DA, []byte("2024-2-29 "), Params{})
	_, err = r.GetDate(0)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerInvalidData))

	_, err = r.GetAge(0)
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerConversion))
}

func TestDateRoundTrip(t *testing.T) {
	when := time.Date(2021, 3, 4, 5, 6, 7, 891000, time.FixedZone("", 2*3600))
	raw := write(t, vr.DT, Params{}, func(w Writing) {
		require.NoError(t, w.SetDate(0, NewDate(when)))
	})
	assert.Equal(t, "20210304050607.000891+0200", string(raw))
	r, err := NewReading(vr.DT, raw, Params{})
	require.NoError(t, err)
	d, err := r.GetDate(0)
	require.NoError(t, err)
	assert.True(t, when.Equal(d.Time()))
}

func TestAge(t *testing.T) {
	raw := write(t, vr.AS, Params{}, func(w Writing) {
		require.NoError(t, w.SetAge(0, Age{Value: 18, Unit: Months}))
	})
	assert.Equal(t, "018M", string(raw))
	r, err := NewReading(vr.AS, raw, Params{})
	require.NoError(t, err)
	a, err := r.GetAge(0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, a.Years())

	w, err := NewWriting(vr.AS, Params{}, func([]byte) error { return nil })
	require.NoError(t, err)
	assert.True(t, dcmerr.Is(w.SetAge(0, Age{Value: 1000, Unit: Years}), dcmerr.DataHandlerInvalidData))
	_, err = ParseAge("12Y")
	assert.Error(t, err)
}

func TestPersonName(t *testing.T) {
	p := ParsePersonName("Yamada^Tarou=山田^太郎=やまだ^たろう")
	assert.Equal(t, "Yamada^Tarou", p.Alphabetic)
	assert.Equal(t, "山田^太郎", p.Ideographic)
	assert.Equal(t, "やまだ^たろう", p.Phonetic)
	assert.Equal(t, "Yamada^Tarou=山田^太郎=やまだ^たろう", p.String())
	assert.Equal(t, "Doe^John", PersonName{Alphabetic: "Doe^John"}.String())

	raw := write(t, vr.PN, Params{Charsets: []string{"ISO_IR 192"}}, func(w Writing) {
		require.NoError(t, w.SetPatientName(0, p))
	})
	r, err := NewReading(vr.PN, raw, Params{Charsets: []string{"ISO_IR 192"}})
	require.NoError(t, err)
	got, err := r.GetPatientName(0)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestRawBytes(t *testing.T) {
	w, err := NewWriting(vr.US, Params{}, func([]byte) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.SetBytes([]byte{1, 0, 2, 0}))
	assert.Equal(t, 2, w.Size())
	v, err := w.(Reading).GetUint16(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), v)
	assert.True(t, dcmerr.Is(w.SetBytes([]byte{1}), dcmerr.DataHandlerCorruptedBuffer))
}
