package vr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	v, ok := Parse("ob")
	assert.True(t, ok)
	assert.Equal(t, OB, v)
	_, ok = Parse("ZZ")
	assert.False(t, ok)
	assert.False(t, VR("").IsKnown())
}

func TestLengthField(t *testing.T) {
	for _, v := range []VR{OB, OD, OF, OL, OV, OW, SQ, SV, UC, UN, UR, UT, UV} {
		assert.False(t, v.IsExplicitLength(), v)
	}
	for _, v := range []VR{AE, CS, DS, LO, PN, SH, UI, US, UL, FD, AT} {
		assert.True(t, v.IsExplicitLength(), v)
	}
}

func TestWordSizeAndPadding(t *testing.T) {
	tests := []struct {
		v    VR
		word int
		pad  byte
	}{
		{OB, 1, 0},
		{UI, 1, 0},
		{CS, 1, ' '},
		{PN, 1, ' '},
		{US, 2, 0},
		{AT, 2, 0},
		{OW, 2, 0},
		{UL, 4, 0},
		{OF, 4, 0},
		{FD, 8, 0},
		{UV, 8, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.word, tc.v.WordSize(), tc.v)
		assert.Equal(t, tc.pad, tc.v.PaddingByte(), tc.v)
	}
}

func TestClasses(t *testing.T) {
	assert.True(t, LO.IsUnicode())
	assert.False(t, CS.IsUnicode())
	assert.False(t, LT.IsMultiValued())
	assert.True(t, DS.IsMultiValued())
	assert.True(t, SQ.IsSequence())
	assert.Equal(t, 64, UI.MaxLength())
	assert.Equal(t, 0, UT.MaxLength())
	assert.Equal(t, 8, FD.ValueSize())
}
