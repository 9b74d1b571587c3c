package transfer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntax(t *testing.T) {
	tests := []struct {
		ts           Syntax
		explicit     bool
		little       bool
		encapsulated bool
		deflated     bool
	}{
		{ImplicitVRLittleEndian, false, true, false, false},
		{ExplicitVRLittleEndian, true, true, false, false},
		{ExplicitVRBigEndian, true, false, false, false},
		{DeflatedExplicitVR, true, true, false, true},
		{RLELossless, true, true, true, false},
		{JPEG2000, true, true, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.ts.Name(), func(t *testing.T) {
			assert.True(t, tc.ts.IsKnown())
			assert.Equal(t, tc.explicit, tc.ts.IsExplicitVR())
			assert.Equal(t, tc.little, tc.ts.IsLittleEndian())
			assert.Equal(t, tc.encapsulated, tc.ts.IsEncapsulated())
			assert.Equal(t, tc.deflated, tc.ts.IsDeflated())
		})
	}
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), ExplicitVRBigEndian.ByteOrder())
	assert.False(t, Syntax("1.2.3").IsKnown())
	assert.Equal(t, "1.2.3", Syntax("1.2.3").Name())
}
