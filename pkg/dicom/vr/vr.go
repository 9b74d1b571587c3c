// Package vr defines DICOM Value Representations
package vr

import "strings"

// VR represents a DICOM Value Representation
type VR string

// Standard DICOM Value Representations
const (
	AE VR = "AE" // Application Entity (16 bytes max)
	AS VR = "AS" // Age String (4 bytes fixed)
	AT VR = "AT" // Attribute Tag (4 bytes fixed)
	CS VR = "CS" // Code String (16 bytes max)
	DA VR = "DA" // Date (8 bytes fixed)
	DS VR = "DS" // Decimal String (16 bytes max)
	DT VR = "DT" // DateTime (26 bytes max)
	FL VR = "FL" // Floating Point Single (4 bytes fixed)
	FD VR = "FD" // Floating Point Double (8 bytes fixed)
	IS VR = "IS" // Integer String (12 bytes max)
	LO VR = "LO" // Long String (64 bytes max)
	LT VR = "LT" // Long Text (10240 bytes max)
	OB VR = "OB" // Other Byte String
	OD VR = "OD" // Other Double String
	OF VR = "OF" // Other Float String
	OL VR = "OL" // Other Long
	OV VR = "OV" // Other 64-bit Very Long
	OW VR = "OW" // Other Word String
	PN VR = "PN" // Person Name (64 bytes max per component group)
	SB VR = "SB" // Signed Byte
	SH VR = "SH" // Short String (16 bytes max)
	SL VR = "SL" // Signed Long (4 bytes fixed)
	SQ VR = "SQ" // Sequence of Items
	SS VR = "SS" // Signed Short (2 bytes fixed)
	ST VR = "ST" // Short Text (1024 bytes max)
	SV VR = "SV" // Signed 64-bit Very Long
	TM VR = "TM" // Time (16 bytes max)
	UC VR = "UC" // Unlimited Characters
	UI VR = "UI" // Unique Identifier (64 bytes max)
	UL VR = "UL" // Unsigned Long (4 bytes fixed)
	UN VR = "UN" // Unknown
	UR VR = "UR" // Universal Resource Identifier
	US VR = "US" // Unsigned Short (2 bytes fixed)
	UT VR = "UT" // Unlimited Text
	UV VR = "UV" // Unsigned 64-bit Very Long
)

var known = map[VR]struct{}{
	AE: {}, AS: {}, AT: {}, CS: {}, DA: {}, DS: {}, DT: {}, FL: {}, FD: {}, IS: {},
	LO: {}, LT: {}, OB: {}, OD: {}, OF: {}, OL: {}, OV: {}, OW: {}, PN: {}, SB: {},
	SH: {}, SL: {}, SQ: {}, SS: {}, ST: {}, SV: {}, TM: {}, UC: {}, UI: {}, UL: {},
	UN: {}, UR: {}, US: {}, UT: {}, UV: {},
}

// Parse validates a two character VR code; ok is false for unknown codes
func Parse(s string) (VR, bool) {
	v := VR(strings.ToUpper(s))
	_, ok := known[v]
	return v, ok
}

// IsKnown reports whether the VR is one of the standard codes
func (v VR) IsKnown() bool {
	_, ok := known[v]
	return ok
}

// IsExplicitLength returns true if the VR uses explicit 2-byte length in explicit VR
// Otherwise uses 4-byte length with 2-byte reserved field
func (v VR) IsExplicitLength() bool {
	switch v {
	case OB, OD, OF, OL, OV, OW, SQ, SV, UC, UN, UR, UT, UV:
		return false // Uses 4-byte length with 2 reserved bytes
	default:
		return true // Uses 2-byte length
	}
}

// IsString returns true if this VR contains string data
func (v VR) IsString() bool {
	switch v {
	case AE, AS, CS, DA, DS, DT, IS, LO, LT, PN, SH, ST, TM, UC, UI, UR, UT:
		return true
	default:
		return false
	}
}

// IsUnicode returns true for string VRs whose content is subject to the
// data set's Specific Character Set
func (v VR) IsUnicode() bool {
	switch v {
	case LO, LT, PN, SH, ST, UC, UT:
		return true
	default:
		return false
	}
}

// IsMultiValued returns false for the text VRs where a backslash is content
// rather than a value separator
func (v VR) IsMultiValued() bool {
	switch v {
	case LT, ST, UT, UR:
		return false
	default:
		return true
	}
}

// IsBinary returns true if this VR contains binary data
func (v VR) IsBinary() bool {
	switch v {
	case AT, FL, FD, OB, OD, OF, OL, OV, OW, SB, SL, SS, SV, UL, UN, US, UV:
		return true
	default:
		return false
	}
}

// IsSequence returns true if this is a sequence VR
func (v VR) IsSequence() bool {
	return v == SQ
}

// ValueSize returns the fixed size in bytes for fixed-size VRs, or 0 for variable
func (v VR) ValueSize() int {
	switch v {
	case AT, FL, SL, UL:
		return 4
	case FD, SV, UV:
		return 8
	case SS, US:
		return 2
	case AS:
		return 4
	default:
		return 0 // Variable
	}
}

// WordSize is the unit of byte swapping when the VR crosses endianness.
// String and byte VRs return 1.
func (v VR) WordSize() int {
	switch v {
	case AT, OW, SS, US:
		return 2
	case FL, OF, OL, SL, UL:
		return 4
	case FD, OD, OV, SV, UV:
		return 8
	default:
		return 1
	}
}

// PaddingByte is appended to odd-length values of this VR
func (v VR) PaddingByte() byte {
	switch v {
	case AE, AS, CS, DA, DS, DT, IS, LO, LT, PN, SH, ST, TM, UC, UR, UT, SQ:
		return ' '
	default:
		return 0
	}
}

// MaxLength is the maximum length in bytes of a single value, 0 when unbounded
func (v VR) MaxLength() int {
	switch v {
	case AE, CS, DS, SH:
		return 16
	case AS:
		return 4
	case DA:
		return 8
	case DT:
		return 26
	case IS:
		return 12
	case LO, UI:
		return 64
	case LT:
		return 10240
	case PN:
		return 64 * 3
	case ST:
		return 1024
	case TM:
		return 16
	default:
		return 0
	}
}
