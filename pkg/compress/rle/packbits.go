package rle

import (
	"bytes"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
)

// PackBits as used by DICOM RLE segments (PS3.5 Annex G)

// encodePackBits compresses one segment. Runs of two or more bytes become
// replicate runs; literal runs stop in front of a run of three.
func encodePackBits(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	var buf bytes.Buffer
	i := 0
	for i < len(data) {
		runLen := 1
		for i+runLen < len(data) && runLen < 128 && data[i+runLen] == data[i] {
			runLen++
		}
		if runLen > 1 {
			buf.WriteByte(byte(int8(-(runLen - 1))))
			buf.WriteByte(data[i])
			i += runLen
			continue
		}
		litLen := 1
		for i+litLen < len(data) && litLen < 128 {
			if i+litLen+2 < len(data) &&
				data[i+litLen] == data[i+litLen+1] &&
				data[i+litLen] == data[i+litLen+2] {
				break
			}
			litLen++
		}
		buf.WriteByte(byte(int8(litLen - 1)))
		buf.Write(data[i : i+litLen])
		i += litLen
	}
	return buf.Bytes()
}

// decodePackBits expands a segment, stopping once expectedLen bytes are
// produced so trailing padding is ignored. expectedLen 0 decodes everything.
func decodePackBits(data []byte, expectedLen int) ([]byte, error) {
	var buf bytes.Buffer
	if expectedLen > 0 {
		buf.Grow(expectedLen)
	}
	i := 0
	for i < len(data) {
		if expectedLen > 0 && buf.Len() >= expectedLen {
			break
		}
		n := int8(data[i])
		i++
		switch {
		case n == -128:
			// no-op
		case n >= 0:
			count := int(n) + 1
			if i+count > len(data) {
				return nil, dcmerr.New(dcmerr.CodecCorruptedFile, "rle: compressed data truncated in literal run (i=%d, count=%d, len=%d)", i, count, len(data))
			}
			buf.Write(data[i : i+count])
			i += count
		default:
			if i >= len(data) {
				return nil, dcmerr.New(dcmerr.CodecCorruptedFile, "rle: compressed data truncated in replicate run")
			}
			buf.Write(bytes.Repeat(data[i:i+1], int(-n)+1))
			i++
		}
	}
	return buf.Bytes(), nil
}
