package handlers

import (
	"math"
	"strconv"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
)

type numKind int

const (
	numInt numKind = iota
	numUint
	numFloat
)

// number carries a value in its native kind so that narrowing conversions
// can detect values that are not representable
type number struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

func intNum(v int64) number     { return number{kind: numInt, i: v} }
func uintNum(v uint64) number   { return number{kind: numUint, u: v} }
func floatNum(v float64) number { return number{kind: numFloat, f: v} }

func conversionError(format string, args ...any) error {
	return dcmerr.New(dcmerr.DataHandlerConversion, format, args...)
}

func (n number) int64() (int64, error) {
	switch n.kind {
	case numInt:
		return n.i, nil
	case numUint:
		if n.u > math.MaxInt64 {
			return 0, conversionError("%d overflows int64", n.u)
		}
		return int64(n.u), nil
	default:
		if math.IsNaN(n.f) || n.f != math.Trunc(n.f) || n.f < math.MinInt64 || n.f >= math.MaxInt64 {
			return 0, conversionError("%g is not an integer", n.f)
		}
		return int64(n.f), nil
	}
}

func (n number) uint64() (uint64, error) {
	switch n.kind {
	case numInt:
		if n.i < 0 {
			return 0, conversionError("%d is negative", n.i)
		}
		return uint64(n.i), nil
	case numUint:
		return n.u, nil
	default:
		if math.IsNaN(n.f) || n.f != math.Trunc(n.f) || n.f < 0 || n.f >= math.MaxUint64 {
			return 0, conversionError("%g is not an unsigned integer", n.f)
		}
		return uint64(n.f), nil
	}
}

func (n number) float64() float64 {
	switch n.kind {
	case numInt:
		return float64(n.i)
	case numUint:
		return float64(n.u)
	default:
		return n.f
	}
}

// signed narrows to [lo, hi]
func (n number) signed(lo, hi int64) (int64, error) {
	v, err := n.int64()
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, conversionError("%d outside [%d, %d]", v, lo, hi)
	}
	return v, nil
}

// unsigned narrows to [0, hi]
func (n number) unsigned(hi uint64) (uint64, error) {
	v, err := n.uint64()
	if err != nil {
		return 0, err
	}
	if v > hi {
		return 0, conversionError("%d exceeds %d", v, hi)
	}
	return v, nil
}

func (n number) String() string {
	switch n.kind {
	case numInt:
		return strconv.FormatInt(n.i, 10)
	case numUint:
		return strconv.FormatUint(n.u, 10)
	default:
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
}

// parseNumber reads the narrowest kind that accepts s
func parseNumber(s string) (number, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return intNum(v), nil
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return uintNum(v), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return floatNum(v), nil
	}
	return number{}, conversionError("%q is not a number", s)
}
