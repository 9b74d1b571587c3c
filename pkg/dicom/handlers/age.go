package handlers

import (
	"fmt"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
)

// AgeUnit is the trailing letter of an AS value
type AgeUnit byte

const (
	Days   AgeUnit = 'D'
	Weeks  AgeUnit = 'W'
	Months AgeUnit = 'M'
	Years  AgeUnit = 'Y'
)

// Age is the value of an AS element
type Age struct {
	Value uint32
	Unit  AgeUnit
}

// Years converts the age to years
func (a Age) Years() float64 {
	switch a.Unit {
	case Days:
		return float64(a.Value) / 365
	case Weeks:
		return float64(a.Value) * 7 / 365
	case Months:
		return float64(a.Value) / 12
	default:
		return float64(a.Value)
	}
}

func (a Age) String() string {
	return fmt.Sprintf("%03d%c", a.Value, a.Unit)
}

// ParseAge reads nnnD, nnnW, nnnM or nnnY
func ParseAge(s string) (Age, error) {
	if len(s) != 4 {
		return Age{}, dcmerr.New(dcmerr.DataHandlerInvalidData, "age %q is not nnnU", s)
	}
	v, err := digits(s[:3], "age")
	if err != nil {
		return Age{}, err
	}
	unit := AgeUnit(s[3])
	switch unit {
	case Days, Weeks, Months, Years:
	default:
		return Age{}, dcmerr.New(dcmerr.DataHandlerInvalidData, "age unit %q", s[3])
	}
	return Age{Value: v, Unit: unit}, nil
}

type ageCore struct {
	*stringCore
}

func (c *ageCore) age(i int) (Age, error) {
	return ParseAge(c.values[i])
}

func (c *ageCore) setAge(i int, a Age) error {
	if a.Value > 999 {
		return dcmerr.New(dcmerr.DataHandlerInvalidData, "age %d does not fit 3 digits", a.Value)
	}
	switch a.Unit {
	case Days, Weeks, Months, Years:
	default:
		return dcmerr.New(dcmerr.DataHandlerInvalidData, "age unit %q", byte(a.Unit))
	}
	return c.setText(i, a.String())
}
