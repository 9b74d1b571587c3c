package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// Date is the value of a DA, TM or DT element. Fields a VR does not carry
// are zero. The UTC offset is kept as hours and minutes, both carrying the
// sign.
type Date struct {
	Year          uint32
	Month         uint32
	Day           uint32
	Hour          uint32
	Minutes       uint32
	Seconds       uint32
	Nanoseconds   uint32
	OffsetHours   int32
	OffsetMinutes int32
}

// NewDate converts a time.Time, keeping its zone offset
func NewDate(t time.Time) Date {
	_, offset := t.Zone()
	return Date{
		Year:          uint32(t.Year()),
		Month:         uint32(t.Month()),
		Day:           uint32(t.Day()),
		Hour:          uint32(t.Hour()),
		Minutes:       uint32(t.Minute()),
		Seconds:       uint32(t.Second()),
		Nanoseconds:   uint32(t.Nanosecond()),
		OffsetHours:   int32(offset / 3600),
		OffsetMinutes: int32(offset % 3600 / 60),
	}
}

// Time converts to a time.Time in a fixed zone built from the offset
func (d Date) Time() time.Time {
	year, month, day := int(d.Year), time.Month(d.Month), int(d.Day)
	if year == 0 && month == 0 && day == 0 {
		year, month, day = 1, time.January, 1
	}
	offset := int(d.OffsetHours)*3600 + int(d.OffsetMinutes)*60
	zone := time.UTC
	if offset != 0 {
		zone = time.FixedZone("", offset)
	}
	return time.Date(year, month, day, int(d.Hour), int(d.Minutes), int(d.Seconds), int(d.Nanoseconds), zone)
}

func invalidDate(format string, args ...any) error {
	return dcmerr.New(dcmerr.DataHandlerInvalidData, format, args...)
}

func digits(s string, what string) (uint32, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, invalidDate("%s %q is not numeric", what, s)
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, invalidDate("%s %q: %v", what, s, err)
	}
	return uint32(v), nil
}

// parseDA accepts YYYYMMDD and the retired YYYY.MM.DD
func parseDA(s string) (Date, error) {
	s = strings.ReplaceAll(s, ".", "")
	if len(s) != 8 {
		return Date{}, invalidDate("date %q is not YYYYMMDD", s)
	}
	var d Date
	var err error
	if d.Year, err = digits(s[0:4], "year"); err != nil {
		return Date{}, err
	}
	if d.Month, err = digits(s[4:6], "month"); err != nil {
		return Date{}, err
	}
	if d.Day, err = digits(s[6:8], "day"); err != nil {
		return Date{}, err
	}
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return Date{}, invalidDate("date %q out of range", s)
	}
	return d, nil
}

// splitOffset separates a trailing &ZZXX offset
func splitOffset(s string, from int) (string, int32, int32, error) {
	idx := strings.LastIndexAny(s, "+-")
	if idx < from {
		return s, 0, 0, nil
	}
	off := s[idx+1:]
	if len(off) != 4 {
		return "", 0, 0, invalidDate("offset %q is not HHMM", s[idx:])
	}
	hh, err := digits(off[0:2], "offset hours")
	if err != nil {
		return "", 0, 0, err
	}
	mm, err := digits(off[2:4], "offset minutes")
	if err != nil {
		return "", 0, 0, err
	}
	h, m := int32(hh), int32(mm)
	if s[idx] == '-' {
		h, m = -h, -m
	}
	return s[:idx], h, m, nil
}

// parseTM accepts HH[MM[SS[.F{1,6}]]], the retired HH:MM:SS and a UTC offset
func parseTM(s string) (Date, error) {
	s, oh, om, err := splitOffset(s, 2)
	if err != nil {
		return Date{}, err
	}
	d := Date{OffsetHours: oh, OffsetMinutes: om}
	s = strings.ReplaceAll(s, ":", "")
	frac := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s, frac = s[:dot], s[dot+1:]
	}
	if len(s) < 2 || len(s) > 6 || len(s)%2 != 0 {
		return Date{}, invalidDate("time %q is not HHMMSS", s)
	}
	if d.Hour, err = digits(s[0:2], "hour"); err != nil {
		return Date{}, err
	}
	if len(s) >= 4 {
		if d.Minutes, err = digits(s[2:4], "minutes"); err != nil {
			return Date{}, err
		}
	}
	if len(s) == 6 {
		if d.Seconds, err = digits(s[4:6], "seconds"); err != nil {
			return Date{}, err
		}
	}
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		ns, err := digits(frac+strings.Repeat("0", 9-len(frac)), "fraction")
		if err != nil {
			return Date{}, err
		}
		d.Nanoseconds = ns
	}
	if d.Hour > 23 || d.Minutes > 59 || d.Seconds > 60 {
		return Date{}, invalidDate("time %q out of range", s)
	}
	return d, nil
}

// parseDT accepts YYYY[MM[DD[HH[MM[SS[.F]]]]]][&ZZXX]
func parseDT(s string) (Date, error) {
	s, oh, om, err := splitOffset(s, 4)
	if err != nil {
		return Date{}, err
	}
	if len(s) < 4 {
		return Date{}, invalidDate("date time %q has no year", s)
	}
	datePart, timePart := s, ""
	if len(s) > 8 {
		datePart, timePart = s[:8], s[8:]
	}
	for len(datePart) < 8 {
		datePart += "01"
	}
	d, err := parseDA(datePart)
	if err != nil {
		return Date{}, err
	}
	if timePart != "" {
		t, err := parseTM(timePart)
		if err != nil {
			return Date{}, err
		}
		d.Hour, d.Minutes, d.Seconds, d.Nanoseconds = t.Hour, t.Minutes, t.Seconds, t.Nanoseconds
	}
	d.OffsetHours, d.OffsetMinutes = oh, om
	return d, nil
}

func formatDA(d Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

func formatTM(d Date) string {
	return fmt.Sprintf("%02d%02d%02d.%06d", d.Hour, d.Minutes, d.Seconds, d.Nanoseconds/1000)
}

func formatOffset(d Date) string {
	if d.OffsetHours == 0 && d.OffsetMinutes == 0 {
		return ""
	}
	sign := byte('+')
	h, m := d.OffsetHours, d.OffsetMinutes
	if h < 0 || m < 0 {
		sign = '-'
	}
	if h < 0 {
		h = -h
	}
	if m < 0 {
		m = -m
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}

type dateCore struct {
	*stringCore
}

func (c *dateCore) date(i int) (Date, error) {
	s := c.values[i]
	switch c.vr {
	case vr.DA:
		return parseDA(s)
	case vr.TM:
		return parseTM(s)
	default:
		return parseDT(s)
	}
}

func (c *dateCore) setDate(i int, d Date) error {
	switch c.vr {
	case vr.DA:
		return c.setText(i, formatDA(d))
	case vr.TM:
		return c.setText(i, formatTM(d))
	default:
		return c.setText(i, formatDA(d)+formatTM(d)+formatOffset(d))
	}
}
