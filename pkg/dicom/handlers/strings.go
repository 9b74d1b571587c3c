package handlers

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jpfielding/dicomkit/pkg/dicom/charset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// Separator divides the values of a multi-valued string
const Separator = '\\'

type stringCore struct {
	vr     vr.VR
	values []string
}

func newStringFamily(v vr.VR, raw []byte, p Params) (core, error) {
	values, err := splitValues(v, raw, p)
	if err != nil {
		return nil, err
	}
	sc := &stringCore{vr: v, values: values}
	switch v {
	case vr.DA, vr.TM, vr.DT:
		return &dateCore{sc}, nil
	case vr.AS:
		return &ageCore{sc}, nil
	case vr.PN:
		return &nameCore{sc}, nil
	case vr.UI:
		return &uidCore{sc}, nil
	default:
		return sc, nil
	}
}

func splitValues(v vr.VR, raw []byte, p Params) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if v.IsUnicode() {
		var err error
		if s, err = charset.Decode(p.Backend, p.Charsets, raw); err != nil {
			return nil, err
		}
	} else {
		s = string(raw)
	}
	var parts []string
	if v.IsMultiValued() {
		parts = strings.Split(s, string(Separator))
	} else {
		parts = []string{s}
	}
	for i, part := range parts {
		parts[i] = trimValue(v, part)
	}
	return parts, nil
}

// trimValue drops padding; leading spaces are content in the text VRs
func trimValue(v vr.VR, s string) string {
	s = strings.TrimRight(s, " \x00")
	switch v {
	case vr.LT, vr.ST, vr.UT, vr.UR:
		return s
	default:
		return strings.TrimLeft(s, " ")
	}
}

func (c *stringCore) size() int { return len(c.values) }

func (c *stringCore) resize(n int) {
	if n <= len(c.values) {
		c.values = c.values[:n]
		return
	}
	c.values = append(c.values, make([]string, n-len(c.values))...)
}

func (c *stringCore) text(i int) (string, error) {
	return c.values[i], nil
}

func (c *stringCore) setText(i int, s string) error {
	if c.vr.IsMultiValued() && strings.ContainsRune(s, Separator) {
		return dcmerr.New(dcmerr.DataHandlerInvalidData, "%s value %q contains a separator", c.vr, s)
	}
	if max := c.vr.MaxLength(); max > 0 && !c.vr.IsUnicode() && len(s) > max {
		return dcmerr.New(dcmerr.DataHandlerInvalidData, "%s value %q exceeds %d bytes", c.vr, s, max)
	}
	c.values[i] = s
	return nil
}

func (c *stringCore) number(i int) (number, error) {
	s := strings.TrimSpace(c.values[i])
	if s == "" {
		return number{}, conversionError("empty %s value", c.vr)
	}
	switch c.vr {
	case vr.IS:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return number{}, conversionError("%q is not an IS", s)
		}
		return intNum(v), nil
	case vr.DS:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return number{}, conversionError("%q is not a DS", s)
		}
		return floatNum(v), nil
	default:
		return parseNumber(s)
	}
}

func (c *stringCore) setNumber(i int, n number) error {
	switch c.vr {
	case vr.IS:
		v, err := n.signed(math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		return c.setText(i, strconv.FormatInt(v, 10))
	case vr.DS:
		s, err := formatDS(n.float64())
		if err != nil {
			return err
		}
		return c.setText(i, s)
	default:
		return c.setText(i, n.String())
	}
}

// formatDS finds the most precise rendering that fits the 16 byte limit
func formatDS(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", conversionError("%g cannot be stored in a DS", f)
	}
	if s := strconv.FormatFloat(f, 'g', -1, 64); len(s) <= 16 {
		return s, nil
	}
	for prec := 15; prec > 0; prec-- {
		if s := strconv.FormatFloat(f, 'g', prec, 64); len(s) <= 16 {
			return s, nil
		}
	}
	return "", conversionError("%g does not fit a DS", f)
}

func (c *stringCore) encode(p Params) ([]byte, error) {
	joined := strings.Join(c.values, string(Separator))
	if !c.vr.IsUnicode() {
		return []byte(joined), nil
	}
	raw, err := charset.Encode(p.Backend, p.Charsets, joined)
	if err != nil {
		return nil, err
	}
	if max := c.vr.MaxLength(); max > 0 {
		for _, v := range c.values {
			if utf8.RuneCountInString(v) > max {
				return nil, dcmerr.New(dcmerr.DataHandlerInvalidData, "%s value exceeds %d characters", c.vr, max)
			}
		}
	}
	return raw, nil
}

// uidCore normalizes on the way in and out
type uidCore struct {
	*stringCore
}

func (c *uidCore) text(i int) (string, error) {
	if c.values[i] == "" {
		return "", nil
	}
	return NormalizeUID(c.values[i])
}

func (c *uidCore) setText(i int, s string) error {
	if s == "" {
		return c.stringCore.setText(i, s)
	}
	n, err := NormalizeUID(s)
	if err != nil {
		return err
	}
	return c.stringCore.setText(i, n)
}

// NormalizeUID strips leading zeros from multi-digit components and turns
// empty components into "0". Characters other than digits and '.' are
// invalid.
func NormalizeUID(uid string) (string, error) {
	var b strings.Builder
	addDot := false
	startNumber := true
	for i := 0; i < len(uid); i++ {
		ch := uid[i]
		switch {
		case ch >= '0' && ch <= '9':
			if addDot {
				if b.Len() == 0 {
					b.WriteByte('0')
				}
				b.WriteByte('.')
				addDot = false
			}
			nextIsDigit := i+1 < len(uid) && uid[i+1] >= '0' && uid[i+1] <= '9'
			if startNumber && ch == '0' && nextIsDigit {
				continue
			}
			b.WriteByte(ch)
			startNumber = false
		case ch == '.':
			if addDot {
				if b.Len() == 0 {
					b.WriteByte('0')
				}
				b.WriteString(".0")
			}
			addDot = true
			startNumber = true
		default:
			return "", dcmerr.New(dcmerr.DataHandlerInvalidData, "invalid character %q in UID %q", ch, uid)
		}
	}
	if addDot {
		if b.Len() == 0 {
			b.WriteByte('0')
		}
		b.WriteString(".0")
	}
	return b.String(), nil
}
