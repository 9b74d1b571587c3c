package handlers

import (
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
)

// PersonName holds the three component groups of a PN value. Each group
// is Family^Given^Middle^Prefix^Suffix.
type PersonName struct {
	Alphabetic  string
	Ideographic string
	Phonetic    string
}

// ParsePersonName splits a PN value on '='
func ParsePersonName(s string) PersonName {
	parts := strings.SplitN(s, "=", 3)
	var p PersonName
	p.Alphabetic = parts[0]
	if len(parts) > 1 {
		p.Ideographic = parts[1]
	}
	if len(parts) > 2 {
		p.Phonetic = parts[2]
	}
	return p
}

// String joins the groups, dropping empty trailing ones
func (p PersonName) String() string {
	s := p.Alphabetic + "=" + p.Ideographic + "=" + p.Phonetic
	return strings.TrimRight(s, "=")
}

// Components splits the alphabetic group on '^'
func (p PersonName) Components() []string {
	return strings.Split(p.Alphabetic, "^")
}

// Family is the first alphabetic component
func (p PersonName) Family() string {
	return p.Components()[0]
}

// Given is the second alphabetic component
func (p PersonName) Given() string {
	c := p.Components()
	if len(c) < 2 {
		return ""
	}
	return c[1]
}

type nameCore struct {
	*stringCore
}

func (c *nameCore) personName(i int) (PersonName, error) {
	return ParsePersonName(c.values[i]), nil
}

func (c *nameCore) setPersonName(i int, p PersonName) error {
	for _, g := range []string{p.Alphabetic, p.Ideographic, p.Phonetic} {
		if strings.ContainsRune(g, '=') {
			return dcmerr.New(dcmerr.DataHandlerInvalidData, "person name group %q contains '='", g)
		}
		if len([]rune(g)) > 64 {
			return dcmerr.New(dcmerr.DataHandlerInvalidData, "person name group %q exceeds 64 characters", g)
		}
	}
	return c.setText(i, p.String())
}
