// Package charset converts DICOM string values between the Specific
// Character Set of a data set and Go strings. The conversion engine is a
// Backend chosen at configuration time; TextBackend is the default.
package charset

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// Substitute replaces characters a charset cannot represent
const Substitute = '?'

// Converter translates between one charset and unicode
type Converter interface {
	ToUnicode(raw []byte) (string, error)
	FromUnicode(s string) ([]byte, error)
}

// Backend resolves a DICOM defined term (e.g. "ISO_IR 100") to a Converter
type Backend interface {
	Converter(term string) (Converter, error)
}

// Default is used by data sets that were not configured with a Backend
var Default Backend = NewTextBackend()

// direct maps defined terms to x/text encodings, the rest go through
// html/charset labels
var direct = map[string]encoding.Encoding{
	"":                charmap.Windows1252,
	"ISO_IR 6":        charmap.Windows1252,
	"ISO 2022 IR 6":   charmap.Windows1252,
	"ISO_IR 100":      charmap.ISO8859_1,
	"ISO 2022 IR 100": charmap.ISO8859_1,
	"ISO_IR 101":      charmap.ISO8859_2,
	"ISO_IR 109":      charmap.ISO8859_3,
	"ISO_IR 110":      charmap.ISO8859_4,
	"ISO_IR 144":      charmap.ISO8859_5,
	"ISO_IR 127":      charmap.ISO8859_6,
	"ISO_IR 126":      charmap.ISO8859_7,
	"ISO_IR 138":      charmap.ISO8859_8,
	"ISO_IR 148":      charmap.ISO8859_9,
	"ISO_IR 13":       japanese.ShiftJIS,
	"ISO 2022 IR 13":  japanese.ShiftJIS,
	"ISO 2022 IR 87":  japanese.ISO2022JP,
	"ISO 2022 IR 159": japanese.ISO2022JP,
	"ISO 2022 IR 149": korean.EUCKR,
	"ISO 2022 IR 58":  simplifiedchinese.GBK,
	"ISO_IR 192":      unicode.UTF8,
	"GB18030":         simplifiedchinese.GB18030,
	"GBK":             simplifiedchinese.GBK,
}

var labels = map[string]string{
	"ISO 2022 IR 101": "iso-ir-101",
	"ISO 2022 IR 109": "iso-ir-109",
	"ISO 2022 IR 110": "iso-ir-110",
	"ISO 2022 IR 144": "iso-ir-144",
	"ISO 2022 IR 127": "iso-ir-127",
	"ISO 2022 IR 126": "iso-ir-126",
	"ISO 2022 IR 138": "iso-ir-138",
	"ISO 2022 IR 148": "iso-ir-148",
	"ISO_IR 166":      "tis-620",
	"ISO 2022 IR 166": "tis-620",
}

// TextBackend converts with golang.org/x/text encodings
type TextBackend struct {
	mu    sync.Mutex
	cache map[string]Converter
}

// NewTextBackend creates the default backend
func NewTextBackend() *TextBackend {
	return &TextBackend{cache: map[string]Converter{}}
}

// Converter returns the converter for a defined term
func (b *TextBackend) Converter(term string) (Converter, error) {
	term = strings.TrimSpace(term)
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.cache[term]; ok {
		return c, nil
	}
	enc, ok := direct[term]
	if !ok {
		label, known := labels[term]
		if !known {
			return nil, dcmerr.New(dcmerr.CharsetConversionNoTable, "no table for character set %q", term)
		}
		if enc, _ = charset.Lookup(label); enc == nil {
			return nil, dcmerr.New(dcmerr.CharsetConversionNoSupportedTable, "no encoding for label %q", label)
		}
	}
	c := &textConverter{term: term, enc: enc}
	b.cache[term] = c
	return c, nil
}

type textConverter struct {
	term string
	enc  encoding.Encoding
}

func (c *textConverter) ToUnicode(raw []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", dcmerr.New(dcmerr.CharsetConversionCannotConvert, "%s: %v", c.term, err)
	}
	s := string(out)
	// raw bytes that literally spell U+FFFD decode to themselves
	if degenerate(s, utf8.RuneError) && strings.ReplaceAll(string(raw), "\uFFFD", "") != "" {
		return "", dcmerr.New(dcmerr.CharsetConversionCannotConvert, "%s: undecodable bytes", c.term)
	}
	return s, nil
}

func (c *textConverter) FromUnicode(s string) ([]byte, error) {
	enc := c.enc.NewEncoder()
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			out = append(out, Substitute)
			continue
		}
		out = append(out, b...)
	}
	if degenerate(string(out), Substitute) && !degenerate(s, Substitute) {
		return nil, dcmerr.New(dcmerr.CharsetConversionCannotConvert, "%s: no representable characters in %q", c.term, s)
	}
	return out, nil
}

// degenerate reports a non empty string made only of the substitute rune
func degenerate(s string, sub rune) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != sub {
			return false
		}
	}
	return true
}

// Decode converts raw to unicode. Lists with ISO 2022 terms switch charsets
// on escape sequences; other lists try each charset in order, with UTF-8
// first when raw is valid non ASCII UTF-8. An empty list means the default
// repertoire.
func Decode(b Backend, charsets []string, raw []byte) (string, error) {
	if b == nil {
		b = Default
	}
	if len(charsets) == 0 {
		charsets = []string{""}
	}
	if usesCodeExtensions(charsets) {
		return decodeExtended(b, charsets, raw)
	}
	var last error
	for _, term := range preferUTF8(charsets, raw) {
		c, err := b.Converter(term)
		if err != nil {
			last = err
			continue
		}
		s, err := c.ToUnicode(raw)
		if err == nil {
			return s, nil
		}
		last = err
	}
	return "", dcmerr.New(dcmerr.CharsetConversionCannotConvert, "cannot decode with %v: %v", charsets, last)
}

// preferUTF8 moves ISO_IR 192 to the front when raw can only be UTF-8.
// Single byte charsets accept any byte and would otherwise win.
func preferUTF8(charsets []string, raw []byte) []string {
	if len(charsets) < 2 || !utf8.Valid(raw) || isASCII(raw) {
		return charsets
	}
	for i, term := range charsets {
		if strings.TrimSpace(term) == "ISO_IR 192" {
			out := make([]string, 0, len(charsets))
			out = append(out, term)
			out = append(out, charsets[:i]...)
			return append(out, charsets[i+1:]...)
		}
	}
	return charsets
}

func isASCII(raw []byte) bool {
	for _, c := range raw {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Encode converts s with the first charset of the list that represents every
// character. ISO 2022 lists choose a charset per character instead. When no
// single charset fits, the first usable one substitutes what it cannot map.
func Encode(b Backend, charsets []string, s string) ([]byte, error) {
	if b == nil {
		b = Default
	}
	if len(charsets) == 0 {
		charsets = []string{""}
	}
	if usesCodeExtensions(charsets) {
		return encodeExtended(b, charsets, s)
	}
	var last error
	var partial []byte
	for _, term := range charsets {
		c, err := b.Converter(term)
		if err != nil {
			last = err
			continue
		}
		raw, err := c.FromUnicode(s)
		if err != nil {
			last = err
			continue
		}
		if !substituted(s, raw) {
			return raw, nil
		}
		if partial == nil {
			partial = raw
		}
	}
	if partial != nil {
		return partial, nil
	}
	return nil, dcmerr.New(dcmerr.CharsetConversionCannotConvert, "cannot encode with %v: %v", charsets, last)
}

// substituted reports output carrying more substitutes than the input had
func substituted(s string, raw []byte) bool {
	return bytes.Count(raw, []byte{Substitute}) > strings.Count(s, string(Substitute))
}
