package charset

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"golang.org/x/text/encoding/japanese"
)

const esc = 0x1B

// delimiters return the code elements to the initial charset (PS3.5 6.1.2.5.3)
const delimiters = "^=\\\r\n\f\t"

const (
	jisX0208 = "ISO 2022 IR 87"
	jisX0212 = "ISO 2022 IR 159"
	ascii    = "ISO 2022 IR 6"
)

// designation is the escape sequence that invokes a defined term into G0 or G1
type designation struct {
	seq  string
	term string
	g0   bool
}

var designations = []designation{
	{"\x1b(B", ascii, true},
	{"\x1b(J", "ISO 2022 IR 13", true},
	{"\x1b)I", "ISO 2022 IR 13", false},
	{"\x1b-A", "ISO 2022 IR 100", false},
	{"\x1b-B", "ISO 2022 IR 101", false},
	{"\x1b-C", "ISO 2022 IR 109", false},
	{"\x1b-D", "ISO 2022 IR 110", false},
	{"\x1b-L", "ISO 2022 IR 144", false},
	{"\x1b-G", "ISO 2022 IR 127", false},
	{"\x1b-F", "ISO 2022 IR 126", false},
	{"\x1b-H", "ISO 2022 IR 138", false},
	{"\x1b-M", "ISO 2022 IR 148", false},
	{"\x1b-T", "ISO 2022 IR 166", false},
	{"\x1b$B", jisX0208, true},
	{"\x1b$(D", jisX0212, true},
	{"\x1b$)C", "ISO 2022 IR 149", false},
	{"\x1b$)A", "ISO 2022 IR 58", false},
}

// usesCodeExtensions reports a charset list that switches with escape sequences
func usesCodeExtensions(charsets []string) bool {
	for _, term := range charsets {
		if strings.HasPrefix(strings.TrimSpace(term), "ISO 2022") {
			return true
		}
	}
	return false
}

// canonical spells single byte terms the way the designation table does
func canonical(term string) string {
	term = strings.TrimSpace(term)
	if strings.HasPrefix(term, "ISO_IR ") {
		return "ISO 2022 IR " + strings.TrimPrefix(term, "ISO_IR ")
	}
	return term
}

func designationOf(term string) (designation, bool) {
	term = canonical(term)
	for _, d := range designations {
		// G1 katakana is the designation emitted for IR 13
		if d.term == term && !(term == "ISO 2022 IR 13" && d.g0) {
			return d, true
		}
	}
	return designation{}, false
}

func matchDesignation(raw []byte) (designation, bool) {
	for _, d := range designations {
		if bytes.HasPrefix(raw, []byte(d.seq)) {
			return d, true
		}
	}
	return designation{}, false
}

func isMultiG0(term string) bool {
	return term == jisX0208 || term == jisX0212
}

// codeState is the charset invoked into each code element
type codeState struct {
	g0, g1 string
}

func initialState(term string) codeState {
	term = strings.TrimSpace(term)
	switch {
	case canonical(term) == "ISO 2022 IR 13":
		return codeState{g0: term, g1: term}
	case isMultiG0(term):
		return codeState{g0: ascii}
	}
	return codeState{g0: ascii, g1: term}
}

// ground returns G0 to the single byte set of the initial state
func (s codeState) ground() string {
	if canonical(s.g0) == "ISO 2022 IR 13" {
		return "\x1b(J"
	}
	return "\x1b(B"
}

func isDelimiter(c byte) bool {
	return strings.IndexByte(delimiters, c) >= 0
}

// decodeExtended decodes a value whose charset changes on escape sequences
func decodeExtended(b Backend, charsets []string, raw []byte) (string, error) {
	initial := initialState(charsets[0])
	st := initial
	var sb strings.Builder
	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == esc:
			d, ok := matchDesignation(raw[i:])
			if !ok {
				return "", dcmerr.New(dcmerr.CharsetConversionCannotConvert, "unknown escape sequence at byte %d", i)
			}
			if d.g0 {
				st.g0 = d.term
			} else {
				st.g1 = d.term
			}
			i += len(d.seq)
		case c < utf8.RuneSelf && !isMultiG0(st.g0):
			sb.WriteByte(c)
			if isDelimiter(c) {
				st = initial
			}
			i++
		default:
			high := c >= utf8.RuneSelf
			j := i + 1
			for j < len(raw) && raw[j] != esc && (raw[j] >= utf8.RuneSelf) == high {
				j++
			}
			var s string
			var err error
			if high {
				s, err = decodeG1(b, st.g1, raw[i:j])
			} else {
				s, err = decodeJIS(st.g0, raw[i:j])
			}
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
			i = j
		}
	}
	return sb.String(), nil
}

func decodeG1(b Backend, term string, raw []byte) (string, error) {
	c, err := b.Converter(term)
	if err != nil {
		return "", err
	}
	return c.ToUnicode(raw)
}

// decodeJIS maps 7 bit JIS X 0208/0212 pairs onto EUC-JP
func decodeJIS(term string, raw []byte) (string, error) {
	if len(raw)%2 != 0 {
		return "", dcmerr.New(dcmerr.CharsetConversionCannotConvert, "%s: odd byte count %d", term, len(raw))
	}
	euc := make([]byte, 0, len(raw)*3/2)
	for i := 0; i < len(raw); i += 2 {
		if term == jisX0212 {
			euc = append(euc, 0x8F)
		}
		euc = append(euc, raw[i]|0x80, raw[i+1]|0x80)
	}
	out, err := japanese.EUCJP.NewDecoder().Bytes(euc)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", dcmerr.New(dcmerr.CharsetConversionCannotConvert, "%s: undecodable bytes", term)
	}
	return string(out), nil
}

// encodeExtended picks a charset per character from the list and designates
// it with an escape sequence whenever the code element changes
func encodeExtended(b Backend, charsets []string, s string) ([]byte, error) {
	initial := initialState(charsets[0])
	st := initial
	out := make([]byte, 0, len(s))
	writeSingle := func(c byte) {
		if isMultiG0(st.g0) {
			out = append(out, initial.ground()...)
			st.g0 = initial.g0
		}
		out = append(out, c)
		if isDelimiter(c) {
			st = initial
		}
	}
	for _, r := range s {
		if r < utf8.RuneSelf {
			writeSingle(byte(r))
			continue
		}
		enc, d, ok := encodeInState(b, st, r)
		if !ok {
			for _, term := range charsets {
				if enc, d, ok = encodeDesignated(b, term, r); ok {
					break
				}
			}
		}
		if !ok {
			writeSingle(Substitute)
			continue
		}
		if d.seq != "" {
			out = append(out, d.seq...)
			if d.g0 {
				st.g0 = d.term
			} else {
				st.g1 = d.term
			}
		}
		out = append(out, enc...)
	}
	if isMultiG0(st.g0) {
		out = append(out, initial.ground()...)
	}
	if degenerate(string(out), Substitute) && !degenerate(s, Substitute) {
		return nil, dcmerr.New(dcmerr.CharsetConversionCannotConvert, "%v: no representable characters in %q", charsets, s)
	}
	return out, nil
}

// encodeInState encodes with whatever is already invoked, no escape needed
func encodeInState(b Backend, st codeState, r rune) ([]byte, designation, bool) {
	if isMultiG0(st.g0) {
		if enc, ok := encodeJIS(st.g0, r); ok {
			return enc, designation{}, true
		}
	}
	if st.g1 != "" {
		if enc, ok := encodeG1(b, st.g1, r); ok {
			return enc, designation{}, true
		}
	}
	return nil, designation{}, false
}

func encodeDesignated(b Backend, term string, r rune) ([]byte, designation, bool) {
	d, ok := designationOf(term)
	if !ok || d.term == ascii {
		return nil, d, false
	}
	var enc []byte
	if d.g0 {
		enc, ok = encodeJIS(d.term, r)
	} else {
		enc, ok = encodeG1(b, d.term, r)
	}
	return enc, d, ok
}

// encodeG1 accepts only encodings made entirely of high bytes
func encodeG1(b Backend, term string, r rune) ([]byte, bool) {
	switch canonical(term) {
	case "", ascii:
		return nil, false
	}
	c, err := b.Converter(term)
	if err != nil {
		return nil, false
	}
	enc, err := c.FromUnicode(string(r))
	if err != nil || len(enc) == 0 {
		return nil, false
	}
	for _, x := range enc {
		if x < utf8.RuneSelf {
			return nil, false
		}
	}
	if canonical(term) == "ISO 2022 IR 13" && len(enc) != 1 {
		return nil, false
	}
	return enc, true
}

// encodeJIS maps EUC-JP output back to 7 bit JIS X 0208/0212 pairs
func encodeJIS(term string, r rune) ([]byte, bool) {
	euc, err := japanese.EUCJP.NewEncoder().Bytes([]byte(string(r)))
	if err != nil {
		return nil, false
	}
	switch {
	case term == jisX0208 && len(euc) == 2 && euc[0] >= 0xA1:
		return []byte{euc[0] & 0x7F, euc[1] & 0x7F}, true
	case term == jisX0212 && len(euc) == 3 && euc[0] == 0x8F:
		return []byte{euc[1] & 0x7F, euc[2] & 0x7F}, true
	}
	return nil, false
}
