package loader

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

type codespace struct {
	lo, hi []byte
}

type bfrange struct {
	lo, hi []byte
	dst    []byte   // first destination, incremented across the range
	dsts   [][]byte // explicit destination per code
}

// toUnicode maps a font's character codes to text, as described by its ToUnicode CMap.
type toUnicode struct {
	spaces       []codespace
	chars        map[string]string
	ranges       []bfrange
	defaultWidth int
}

// parseCMap reads the codespace and bf mappings of a ToUnicode CMap. Codes not
// covered by a codespace range are read defaultWidth bytes at a time.
func parseCMap(data []byte, defaultWidth int) *toUnicode {
	m := &toUnicode{chars: make(map[string]string), defaultWidth: defaultWidth}
	s := &scanner{src: data}
	var operands []token
	var arrays [][][]byte // array operands, in order
	var array [][]byte
	inArray := false

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokArrayStart:
			inArray, array = true, nil
			continue
		case tokArrayEnd:
			inArray = false
			arrays = append(arrays, array)
			operands = append(operands, token{kind: tokOther, text: "array"})
			continue
		}
		if inArray {
			if tok.kind == tokString {
				array = append(array, tok.raw)
			}
			continue
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		switch tok.text {
		case "endcodespacerange":
			for i := 0; i+1 < len(operands); i += 2 {
				lo, hi := operands[i], operands[i+1]
				if lo.kind == tokString && hi.kind == tokString && len(lo.raw) == len(hi.raw) && len(lo.raw) > 0 {
					m.spaces = append(m.spaces, codespace{lo: lo.raw, hi: hi.raw})
				}
			}
		case "endbfchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, dst := operands[i], operands[i+1]
				if src.kind == tokString && dst.kind == tokString {
					m.chars[string(src.raw)] = utf16BE(dst.raw)
				}
			}
		case "endbfrange":
			next := 0
			for i := 0; i+2 < len(operands); i += 3 {
				lo, hi, dst := operands[i], operands[i+1], operands[i+2]
				r := bfrange{lo: lo.raw, hi: hi.raw}
				switch {
				case dst.kind == tokString:
					r.dst = dst.raw
				case dst.text == "array" && next < len(arrays):
					r.dsts = arrays[next]
					next++
				default:
					continue
				}
				if lo.kind == tokString && hi.kind == tokString && len(lo.raw) == len(hi.raw) {
					m.ranges = append(m.ranges, r)
				}
			}
		}
		operands, arrays = operands[:0], nil
	}
	return m
}

// decode maps raw string bytes to text. Unmapped single-byte codes fall back to
// WinAnsi; unmapped wider codes are dropped.
func (m *toUnicode) decode(raw []byte) string {
	var sb strings.Builder
	for len(raw) > 0 {
		n := m.codeLen(raw)
		code := raw[:n]
		raw = raw[n:]
		if text, ok := m.lookup(code); ok {
			sb.WriteString(text)
			continue
		}
		if n == 1 && code[0] != '\r' {
			sb.WriteRune(charmap.Windows1252.DecodeByte(code[0]))
		}
	}
	return sb.String()
}

func (m *toUnicode) codeLen(raw []byte) int {
	for n := 1; n <= 4 && n <= len(raw); n++ {
		for _, cs := range m.spaces {
			if len(cs.lo) == n && inCodespace(raw[:n], cs) {
				return n
			}
		}
	}
	n := m.defaultWidth
	if n < 1 {
		n = 1
	}
	if n > len(raw) {
		n = len(raw)
	}
	return n
}

// inCodespace checks each byte against the range bounds, as codespace ranges are
// defined per byte.
func inCodespace(code []byte, cs codespace) bool {
	for i, b := range code {
		if b < cs.lo[i] || b > cs.hi[i] {
			return false
		}
	}
	return true
}

func (m *toUnicode) lookup(code []byte) (string, bool) {
	if text, ok := m.chars[string(code)]; ok {
		return text, true
	}
	for _, r := range m.ranges {
		if len(r.lo) != len(code) || bytes.Compare(code, r.lo) < 0 || bytes.Compare(code, r.hi) > 0 {
			continue
		}
		offset := codeValue(code) - codeValue(r.lo)
		if r.dsts != nil {
			if offset < len(r.dsts) {
				return utf16BE(r.dsts[offset]), true
			}
			return "", false
		}
		return utf16BE(addToLastUnit(r.dst, offset)), true
	}
	return "", false
}

func codeValue(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// addToLastUnit adds offset to the final UTF-16 unit of dst.
func addToLastUnit(dst []byte, offset int) []byte {
	out := append([]byte(nil), dst...)
	if len(out) < 2 {
		if len(out) == 1 {
			out = []byte{0, out[0]}
		} else {
			return out
		}
	}
	last := int(out[len(out)-2])<<8 | int(out[len(out)-1])
	last += offset
	out[len(out)-2] = byte(last >> 8)
	out[len(out)-1] = byte(last)
	return out
}
