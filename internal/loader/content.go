package loader

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// kerningSpace is the TJ displacement (thousandths of text space) treated as a word gap.
const kerningSpace = -200

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokNumber
	tokString
	tokName
	tokArrayStart
	tokArrayEnd
	tokOther
)

type token struct {
	kind tokenKind
	text string // operator or name
	raw  []byte // undecoded string bytes
	num  float64
}

// ExtractText returns the text shown by a decoded page content stream. Only the text
// showing operators are interpreted; positioning operators become line breaks or
// spaces. Strings are decoded as UTF-16BE when they carry a BOM and as WinAnsi otherwise.
func ExtractText(content []byte) string {
	return extractText(content, nil)
}

// extractText is ExtractText with the page's fonts: strings shown in a font with a
// ToUnicode CMap are decoded through it.
func extractText(content []byte, fonts map[string]*toUnicode) string {
	s := &scanner{src: content}
	w := &textWriter{}
	var operands []token
	var array []token
	inArray := false
	var font *toUnicode
	decode := func(raw []byte) string {
		if font != nil {
			return font.decode(raw)
		}
		return decodeString(raw)
	}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokArrayStart:
			inArray, array = true, array[:0]
			continue
		case tokArrayEnd:
			inArray = false
			operands = append(operands, token{kind: tokOther, text: "array"})
			continue
		}
		if inArray {
			array = append(array, tok)
			continue
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "Tf":
			font = nil
			for i := len(operands) - 1; i >= 0; i-- {
				if operands[i].kind == tokName {
					font = fonts[operands[i].text]
					break
				}
			}
		case "Tj":
			if raw, ok := lastString(operands); ok {
				w.text(decode(raw))
			}
		case "'":
			w.newline()
			if raw, ok := lastString(operands); ok {
				w.text(decode(raw))
			}
		case "\"":
			w.newline()
			if raw, ok := lastString(operands); ok {
				w.text(decode(raw))
			}
		case "TJ":
			for _, el := range array {
				switch el.kind {
				case tokString:
					w.text(decode(el.raw))
				case tokNumber:
					if el.num <= kerningSpace {
						w.space()
					}
				}
			}
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].kind == tokNumber && operands[len(operands)-1].num == 0 {
				w.space()
			} else {
				w.newline()
			}
		case "T*", "Tm", "ET":
			w.newline()
		case "BI":
			s.skipInlineImage()
		}
		operands = operands[:0]
	}
	return w.String()
}

func lastString(ops []token) ([]byte, bool) {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].kind == tokString {
			return ops[i].raw, true
		}
	}
	return nil, false
}

// textWriter collapses separators so runs of positioning operators do not pile up blanks.
type textWriter struct {
	lines []string
	cur   strings.Builder
	sep   byte
}

func (w *textWriter) text(t string) {
	if t == "" {
		return
	}
	switch w.sep {
	case '\n':
		w.flush()
	case ' ':
		if w.cur.Len() > 0 && !strings.HasSuffix(w.cur.String(), " ") && !strings.HasPrefix(t, " ") {
			w.cur.WriteByte(' ')
		}
	}
	w.sep = 0
	w.cur.WriteString(t)
}

func (w *textWriter) space() {
	if w.sep == 0 {
		w.sep = ' '
	}
}

func (w *textWriter) newline() { w.sep = '\n' }

func (w *textWriter) flush() {
	line := strings.TrimRight(w.cur.String(), " ")
	if line != "" {
		w.lines = append(w.lines, line)
	}
	w.cur.Reset()
}

func (w *textWriter) String() string {
	w.flush()
	return strings.Join(w.lines, "\n")
}

type scanner struct {
	src []byte
	pos int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (s *scanner) next() (token, bool) {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isWhite(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' && s.src[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			s.pos++
			return token{kind: tokString, raw: s.literal()}, true
		case c == '<':
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '<' {
				s.pos += 2
				return token{kind: tokOther, text: "<<"}, true
			}
			s.pos++
			return token{kind: tokString, raw: s.hex()}, true
		case c == '>':
			s.pos++
			if s.pos < len(s.src) && s.src[s.pos] == '>' {
				s.pos++
			}
			return token{kind: tokOther, text: ">>"}, true
		case c == '[':
			s.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			s.pos++
			return token{kind: tokArrayEnd}, true
		case c == '/':
			s.pos++
			return token{kind: tokName, text: s.regular()}, true
		case c == '{' || c == '}':
			s.pos++
		default:
			word := s.regular()
			if word == "" {
				s.pos++
				continue
			}
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				return token{kind: tokNumber, num: n, text: word}, true
			}
			return token{kind: tokOperator, text: word}, true
		}
	}
	return token{}, false
}

func (s *scanner) regular() string {
	start := s.pos
	for s.pos < len(s.src) && !isWhite(s.src[s.pos]) && !isDelim(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

// literal reads a parenthesised string body; the opening paren is already consumed.
func (s *scanner) literal() []byte {
	var out []byte
	depth := 1
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			if s.pos >= len(s.src) {
				return out
			}
			e := s.src[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.pos < len(s.src) && s.src[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '7'; i++ {
						v = v*8 + int(s.src[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// hex reads a hex string body; the opening angle bracket is already consumed.
func (s *scanner) hex() []byte {
	var digits []byte
	for s.pos < len(s.src) && s.src[s.pos] != '>' {
		if !isWhite(s.src[s.pos]) {
			digits = append(digits, s.src[s.pos])
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

// skipInlineImage advances past "ID <binary> EI".
func (s *scanner) skipInlineImage() {
	idx := bytes.Index(s.src[s.pos:], []byte("ID"))
	if idx < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += idx + 2
	for s.pos+2 <= len(s.src) {
		if s.src[s.pos] == 'E' && s.src[s.pos+1] == 'I' && isWhite(s.src[s.pos-1]) &&
			(s.pos+2 == len(s.src) || isWhite(s.src[s.pos+2])) {
			s.pos += 2
			return
		}
		s.pos++
	}
	s.pos = len(s.src)
}

func decodeString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return utf16BE(b[2:])
	}
	var sb strings.Builder
	for _, c := range b {
		if c == '\r' {
			continue
		}
		sb.WriteRune(charmap.Windows1252.DecodeByte(c))
	}
	return sb.String()
}

// utf16BE decodes big-endian UTF-16. A trailing odd byte is dropped.
func utf16BE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}
