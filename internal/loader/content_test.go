package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"simple Tj", "BT /F1 12 Tf 72 712 Td (Hello World) Tj ET", "Hello World"},
		{"TJ kerning", "BT [(Hel) -20 (lo) -300 (World)] TJ ET", "Hello World"},
		{"escapes", `BT (a\(b\)c \101) Tj ET`, "a(b)c A"},
		{"nested parens", "BT (f(o)o) Tj ET", "f(o)o"},
		{"T* newline", "BT (Line one) Tj T* (Line two) Tj ET", "Line one\nLine two"},
		{"Td moves", "BT (a) Tj 0 -14 Td (b) Tj 20 0 Td (c) Tj ET", "a\nb c"},
		{"quote operator", "BT (a) Tj (b) ' ET", "a\nb"},
		{"hex string", "BT <48656C6C6F> Tj ET", "Hello"},
		{"utf16 hex", "BT <FEFF00480069> Tj ET", "Hi"},
		{"winansi", `BT (caf\351) Tj ET`, "café"},
		{"separate blocks", "BT (first) Tj ET BT (second) Tj ET", "first\nsecond"},
		{"graphics only", "q 1 0 0 1 0 0 cm 0 0 m 100 100 l S Q", ""},
		{"comment", "% a comment (not text) Tj\nBT (x) Tj ET", "x"},
		{"inline image", "BI /W 1 /H 1 ID \x00\xff(junk) EI BT (after) Tj ET", "after"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractText([]byte(tt.content)))
		})
	}
}

const identityCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo <</Registry (Adobe) /Ordering (UCS) /Supplement 0>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 beginbfrange
<0000> <FFFF> <0000>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

const subsetCMap = `begincmap
1 begincodespacerange
<00> <FF>
endcodespacerange
2 beginbfchar
<01> <0048>
<02> <00690021>
endbfchar
2 beginbfrange
<10> <12> <0061>
<20> <21> [<FB01> <0066006C>]
endbfrange
endcmap`

func TestToUnicodeDecode(t *testing.T) {
	identity := parseCMap([]byte(identityCMap), 2)
	assert.Equal(t, "Hi é", identity.decode([]byte("\x00H\x00i\x00 \x00\xe9")))
	assert.Equal(t, "Ж", identity.decode([]byte{0x04, 0x16}))

	subset := parseCMap([]byte(subsetCMap), 1)
	assert.Equal(t, "Hi!", subset.decode([]byte{0x01, 0x02}))
	assert.Equal(t, "abc", subset.decode([]byte{0x10, 0x11, 0x12}))
	assert.Equal(t, "ﬁfl", subset.decode([]byte{0x20, 0x21}))
	// unmapped single-byte codes read as WinAnsi
	assert.Equal(t, "Ha", subset.decode([]byte{0x01, 'a'}))
}

func TestExtractTextUsesFontCMaps(t *testing.T) {
	fonts := map[string]*toUnicode{"F2": parseCMap([]byte(identityCMap), 2)}
	content := "BT /F1 12 Tf (plain) Tj ET\n" +
		"BT /F2 12 Tf 0 -14 Td <00430061006600E9> Tj ET\n" +
		"BT /F2 12 Tf [(\x00a) -300 (\x00b)] TJ ET"
	assert.Equal(t, "plain\nCafé\na b", extractText([]byte(content), fonts))
}
