package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

// PDFLoader extracts per-page text from PDF files with pdfcpu.
type PDFLoader struct {
	logger arbor.ILogger
}

// NewPDFLoader creates a PDF loader.
func NewPDFLoader(logger arbor.ILogger) *PDFLoader {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &PDFLoader{logger: logger}
}

// Load reads the PDF at path. Every page is returned in order, including pages
// with no extractable text. Unreadable or corrupt files fail with ErrLoad.
func (l *PDFLoader) Load(ctx context.Context, filename, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		return domain.Document{}, domain.Wrap(domain.ErrLoad, err, "stat "+path)
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return domain.Document{}, domain.Wrap(domain.ErrLoad, err, "read PDF "+filename)
	}

	pageText := make(map[int]string, pdfCtx.PageCount)
	fontCount := 0
	for n := 1; n <= pdfCtx.PageCount; n++ {
		if err := ctx.Err(); err != nil {
			return domain.Document{}, err
		}
		pageDict, _, attrs, err := pdfCtx.PageDict(n, false)
		if err != nil {
			return domain.Document{}, domain.Wrap(domain.ErrLoad, err, fmt.Sprintf("read page %d of %s", n, filename))
		}
		content, err := pdfCtx.PageContent(pageDict, n)
		if errors.Is(err, model.ErrNoContent) {
			continue
		}
		if err != nil {
			return domain.Document{}, domain.Wrap(domain.ErrLoad, err, fmt.Sprintf("extract content of page %d from %s", n, filename))
		}
		var fonts map[string]*toUnicode
		if attrs != nil {
			fonts = pageFonts(pdfCtx, attrs.Resources)
		}
		fontCount += len(fonts)
		pageText[n] = extractText(content, fonts)
	}

	doc := domain.Document{
		ID:       path,
		Filename: filename,
		Path:     path,
		Pages:    make([]domain.Page, 0, pdfCtx.PageCount),
	}
	chars := 0
	for n := 1; n <= pdfCtx.PageCount; n++ {
		text := strings.TrimSpace(pageText[n])
		chars += len(text)
		doc.Pages = append(doc.Pages, domain.Page{Number: n, Text: text})
	}

	l.logger.Debug().
		Str("filename", filename).
		Int("pages", pdfCtx.PageCount).
		Int("chars", chars).
		Int("unicode_fonts", fontCount).
		Str("duration", time.Since(start).String()).
		Msg("Loaded PDF")
	return doc, nil
}

// pageFonts returns the ToUnicode mappings of the fonts in a page's resources,
// keyed by resource name. Fonts without a usable CMap are left out.
func pageFonts(pdfCtx *model.Context, resources types.Dict) map[string]*toUnicode {
	if resources == nil {
		return nil
	}
	obj, ok := resources.Find("Font")
	if !ok {
		return nil
	}
	fontDicts, err := pdfCtx.DereferenceDict(obj)
	if err != nil || fontDicts == nil {
		return nil
	}
	fonts := make(map[string]*toUnicode)
	for name, ref := range fontDicts {
		fd, err := pdfCtx.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		tu, ok := fd.Find("ToUnicode")
		if !ok {
			continue
		}
		sd, _, err := pdfCtx.DereferenceStreamDict(tu)
		if err != nil || sd == nil {
			continue
		}
		if err := sd.Decode(); err != nil {
			continue
		}
		width := 1
		if subtype := fd.NameEntry("Subtype"); subtype != nil && *subtype == "Type0" {
			width = 2
		}
		fonts[name] = parseCMap(sd.Content, width)
	}
	return fonts
}
