package indexer

import (
	"bytes"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Extractor turns source documents into cleaned pages.
type Extractor struct {
	markdown goldmark.Markdown
}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{markdown: goldmark.New()}
}

// Pages yields the non-empty pages of the document at path in order. The
// sequence stops after the first error.
func (e *Extractor) Pages(path string) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		raws, err := e.rawPages(path)
		if err != nil {
			yield(Page{}, fmt.Errorf("failed to extract %s: %w", path, err))
			return
		}

		company, docName := inferDocument(path)
		item, itemTitle := CoverItem, ""
		for i, raw := range raws {
			cleaned := CleanText(raw)
			if cleaned == "" {
				continue
			}

			if num, title, ok := detectItem(cleaned); ok {
				item, itemTitle = num, title
			}

			page := Page{
				DocName:    docName,
				Company:    company,
				SourcePath: path,
				PagePDF:    i + 1,
				PageReport: detectReportPage(raw),
				Item:       item,
				ItemTitle:  itemTitle,
				Text:       cleaned,
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}

// rawPages returns the uncleaned text of every physical page.
func (e *Extractor) rawPages(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfPages(path)
	case ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return e.markdownPages(content), nil
	case ".txt":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return strings.Split(string(content), "\f"), nil
	default:
		return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

func pdfPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return pages, nil
}

// markdownPages splits a Markdown document into pages at top-level
// thematic breaks ("---" after a blank line). Each leaf block contributes
// its source lines; ATX heading lines exclude the '#' markers.
func (e *Extractor) markdownPages(content []byte) []string {
	doc := e.markdown.Parser().Parse(text.NewReader(content))

	var pages []string
	var current bytes.Buffer
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() == ast.KindThematicBreak {
			pages = append(pages, current.String())
			current.Reset()
			continue
		}
		writeBlockLines(&current, n, content)
	}
	return append(pages, current.String())
}

func writeBlockLines(buf *bytes.Buffer, n ast.Node, content []byte) {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(content))
			if !bytes.HasSuffix(seg.Value(content), []byte("\n")) {
				buf.WriteByte('\n')
			}
		}
		buf.WriteByte('\n')
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writeBlockLines(buf, c, content)
	}
}
