package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func collectPages(t *testing.T, path string) []Page {
	t.Helper()
	var pages []Page
	for page, err := range NewExtractor().Pages(path) {
		if err != nil {
			t.Fatalf("Pages() error = %v", err)
		}
		pages = append(pages, page)
	}
	return pages
}

func TestExtractor_MarkdownPages(t *testing.T) {
	content := "# Apple 10-K\n\nCover text here.\n\n---\n\n" +
		"Item 7. Management's Discussion\n\nRevenue grew.\n\nApple Inc. | 2024 Form 10-K | 21\n"
	path := writeFile(t, t.TempDir(), "apple-10k.md", content)

	pages := collectPages(t, path)
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}

	cover := pages[0]
	if cover.PagePDF != 1 || cover.Item != CoverItem || cover.ItemTitle != "" {
		t.Errorf("cover page = %+v", cover)
	}
	if !strings.Contains(cover.Text, "Apple 10-K") || !strings.Contains(cover.Text, "Cover text here.") {
		t.Errorf("cover text = %q", cover.Text)
	}
	if strings.Contains(cover.Text, "#") {
		t.Errorf("cover text kept heading markers: %q", cover.Text)
	}
	if cover.PageReport != nil {
		t.Errorf("cover PageReport = %d, want nil", *cover.PageReport)
	}

	mdna := pages[1]
	if mdna.PagePDF != 2 || mdna.Item != "Item 7" || mdna.ItemTitle != "Management's Discussion" {
		t.Errorf("mdna page = %+v", mdna)
	}
	if mdna.PageReport == nil || *mdna.PageReport != 21 {
		t.Errorf("mdna PageReport = %v, want 21", mdna.PageReport)
	}
	if mdna.Company != "Apple" || mdna.DocName != "Apple 10-K" || mdna.SourcePath != path {
		t.Errorf("mdna document fields = %+v", mdna)
	}
}

func TestExtractor_TextPages(t *testing.T) {
	content := "cover page text\fItem 1A. Risk Factors\nsupply risk\f   \fcontinued risk discussion"
	path := writeFile(t, t.TempDir(), "tsla-2023.txt", content)

	pages := collectPages(t, path)
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}

	wantPDF := []int{1, 2, 4}
	wantItem := []string{CoverItem, "Item 1A", "Item 1A"}
	for i, page := range pages {
		if page.PagePDF != wantPDF[i] {
			t.Errorf("pages[%d].PagePDF = %d, want %d", i, page.PagePDF, wantPDF[i])
		}
		if page.Item != wantItem[i] {
			t.Errorf("pages[%d].Item = %q, want %q", i, page.Item, wantItem[i])
		}
		if page.Company != "Tesla" || page.DocName != "Tesla 10-K" {
			t.Errorf("pages[%d] document = %q/%q", i, page.Company, page.DocName)
		}
	}
	if pages[2].ItemTitle != "Risk Factors" {
		t.Errorf("carried ItemTitle = %q, want %q", pages[2].ItemTitle, "Risk Factors")
	}
}

func TestExtractor_StopsEarly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.txt", "one\ftwo\fthree")

	count := 0
	for _, err := range NewExtractor().Pages(path) {
		if err != nil {
			t.Fatalf("Pages() error = %v", err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestExtractor_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"unsupported extension", writeFile(t, dir, "notes.docx", "x")},
		{"missing file", filepath.Join(dir, "missing.md")},
		{"invalid pdf", writeFile(t, dir, "broken.pdf", "not a pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotErr error
			for _, err := range NewExtractor().Pages(tt.path) {
				gotErr = err
			}
			if gotErr == nil {
				t.Error("Pages() expected error")
			}
		})
	}
}
