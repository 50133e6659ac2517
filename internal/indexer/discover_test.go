package indexer

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDiscoverDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.pdf", "x")
	writeFile(t, dir, "a.md", "x")
	writeFile(t, dir, "sub/c.TXT", "x")
	writeFile(t, dir, "notes.docx", "x")
	writeFile(t, dir, ".cache/hidden.md", "x")

	got, err := DiscoverDocuments(dir)
	if err != nil {
		t.Fatalf("DiscoverDocuments() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "sub", "c.TXT"),
	}
	if len(got) != len(want) {
		t.Fatalf("DiscoverDocuments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DiscoverDocuments()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscoverDocuments_Empty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.docx", "x")

	_, err := DiscoverDocuments(dir)
	if !errors.Is(err, ErrNoDocuments) {
		t.Errorf("DiscoverDocuments() error = %v, want ErrNoDocuments", err)
	}
}

func TestDiscoverDocuments_MissingDir(t *testing.T) {
	if _, err := DiscoverDocuments(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("DiscoverDocuments() expected error for missing dir")
	}
}
