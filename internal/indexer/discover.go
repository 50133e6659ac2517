package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoDocuments is returned when a source directory holds no supported documents.
var ErrNoDocuments = errors.New("no documents found")

var supportedExtensions = map[string]struct{}{
	".pdf": {},
	".md":  {},
	".txt": {},
}

// DiscoverDocuments walks dir and returns supported document paths in sorted order.
// Hidden directories are skipped.
func DiscoverDocuments(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, dir)
	}
	sort.Strings(paths)
	return paths, nil
}
