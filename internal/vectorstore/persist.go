package vectorstore

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File names written by Save.
const (
	IndexFile    = "index.bin"
	StoreFile    = "store.jsonl"
	ManifestFile = "manifest.json"
)

var indexMagic = [8]byte{'S', 'E', 'C', 'R', 'A', 'G', 'I', '1'}

// Manifest is the JSON summary persisted next to the index.
type Manifest struct {
	Dim   int `json:"dim"`
	Count int `json:"count"`
	BuildInfo
}

type storeRecord struct {
	Text string    `json:"text"`
	Meta ChunkMeta `json:"meta"`
}

type indexHeader struct {
	Magic [8]byte
	Dim   uint32
	Count uint32
}

// Save writes the index, the text/metadata sidecar and the manifest into dir.
func (s *Store) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	if err := writeFile(filepath.Join(dir, IndexFile), s.writeIndex); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := writeFile(filepath.Join(dir, StoreFile), s.writeRecords); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	manifest, err := json.MarshalIndent(Manifest{Dim: s.dim, Count: s.Count(), BuildInfo: s.Info}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifest, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func (s *Store) writeIndex(w io.Writer) error {
	header := indexHeader{Magic: indexMagic, Dim: uint32(s.dim), Count: uint32(s.Count())}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, s.vecs)
}

func (s *Store) writeRecords(w io.Writer) error {
	enc := json.NewEncoder(w)
	for i := range s.texts {
		if err := enc.Encode(storeRecord{Text: s.texts[i], Meta: s.metas[i]}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load restores a store saved by Save. It fails with ErrMisaligned when the
// index, the sidecar and the manifest disagree on count or dimension.
func Load(dir string) (*Store, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	dim, vecs, err := readIndex(filepath.Join(dir, IndexFile), manifest.Dim, manifest.Count)
	if err != nil {
		return nil, err
	}
	count := manifest.Count

	texts, metas, err := readRecords(filepath.Join(dir, StoreFile))
	if err != nil {
		return nil, err
	}
	if len(texts) != count {
		return nil, fmt.Errorf("%w: index has %d vectors, store has %d records", ErrMisaligned, count, len(texts))
	}

	return &Store{dim: dim, vecs: vecs, texts: texts, metas: metas, Info: manifest.BuildInfo}, nil
}

// ReadManifest reads manifest.json from an index directory.
func ReadManifest(dir string) (Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if manifest.Dim <= 0 || manifest.Count <= 0 {
		return Manifest{}, fmt.Errorf("%w: manifest says %d x %d", ErrMisaligned, manifest.Count, manifest.Dim)
	}
	return manifest, nil
}

// readIndex reads index.bin. The header must agree with the manifest and the
// file size before anything is allocated.
func readIndex(path string, wantDim, wantCount int) (int, []float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to stat index: %w", err)
	}

	r := bufio.NewReader(f)
	var header indexHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("failed to read index header: %w", err)
	}
	if header.Magic != indexMagic {
		return 0, nil, fmt.Errorf("%s is not an index file", path)
	}
	dim, count := int64(header.Dim), int64(header.Count)
	if dim != int64(wantDim) || count != int64(wantCount) {
		return 0, nil, fmt.Errorf("%w: index has %d x %d, manifest says %d x %d", ErrMisaligned, count, dim, wantCount, wantDim)
	}
	if want := int64(binary.Size(header)) + dim*count*4; info.Size() != want {
		return 0, nil, fmt.Errorf("%w: index file is %d bytes, want %d", ErrMisaligned, info.Size(), want)
	}

	vecs := make([]float32, dim*count)
	if err := binary.Read(r, binary.LittleEndian, vecs); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return 0, nil, fmt.Errorf("%w: index body is truncated", ErrMisaligned)
		}
		return 0, nil, fmt.Errorf("failed to read index vectors: %w", err)
	}
	return int(header.Dim), vecs, nil
}

func readRecords(path string) ([]string, []ChunkMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()

	var (
		texts []string
		metas []ChunkMeta
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec storeRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, nil, fmt.Errorf("failed to decode store line %d: %w", line, err)
		}
		texts = append(texts, rec.Text)
		metas = append(metas, rec.Meta)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read store: %w", err)
	}
	return texts, metas, nil
}
