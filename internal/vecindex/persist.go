package vecindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"examqa/internal/domain"
)

const artifactVersion = 1

const (
	manifestFile = "manifest.json"
	entriesFile  = "entries.jsonl"
	vectorFile   = "vectors.f32"
)

// manifest describes a persisted index artifact and how to interpret it.
type manifest struct {
	ArtifactVersion int    `json:"artifact_version"`
	CreatedAt       string `json:"created_at"`
	ModelID         string `json:"model_id"`
	Dim             int    `json:"dim"`
	Entries         int    `json:"entries"`
	EntriesFile     string `json:"entries_file"`
	VectorFile      string `json:"vector_file"`
}

// Persist writes the index to dir as a versioned artifact: a manifest, the
// entry-identifier mapping as JSONL, and the vectors as little-endian
// float32 rows. Embedding is expensive; the artifact lets later processes
// skip it.
func (ix *Index) Persist(dir string) error {
	if ix.Len() == 0 {
		return fmt.Errorf("refusing to persist an empty index")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create index dir %s: %w", dir, err)
	}

	m := manifest{
		ArtifactVersion: artifactVersion,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		ModelID:         ix.modelID,
		Dim:             ix.dim,
		Entries:         len(ix.entries),
		EntriesFile:     entriesFile,
		VectorFile:      vectorFile,
	}
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), mb, 0o644); err != nil {
		return fmt.Errorf("cannot write manifest: %w", err)
	}

	ef, err := os.Create(filepath.Join(dir, entriesFile))
	if err != nil {
		return fmt.Errorf("cannot create entries file: %w", err)
	}
	bw := bufio.NewWriter(ef)
	for _, e := range ix.entries {
		line, err := json.Marshal(e)
		if err != nil {
			_ = ef.Close()
			return err
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			_ = ef.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = ef.Close()
		return err
	}
	if err := ef.Close(); err != nil {
		return err
	}

	flat := make([]float32, 0, len(ix.vectors)*ix.dim)
	for _, v := range ix.vectors {
		flat = append(flat, v...)
	}
	vf, err := os.Create(filepath.Join(dir, vectorFile))
	if err != nil {
		return fmt.Errorf("cannot create vector file: %w", err)
	}
	if err := binary.Write(vf, binary.LittleEndian, flat); err != nil {
		_ = vf.Close()
		return fmt.Errorf("cannot write vectors: %w", err)
	}
	return vf.Close()
}

// Load reads a persisted artifact from dir. It fails with ErrIndexNotFound
// when no manifest exists, and with ErrIndexCorrupt when the artifact
// disagrees with the expected embedding model or dimensionality, or is
// internally inconsistent. wantDim 0 skips the dimension check (used with
// remote models whose dimension is learned at runtime).
func Load(dir, wantModelID string, wantDim int) (*Index, error) {
	mb, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, dir)
		}
		return nil, fmt.Errorf("cannot read manifest in %s: %w", dir, err)
	}
	var m manifest
	if err := json.Unmarshal(mb, &m); err != nil {
		return nil, fmt.Errorf("%w: invalid manifest: %v", domain.ErrIndexCorrupt, err)
	}
	if m.ArtifactVersion != artifactVersion {
		return nil, fmt.Errorf("%w: artifact version %d, want %d", domain.ErrIndexCorrupt, m.ArtifactVersion, artifactVersion)
	}
	if m.Dim <= 0 || m.Entries <= 0 {
		return nil, fmt.Errorf("%w: manifest dim=%d entries=%d", domain.ErrIndexCorrupt, m.Dim, m.Entries)
	}
	if wantModelID != "" && m.ModelID != wantModelID {
		return nil, fmt.Errorf("%w: built with model %q, configured model is %q", domain.ErrIndexCorrupt, m.ModelID, wantModelID)
	}
	if wantDim != 0 && m.Dim != wantDim {
		return nil, fmt.Errorf("%w: built with dimension %d, configured model yields %d", domain.ErrIndexCorrupt, m.Dim, wantDim)
	}
	if m.EntriesFile == "" {
		m.EntriesFile = entriesFile
	}
	if m.VectorFile == "" {
		m.VectorFile = vectorFile
	}

	entries, err := loadEntries(filepath.Join(dir, m.EntriesFile))
	if err != nil {
		return nil, err
	}
	if len(entries) != m.Entries {
		return nil, fmt.Errorf("%w: manifest lists %d entries, file has %d", domain.ErrIndexCorrupt, m.Entries, len(entries))
	}
	vectors, err := loadVectors(filepath.Join(dir, m.VectorFile), m.Entries, m.Dim)
	if err != nil {
		return nil, err
	}

	return &Index{
		modelID: m.ModelID,
		dim:     m.Dim,
		entries: entries,
		vectors: vectors,
	}, nil
}

func loadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open entries file: %v", domain.ErrIndexCorrupt, err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("%w: invalid entries JSONL: %v", domain.ErrIndexCorrupt, err)
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: cannot read entries file: %v", domain.ErrIndexCorrupt, err)
	}
	return out, nil
}

func loadVectors(path string, n, dim int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open vector file: %v", domain.ErrIndexCorrupt, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}
	expected := int64(n * dim * 4)
	if st.Size() != expected {
		return nil, fmt.Errorf("%w: vector file size %d, want %d (entries=%d dim=%d)", domain.ErrIndexCorrupt, st.Size(), expected, n, dim)
	}

	flat := make([]float32, n*dim)
	if err := binary.Read(io.LimitReader(f, expected), binary.LittleEndian, flat); err != nil {
		return nil, fmt.Errorf("%w: cannot read vectors: %v", domain.ErrIndexCorrupt, err)
	}
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		vectors[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return vectors, nil
}
