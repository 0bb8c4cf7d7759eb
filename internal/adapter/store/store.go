// Package store persists a position-aligned vector index and chunk record
// list in a directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docrag/internal/adapter/vectorindex"
	"docrag/internal/domain"
	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

// Store directory layout.
const (
	IndexFile    = "index.bin"
	MetadataFile = "metadata.json"
	BasePathFile = "base_path.txt"
	ConfigFile   = "index_config.json"
	ManifestFile = "manifest.json"
)

// Store holds one index directory in memory. Records and vectors share
// positions; Extend is the only way to grow them.
//
// A Store is not safe for concurrent mutation. Callers serialize writers.
type Store struct {
	dir      string
	contract Contract
	basePath string
	index    port.VectorIndex
	records  []domain.ChunkRecord
	maxID    int

	// created stores write their contract and base path on first Save.
	created bool
}

// Create starts a new, empty store in dir. Nothing touches disk until Save.
func Create(dir string, contract Contract, basePath string, opts vectorindex.Options) (*Store, error) {
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	idx, err := vectorindex.New(contract.IndexType, contract.Dim, opts)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeInvalidInput, "create vector index", err)
	}
	contract.IndexType = idx.Kind()

	return &Store{
		dir:      dir,
		contract: contract,
		basePath: basePath,
		index:    idx,
		maxID:    -1,
		created:  true,
	}, nil
}

// Exists reports whether dir holds the files Open requires.
func Exists(dir string) bool {
	return len(missingFiles(dir)) == 0
}

func missingFiles(dir string) []string {
	var missing []string
	for _, name := range []string{IndexFile, MetadataFile, ConfigFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Open loads an existing store. Missing required files yield
// ErrMissingStore; a record count that disagrees with the index yields
// ErrCorruptStore.
func Open(dir string, opts vectorindex.Options) (*Store, error) {
	if missing := missingFiles(dir); len(missing) > 0 {
		return nil, ragerr.Newf(ragerr.CodeMissingStore, "store %s is missing %s", dir, strings.Join(missing, ", ")).
			WithDetail("dir", dir)
	}

	contract, err := readContract(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, err
	}

	records, err := readRecords(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	idx, err := readIndex(filepath.Join(dir, IndexFile), contract, opts)
	if err != nil {
		return nil, err
	}

	if idx.Len() != len(records) {
		return nil, ragerr.Newf(ragerr.CodeCorruptStore,
			"store %s has %d records but %d vectors", dir, len(records), idx.Len())
	}

	basePath := ""
	if data, err := os.ReadFile(filepath.Join(dir, BasePathFile)); err == nil {
		basePath = strings.TrimSpace(string(data))
	}

	s := &Store{
		dir:      dir,
		contract: contract,
		basePath: basePath,
		index:    idx,
		records:  records,
		maxID:    -1,
	}
	for _, r := range records {
		if r.ID > s.maxID {
			s.maxID = r.ID
		}
	}
	return s, nil
}

func readRecords(path string) ([]domain.ChunkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var records []domain.ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, ragerr.New(ragerr.CodeCorruptStore, "parse "+MetadataFile, err)
	}
	return records, nil
}

func readIndex(path string, contract Contract, opts vectorindex.Options) (port.VectorIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	idx, err := vectorindex.Read(f, contract.IndexType, contract.Dim, opts)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeCorruptStore, "read "+IndexFile, err)
	}
	return idx, nil
}

// Extend appends records and their vectors together. Ids must be strictly
// increasing and above every existing id. On error nothing changes.
func (s *Store) Extend(records []domain.ChunkRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return ragerr.Newf(ragerr.CodeInvalidInput, "extend with %d records and %d vectors", len(records), len(vectors))
	}
	if len(records) == 0 {
		return nil
	}

	last := s.maxID
	for _, r := range records {
		if r.ID <= last {
			return ragerr.Newf(ragerr.CodeInvalidInput, "record id %d does not follow %d", r.ID, last)
		}
		last = r.ID
	}

	if err := s.index.Add(vectors); err != nil {
		return ragerr.New(ragerr.CodeInvalidInput, "add vectors", err)
	}
	s.records = append(s.records, records...)
	s.maxID = last
	return nil
}

// Save persists the store. Index and metadata are fully written to temp
// files before either is renamed over the original.
func (s *Store) Save() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return ragerr.New(ragerr.CodePersistFailed, "create store directory", err)
	}

	indexTmp, err := writeTemp(filepath.Join(s.dir, IndexFile), func(w io.Writer) error {
		_, err := s.index.WriteTo(w)
		return err
	})
	if err != nil {
		return ragerr.New(ragerr.CodePersistFailed, "write index", err)
	}

	records := s.records
	if records == nil {
		records = []domain.ChunkRecord{}
	}
	metaTmp, err := writeTemp(filepath.Join(s.dir, MetadataFile), encodeJSON(records))
	if err != nil {
		_ = os.Remove(indexTmp)
		return ragerr.New(ragerr.CodePersistFailed, "write metadata", err)
	}

	if err := os.Rename(indexTmp, filepath.Join(s.dir, IndexFile)); err != nil {
		_ = os.Remove(indexTmp)
		_ = os.Remove(metaTmp)
		return ragerr.New(ragerr.CodePersistFailed, "replace index", err)
	}
	if err := os.Rename(metaTmp, filepath.Join(s.dir, MetadataFile)); err != nil {
		_ = os.Remove(metaTmp)
		return ragerr.New(ragerr.CodePersistFailed, "replace metadata", err)
	}

	if !s.created {
		return nil
	}

	if err := writeFileAtomic(filepath.Join(s.dir, BasePathFile), func(w io.Writer) error {
		_, err := io.WriteString(w, s.basePath)
		return err
	}); err != nil {
		return ragerr.New(ragerr.CodePersistFailed, "write base path", err)
	}
	if err := writeJSONAtomic(filepath.Join(s.dir, ConfigFile), s.contract); err != nil {
		return ragerr.New(ragerr.CodePersistFailed, "write contract", err)
	}
	s.created = false
	return nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Contract returns the build contract.
func (s *Store) Contract() Contract { return s.contract }

// BasePath returns the corpus root recorded at build time.
func (s *Store) BasePath() string { return s.basePath }

// Index returns the vector index. Callers must not Add to it directly.
func (s *Store) Index() port.VectorIndex { return s.index }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Records returns the ordered records. The slice must not be modified.
func (s *Store) Records() []domain.ChunkRecord { return s.records }

// Record returns the record at position pos.
func (s *Store) Record(pos int) (domain.ChunkRecord, bool) {
	if pos < 0 || pos >= len(s.records) {
		return domain.ChunkRecord{}, false
	}
	return s.records[pos], true
}

// MaxID returns the highest record id, or -1 for an empty store.
func (s *Store) MaxID() int { return s.maxID }

// NextID returns the id the next appended record must start from.
func (s *Store) NextID() int { return s.maxID + 1 }

// IsMissing reports whether err says the store directory is incomplete.
func IsMissing(err error) bool {
	return errors.Is(err, ragerr.ErrMissingStore)
}
