package store

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"docrag/internal/domain"
)

// Manifest is the append-only ledger of ingested file versions. It only
// serves append dedup.
type Manifest struct {
	Files []domain.ManifestEntry `json:"files"`

	seen map[domain.ManifestEntry]struct{}
}

// ManifestKey builds the dedup identity of a file version. The
// modification time is truncated to whole seconds.
func ManifestKey(absPath string, mtime float64, size int64) domain.ManifestEntry {
	return domain.ManifestEntry{Path: absPath, Mtime: int64(math.Trunc(mtime)), Size: size}
}

// LoadManifest reads dir's manifest. A missing or unreadable manifest is
// treated as empty.
func LoadManifest(dir string) *Manifest {
	m := &Manifest{}
	if data, err := os.ReadFile(filepath.Join(dir, ManifestFile)); err == nil {
		if err := json.Unmarshal(data, m); err != nil {
			m.Files = nil
		}
	}
	m.index()
	return m
}

func (m *Manifest) index() {
	m.seen = make(map[domain.ManifestEntry]struct{}, len(m.Files))
	for _, f := range m.Files {
		m.seen[f] = struct{}{}
	}
}

// Has reports whether the exact file version was ingested.
func (m *Manifest) Has(key domain.ManifestEntry) bool {
	if m.seen == nil {
		m.index()
	}
	_, ok := m.seen[key]
	return ok
}

// Add records a file version. Duplicates are ignored.
func (m *Manifest) Add(key domain.ManifestEntry) {
	if m.Has(key) {
		return
	}
	m.Files = append(m.Files, key)
	m.seen[key] = struct{}{}
}

// Len returns the number of recorded file versions.
func (m *Manifest) Len() int { return len(m.Files) }

// Save writes the manifest atomically into dir.
func (m *Manifest) Save(dir string) error {
	files := m.Files
	if files == nil {
		files = []domain.ManifestEntry{}
	}
	return writeJSONAtomic(filepath.Join(dir, ManifestFile), struct {
		Files []domain.ManifestEntry `json:"files"`
	}{files})
}

// RemoveManifest deletes dir's manifest. A rebuilt store starts without one.
func RemoveManifest(dir string) error {
	err := os.Remove(filepath.Join(dir, ManifestFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
