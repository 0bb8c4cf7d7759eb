package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docrag/internal/port"
)

// Walker enumerates the documents under a root that pass the glob filters
// and the extension allow-list.
type Walker struct {
	includes   []string
	excludes   []string
	extensions map[string]struct{}
}

// NewWalker creates a walker. An empty extension list admits every file.
func NewWalker(includes, excludes, extensions []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Walker{
		includes:   includes,
		excludes:   excludes,
		extensions: exts,
	}
}

// Walk returns the eligible regular files under root sorted by path, so
// id assignment is reproducible across runs.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path != root && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if !w.shouldInclude(relPath) || w.shouldExclude(relPath) || !w.Allowed(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, toFileInfo(path, info))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Allowed reports whether path carries an allow-listed extension.
func (w *Walker) Allowed(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Stat returns the FileInfo for path if it is an allow-listed regular file.
func (w *Walker) Stat(path string) (port.FileInfo, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return port.FileInfo{}, false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() || !w.Allowed(abs) {
		return port.FileInfo{}, false
	}
	return toFileInfo(abs, info), true
}

func toFileInfo(path string, info os.FileInfo) port.FileInfo {
	return port.FileInfo{
		Path:    path,
		ModTime: float64(info.ModTime().UnixNano()) / 1e9,
		Size:    info.Size(),
	}
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

var _ port.FileWalker = (*Walker)(nil)
