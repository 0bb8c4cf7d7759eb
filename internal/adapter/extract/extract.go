// Package extract turns documents into raw text for chunking.
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

// Func extracts text from the file at path.
type Func func(path string) (string, error)

// Registry dispatches extraction by lowercase file extension.
type Registry struct {
	byExt map[string]Func
}

// NewRegistry returns a registry with the built-in extractors.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Func)}
	for _, ext := range []string{".txt", ".md", ".log", ".xml"} {
		r.Register(ext, extractPlain)
	}
	r.Register(".csv", extractCSV)
	r.Register(".json", extractJSON)
	r.Register(".html", extractHTML)
	r.Register(".htm", extractHTML)
	r.Register(".docx", extractDOCX)
	r.Register(".pptx", extractPPTX)
	r.Register(".xlsx", extractXLSX)
	return r
}

// Register installs or replaces the extractor for ext.
func (r *Registry) Register(ext string, fn Func) {
	r.byExt[strings.ToLower(ext)] = fn
}

// Supports reports whether an extractor exists for path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract implements port.Extractor. Every failure is an extraction error
// so callers can skip the file and continue.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := r.byExt[ext]
	if !ok {
		return "", ragerr.Newf(ragerr.CodeUnsupportedFormat, "no extractor for %q", ext).WithDetail("path", path)
	}
	text, err := fn(path)
	if err != nil {
		return "", ragerr.Wrap(ragerr.CodeExtractFailed, err).WithDetail("path", path)
	}
	return text, nil
}

var _ port.Extractor = (*Registry)(nil)

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "�"), nil
}

func extractPlain(path string) (string, error) {
	return readText(path)
}

// extractCSV renders each row as comma-separated cells, one row per line.
func extractCSV(path string) (string, error) {
	text, err := readText(path)
	if err != nil {
		return "", err
	}
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		rows = append(rows, strings.Join(record, ", "))
	}
	return strings.Join(rows, "\n"), nil
}

// extractJSON validates the document and re-indents it.
func extractJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}
