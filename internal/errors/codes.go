// Package errors provides the structured error taxonomy for docrag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: configuration errors
//   - 2XX: store errors (missing files, persistence)
//   - 3XX: extraction errors (per file, recoverable)
//   - 4XX: validation errors
//   - 5XX: degraded optional features and internal failures
package errors

// Kind classifies an error by how callers must react to it.
type Kind string

const (
	// KindValidation aborts the operation before anything is written.
	KindValidation Kind = "VALIDATION"
	// KindNotFound aborts a build that found nothing to index.
	KindNotFound Kind = "NOT_FOUND"
	// KindExtraction is recovered locally by skipping the file.
	KindExtraction Kind = "EXTRACTION"
	// KindPersistence is propagated; the previous store stays valid.
	KindPersistence Kind = "PERSISTENCE"
	// KindDegraded marks an optional feature that was bypassed.
	KindDegraded Kind = "DEGRADED"
	// KindInternal covers collaborator failures such as embedding calls.
	KindInternal Kind = "INTERNAL"
)

// Error codes organized by kind.
const (
	// Config errors (100-199)
	CodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// Store errors (200-299)
	CodeMissingStore  = "ERR_201_MISSING_STORE"
	CodePersistFailed = "ERR_202_PERSIST_FAILED"
	CodeCorruptStore  = "ERR_203_CORRUPT_STORE"

	// Extraction errors (300-399)
	CodeExtractFailed     = "ERR_301_EXTRACT_FAILED"
	CodeUnsupportedFormat = "ERR_302_UNSUPPORTED_FORMAT"

	// Validation errors (400-499)
	CodeInvalidInput      = "ERR_401_INVALID_INPUT"
	CodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	CodeNoSupportedFiles  = "ERR_403_NO_SUPPORTED_FILES"
	CodeNoChunks          = "ERR_404_NO_CHUNKS"

	// Degraded and internal (500-599)
	CodeRerankUnavailable = "ERR_501_RERANK_UNAVAILABLE"
	CodeEmbeddingFailed   = "ERR_502_EMBEDDING_FAILED"
	CodeSearchFailed      = "ERR_503_SEARCH_FAILED"
)

func kindFromCode(code string) Kind {
	switch code {
	case CodeNoSupportedFiles, CodeNoChunks:
		return KindNotFound
	case CodeMissingStore, CodeCorruptStore:
		return KindValidation
	case CodePersistFailed:
		return KindPersistence
	case CodeRerankUnavailable:
		return KindDegraded
	case CodeEmbeddingFailed, CodeSearchFailed:
		return KindInternal
	}
	if len(code) < 7 {
		return KindInternal
	}
	switch code[4] {
	case '1', '4':
		return KindValidation
	case '3':
		return KindExtraction
	default:
		return KindInternal
	}
}
