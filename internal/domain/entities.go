package domain

// Block is a contiguous span of normalized text tagged with the headings
// in effect where it starts. Chunks are blocks after packing.
type Block struct {
	Text       string
	Section    string
	Subsection string
}

// ChunkRecord is the persisted metadata for one chunk. Its position in the
// record list equals the position of its vector in the vector index.
type ChunkRecord struct {
	ID           int     `json:"id"`
	FileName     string  `json:"file_name"`
	RelPath      string  `json:"rel_path"`
	AbsPath      string  `json:"abs_path"`
	FileType     string  `json:"file_type"`
	SourceFolder string  `json:"source_folder"`
	ChunkID      int     `json:"chunk_id"`
	ChunkLen     int     `json:"chunk_len"`
	Mtime        float64 `json:"mtime"`
	SizeKB       int64   `json:"size_kb"`
	CreatedAt    float64 `json:"created_at"`
	Section      string  `json:"section"`
	Subsection   string  `json:"subsection"`
	Text         string  `json:"text"`
}

// ManifestEntry identifies one ingested file version.
type ManifestEntry struct {
	Path  string `json:"path"`
	Mtime int64  `json:"mtime"`
	Size  int64  `json:"size"`
}

// QueryResult is one ranked retrieval hit. RerankScore is nil when the
// record was not reranked.
type QueryResult struct {
	FinalScore   float64  `json:"final_score"`
	FusedScore   float64  `json:"fused_score"`
	DenseScore   float64  `json:"dense_score"`
	LexicalScore float64  `json:"lexical_score"`
	RerankScore  *float64 `json:"rerank_score"`
	ID           int      `json:"id"`
	Text         string   `json:"text"`
	FileName     string   `json:"file_name"`
	RelPath      string   `json:"rel_path"`
	AbsPath      string   `json:"abs_path"`
	ChunkID      int      `json:"chunk_id"`
	FileType     string   `json:"file_type"`
	Mtime        float64  `json:"mtime"`
	SizeKB       int64    `json:"size_kb"`
	Section      string   `json:"section"`
	Subsection   string   `json:"subsection"`
}

// Candidate carries the per-family scores of one record during fusion.
type Candidate struct {
	Pos     int
	Dense   float64
	Lexical float64
	Fused   float64
	Rerank  *float64
	Final   float64
}
