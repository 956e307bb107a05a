package models

// PDFChunk is one page-range slice of a source PDF.
type PDFChunk struct {
	Content   []byte `json:"-"`
	ChunkNum  int    `json:"chunk_num"`
	PageRange string `json:"page_range"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	PageCount int    `json:"page_count"`
	Filename  string `json:"filename"`
	SizeBytes int    `json:"size_bytes"`
}

// ExtractedFields holds raw per-field values returned by the model for one chunk.
type ExtractedFields map[string]string

// ChunkExtractionResult is the outcome of extracting a single chunk.
type ChunkExtractionResult struct {
	Success     bool            `json:"success"`
	Fields      ExtractedFields `json:"extracted_fields,omitempty"`
	ChunkNum    int             `json:"chunk_num"`
	PageRange   string          `json:"page_range"`
	SummaryText string          `json:"summary_text,omitempty"`
	Error       string          `json:"error,omitempty"`
	Retryable   bool            `json:"retryable,omitempty"`
}

// MergeInfo records how a merged record was assembled.
type MergeInfo struct {
	TotalChunks      int            `json:"total_chunks"`
	SuccessfulChunks int            `json:"successful_chunks"`
	FailedChunks     int            `json:"failed_chunks"`
	FieldSources     map[string]int `json:"field_sources"`
}
