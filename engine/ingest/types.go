package ingest

import (
	"time"

	"github.com/ragserve/ragserve/engine/core"
	"github.com/ragserve/ragserve/engine/extract"
)

// Document describes an indexed document and its passage inventory.
type Document struct {
	ID         core.ID          `json:"id"`
	Filename   string           `json:"filename"`
	FileType   extract.FileType `json:"file_type"`
	SizeBytes  int64            `json:"size_bytes"`
	ChunkCount int              `json:"chunk_count"`
	UploadedAt time.Time        `json:"uploaded_at"`
}

// Upload carries the raw bytes of a file submitted for indexing.
type Upload struct {
	Filename string
	Data     []byte
}

// UploadResult reports the outcome for one file in a batch upload.
// Failures are isolated: one bad file never aborts its siblings.
type UploadResult struct {
	Filename string    `json:"filename"`
	Document *Document `json:"document,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Metadata keys attached to every stored passage.
const (
	metaDocumentID  = "document_id"
	metaFilename    = "filename"
	metaFileType    = "file_type"
	metaChunkIndex  = "chunk_index"
	metaTotalChunks = "total_chunks"
	metaChunkID     = "chunk_id"
	metaFileSize    = "file_size"
	metaUploadedAt  = "uploaded_at"
)
