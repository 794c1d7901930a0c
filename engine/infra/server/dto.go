package server

import (
	"time"

	"github.com/ragserve/ragserve/engine/ingest"
)

// uploadResult reports the outcome for one file in a batch upload.
type uploadResult struct {
	Success       bool   `json:"success"`
	Filename      string `json:"filename"`
	DocumentID    string `json:"document_id,omitempty"`
	FileType      string `json:"file_type,omitempty"`
	FileSize      int64  `json:"file_size,omitempty"`
	ChunksCreated int    `json:"chunks_created,omitempty"`
	UploadedAt    string `json:"uploaded_at,omitempty"`
	Error         string `json:"error,omitempty"`
}

// multiUploadResponse summarizes a batch upload.
type multiUploadResponse struct {
	Results       []uploadResult `json:"results"`
	TotalUploaded int            `json:"total_uploaded"`
	TotalFailed   int            `json:"total_failed"`
}

// documentInfo describes one indexed document.
type documentInfo struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	ChunksCount int    `json:"chunks_count"`
	UploadedAt  string `json:"uploaded_at"`
}

// documentListResponse lists every indexed document.
type documentListResponse struct {
	Documents []documentInfo `json:"documents"`
	Total     int            `json:"total"`
}

// chatRequest is the body of POST /chat.
type chatRequest struct {
	Message        string   `json:"message"         binding:"required,min=1,max=2000"`
	ConversationID string   `json:"conversation_id" binding:"omitempty"`
	TopK           int      `json:"top_k"           binding:"omitempty,gte=1,lte=10"`
	Temperature    *float64 `json:"temperature"     binding:"omitempty,gte=0,lte=2"`
}

// chatStreamQuery is the query string of GET /chat/stream.
type chatStreamQuery struct {
	Message        string   `form:"message"         binding:"required,min=1,max=2000"`
	ConversationID string   `form:"conversation_id" binding:"omitempty"`
	TopK           int      `form:"top_k"           binding:"omitempty,gte=1,lte=10"`
	Temperature    *float64 `form:"temperature"     binding:"omitempty,gte=0,lte=2"`
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func toMultiUploadResponse(results []ingest.UploadResult) multiUploadResponse {
	out := multiUploadResponse{Results: make([]uploadResult, 0, len(results))}
	for _, res := range results {
		entry := uploadResult{Filename: res.Filename}
		if res.Document != nil {
			entry.Success = true
			entry.DocumentID = res.Document.ID.String()
			entry.FileType = string(res.Document.FileType)
			entry.FileSize = res.Document.SizeBytes
			entry.ChunksCreated = res.Document.ChunkCount
			entry.UploadedAt = res.Document.UploadedAt.Format(time.RFC3339)
			out.TotalUploaded++
		} else {
			entry.Error = res.Error
			out.TotalFailed++
		}
		out.Results = append(out.Results, entry)
	}
	return out
}

func toDocumentListResponse(documents []ingest.Document) documentListResponse {
	out := documentListResponse{
		Documents: make([]documentInfo, 0, len(documents)),
		Total:     len(documents),
	}
	for _, doc := range documents {
		out.Documents = append(out.Documents, documentInfo{
			DocumentID:  doc.ID.String(),
			Filename:    doc.Filename,
			FileType:    string(doc.FileType),
			FileSize:    doc.SizeBytes,
			ChunksCount: doc.ChunkCount,
			UploadedAt:  doc.UploadedAt.Format(time.RFC3339),
		})
	}
	return out
}
